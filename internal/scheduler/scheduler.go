// scheduler.go — agent scheduler (§4.K).
// Provides the API the UI calls to place, navigate, and destroy agents,
// plus round-robin placement and bounds reconciliation on layout events.
package scheduler

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/agentic-web/workspace/internal/apperr"
	"github.com/agentic-web/workspace/internal/browser"
	"github.com/agentic-web/workspace/internal/registry"
	"github.com/agentic-web/workspace/internal/types"
	"golang.org/x/sync/errgroup"
)

// LayoutFunc computes the grid bounds for slot out of n total slots
// within the current window. Supplied by the UI layer; the scheduler
// only calls it, never interprets window geometry itself.
type LayoutFunc func(slot, n int) types.Bounds

// Scheduler drives agent placement against the browser-engine
// collaborator, backed by a Registry for bookkeeping.
type Scheduler struct {
	mu       sync.Mutex
	reg      *registry.Registry
	engine   browser.Engine
	layout   LayoutFunc
	n        int
	cursor   int
	views    map[string]browser.ViewHandle
	debounce time.Duration
	idGen    func() string

	debounceTimer *time.Timer
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithDebounce overrides the default bounds-reconciliation debounce delay.
func WithDebounce(d time.Duration) Option {
	return func(s *Scheduler) { s.debounce = d }
}

// WithIDGenerator overrides how new agent IDs are minted (tests use a
// deterministic sequence).
func WithIDGenerator(f func() string) Option {
	return func(s *Scheduler) { s.idGen = f }
}

// New builds a Scheduler with n slots.
func New(reg *registry.Registry, engine browser.Engine, layout LayoutFunc, n int, opts ...Option) *Scheduler {
	s := &Scheduler{
		reg:      reg,
		engine:   engine,
		layout:   layout,
		n:        n,
		views:    make(map[string]browser.ViewHandle),
		debounce: 100 * time.Millisecond,
		idGen:    defaultIDGenerator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func defaultIDGenerator() func() string {
	var counter int64
	return func() string {
		counter++
		return "agent-" + time.Now().Format("150405.000000") + "-" + itoa64(counter)
	}
}

func itoa64(n int64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// CreateInSlot creates a new agent in slot with bounds computed from the
// scheduler's LayoutFunc. Fails with apperr.InvalidBounds or
// apperr.SlotOccupied.
func (s *Scheduler) CreateInSlot(ctx context.Context, slot int) (types.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createInSlotLocked(ctx, slot)
}

func (s *Scheduler) createInSlotLocked(ctx context.Context, slot int) (types.Agent, error) {
	bounds := s.layout(slot, s.n)
	if !bounds.Valid() {
		return types.Agent{}, apperr.New(apperr.InvalidBounds, "computed bounds for slot are too small")
	}

	agentID := s.idGen()
	if _, err := s.reg.Insert(agentID, slot, bounds); err != nil {
		return types.Agent{}, err
	}

	view, err := s.engine.CreateView(ctx, bounds)
	if err != nil {
		s.reg.Remove(agentID)
		return types.Agent{}, apperr.Wrap(apperr.BrowserError, "createView failed", err)
	}
	s.views[agentID] = view

	agent, _ := s.reg.Get(agentID)
	return agent, nil
}

// Destroy tears down agentID and releases its slot. Idempotent.
func (s *Scheduler) Destroy(ctx context.Context, agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroyLocked(ctx, agentID)
}

func (s *Scheduler) destroyLocked(ctx context.Context, agentID string) error {
	view, ok := s.views[agentID]
	if !ok {
		s.reg.Remove(agentID)
		return nil
	}
	delete(s.views, agentID)
	s.reg.Remove(agentID)
	if err := s.engine.DestroyView(ctx, view); err != nil {
		return apperr.Wrap(apperr.BrowserError, "destroyView failed", err)
	}
	return nil
}

// Navigate points agentID at url, normalizing a schemeless input to
// https://. Fails with apperr.UnknownAgent for a destroyed or
// never-created agent.
func (s *Scheduler) Navigate(ctx context.Context, agentID, url string) error {
	s.mu.Lock()
	view, ok := s.views[agentID]
	s.mu.Unlock()
	if !ok {
		return apperr.New(apperr.UnknownAgent, "unknown agent "+agentID)
	}

	normalized := normalizeURL(url)
	if err := s.engine.Navigate(ctx, view, normalized); err != nil {
		return apperr.Wrap(apperr.BrowserError, "navigate failed", err)
	}
	return s.reg.SetURL(agentID, normalized)
}

// normalizeURL prepends https:// to a schemeless input, per §4.K.
func normalizeURL(url string) string {
	if strings.Contains(url, "://") {
		return url
	}
	return "https://" + url
}

// SetBounds updates agentID's bounds at the collaborator and registry.
func (s *Scheduler) SetBounds(ctx context.Context, agentID string, bounds types.Bounds) error {
	s.mu.Lock()
	view, ok := s.views[agentID]
	s.mu.Unlock()
	if !ok {
		return apperr.New(apperr.UnknownAgent, "unknown agent "+agentID)
	}
	if !bounds.Valid() {
		return apperr.New(apperr.InvalidBounds, "bounds below minimum dimension")
	}
	if err := s.engine.SetBounds(ctx, view, bounds); err != nil {
		return apperr.Wrap(apperr.BrowserError, "setBounds failed", err)
	}
	return s.reg.SetBounds(agentID, bounds)
}

// NavigateNext implements the round-robin placement of §4.K: the slot at
// the cursor is reused if occupied, otherwise a new agent is created
// there first; the cursor advances exactly once per call regardless of
// which path was taken.
func (s *Scheduler) NavigateNext(ctx context.Context, url string) (types.Agent, error) {
	s.mu.Lock()
	slot := s.cursor
	s.cursor = (s.cursor + 1) % s.n
	s.mu.Unlock()

	agent, ok := s.reg.AgentAtSlot(slot)
	if !ok {
		s.mu.Lock()
		created, err := s.createInSlotLocked(ctx, slot)
		s.mu.Unlock()
		if err != nil {
			return types.Agent{}, err
		}
		agent = created
	}

	if err := s.Navigate(ctx, agent.AgentID, url); err != nil {
		return types.Agent{}, err
	}
	agent, _ = s.reg.Get(agent.AgentID)
	return agent, nil
}

// ReconcileLayout recomputes bounds for every live agent's slot and
// applies them concurrently via the browser-engine collaborator
// (§4.K/DOMAIN STACK: fan-out via errgroup). A fullscreen agent is
// skipped; its bounds are left as the collaborator last set them.
func (s *Scheduler) ReconcileLayout(ctx context.Context) error {
	agents := s.reg.All()

	g, gctx := errgroup.WithContext(ctx)
	for _, a := range agents {
		a := a
		if a.Fullscreen {
			continue
		}
		bounds := s.layout(a.Slot, s.n)
		g.Go(func() error {
			return s.SetBounds(gctx, a.AgentID, bounds)
		})
	}
	return g.Wait()
}

// ReconcileLayoutDebounced schedules ReconcileLayout after the
// scheduler's debounce delay, coalescing repeated calls within that
// window into a single reconciliation pass.
func (s *Scheduler) ReconcileLayoutDebounced(ctx context.Context) {
	s.mu.Lock()
	if s.debounceTimer != nil {
		s.debounceTimer.Stop()
	}
	s.debounceTimer = time.AfterFunc(s.debounce, func() {
		_ = s.ReconcileLayout(ctx)
	})
	s.mu.Unlock()
}

// AgentIDForView reverse-looks-up the agent owning view, for callers that
// only receive a ViewHandle back from the collaborator (e.g. a
// browser.StatusEvent) and need the agent_id it belongs to.
func (s *Scheduler) AgentIDForView(view browser.ViewHandle) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for agentID, v := range s.views {
		if v == view {
			return agentID, true
		}
	}
	return "", false
}

// SetFullscreen enters or exits fullscreen for agentID. Exiting restores
// every agent's bounds to the grid via ReconcileLayout.
func (s *Scheduler) SetFullscreen(ctx context.Context, agentID string, fullscreen bool) error {
	if err := s.reg.SetFullscreen(agentID, fullscreen); err != nil {
		return err
	}
	if !fullscreen {
		return s.ReconcileLayout(ctx)
	}
	return nil
}
