package scheduler

import (
	"context"
	"strconv"
	"testing"

	"github.com/agentic-web/workspace/internal/apperr"
	"github.com/agentic-web/workspace/internal/browser"
	"github.com/agentic-web/workspace/internal/registry"
	"github.com/agentic-web/workspace/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gridLayout lays slots out in a single row, each 100x100, so Valid()
// always passes; tests that want INVALID_BOUNDS override it per-call.
func gridLayout(slot, n int) types.Bounds {
	return types.Bounds{X: slot * 100, Y: 0, W: 100, H: 100}
}

func sequentialIDs() func() string {
	i := 0
	return func() string {
		i++
		return "agent-" + strconv.Itoa(i)
	}
}

func newTestScheduler(n int) (*Scheduler, *registry.Registry, *browser.Fake) {
	reg := registry.New()
	fake := browser.NewFake()
	s := New(reg, fake, gridLayout, n, WithIDGenerator(sequentialIDs()))
	return s, reg, fake
}

func TestScheduler_AgentIDForView(t *testing.T) {
	s, _, _ := newTestScheduler(2)
	ctx := context.Background()

	agent, err := s.CreateInSlot(ctx, 0)
	require.NoError(t, err)

	view := browser.ViewHandle("view-1")
	found, ok := s.AgentIDForView(view)
	require.True(t, ok)
	assert.Equal(t, agent.AgentID, found)

	_, ok = s.AgentIDForView("view-missing")
	assert.False(t, ok)

	require.NoError(t, s.Destroy(ctx, agent.AgentID))
	_, ok = s.AgentIDForView(view)
	assert.False(t, ok, "destroyed agent's view should no longer resolve")
}

func TestScheduler_S1_RoundRobinNavigation(t *testing.T) {
	s, _, _ := newTestScheduler(4)
	ctx := context.Background()

	urls := []string{"example.com", "foo.com", "bar.com", "baz.com", "qux.com"}
	var agents []types.Agent
	for _, u := range urls {
		a, err := s.NavigateNext(ctx, u)
		require.NoError(t, err)
		agents = append(agents, a)
	}

	assert.Equal(t, 0, agents[0].Slot)
	assert.Equal(t, 1, agents[1].Slot)
	assert.Equal(t, 2, agents[2].Slot)
	assert.Equal(t, 3, agents[3].Slot)

	assert.Equal(t, "https://example.com", agents[0].URL)
	assert.Equal(t, "https://foo.com", agents[1].URL)
	assert.Equal(t, "https://bar.com", agents[2].URL)
	assert.Equal(t, "https://baz.com", agents[3].URL)

	assert.Equal(t, 0, agents[4].Slot, "fifth call must reuse slot 0")
	assert.Equal(t, "https://qux.com", agents[4].URL)
	assert.Equal(t, agents[0].AgentID, agents[4].AgentID)

	assert.Equal(t, 1, s.cursor, "cursor must end at 1")
}

func TestScheduler_CreateInSlot_SlotOccupied(t *testing.T) {
	s, _, _ := newTestScheduler(4)
	ctx := context.Background()

	_, err := s.CreateInSlot(ctx, 0)
	require.NoError(t, err)

	_, err = s.CreateInSlot(ctx, 0)
	require.Error(t, err)
	assert.Equal(t, apperr.SlotOccupied, apperr.KindOf(err))
}

func TestScheduler_CreateInSlot_InvalidBounds(t *testing.T) {
	reg := registry.New()
	fake := browser.NewFake()
	tooSmall := func(slot, n int) types.Bounds { return types.Bounds{W: 1, H: 1} }
	s := New(reg, fake, tooSmall, 4, WithIDGenerator(sequentialIDs()))

	_, err := s.CreateInSlot(context.Background(), 0)
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidBounds, apperr.KindOf(err))
}

func TestScheduler_Destroy_FreesSlotAndView(t *testing.T) {
	s, reg, _ := newTestScheduler(4)
	ctx := context.Background()
	a, err := s.CreateInSlot(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, s.Destroy(ctx, a.AgentID))
	assert.False(t, reg.SlotOccupied(1))

	err = s.Navigate(ctx, a.AgentID, "example.com")
	require.Error(t, err, "destroyed agent must be unknown to Navigate")
	assert.Equal(t, apperr.UnknownAgent, apperr.KindOf(err))
}

func TestScheduler_Destroy_IsIdempotent(t *testing.T) {
	s, _, _ := newTestScheduler(4)
	ctx := context.Background()
	a, err := s.CreateInSlot(ctx, 0)
	require.NoError(t, err)

	require.NoError(t, s.Destroy(ctx, a.AgentID))
	require.NoError(t, s.Destroy(ctx, a.AgentID))
}

func TestScheduler_Navigate_UnknownAgent(t *testing.T) {
	s, _, _ := newTestScheduler(4)
	err := s.Navigate(context.Background(), "ghost", "example.com")
	require.Error(t, err)
	assert.Equal(t, apperr.UnknownAgent, apperr.KindOf(err))
}

func TestScheduler_Navigate_NormalizesSchemelessURL(t *testing.T) {
	s, reg, _ := newTestScheduler(4)
	ctx := context.Background()
	a, err := s.CreateInSlot(ctx, 0)
	require.NoError(t, err)

	require.NoError(t, s.Navigate(ctx, a.AgentID, "example.com"))
	got, _ := reg.Get(a.AgentID)
	assert.Equal(t, "https://example.com", got.URL)

	require.NoError(t, s.Navigate(ctx, a.AgentID, "https://already-has-scheme.com"))
	got, _ = reg.Get(a.AgentID)
	assert.Equal(t, "https://already-has-scheme.com", got.URL)
}

func TestScheduler_SetBounds_InvalidBounds(t *testing.T) {
	s, _, _ := newTestScheduler(4)
	ctx := context.Background()
	a, err := s.CreateInSlot(ctx, 0)
	require.NoError(t, err)

	err = s.SetBounds(ctx, a.AgentID, types.Bounds{W: 1, H: 1})
	require.Error(t, err)
	assert.Equal(t, apperr.InvalidBounds, apperr.KindOf(err))
}

func TestScheduler_ReconcileLayout_SkipsFullscreenAgent(t *testing.T) {
	s, reg, _ := newTestScheduler(4)
	ctx := context.Background()
	a0, err := s.CreateInSlot(ctx, 0)
	require.NoError(t, err)
	a1, err := s.CreateInSlot(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, s.SetFullscreen(ctx, a0.AgentID, true))

	fullscreenBounds := types.Bounds{X: 0, Y: 0, W: 1000, H: 1000}
	require.NoError(t, s.SetBounds(ctx, a0.AgentID, fullscreenBounds))

	require.NoError(t, s.ReconcileLayout(ctx))

	a0After, _ := reg.Get(a0.AgentID)
	a1After, _ := reg.Get(a1.AgentID)
	assert.Equal(t, fullscreenBounds, a0After.Bounds, "fullscreen agent must be skipped by reconciliation")
	assert.Equal(t, gridLayout(1, 4), a1After.Bounds)
}

func TestScheduler_SetFullscreen_ExitRestoresGrid(t *testing.T) {
	s, reg, _ := newTestScheduler(4)
	ctx := context.Background()
	a0, err := s.CreateInSlot(ctx, 0)
	require.NoError(t, err)

	require.NoError(t, s.SetFullscreen(ctx, a0.AgentID, true))
	require.NoError(t, s.SetBounds(ctx, a0.AgentID, types.Bounds{W: 999, H: 999}))

	require.NoError(t, s.SetFullscreen(ctx, a0.AgentID, false))

	got, _ := reg.Get(a0.AgentID)
	assert.Equal(t, gridLayout(0, 4), got.Bounds)
	assert.False(t, got.Fullscreen)
}

func TestScheduler_ReconcileLayout_IsConcurrentSafe(t *testing.T) {
	s, _, _ := newTestScheduler(4)
	ctx := context.Background()
	for slot := 0; slot < 4; slot++ {
		_, err := s.CreateInSlot(ctx, slot)
		require.NoError(t, err)
	}
	require.NoError(t, s.ReconcileLayout(ctx))
}
