// registry.go — agent registry (§4.J).
// An ordered map keyed by agent_id plus a bijective slot index. The
// single authority on slot occupancy; every operation is short, so a
// single mutex is sufficient (§5).
package registry

import (
	"strconv"
	"sync"
	"time"

	"github.com/agentic-web/workspace/internal/apperr"
	"github.com/agentic-web/workspace/internal/types"
)

// Registry holds the live set of agents. Safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	order   []string // agent_id insertion order, for ordered-map iteration
	agents  map[string]*types.Agent
	bySlot  map[int]string // slot -> agent_id, partial and bijective
}

// New builds an empty Registry.
func New() *Registry {
	return &Registry{
		agents: make(map[string]*types.Agent),
		bySlot: make(map[int]string),
	}
}

// Insert creates an agent in slot with the given bounds. Fails with
// apperr.SlotOccupied if the slot is already in use.
func (r *Registry) Insert(agentID string, slot int, bounds types.Bounds) (*types.Agent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.bySlot[slot]; ok {
		return nil, apperr.New(apperr.SlotOccupied, "slot "+strconv.Itoa(slot)+" is occupied by "+existing)
	}

	agent := &types.Agent{
		AgentID:   agentID,
		Slot:      slot,
		Bounds:    bounds,
		Status:    types.StatusIdle,
		CreatedAt: time.Now(),
	}
	r.agents[agentID] = agent
	r.bySlot[slot] = agentID
	r.order = append(r.order, agentID)
	return agent, nil
}

// Remove deletes agentID and vacates its slot. Idempotent.
func (r *Registry) Remove(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(agentID)
}

func (r *Registry) removeLocked(agentID string) {
	agent, ok := r.agents[agentID]
	if !ok {
		return
	}
	delete(r.agents, agentID)
	delete(r.bySlot, agent.Slot)
	for i, id := range r.order {
		if id == agentID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Get returns the agent for agentID, if any.
func (r *Registry) Get(agentID string) (types.Agent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	if !ok {
		return types.Agent{}, false
	}
	return *a, true
}

// AgentAtSlot returns the agent occupying slot, if any.
func (r *Registry) AgentAtSlot(slot int) (types.Agent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.bySlot[slot]
	if !ok {
		return types.Agent{}, false
	}
	return *r.agents[id], true
}

// SlotOccupied reports whether slot currently has an agent.
func (r *Registry) SlotOccupied(slot int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.bySlot[slot]
	return ok
}

// SetBounds updates agentID's bounds. Fails with apperr.UnknownAgent if
// agentID does not exist.
func (r *Registry) SetBounds(agentID string, bounds types.Bounds) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	if !ok {
		return apperr.New(apperr.UnknownAgent, "unknown agent "+agentID)
	}
	a.Bounds = bounds
	return nil
}

// SetURL updates agentID's current URL.
func (r *Registry) SetURL(agentID, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	if !ok {
		return apperr.New(apperr.UnknownAgent, "unknown agent "+agentID)
	}
	a.URL = url
	return nil
}

// SetStatus updates agentID's lifecycle status.
func (r *Registry) SetStatus(agentID string, status types.AgentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.agents[agentID]
	if !ok {
		return apperr.New(apperr.UnknownAgent, "unknown agent "+agentID)
	}
	a.Status = status
	return nil
}

// SetFullscreen marks agentID as the sole fullscreen agent, clearing the
// flag on every other agent (§4.K: at most one slot fullscreen at a time).
func (r *Registry) SetFullscreen(agentID string, fullscreen bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	target, ok := r.agents[agentID]
	if !ok {
		return apperr.New(apperr.UnknownAgent, "unknown agent "+agentID)
	}
	if fullscreen {
		for _, a := range r.agents {
			a.Fullscreen = false
		}
	}
	target.Fullscreen = fullscreen
	return nil
}

// All returns every live agent in insertion order.
func (r *Registry) All() []types.Agent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.Agent, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.agents[id])
	}
	return out
}
