package registry

import (
	"testing"

	"github.com/agentic-web/workspace/internal/apperr"
	"github.com/agentic-web/workspace/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var validBounds = types.Bounds{X: 0, Y: 0, W: 100, H: 100}

func TestRegistry_InsertAndGet(t *testing.T) {
	r := New()
	agent, err := r.Insert("a1", 0, validBounds)
	require.NoError(t, err)
	assert.Equal(t, 0, agent.Slot)
	assert.Equal(t, types.StatusIdle, agent.Status)

	got, ok := r.Get("a1")
	require.True(t, ok)
	assert.Equal(t, "a1", got.AgentID)
}

func TestRegistry_InsertSlotOccupied(t *testing.T) {
	r := New()
	_, err := r.Insert("a1", 0, validBounds)
	require.NoError(t, err)

	_, err = r.Insert("a2", 0, validBounds)
	require.Error(t, err)
	assert.Equal(t, apperr.SlotOccupied, apperr.KindOf(err))
}

// TestRegistry_S5_DestroyFreesSlot mirrors spec invariant 5.
func TestRegistry_S5_DestroyFreesSlot(t *testing.T) {
	r := New()
	_, err := r.Insert("a1", 2, validBounds)
	require.NoError(t, err)

	r.Remove("a1")
	_, ok := r.Get("a1")
	assert.False(t, ok)
	assert.False(t, r.SlotOccupied(2))

	_, err = r.Insert("a2", 2, validBounds)
	assert.NoError(t, err, "vacated slot must be immediately available")
}

func TestRegistry_RemoveIsIdempotent(t *testing.T) {
	r := New()
	_, _ = r.Insert("a1", 0, validBounds)
	r.Remove("a1")
	r.Remove("a1")
	assert.False(t, r.SlotOccupied(0))
}

func TestRegistry_SetBoundsUnknownAgent(t *testing.T) {
	r := New()
	err := r.SetBounds("nope", validBounds)
	require.Error(t, err)
	assert.Equal(t, apperr.UnknownAgent, apperr.KindOf(err))
}

func TestRegistry_SetURLAndStatus(t *testing.T) {
	r := New()
	_, _ = r.Insert("a1", 0, validBounds)
	require.NoError(t, r.SetURL("a1", "https://example.com"))
	require.NoError(t, r.SetStatus("a1", types.StatusLoaded))

	got, _ := r.Get("a1")
	assert.Equal(t, "https://example.com", got.URL)
	assert.Equal(t, types.StatusLoaded, got.Status)
}

func TestRegistry_FullscreenIsExclusive(t *testing.T) {
	r := New()
	_, _ = r.Insert("a1", 0, validBounds)
	_, _ = r.Insert("a2", 1, validBounds)

	require.NoError(t, r.SetFullscreen("a1", true))
	a1, _ := r.Get("a1")
	assert.True(t, a1.Fullscreen)

	require.NoError(t, r.SetFullscreen("a2", true))
	a1, _ = r.Get("a1")
	a2, _ := r.Get("a2")
	assert.False(t, a1.Fullscreen, "entering fullscreen elsewhere must clear the previous holder")
	assert.True(t, a2.Fullscreen)
}

func TestRegistry_AllPreservesInsertionOrder(t *testing.T) {
	r := New()
	_, _ = r.Insert("a1", 0, validBounds)
	_, _ = r.Insert("a2", 1, validBounds)
	_, _ = r.Insert("a3", 2, validBounds)

	all := r.All()
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a1", "a2", "a3"}, []string{all[0].AgentID, all[1].AgentID, all[2].AgentID})
}
