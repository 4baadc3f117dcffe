package transcript

import (
	"testing"
	"time"

	"github.com/agentic-web/workspace/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PutGetHas(t *testing.T) {
	s := New()
	assert.False(t, s.Has("a1", "v1"))

	segs := []types.Segment{{StartS: 2, EndS: 3, Text: "second"}, {StartS: 0, EndS: 1, Text: "first"}}
	s.Put("a1", "v1", "en", segs, time.Unix(0, 0))

	require.True(t, s.Has("a1", "v1"))
	stored, ok := s.Get("a1", "v1")
	require.True(t, ok)
	require.Len(t, stored.Segments, 2)
	assert.Equal(t, "first", stored.Segments[0].Text, "segments must be sorted by start_s on store")
	assert.Equal(t, "second", stored.Segments[1].Text)
}

func TestStore_LaterCaptureOverwrites(t *testing.T) {
	s := New()
	s.Put("a1", "v1", "en", []types.Segment{{StartS: 0, EndS: 1, Text: "old"}}, time.Unix(0, 0))
	s.Put("a1", "v1", "es", []types.Segment{{StartS: 0, EndS: 1, Text: "new"}}, time.Unix(1, 0))

	stored, ok := s.Get("a1", "v1")
	require.True(t, ok)
	assert.Equal(t, "es", stored.Language)
	require.Len(t, stored.Segments, 1)
	assert.Equal(t, "new", stored.Segments[0].Text)
}

func TestStore_FullTextEmptyWhenAbsent(t *testing.T) {
	s := New()
	assert.Equal(t, "", s.FullText("nope", "nope"))
}

func TestStore_FullTextZeroSegments(t *testing.T) {
	s := New()
	s.Put("a1", "v1", "en", nil, time.Unix(0, 0))
	assert.Equal(t, "", s.FullText("a1", "v1"))
	assert.Empty(t, s.SegmentsInRange("a1", "v1", 0, 100))
}

func TestStore_SegmentsInRange(t *testing.T) {
	s := New()
	segs := []types.Segment{
		{StartS: 0, EndS: 5, Text: "a"},
		{StartS: 4, EndS: 10, Text: "b"},
		{StartS: 20, EndS: 25, Text: "c"},
	}
	s.Put("a1", "v1", "en", segs, time.Unix(0, 0))

	got := s.SegmentsInRange("a1", "v1", 6, 9)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].Text)

	got = s.SegmentsInRange("a1", "v1", 0, 30)
	assert.Len(t, got, 3)

	got = s.SegmentsInRange("a1", "v1", 100, 200)
	assert.Empty(t, got)
}

func TestStore_DeleteIsIdempotent(t *testing.T) {
	s := New()
	s.Put("a1", "v1", "en", []types.Segment{{StartS: 0, EndS: 1, Text: "x"}}, time.Unix(0, 0))
	s.Delete("a1", "v1")
	assert.False(t, s.Has("a1", "v1"))
	s.Delete("a1", "v1")
	assert.False(t, s.Has("a1", "v1"))
}

func TestStore_DeleteAgentRemovesOnlyThatAgent(t *testing.T) {
	s := New()
	s.Put("a1", "v1", "en", []types.Segment{{StartS: 0, EndS: 1, Text: "x"}}, time.Unix(0, 0))
	s.Put("a2", "v1", "en", []types.Segment{{StartS: 0, EndS: 1, Text: "y"}}, time.Unix(0, 0))

	s.DeleteAgent("a1")
	assert.False(t, s.Has("a1", "v1"))
	assert.True(t, s.Has("a2", "v1"))
}
