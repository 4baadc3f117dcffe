// store.go — in-memory transcript store (§4.G).
// Keyed by (agent_id, video_id); a later capture for the same key
// overwrites the prior one. Unbounded within a run; reclamation is
// explicit (§5), driven by the agent tool's destroy action in
// internal/mcp, which calls DeleteAgent.
package transcript

import (
	"sort"
	"sync"
	"time"

	"github.com/agentic-web/workspace/internal/types"
)

type key struct {
	agentID string
	videoID string
}

// Store is safe for concurrent use; all operations are guarded by a
// single mutex since transcript operations are rare relative to reads
// elsewhere in the pipeline (§5's "globally (coarse) is acceptable").
type Store struct {
	mu   sync.RWMutex
	data map[key]types.StoredTranscript
}

// New builds an empty Store.
func New() *Store {
	return &Store{data: make(map[key]types.StoredTranscript)}
}

// Put stores (overwriting any prior entry for the same key) a transcript
// built from segments, sorted by start time per the store's invariant
// that a stored sequence is non-decreasing in start_s.
func (s *Store) Put(agentID, videoID, language string, segments []types.Segment, capturedAt time.Time) {
	sorted := append([]types.Segment(nil), segments...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StartS < sorted[j].StartS })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key{agentID, videoID}] = types.StoredTranscript{
		AgentID:    agentID,
		VideoID:    videoID,
		Language:   language,
		Segments:   sorted,
		CapturedAt: capturedAt,
	}
}

// Has reports whether a transcript is stored for (agentID, videoID).
func (s *Store) Has(agentID, videoID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key{agentID, videoID}]
	return ok
}

// Get returns the stored transcript for (agentID, videoID), if any.
func (s *Store) Get(agentID, videoID string) (types.StoredTranscript, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.data[key{agentID, videoID}]
	return t, ok
}

// FullText returns the concatenated transcript text for (agentID,
// videoID), or "" if absent or empty.
func (s *Store) FullText(agentID, videoID string) string {
	t, ok := s.Get(agentID, videoID)
	if !ok {
		return ""
	}
	return t.FullText()
}

// SegmentsInRange returns every stored segment overlapping [startS, endS],
// located via binary search over the sorted start-time sequence.
func (s *Store) SegmentsInRange(agentID, videoID string, startS, endS float64) []types.Segment {
	t, ok := s.Get(agentID, videoID)
	if !ok || len(t.Segments) == 0 {
		return nil
	}
	segs := t.Segments

	// Binary-search for the first segment starting after endS; only the
	// segments before it can overlap, so scan those for EndS >= startS
	// since EndS isn't itself sorted.
	hi := sort.Search(len(segs), func(i int) bool { return segs[i].StartS > endS })

	var out []types.Segment
	for i := 0; i < hi; i++ {
		if segs[i].EndS >= startS {
			out = append(out, segs[i])
		}
	}
	return out
}

// Delete removes the stored transcript for (agentID, videoID), if any.
// Idempotent.
func (s *Store) Delete(agentID, videoID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key{agentID, videoID})
}

// DeleteAgent removes every transcript belonging to agentID, used on
// agent destruction per §4.G's policy reference.
func (s *Store) DeleteAgent(agentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.data {
		if k.agentID == agentID {
			delete(s.data, k)
		}
	}
}
