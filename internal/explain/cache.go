// cache.go — bounded, time-expiring explain-session cache (§4.H).
// Serializes concurrent ask/explain calls for the same (agent, video)
// key so at most one LLM round-trip per key is ever in flight, while
// session bookkeeping (touch time, admission, eviction) is guarded
// globally since it never blocks on I/O.
package explain

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/agentic-web/workspace/internal/apperr"
)

// Mode is the single-shot prompt mode cached per session.
type Mode string

const (
	ModeSummary Mode = "summary"
	ModeExplain Mode = "explain"
)

// Role distinguishes a history turn's speaker.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Turn is one entry in a session's conversational history.
type Turn struct {
	Role Role
	Text string
}

// Key identifies one explain session.
type Key struct {
	AgentID string
	VideoID string
}

// Session is the cached conversational context for one (agent, video)
// pair. mu serializes ask/explain calls so at most one LLM round-trip
// per key is ever in flight (§4.H's concurrency contract).
type Session struct {
	mu               sync.Mutex
	key              Key
	createdAt        time.Time
	lastTouchedAt    time.Time
	history          []Turn
	explanationCache map[Mode]string
	llmHandle        any
}

// History returns a copy of the session's accumulated turns.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Turn(nil), s.history...)
}

// TranscriptProvider is the subset of internal/transcript.Store the
// cache needs: existence checks and full-text retrieval for prompt
// construction. internal/transcript.Store satisfies this directly.
type TranscriptProvider interface {
	Has(agentID, videoID string) bool
	FullText(agentID, videoID string) string
}

// LLMClient is the facade the cache drives LLM calls through (§4.I).
type LLMClient interface {
	NewHandle(ctx context.Context, transcript string) (any, error)
	Ask(ctx context.Context, handle any, question string) (string, error)
	Explain(ctx context.Context, transcript string, mode Mode) (string, error)
}

// Cache is the §4.H explain-session cache: at most M sessions, each
// expiring after T of inactivity.
type Cache struct {
	mu           sync.Mutex
	sessions     map[Key]*Session
	m            int
	t            time.Duration
	transcripts  TranscriptProvider
	llm          LLMClient
	now          func() time.Time
}

// New builds a Cache bounded to m sessions with expiry timeout t.
func New(m int, t time.Duration, transcripts TranscriptProvider, llm LLMClient) *Cache {
	return &Cache{
		sessions:    make(map[Key]*Session),
		m:           m,
		t:           t,
		transcripts: transcripts,
		llm:         llm,
		now:         time.Now,
	}
}

// Size returns the current session count.
func (c *Cache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// ensure performs the §4.H eviction-then-admission algorithm and returns
// the (possibly newly created) session for key, touched to now.
func (c *Cache) ensure(key Key) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	for k, s := range c.sessions {
		if now.Sub(s.lastTouchedAt) >= c.t {
			delete(c.sessions, k)
		}
	}

	sess, exists := c.sessions[key]
	if !exists {
		for len(c.sessions) >= c.m {
			oldest := c.oldestKeyLocked()
			delete(c.sessions, oldest)
		}
		sess = &Session{
			key:              key,
			createdAt:        now,
			explanationCache: make(map[Mode]string),
		}
		c.sessions[key] = sess
	}
	sess.lastTouchedAt = now
	return sess
}

// oldestKeyLocked returns the key with the smallest last_touched_at.
// Callers must hold c.mu.
func (c *Cache) oldestKeyLocked() Key {
	var oldestKey Key
	var oldestTime time.Time
	first := true
	for k, s := range c.sessions {
		if first || s.lastTouchedAt.Before(oldestTime) {
			oldestKey = k
			oldestTime = s.lastTouchedAt
			first = false
		}
	}
	return oldestKey
}

// keysSortedByTouch is a test-introspection helper; not used by production paths.
func (c *Cache) keysSortedByTouch() []Key {
	c.mu.Lock()
	defer c.mu.Unlock()
	keys := make([]Key, 0, len(c.sessions))
	for k := range c.sessions {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return c.sessions[keys[i]].lastTouchedAt.Before(c.sessions[keys[j]].lastTouchedAt)
	})
	return keys
}

// Ask sends question through the session's conversational handle,
// creating the handle (seeded with the full transcript as first-turn
// context) on first use. Appends (user, model) turns to history only on
// success; a failure never poisons session state.
func (c *Cache) Ask(ctx context.Context, agentID, videoID, question string) (string, error) {
	if !c.transcripts.Has(agentID, videoID) {
		return "", apperr.New(apperr.TranscriptUnavailable, "no transcript for "+agentID+"/"+videoID)
	}
	sess := c.ensure(Key{AgentID: agentID, VideoID: videoID})

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.llmHandle == nil {
		h, err := c.llm.NewHandle(ctx, c.transcripts.FullText(agentID, videoID))
		if err != nil {
			return "", apperr.Wrap(apperr.LLMUnavailable, "failed to start conversation", err)
		}
		sess.llmHandle = h
	}

	answer, err := c.llm.Ask(ctx, sess.llmHandle, question)
	if err != nil {
		return "", apperr.Wrap(apperr.LLMUnavailable, "ask failed", err)
	}

	sess.history = append(sess.history, Turn{Role: RoleUser, Text: question}, Turn{Role: RoleModel, Text: answer})
	return answer, nil
}

// Explain returns the cached text for mode if present; otherwise it
// calls the LLM facade and caches the result. A failure never poisons
// the cache.
func (c *Cache) Explain(ctx context.Context, agentID, videoID string, mode Mode) (string, error) {
	if !c.transcripts.Has(agentID, videoID) {
		return "", apperr.New(apperr.TranscriptUnavailable, "no transcript for "+agentID+"/"+videoID)
	}
	sess := c.ensure(Key{AgentID: agentID, VideoID: videoID})

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if cached, ok := sess.explanationCache[mode]; ok {
		return cached, nil
	}

	text, err := c.llm.Explain(ctx, c.transcripts.FullText(agentID, videoID), mode)
	if err != nil {
		return "", apperr.Wrap(apperr.LLMUnavailable, "explain failed", err)
	}

	sess.explanationCache[mode] = text
	return text, nil
}
