package explain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/agentic-web/workspace/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranscripts struct {
	present map[Key]string
}

func (f *fakeTranscripts) Has(agentID, videoID string) bool {
	_, ok := f.present[Key{agentID, videoID}]
	return ok
}

func (f *fakeTranscripts) FullText(agentID, videoID string) string {
	return f.present[Key{agentID, videoID}]
}

type fakeLLM struct {
	explainCalls int
	askCalls     int
	failNext     bool
}

func (f *fakeLLM) NewHandle(ctx context.Context, transcript string) (any, error) {
	return "handle:" + transcript, nil
}

func (f *fakeLLM) Ask(ctx context.Context, handle any, question string) (string, error) {
	f.askCalls++
	if f.failNext {
		f.failNext = false
		return "", errors.New("llm down")
	}
	return "answer to " + question, nil
}

func (f *fakeLLM) Explain(ctx context.Context, transcript string, mode Mode) (string, error) {
	f.explainCalls++
	if f.failNext {
		f.failNext = false
		return "", errors.New("llm down")
	}
	return string(mode) + ":" + transcript, nil
}

func newTestCache(m int, t time.Duration, present map[Key]string, llm LLMClient) *Cache {
	c := New(m, t, &fakeTranscripts{present: present}, llm)
	return c
}

func TestCache_TranscriptUnavailable(t *testing.T) {
	c := newTestCache(10, time.Minute, map[Key]string{}, &fakeLLM{})
	_, err := c.Ask(context.Background(), "a1", "v1", "what is this?")
	require.Error(t, err)
	assert.Equal(t, apperr.TranscriptUnavailable, apperr.KindOf(err))
}

func TestCache_AskAppendsHistoryOnSuccess(t *testing.T) {
	present := map[Key]string{{"a1", "v1"}: "hello world transcript"}
	llm := &fakeLLM{}
	c := newTestCache(10, time.Minute, present, llm)

	answer, err := c.Ask(context.Background(), "a1", "v1", "what happened?")
	require.NoError(t, err)
	assert.Equal(t, "answer to what happened?", answer)

	sess := c.ensure(Key{"a1", "v1"})
	hist := sess.History()
	require.Len(t, hist, 2)
	assert.Equal(t, RoleUser, hist[0].Role)
	assert.Equal(t, RoleModel, hist[1].Role)
}

func TestCache_AskFailureDoesNotPoisonHistory(t *testing.T) {
	present := map[Key]string{{"a1", "v1"}: "transcript"}
	llm := &fakeLLM{failNext: true}
	c := newTestCache(10, time.Minute, present, llm)

	_, err := c.Ask(context.Background(), "a1", "v1", "q1")
	require.Error(t, err)
	assert.Equal(t, apperr.LLMUnavailable, apperr.KindOf(err))

	sess := c.ensure(Key{"a1", "v1"})
	assert.Empty(t, sess.History())

	answer, err := c.Ask(context.Background(), "a1", "v1", "q2")
	require.NoError(t, err)
	assert.Equal(t, "answer to q2", answer)
}

func TestCache_ExplainCachesByMode(t *testing.T) {
	present := map[Key]string{{"a1", "v1"}: "transcript text"}
	llm := &fakeLLM{}
	c := newTestCache(10, time.Minute, present, llm)

	first, err := c.Explain(context.Background(), "a1", "v1", ModeSummary)
	require.NoError(t, err)
	second, err := c.Explain(context.Background(), "a1", "v1", ModeSummary)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, llm.explainCalls, "second call with the same mode must hit the cache, not the LLM")
}

// TestCache_S4_EvictionByTimeout mirrors spec scenario S4.
func TestCache_S4_EvictionByTimeout(t *testing.T) {
	present := map[Key]string{
		{"a1", "v1"}: "t1",
		{"a2", "v2"}: "t2",
	}
	c := newTestCache(10, time.Minute, present, &fakeLLM{})

	base := time.Unix(0, 0)
	c.now = func() time.Time { return base }
	c.ensure(Key{"a1", "v1"})

	c.now = func() time.Time { return base.Add(61 * time.Second) }
	c.ensure(Key{"a2", "v2"})

	assert.Equal(t, 1, c.Size(), "the first session must be evicted before the new one is admitted")
	keys := c.keysSortedByTouch()
	require.Len(t, keys, 1)
	assert.Equal(t, Key{"a2", "v2"}, keys[0])
}

// TestCache_S5_EvictionByLRU mirrors spec scenario S5.
func TestCache_S5_EvictionByLRU(t *testing.T) {
	present := map[Key]string{
		{"a1", "k1"}: "t1",
		{"a2", "k2"}: "t2",
		{"a3", "k3"}: "t3",
	}
	c := newTestCache(2, 365*24*time.Hour, present, &fakeLLM{})

	base := time.Unix(0, 0)
	c.now = func() time.Time { return base }
	c.ensure(Key{"a1", "k1"})

	c.now = func() time.Time { return base.Add(time.Second) }
	c.ensure(Key{"a2", "k2"})

	c.now = func() time.Time { return base.Add(2 * time.Second) }
	c.ensure(Key{"a3", "k3"})

	assert.Equal(t, 2, c.Size())
	keys := c.keysSortedByTouch()
	assert.ElementsMatch(t, []Key{{"a2", "k2"}, {"a3", "k3"}}, keys)
}

func TestCache_SizeNeverExceedsM(t *testing.T) {
	present := map[Key]string{}
	for i := 0; i < 20; i++ {
		present[Key{"agent", string(rune('a' + i))}] = "t"
	}
	c := newTestCache(5, time.Hour, present, &fakeLLM{})
	base := time.Unix(0, 0)
	for i := 0; i < 20; i++ {
		offset := i
		c.now = func() time.Time { return base.Add(time.Duration(offset) * time.Second) }
		c.ensure(Key{"agent", string(rune('a' + i))})
		assert.LessOrEqual(t, c.Size(), 5)
	}
}
