package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/agentic-web/workspace/internal/audit"
	"github.com/agentic-web/workspace/internal/browser"
	"github.com/agentic-web/workspace/internal/engine"
	"github.com/agentic-web/workspace/internal/eventbus"
	"github.com/agentic-web/workspace/internal/explain"
	"github.com/agentic-web/workspace/internal/intercept"
	"github.com/agentic-web/workspace/internal/llmclient"
	"github.com/agentic-web/workspace/internal/registry"
	"github.com/agentic-web/workspace/internal/scheduler"
	"github.com/agentic-web/workspace/internal/transcript"
	"github.com/agentic-web/workspace/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gridLayout(slot, n int) types.Bounds {
	return types.Bounds{X: slot * 100, Y: 0, W: 100, H: 100}
}

func newTestDeps(t *testing.T) Deps {
	t.Helper()
	reg := registry.New()
	fakeEngine := browser.NewFake()
	sched := scheduler.New(reg, fakeEngine, gridLayout, 4)

	eng := engine.New(nil)
	trail := audit.New(10)
	ic := intercept.New(eng, trail)

	store := transcript.New()
	bus := eventbus.New(8)

	cache := explain.New(10, time.Minute, store, &llmclient.Fake{})

	return Deps{
		Scheduler:   sched,
		Registry:    reg,
		Engine:      eng,
		Interceptor: ic,
		Audit:       trail,
		Transcripts: store,
		Explain:     cache,
		Events:      bus,
	}
}

func TestDispatch_AgentCreateAndList(t *testing.T) {
	deps := newTestDeps(t)
	d := NewDispatcher(deps)
	ctx := context.Background()

	sub := deps.Events.Subscribe()
	defer sub.Unsubscribe()

	raw := d.Dispatch(ctx, "agent", json.RawMessage(`{"action":"create","slot":0}`))
	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	require.NoError(t, json.Unmarshal(raw, &result))
	require.False(t, result.IsError)

	select {
	case evt := <-sub.Ch:
		assert.Equal(t, eventbus.AgentCreated, evt.Type)
	case <-time.After(time.Second):
		t.Fatal("expected agentCreated event")
	}

	listRaw := d.Dispatch(ctx, "agent", json.RawMessage(`{"action":"list"}`))
	require.NoError(t, json.Unmarshal(listRaw, &result))
	assert.False(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "live agents")
}

func TestDispatch_AgentUnknownActionIsError(t *testing.T) {
	deps := newTestDeps(t)
	d := NewDispatcher(deps)

	raw := d.Dispatch(context.Background(), "agent", json.RawMessage(`{"action":"teleport"}`))
	var result struct {
		IsError bool `json:"isError"`
	}
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.True(t, result.IsError)
}

func TestDispatch_RulesStatsAndReset(t *testing.T) {
	deps := newTestDeps(t)
	d := NewDispatcher(deps)

	raw := d.Dispatch(context.Background(), "rules", json.RawMessage(`{"action":"stats"}`))
	var result struct {
		IsError bool `json:"isError"`
	}
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.False(t, result.IsError)

	resetRaw := d.Dispatch(context.Background(), "rules", json.RawMessage(`{"action":"stats_reset"}`))
	require.NoError(t, json.Unmarshal(resetRaw, &result))
	assert.False(t, result.IsError)
}

func TestDispatch_RulesSetModeAppliesMode(t *testing.T) {
	deps := newTestDeps(t)
	d := NewDispatcher(deps)

	raw := d.Dispatch(context.Background(), "rules", json.RawMessage(`{"action":"set_mode","mode":"strict"}`))
	var result struct {
		IsError bool `json:"isError"`
	}
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.False(t, result.IsError)
	assert.Equal(t, intercept.Mode("strict"), deps.Interceptor.Mode())
}

func TestDispatch_AuditQueryEmpty(t *testing.T) {
	deps := newTestDeps(t)
	d := NewDispatcher(deps)

	raw := d.Dispatch(context.Background(), "audit", json.RawMessage(`{"limit":5}`))
	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.False(t, result.IsError)
}

func TestDispatch_VideoTranscriptUnavailable(t *testing.T) {
	deps := newTestDeps(t)
	d := NewDispatcher(deps)

	raw := d.Dispatch(context.Background(), "video", json.RawMessage(`{"action":"transcript","agent_id":"a1","video_id":"v1"}`))
	var result struct {
		IsError bool `json:"isError"`
	}
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.True(t, result.IsError)
}

func TestDispatch_VideoExplainUsesFakeLLM(t *testing.T) {
	deps := newTestDeps(t)
	d := NewDispatcher(deps)

	deps.Transcripts.Put("a1", "v1", "en", []types.Segment{{StartS: 0, EndS: 1, Text: "hello"}}, time.Now())

	raw := d.Dispatch(context.Background(), "video", json.RawMessage(`{"action":"explain","agent_id":"a1","video_id":"v1"}`))
	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	require.NoError(t, json.Unmarshal(raw, &result))
	require.False(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "fake summary")
}

func TestDispatch_AgentUnknownFieldAddsWarning(t *testing.T) {
	deps := newTestDeps(t)
	d := NewDispatcher(deps)

	raw := d.Dispatch(context.Background(), "agent", json.RawMessage(`{"action":"create","slot":0,"sloot":1}`))
	var result struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	}
	require.NoError(t, json.Unmarshal(raw, &result))
	require.False(t, result.IsError)
	require.Len(t, result.Content, 2)
	assert.Contains(t, result.Content[1].Text, "sloot")
}

func TestDispatch_UnknownToolIsError(t *testing.T) {
	deps := newTestDeps(t)
	d := NewDispatcher(deps)

	raw := d.Dispatch(context.Background(), "nonsense", json.RawMessage(`{}`))
	var result struct {
		IsError bool `json:"isError"`
	}
	require.NoError(t, json.Unmarshal(raw, &result))
	assert.True(t, result.IsError)
}
