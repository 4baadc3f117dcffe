package audit

import (
	"testing"
	"time"

	"github.com/agentic-web/workspace/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(agentID, host string, action types.RuleAction) types.AuditRow {
	return types.AuditRow{
		AgentID:      agentID,
		Host:         host,
		Action:       action,
		ResourceType: types.ResourceImage,
		Timestamp:    time.Now(),
	}
}

func TestTrail_RecordAssignsRequestID(t *testing.T) {
	tr := New(10)
	tr.Record(row("agent-1", "ads.example.com", types.ActionBlock))
	rows := tr.Query(Filter{})
	require.Len(t, rows, 1)
	assert.NotEmpty(t, rows[0].RequestID)
}

func TestTrail_OverflowHalvesBuffer(t *testing.T) {
	tr := New(4)
	for i := 0; i < 4; i++ {
		tr.Record(row("agent-1", "a.com", types.ActionBlock))
	}
	require.Equal(t, 4, tr.Size())

	tr.Record(row("agent-1", "b.com", types.ActionBlock))
	// oldest half (2 rows) dropped, then the new row appended: 4 - 2 + 1 = 3
	assert.Equal(t, 3, tr.Size())
}

func TestTrail_QueryFiltersByAgentAndAction(t *testing.T) {
	tr := New(100)
	tr.Record(row("agent-1", "ads.example.com", types.ActionBlock))
	tr.Record(row("agent-2", "ads.example.com", types.ActionAllow))
	tr.Record(row("agent-1", "tracker.example.com", types.ActionBlock))

	rows := tr.Query(Filter{AgentID: "agent-1", Action: types.ActionBlock})
	assert.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, "agent-1", r.AgentID)
		assert.Equal(t, types.ActionBlock, r.Action)
	}
}

func TestTrail_QueryMostRecentFirstWithLimit(t *testing.T) {
	tr := New(100)
	tr.Record(types.AuditRow{AgentID: "a", Host: "first.com", Action: types.ActionBlock, Timestamp: time.Unix(1, 0)})
	tr.Record(types.AuditRow{AgentID: "a", Host: "second.com", Action: types.ActionBlock, Timestamp: time.Unix(2, 0)})
	tr.Record(types.AuditRow{AgentID: "a", Host: "third.com", Action: types.ActionBlock, Timestamp: time.Unix(3, 0)})

	rows := tr.Query(Filter{Limit: 2})
	require.Len(t, rows, 2)
	assert.Equal(t, "third.com", rows[0].Host)
	assert.Equal(t, "second.com", rows[1].Host)
}

func TestTrail_Reset(t *testing.T) {
	tr := New(10)
	tr.Record(row("agent-1", "a.com", types.ActionBlock))
	tr.Reset()
	assert.Equal(t, 0, tr.Size())
}
