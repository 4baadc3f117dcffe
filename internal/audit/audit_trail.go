// audit_trail.go — the §4.C audit buffer: an append-only, bounded,
// concurrent-safe log of blocked requests. Entries are never modified,
// only evicted. Unlike a strict ring buffer, overflow drops the oldest
// half in one operation to amortize eviction cost (§4.C, §9 design
// note 4) — acceptable per the spec's own documented asymmetry.
package audit

import (
	"sync"
	"time"

	"github.com/agentic-web/workspace/internal/types"
	"github.com/google/uuid"
)

const defaultCapacity = 1000

// Filter specifies query criteria against the audit buffer (§4.C's rows
// plus the agent/host/action/time-range filters SPEC_FULL supplements,
// grounded on the teacher's AuditFilter pattern).
type Filter struct {
	AgentID      string
	Host         string
	Action       types.RuleAction
	ResourceType types.ResourceType
	Since        *time.Time
	Limit        int
}

// Trail is the §4.C audit buffer: capacity A (default 1000), halved on
// overflow, guarded by a single mutex per §5.
type Trail struct {
	mu       sync.Mutex
	rows     []types.AuditRow
	capacity int
}

// New builds a Trail with the given capacity. A capacity <= 0 uses the
// spec's default of 1000.
func New(capacity int) *Trail {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Trail{capacity: capacity}
}

// Record appends row to the buffer, assigning a request ID if the caller
// left one unset. When the buffer is at capacity, the oldest half is
// dropped in a single slice operation before the new row is appended.
func (t *Trail) Record(row types.AuditRow) {
	if row.RequestID == "" {
		row.RequestID = uuid.NewString()
	}
	if row.Timestamp.IsZero() {
		row.Timestamp = time.Now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.rows) >= t.capacity {
		half := len(t.rows) / 2
		t.rows = append(t.rows[:0], t.rows[half:]...)
	}
	t.rows = append(t.rows, row)
}

// Size returns the current row count.
func (t *Trail) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rows)
}

// Capacity returns the buffer's configured capacity A.
func (t *Trail) Capacity() int {
	return t.capacity
}

// Query returns rows matching filter, most recent first, applying Limit
// (0 means unbounded) after filtering.
func (t *Trail) Query(filter Filter) []types.AuditRow {
	t.mu.Lock()
	snapshot := append([]types.AuditRow(nil), t.rows...)
	t.mu.Unlock()

	var matched []types.AuditRow
	for i := len(snapshot) - 1; i >= 0; i-- {
		row := snapshot[i]
		if filter.AgentID != "" && row.AgentID != filter.AgentID {
			continue
		}
		if filter.Host != "" && row.Host != filter.Host {
			continue
		}
		if filter.Action != "" && row.Action != filter.Action {
			continue
		}
		if filter.ResourceType != "" && row.ResourceType != filter.ResourceType {
			continue
		}
		if filter.Since != nil && row.Timestamp.Before(*filter.Since) {
			continue
		}
		matched = append(matched, row)
		if filter.Limit > 0 && len(matched) >= filter.Limit {
			break
		}
	}
	return matched
}

// Reset empties the buffer. Exposed for tests and the workspacectl
// maintenance CLI; not part of §4.C itself.
func (t *Trail) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = nil
}

var _ interface {
	Record(types.AuditRow)
} = (*Trail)(nil)
