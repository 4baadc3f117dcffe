// eventbus.go — the §4.L event bus: fan-out of typed lifecycle and
// network events to UI collaborators (and, optionally, the WebSocket
// transport in ws.go). Ordering guarantee: events about a single
// agent_id are delivered in the order they were emitted; cross-agent
// ordering is unspecified (§4.L). Publish keeps that guarantee trivially
// by holding the bus lock across the whole fan-out, so no subscriber can
// observe event N+1 before event N.
package eventbus

import (
	"sync"
	"time"

	"github.com/agentic-web/workspace/internal/buffers"
)

// historyCapacity bounds how many past events a reconnecting
// collaborator (e.g. a UI panel that dropped its WebSocket) can replay
// via History. It is independent of any single subscriber's channel
// buffer.
const historyCapacity = 256

// Type is one of the closed set of event kinds the bus carries.
type Type string

const (
	AgentCreated        Type = "agentCreated"
	AgentNavigated      Type = "agentNavigated"
	AgentLoaded         Type = "agentLoaded"
	AgentStatus         Type = "agentStatus"
	AgentDestroyed      Type = "agentDestroyed"
	RequestBlocked      Type = "requestBlocked"
	TranscriptAvailable Type = "transcriptAvailable"
)

// Event is one bus message. Payload is event-type-specific (e.g. a
// types.Agent snapshot for agent* events, a types.AuditRow for
// requestBlocked, a transcript key for transcriptAvailable).
type Event struct {
	Type    Type      `json:"type"`
	AgentID string    `json:"agentId"`
	Payload any       `json:"payload,omitempty"`
	At      time.Time `json:"at"`
}

// subscriber is one registered listener. ch is buffered; a slow
// subscriber that falls behind has events dropped (overflowed counts
// them) rather than stalling publishers — the bus favors liveness over
// completeness for any single subscriber.
type subscriber struct {
	ch         chan Event
	overflowed int64
}

// Bus is the §4.L event bus. Safe for concurrent Publish/Subscribe from
// multiple goroutines (the scheduler's UI-facing calls and the
// interceptor's network-thread calls both publish).
type Bus struct {
	mu        sync.Mutex
	subs      map[int]*subscriber
	nextSubID int
	buffer    int
	now       func() time.Time
	history   *buffers.RingBuffer[Event]
}

// New builds an empty Bus. bufferSize controls each subscriber's
// channel capacity; 0 uses a sensible default.
func New(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Bus{
		subs:    make(map[int]*subscriber),
		buffer:  bufferSize,
		now:     time.Now,
		history: buffers.NewRingBuffer[Event](historyCapacity),
	}
}

// Subscription is the handle returned by Subscribe; call Unsubscribe
// when the collaborator is done listening.
type Subscription struct {
	bus *Bus
	id  int
	Ch  <-chan Event
}

// Subscribe registers a new listener and returns its Subscription. The
// returned channel is closed by Unsubscribe.
func (b *Bus) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextSubID
	b.nextSubID++
	sub := &subscriber{ch: make(chan Event, b.buffer)}
	b.subs[id] = sub
	return &Subscription{bus: b, id: id, Ch: sub.ch}
}

// Unsubscribe removes the subscription and closes its channel.
func (s *Subscription) Unsubscribe() {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	if sub, ok := s.bus.subs[s.id]; ok {
		close(sub.ch)
		delete(s.bus.subs, s.id)
	}
}

// Publish fans event out to every live subscriber. Holding the bus lock
// for the full fan-out is what makes the per-agent ordering guarantee
// hold: two goroutines racing to Publish for the same agent_id cannot
// interleave their deliveries.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = b.now()
	}

	b.history.WriteOne(ev)

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		select {
		case sub.ch <- ev:
		default:
			sub.overflowed++
		}
	}
}

// Cursor is a reconnecting collaborator's bookmark into event history,
// advanced by each History call.
type Cursor = buffers.BufferCursor

// History returns every event published after cursor (or the oldest
// still retained, if cursor has aged out of the 256-event window) along
// with the cursor to resume from next time — for a UI collaborator that
// reconnects its WebSocket and wants to catch up rather than miss the
// gap entirely.
func (b *Bus) History(cursor Cursor) ([]Event, Cursor) {
	return b.history.ReadFrom(cursor)
}

// RecentHistory returns the last n published events, oldest first, for
// a collaborator's initial catch-up view with no prior cursor.
func (b *Bus) RecentHistory(n int) []Event {
	return b.history.ReadLast(n)
}

// SubscriberCount reports the number of live subscriptions, for
// diagnostics.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
