// ws.go — optional WebSocket fan-out transport for Event Bus
// subscribers (§4.L/§6: "Subscribers are collaborators (UI, audit log
// sink)"). A UI collaborator that cannot hold an in-process Go channel
// (a separate renderer process, a browser devtools panel) can instead
// open a WebSocket connection here and receive the same events as JSON
// text messages, one event per message.
package eventbus

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
)

// replayCount is how many recently-published events a freshly-connected
// WebSocket collaborator is replayed before joining the live stream.
const replayCount = 32

// WSHandler serves one WebSocket connection per request, each a
// fan-out subscriber of bus for the connection's lifetime.
type WSHandler struct {
	bus             *Bus
	writeTimeout    time.Duration
	acceptedOrigins []string
}

// NewWSHandler builds a WSHandler fanning bus out over WebSocket.
// acceptedOrigins is forwarded to websocket.AcceptOptions.OriginPatterns;
// a nil/empty slice accepts only same-origin requests.
func NewWSHandler(bus *Bus, acceptedOrigins []string) *WSHandler {
	return &WSHandler{bus: bus, writeTimeout: 5 * time.Second, acceptedOrigins: acceptedOrigins}
}

// ServeHTTP upgrades the request to a WebSocket connection and streams
// bus events to it until the client disconnects or the server shuts
// down (ctx cancellation from the caller's http.Server).
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.acceptedOrigins,
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusInternalError, "event bus closing")

	sub := h.bus.Subscribe()
	defer sub.Unsubscribe()

	ctx := r.Context()
	for _, ev := range h.bus.RecentHistory(replayCount) {
		payload, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		writeCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
		err = conn.Write(writeCtx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "client disconnected")
			return
		case ev, ok := <-sub.Ch:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "bus closed")
				return
			}
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, h.writeTimeout)
			err = conn.Write(writeCtx, websocket.MessageText, payload)
			cancel()
			if err != nil {
				return
			}
		}
	}
}
