// browser.go — the embedded-browser-engine collaborator contract (§6).
// The core never renders content itself; this package is the abstract
// boundary the scheduler and interceptor call through, and the fake
// implementation that stands in for it in tests.
package browser

import (
	"context"

	"github.com/agentic-web/workspace/internal/types"
)

// ViewHandle identifies one collaborator-owned browser view.
type ViewHandle string

// Engine is the contract the core requires of its embedded browser
// engine (§6): view lifecycle only. The network/response hooks the
// interceptor and response pipeline are invoked from are NOT Engine
// methods — the collaborator pushes those over the separate
// intercept/response HTTP callback surface (internal/bridge's
// InterceptServer/ResponseServer), the same push shape StatusServer
// already uses for status events, because both are collaborator-
// initiated rather than core-initiated calls.
type Engine interface {
	// CreateView allocates a new view at bounds and returns its handle.
	CreateView(ctx context.Context, bounds types.Bounds) (ViewHandle, error)
	// Navigate points view at url. URL normalization happens upstream in
	// the scheduler; this call receives an already-normalized URL.
	Navigate(ctx context.Context, view ViewHandle, url string) error
	// SetBounds repositions view. Per §8's round-trip property, calling
	// this twice with the same bounds is a no-op on the second call.
	SetBounds(ctx context.Context, view ViewHandle, bounds types.Bounds) error
	// DestroyView releases view and cancels any pending navigation on it.
	DestroyView(ctx context.Context, view ViewHandle) error
}

// StatusEvent is one entry in the collaborator's status-and-navigation
// event stream back to the core (§6).
type StatusEvent struct {
	View   ViewHandle
	Status types.AgentStatus
	URL    string
}
