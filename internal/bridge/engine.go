// engine.go — HTTPEngine: a browser.Engine backed by a companion
// browser-host daemon (a separate process embedding the actual browser
// views) reached over local HTTP JSON-RPC, the same DoHTTP/IsServerRunning
// transport the teacher's CLI client used to reach its dev-console daemon.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/agentic-web/workspace/internal/apperr"
	"github.com/agentic-web/workspace/internal/browser"
	"github.com/agentic-web/workspace/internal/types"
)

// rpcEnvelope is the minimal JSON-RPC 2.0 shape HTTPEngine speaks to the
// browser-host daemon. It is intentionally separate from internal/mcp's
// JSONRPCRequest/Response: that protocol is the LLM-facing tool surface,
// this one is the core-to-collaborator wire format (§6).
type rpcEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id"`
	Method  string          `json:"method,omitempty"`
	Params  any             `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// HTTPEngine implements browser.Engine by forwarding every call to a
// browser-host daemon listening on Port. The daemon owns the actual
// rendered views; this type only speaks the wire protocol.
type HTTPEngine struct {
	Port     int
	client   *http.Client
	endpoint string
	nextID   int64
}

// NewHTTPEngine builds an HTTPEngine targeting a daemon on port, with
// per-call timeout applied to every RPC.
func NewHTTPEngine(port int, timeout time.Duration) *HTTPEngine {
	if timeout <= 0 {
		timeout = FastTimeout
	}
	return &HTTPEngine{
		Port:     port,
		client:   &http.Client{Timeout: timeout},
		endpoint: fmt.Sprintf("http://127.0.0.1:%d/rpc", port),
	}
}

// WaitReady blocks until the daemon answers its health check or timeout
// elapses.
func (e *HTTPEngine) WaitReady(timeout time.Duration) bool {
	return WaitForServer(e.Port, timeout)
}

func (e *HTTPEngine) call(ctx context.Context, method string, params, out any) error {
	e.nextID++
	req := rpcEnvelope{JSONRPC: "2.0", ID: e.nextID, Method: method, Params: params}
	line, err := json.Marshal(req)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "marshal browser-host request", err)
	}

	resp, err := DoHTTP(ctx, e.client, e.endpoint, line)
	if err != nil {
		if IsConnectionError(err) {
			return apperr.Wrap(apperr.BrowserError, "browser host unreachable on port "+fmt.Sprint(e.Port), err)
		}
		return apperr.Wrap(apperr.BrowserError, method+" failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env rpcEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return apperr.Wrap(apperr.BrowserError, "decode browser-host response", err)
	}
	if env.Error != nil {
		return apperr.New(apperr.BrowserError, fmt.Sprintf("%s: %s", method, env.Error.Message))
	}
	if out == nil || len(env.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return apperr.Wrap(apperr.BrowserError, "unmarshal browser-host result", err)
	}
	return nil
}

func (e *HTTPEngine) CreateView(ctx context.Context, bounds types.Bounds) (browser.ViewHandle, error) {
	var out struct {
		ViewID string `json:"viewId"`
	}
	if err := e.call(ctx, "createView", map[string]any{"bounds": bounds}, &out); err != nil {
		return "", err
	}
	return browser.ViewHandle(out.ViewID), nil
}

func (e *HTTPEngine) Navigate(ctx context.Context, view browser.ViewHandle, url string) error {
	return e.call(ctx, "navigate", map[string]any{"viewId": string(view), "url": url}, nil)
}

func (e *HTTPEngine) SetBounds(ctx context.Context, view browser.ViewHandle, bounds types.Bounds) error {
	return e.call(ctx, "setBounds", map[string]any{"viewId": string(view), "bounds": bounds}, nil)
}

func (e *HTTPEngine) DestroyView(ctx context.Context, view browser.ViewHandle) error {
	return e.call(ctx, "destroyView", map[string]any{"viewId": string(view)}, nil)
}

var _ browser.Engine = (*HTTPEngine)(nil)

// statusPush is the shape the daemon POSTs to the status callback server
// whenever a view's load status or URL changes.
type statusPush struct {
	ViewID string            `json:"viewId"`
	Status types.AgentStatus `json:"status"`
	URL    string            `json:"url"`
}

// StatusServer receives out-of-band view status pushes from the browser
// host and republishes them as browser.StatusEvent to a handler (the
// caller wires this to the scheduler/eventbus). The daemon cannot share
// a goroutine with the core process, so status changes arrive here
// instead of as RPC return values.
type StatusServer struct {
	handler func(browser.StatusEvent)
}

// NewStatusServer builds a StatusServer that invokes handler for every
// status push it receives.
func NewStatusServer(handler func(browser.StatusEvent)) *StatusServer {
	return &StatusServer{handler: handler}
}

// ServeHTTP implements http.Handler, decoding one statusPush per POST.
func (s *StatusServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var push statusPush
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&push); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	s.handler(browser.StatusEvent{
		View:   browser.ViewHandle(push.ViewID),
		Status: push.Status,
		URL:    push.URL,
	})
	w.WriteHeader(http.StatusNoContent)
}

var _ http.Handler = (*StatusServer)(nil)
