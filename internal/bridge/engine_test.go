package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/agentic-web/workspace/internal/browser"
	"github.com/agentic-web/workspace/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonBody(b []byte) io.Reader {
	return bytes.NewReader(b)
}

func newTestEngine(t *testing.T, handler http.HandlerFunc) (*HTTPEngine, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)

	e := NewHTTPEngine(port, 2*time.Second)
	e.endpoint = srv.URL + "/rpc"
	return e, srv
}

func TestHTTPEngine_CreateViewReturnsHandle(t *testing.T) {
	e, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		var req rpcEnvelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "createView", req.Method)

		resultJSON, _ := json.Marshal(map[string]string{"viewId": "view-1"})
		resp := rpcEnvelope{JSONRPC: "2.0", ID: req.ID, Result: resultJSON}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	handle, err := e.CreateView(context.Background(), types.Bounds{X: 0, Y: 0, W: 100, H: 100})
	require.NoError(t, err)
	assert.Equal(t, "view-1", string(handle))
}

func TestHTTPEngine_NavigatePropagatesRPCError(t *testing.T) {
	e, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		var req rpcEnvelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		resp := rpcEnvelope{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: 1, Message: "no such view"}}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	err := e.Navigate(context.Background(), "view-missing", "https://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such view")
}

func TestHTTPEngine_SetBoundsAndDestroyView(t *testing.T) {
	var calls []string
	e, _ := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		var req rpcEnvelope
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		calls = append(calls, req.Method)
		resp := rpcEnvelope{JSONRPC: "2.0", ID: req.ID}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	require.NoError(t, e.SetBounds(context.Background(), "view-1", types.Bounds{X: 1, Y: 1, W: 50, H: 50}))
	require.NoError(t, e.DestroyView(context.Background(), "view-1"))
	assert.Equal(t, []string{"setBounds", "destroyView"}, calls)
}

func TestStatusServer_DecodesStatusPush(t *testing.T) {
	received := make(chan browser.StatusEvent, 1)
	srv := NewStatusServer(func(evt browser.StatusEvent) { received <- evt })

	body, _ := json.Marshal(statusPush{ViewID: "view-1", Status: types.StatusLoaded, URL: "https://example.com"})
	req := httptest.NewRequest(http.MethodPost, "/status", jsonBody(body))
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	select {
	case evt := <-received:
		assert.Equal(t, browser.ViewHandle("view-1"), evt.View)
		assert.Equal(t, types.StatusLoaded, evt.Status)
		assert.Equal(t, "https://example.com", evt.URL)
	default:
		t.Fatal("expected status push to reach handler")
	}
}
