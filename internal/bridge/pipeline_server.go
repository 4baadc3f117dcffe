// pipeline_server.go — the collaborator-facing HTTP push surface for the
// network interceptor and response pipeline, mirroring StatusServer's
// shape: the browser-host daemon POSTs one request/response record per
// call and gets back the decision or rewrite it should enforce.
package bridge

import (
	"encoding/json"
	"net/http"

	"github.com/agentic-web/workspace/internal/intercept"
	"github.com/agentic-web/workspace/internal/pipeline"
	"github.com/agentic-web/workspace/internal/types"
)

// interceptPush is the shape the daemon POSTs for each outgoing request
// it is about to issue, before it actually issues it.
type interceptPush struct {
	AgentID      string             `json:"agentId"`
	URL          string             `json:"url"`
	PageURL      string             `json:"pageUrl"`
	Method       string             `json:"method"`
	ResourceType types.ResourceType `json:"resourceType"`
	HeaderNames  []string           `json:"headerNames"`
}

// InterceptServer is the HTTP entry point that drives
// intercept.Interceptor.Intercept for the embedded-browser-engine
// collaborator: it POSTs one interceptPush per outgoing request and
// enforces whatever intercept.Decision comes back.
type InterceptServer struct {
	ic *intercept.Interceptor
}

// NewInterceptServer builds an InterceptServer over ic.
func NewInterceptServer(ic *intercept.Interceptor) *InterceptServer {
	return &InterceptServer{ic: ic}
}

// ServeHTTP decodes one interceptPush, runs it through the interceptor,
// and writes back the resulting intercept.Decision as JSON.
func (s *InterceptServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var push interceptPush
	if err := json.NewDecoder(r.Body).Decode(&push); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	decision := s.ic.Intercept(push.AgentID, push.URL, push.PageURL, push.Method, push.ResourceType, push.HeaderNames)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(decision)
}

var _ http.Handler = (*InterceptServer)(nil)

// ResponseServer is the HTTP entry point that drives
// pipeline.Pipeline.ProcessResponse for the embedded-browser-engine
// collaborator: it POSTs one response body it intercepted and gets back
// whatever rewrite it should substitute before handing the body to the
// page.
type ResponseServer struct {
	pipe *pipeline.Pipeline
}

// NewResponseServer builds a ResponseServer over pipe.
func NewResponseServer(pipe *pipeline.Pipeline) *ResponseServer {
	return &ResponseServer{pipe: pipe}
}

// ServeHTTP decodes one pipeline.ResponsePush and writes back the
// resulting pipeline.ResponseResult as JSON.
func (s *ResponseServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var push pipeline.ResponsePush
	if err := json.NewDecoder(r.Body).Decode(&push); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	result := s.pipe.ProcessResponse(push)

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

var _ http.Handler = (*ResponseServer)(nil)
