// timeout.go — Per-request timeout logic for MCP tool calls.
package bridge

import (
	"encoding/json"
	"time"
)

// Timeout constants for different tool categories.
const (
	FastTimeout  = 10 * time.Second
	SlowTimeout  = 35 * time.Second
	BlockingPoll = 65 * time.Second
)

// ToolCallTimeout returns the per-request timeout based on the MCP method,
// tool name, and action. Fast actions (agent lifecycle reads, rule/audit
// queries, resources/read) get 10s; slow actions that round-trip to the
// external LLM (video explain/ask) or await the embedded browser engine
// collaborator (agent create/navigate/destroy/navigate_next, §5 suspension
// points) get 35s.
//
// method is the JSON-RPC method (e.g. "tools/call", "resources/read").
// params is the raw JSON of the request params.
func ToolCallTimeout(method string, params json.RawMessage) time.Duration {
	if method == "resources/read" {
		return FastTimeout
	}
	if method != "tools/call" {
		return FastTimeout
	}

	var p struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if json.Unmarshal(params, &p) != nil {
		return FastTimeout
	}
	var a struct {
		Action string `json:"action"`
	}
	_ = json.Unmarshal(p.Arguments, &a)

	switch p.Name {
	case "video":
		switch a.Action {
		case "explain", "ask":
			return SlowTimeout
		}
	case "agent":
		switch a.Action {
		case "create", "navigate", "destroy", "navigate_next":
			return SlowTimeout
		}
	}
	return FastTimeout
}

// ExtractToolAction extracts the tool name and action parameter from a
// tools/call request. Returns empty strings for non-tools/call methods or
// if parsing fails.
func ExtractToolAction(method string, params json.RawMessage) (toolName, action string) {
	if method != "tools/call" {
		return "", ""
	}
	var p struct {
		Name string          `json:"name"`
		Args json.RawMessage `json:"arguments"`
	}
	if json.Unmarshal(params, &p) != nil {
		return "", ""
	}
	var a struct {
		Action string `json:"action"`
	}
	_ = json.Unmarshal(p.Args, &a)
	return p.Name, a.Action
}
