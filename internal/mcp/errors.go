// errors.go — Structured error handling for MCP tools.
// Renders internal/apperr kinds into MCP text content that a calling LLM
// can act on without a side-channel lookup table.
package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/agentic-web/workspace/internal/apperr"
)

// StructuredError is embedded in MCP text content. Every field is
// self-describing so an LLM can act on it without a lookup table.
type StructuredError struct {
	Error        string `json:"error"`
	Message      string `json:"message"`
	Retry        string `json:"retry"`
	Retryable    bool   `json:"retryable"`
	RetryAfterMs int    `json:"retry_after_ms,omitempty"`
	Param        string `json:"param,omitempty"`
	Hint         string `json:"hint,omitempty"`
}

// StructuredErrorResponse constructs an MCP error response. Format:
//
//	Error: unknown_agent — Call agent(action=list) to see live agent ids and retry
//	{"error":"unknown_agent","message":"...","retry":"...","hint":"..."}
//
// The retry string is a plain-English instruction the LLM can follow directly.
func StructuredErrorResponse(code apperr.Kind, message, retry string, opts ...func(*StructuredError)) json.RawMessage {
	se := StructuredError{Error: string(code), Message: message, Retry: retry}
	for _, defaultOpt := range RetryDefaultsForCode(code) {
		defaultOpt(&se)
	}
	for _, opt := range opts {
		opt(&se)
	}

	// Error impossible: StructuredError is a simple struct with no circular refs or unsupported types
	seJSON, _ := json.Marshal(se)
	text := fmt.Sprintf("Error: %s — %s\n%s", code, retry, string(seJSON))

	result := MCPToolResult{
		Content: []MCPContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
	return SafeMarshal(result, `{"content":[{"type":"text","text":"Internal error: failed to marshal result"}],"isError":true}`)
}

// ErrorResponseFor renders a Go error produced by the core (ideally an
// *apperr.Error) as a structured MCP error response.
func ErrorResponseFor(err error, retry string) json.RawMessage {
	kind := apperr.KindOf(err)
	return StructuredErrorResponse(kind, err.Error(), retry)
}

// WithParam is an option function to add param field to StructuredError.
func WithParam(p string) func(*StructuredError) {
	return func(se *StructuredError) { se.Param = p }
}

// WithHint is an option function to add hint field to StructuredError.
func WithHint(h string) func(*StructuredError) {
	return func(se *StructuredError) { se.Hint = h }
}

// WithRetryable marks whether the error is retryable by the LLM.
func WithRetryable(retryable bool) func(*StructuredError) {
	return func(se *StructuredError) { se.Retryable = retryable }
}

// WithRetryAfterMs sets the suggested delay before retrying (milliseconds).
func WithRetryAfterMs(ms int) func(*StructuredError) {
	return func(se *StructuredError) { se.RetryAfterMs = ms }
}

// RetryDefaultsForCode returns option functions that set retryable and retry_after_ms
// based on the error kind. Retryable errors are transient conditions the LLM can
// retry after a brief delay; non-retryable errors require the LLM to change its input.
func RetryDefaultsForCode(code apperr.Kind) []func(*StructuredError) {
	switch code {
	case apperr.LLMUnavailable:
		return []func(*StructuredError){WithRetryable(true), WithRetryAfterMs(2000)}
	case apperr.BrowserError:
		return []func(*StructuredError){WithRetryable(true), WithRetryAfterMs(1000)}
	case apperr.SlotOccupied:
		return []func(*StructuredError){WithRetryable(true), WithRetryAfterMs(0)}
	default:
		return []func(*StructuredError){WithRetryable(false)}
	}
}
