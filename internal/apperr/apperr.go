// apperr.go — the error-kind taxonomy shared across the core.
// Every kind is a closed, self-describing snake_case string so an MCP
// caller (typically an LLM) can act on it without a side-channel lookup.
package apperr

import (
	"errors"
	"fmt"
)

// Kind is one of the closed set of error kinds the core can surface.
type Kind string

const (
	// ConfigMissing — required configuration (LLM credential) absent;
	// affected subsystems (video intelligence) disable themselves, the
	// rest of the core continues operating.
	ConfigMissing Kind = "config_missing"
	// UnknownAgent — operation referenced a destroyed or never-created agent.
	UnknownAgent Kind = "unknown_agent"
	// SlotOccupied — createInSlot attempted on an occupied slot.
	SlotOccupied Kind = "slot_occupied"
	// InvalidBounds — non-positive or absurdly small rectangle.
	InvalidBounds Kind = "invalid_bounds"
	// RuleParseWarn — a filter line was unparseable; recorded and skipped.
	RuleParseWarn Kind = "rule_parse_warn"
	// TranscriptUnavailable — explain/ask requested for a key with no transcript.
	TranscriptUnavailable Kind = "transcript_unavailable"
	// LLMUnavailable — LLM call failed, timed out, or returned malformed output.
	LLMUnavailable Kind = "llm_unavailable"
	// BrowserError — the browser-engine collaborator surfaced a failure.
	BrowserError Kind = "browser_error"

	// InvalidJSON / MissingParam / InvalidParam — generic MCP-layer input errors.
	InvalidJSON    Kind = "invalid_json"
	MissingParam   Kind = "missing_param"
	InvalidParam   Kind = "invalid_param"
	Internal       Kind = "internal_error"
	MarshalFailed  Kind = "marshal_failed"
)

// Error is the concrete error value carried through Go call chains; it
// wraps an origin error so BrowserError can preserve the collaborator's
// own failure per §7's "propagated with origin preserved".
type Error struct {
	Kind   Kind
	Msg    string
	Origin error
}

func (e *Error) Error() string {
	if e.Origin != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Origin)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Origin }

// New constructs an *Error with no wrapped origin.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Wrap constructs an *Error preserving an origin error's identity.
func Wrap(kind Kind, msg string, origin error) *Error {
	return &Error{Kind: kind, Msg: msg, Origin: origin}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error; otherwise it returns Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}
