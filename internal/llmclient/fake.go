package llmclient

import (
	"context"
	"fmt"

	"github.com/agentic-web/workspace/internal/explain"
)

// Fake is a deterministic, no-network implementation of explain.LLMClient
// for tests and for running the workspace without an LLM credential
// configured.
type Fake struct {
	AskFn     func(ctx context.Context, history []string, question string) (string, error)
	ExplainFn func(ctx context.Context, transcript string, mode explain.Mode) (string, error)
}

type fakeHandle struct {
	history []string
}

// NewHandle seeds a fake conversation with the transcript as its first turn.
func (f *Fake) NewHandle(ctx context.Context, transcript string) (any, error) {
	return &fakeHandle{history: []string{transcript}}, nil
}

// Ask appends question to the handle's history and returns a canned or
// custom (via AskFn) deterministic answer.
func (f *Fake) Ask(ctx context.Context, h any, question string) (string, error) {
	hd, ok := h.(*fakeHandle)
	if !ok {
		hd = &fakeHandle{}
	}
	if f.AskFn != nil {
		answer, err := f.AskFn(ctx, hd.history, question)
		if err != nil {
			return "", err
		}
		hd.history = append(hd.history, question, answer)
		return answer, nil
	}
	answer := fmt.Sprintf("fake answer to %q", question)
	hd.history = append(hd.history, question, answer)
	return answer, nil
}

// Explain returns a canned or custom (via ExplainFn) deterministic
// mode-tagged explanation.
func (f *Fake) Explain(ctx context.Context, transcript string, mode explain.Mode) (string, error) {
	if f.ExplainFn != nil {
		return f.ExplainFn(ctx, transcript, mode)
	}
	return fmt.Sprintf("fake %s of %d chars of transcript", mode, len(transcript)), nil
}

var _ explain.LLMClient = (*Fake)(nil)
