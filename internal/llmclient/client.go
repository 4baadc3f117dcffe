// client.go — external LLM service facade (§4.I), backed by Gemini via
// google.golang.org/genai. Hides the API key and the provider's request
// shape behind the explain.LLMClient interface the session cache drives.
package llmclient

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/agentic-web/workspace/internal/apperr"
	"github.com/agentic-web/workspace/internal/explain"
	"google.golang.org/genai"
)

// EnvAPIKey is the process-configuration variable the facade reads its
// credential from (§6's "or equivalent; the name is the only
// external-contract detail").
const EnvAPIKey = "GEMINI_API_KEY"

const defaultModel = "gemini-2.0-flash"

// defaultTimeout is the implementation-defined LLM call timeout; §5
// requires no shorter than 30s.
const defaultTimeout = 45 * time.Second

const (
	summaryInstruction = "Summarize the following video transcript concisely for someone who has not watched it."
	explainInstruction = "Explain the following video transcript as if teaching a complete beginner. Define any jargon."
)

// Client is the genai-backed implementation of explain.LLMClient.
type Client struct {
	genai   *genai.Client
	model   string
	timeout time.Duration
}

// New constructs a Client from process configuration. Returns
// apperr.ConfigMissing if GEMINI_API_KEY is unset, per §4.I/§7 — the
// caller is expected to disable video-intelligence features rather than
// fail startup.
func New(ctx context.Context, modelName string) (*Client, error) {
	apiKey := os.Getenv(EnvAPIKey)
	if apiKey == "" {
		return nil, apperr.New(apperr.ConfigMissing, EnvAPIKey+" is not set")
	}
	if modelName == "" {
		modelName = defaultModel
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, apperr.Wrap(apperr.LLMUnavailable, "failed to construct genai client", err)
	}

	return &Client{genai: gc, model: modelName, timeout: defaultTimeout}, nil
}

// handle is the opaque conversational context a Session stores: the
// turn history sent on every Ask call, seeded with the transcript so
// the caller never has to resend it.
type handle struct {
	turns []*genai.Content
}

// NewHandle seeds a conversation with the transcript as first-turn
// context, per §4.I.
func (c *Client) NewHandle(ctx context.Context, transcript string) (any, error) {
	return &handle{
		turns: []*genai.Content{
			{Role: "user", Parts: []*genai.Part{{Text: "Video transcript:\n" + transcript}}},
		},
	}, nil
}

// Ask sends question through h's accumulated history and appends both
// the question and the model's answer to it on success.
func (c *Client) Ask(ctx context.Context, h any, question string) (string, error) {
	hd, ok := h.(*handle)
	if !ok {
		return "", apperr.New(apperr.Internal, "ask called with a handle this client did not create")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := append(append([]*genai.Content(nil), hd.turns...), &genai.Content{
		Role: "user", Parts: []*genai.Part{{Text: question}},
	})

	resp, err := c.genai.Models.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		return "", apperr.Wrap(apperr.LLMUnavailable, "gemini ask failed", err)
	}
	text, err := firstText(resp)
	if err != nil {
		return "", err
	}

	hd.turns = append(hd.turns,
		&genai.Content{Role: "user", Parts: []*genai.Part{{Text: question}}},
		&genai.Content{Role: "model", Parts: []*genai.Part{{Text: text}}},
	)
	return text, nil
}

// Explain builds a single-shot summary/explain prompt over the full
// transcript; the result is cached by the caller (§4.H), not here.
func (c *Client) Explain(ctx context.Context, transcript string, mode explain.Mode) (string, error) {
	instruction := explainInstruction
	if mode == explain.ModeSummary {
		instruction = summaryInstruction
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: transcript}}}}
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: instruction}}},
	}

	resp, err := c.genai.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", apperr.Wrap(apperr.LLMUnavailable, "gemini explain failed", err)
	}
	return firstText(resp)
}

func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", apperr.New(apperr.LLMUnavailable, "empty response from gemini")
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := b.String()
	if text == "" {
		return "", apperr.New(apperr.LLMUnavailable, "empty response text from gemini")
	}
	return text, nil
}

var _ explain.LLMClient = (*Client)(nil)
