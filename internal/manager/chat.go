package manager

import (
	"context"
	"strings"

	"mlxd/pkg/types"
)

// Finish reasons reported on completed generations.
const (
	FinishStop   = "stop"   // natural end or stop-sequence match
	FinishLength = "length" // max-token budget exhausted
	FinishError  = "error"  // generation failed mid-stream
)

// Usage is the token accounting for one completion, computed with the
// handle's tokenizer.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ChatResult is the outcome of an aggregate (non-streaming) completion.
type ChatResult struct {
	Model        string
	Content      string
	FinishReason string
	Usage        Usage
}

// ChatCompletion runs one request to completion and returns the full
// response text with token accounting. The model handle is borrowed from
// the cache only for the duration of the call.
func (m *Manager) ChatCompletion(ctx context.Context, req types.ChatCompletionRequest) (ChatResult, error) {
	modelID, err := m.validate(req)
	if err != nil {
		return ChatResult{}, err
	}
	h, release, err := m.Acquire(ctx, modelID)
	if err != nil {
		return ChatResult{}, err
	}
	defer release()

	prompt := renderPrompt(req.Messages)
	p := m.params(req)
	text, err := m.gen.Generate(ctx, h, prompt, p)
	if err != nil {
		return ChatResult{}, ErrGenerationFailure(err)
	}
	// The generator's convention echoes the prompt at the head of the
	// result; emit only newly generated content.
	text = strings.TrimPrefix(text, prompt)

	finish := FinishStop
	idx, stopped := firstStop(text, req.Stop)
	if stopped {
		text = text[:idx]
	}

	usage := Usage{
		PromptTokens:     len(h.Tokenizer.Encode(prompt)),
		CompletionTokens: len(h.Tokenizer.Encode(text)),
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	if !stopped && usage.CompletionTokens >= p.MaxTokens {
		finish = FinishLength
	}

	return ChatResult{
		Model:        modelID,
		Content:      text,
		FinishReason: finish,
		Usage:        usage,
	}, nil
}
