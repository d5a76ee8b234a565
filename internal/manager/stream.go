package manager

import (
	"context"
	"errors"
	"io"
	"strings"

	"mlxd/internal/runtime"
	"mlxd/pkg/types"
)

// StreamChunk is one increment of a streamed completion. Chunks arrive in
// strict generation order; exactly one chunk has Done set and it is always
// the last one before the channel closes.
type StreamChunk struct {
	// Role is "assistant" on the leading chunk, empty otherwise.
	Role string
	// Delta is the newly generated text fragment. Empty on the leading and
	// terminal chunks.
	Delta string
	// Done marks the terminal chunk.
	Done bool
	// FinishReason is set only on the terminal chunk.
	FinishReason string
}

// ChatStream is one in-flight streamed completion. The transport ranges
// over Chunks until it closes, then inspects Err. Close cancels generation
// and must be called once the consumer is finished.
type ChatStream struct {
	// Model echoes the requested model identifier.
	Model string

	chunks chan StreamChunk
	cancel context.CancelFunc
	err    error
}

// Chunks returns the channel the session writes chunks to. It is closed
// after the terminal chunk, or early on failure/cancellation.
func (s *ChatStream) Chunks() <-chan StreamChunk { return s.chunks }

// Err reports a generation failure. Valid only after Chunks is closed.
func (s *ChatStream) Err() error { return s.err }

// Close stops generation and releases the session's model borrow. Safe to
// call multiple times and concurrently with channel reads.
func (s *ChatStream) Close() { s.cancel() }

// ChatCompletionStream starts a streamed completion. Validation and model
// acquisition happen synchronously, so callers get load and validation
// failures before any chunk exists; generation runs in a goroutine that
// feeds the returned stream.
func (m *Manager) ChatCompletionStream(ctx context.Context, req types.ChatCompletionRequest) (*ChatStream, error) {
	modelID, err := m.validate(req)
	if err != nil {
		return nil, err
	}
	h, release, err := m.Acquire(ctx, modelID)
	if err != nil {
		return nil, err
	}

	genCtx, cancel := context.WithCancel(ctx)
	s := &ChatStream{
		Model:  modelID,
		chunks: make(chan StreamChunk),
		cancel: cancel,
	}
	go m.runStream(genCtx, s, h, release, renderPrompt(req.Messages), req.Stop, m.params(req))
	return s, nil
}

// runStream drives the token generator and feeds s. It owns the model
// borrow and the chunk channel.
func (m *Manager) runStream(ctx context.Context, s *ChatStream, h *runtime.ModelHandle, release func(), prompt string, stops []string, p runtime.Params) {
	// Close the channel only after the borrow is back: consumers observing
	// the end of the stream may immediately clear the cache.
	defer close(s.chunks)
	defer release()

	ts, err := m.gen.GenerateStream(ctx, h, prompt, p)
	if err != nil {
		s.err = ErrGenerationFailure(err)
		return
	}
	defer ts.Close()

	if !s.send(ctx, StreamChunk{Role: "assistant"}) {
		return
	}

	// The stream echoes the prompt's tokens before new content.
	skip := len(h.Tokenizer.Encode(prompt))
	var acc strings.Builder
	sent := 0 // bytes of acc already emitted
	emitted := 0
	finish := FinishStop

	for {
		frag, err := ts.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				// Canceled: the caller is gone, deliver nothing further.
				return
			}
			s.err = ErrGenerationFailure(err)
			finish = FinishError
			break
		}
		if skip > 0 {
			skip--
			continue
		}

		acc.WriteString(frag)
		if idx, ok := firstStop(acc.String(), stops); ok {
			// Emit what precedes the stop sequence, then terminate. A match
			// can begin inside already-emitted text; emitted bytes stand.
			if idx > sent {
				if !s.send(ctx, StreamChunk{Delta: acc.String()[sent:idx]}) {
					return
				}
			}
			break
		}

		if !s.send(ctx, StreamChunk{Delta: frag}) {
			return
		}
		sent += len(frag)
		emitted++
		if p.MaxTokens > 0 && emitted >= p.MaxTokens {
			finish = FinishLength
			break
		}
	}

	s.send(ctx, StreamChunk{Done: true, FinishReason: finish})
}

// send delivers c unless the stream was canceled.
func (s *ChatStream) send(ctx context.Context, c StreamChunk) bool {
	select {
	case s.chunks <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
