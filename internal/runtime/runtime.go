// Package runtime defines the contracts between the model cache and the
// external model runtime: loading and releasing model handles, tokenizing,
// and driving token generation. Concrete implementations are injected at the
// composition root; the package ships only an unavailable stub so default
// builds fail fast instead of mocking inference.
package runtime

import (
	"context"
	"time"
)

// Tokenizer converts text to token ids. Loaded together with its model and
// immutable after load.
type Tokenizer interface {
	Encode(text string) []int
}

// ModelHandle is an immutable loaded model plus its companion tokenizer.
// The two are loaded, cached, and released as one unit. The native model
// object is owned by the cache entry holding the handle and is freed
// exclusively through Loader.Unload, exactly once.
type ModelHandle struct {
	// Canonical identifier (resolved path or registry id path).
	ID string
	// Opaque native model object owned by the loader.
	Model any
	// Tokenizer paired with the model.
	Tokenizer Tokenizer
	// Estimated resident size in MB, for status reporting.
	EstSizeMB int
	// Load completion time.
	LoadedAt time.Time
}

// Loader loads and releases model handles. Load may take seconds to tens of
// seconds and must honor ctx cancellation. Implementations are not assumed
// safe for concurrent Load calls; the cache serializes them.
type Loader interface {
	Load(ctx context.Context, id string) (*ModelHandle, error)
	// Unload frees the native resources behind h. Called exactly once per
	// handle, never while a generation session still borrows it.
	Unload(h *ModelHandle) error
}

// Params captures sampling parameters passed to the generator.
type Params struct {
	Temperature float64
	TopP        float64
	MaxTokens   int
}

// TokenStream is a lazy, finite, non-restartable sequence of token
// fragments. Next returns io.EOF when the sequence is exhausted. By the
// underlying generation convention the stream echoes the prompt's tokens
// before newly generated ones; callers skip the echoed prefix.
type TokenStream interface {
	Next() (string, error)
	Close() error
}

// Generator drives inference against a loaded handle. Handles are read-only
// during inference, so concurrent generations against the same handle are
// allowed.
type Generator interface {
	// Generate runs to completion and returns the full text, which may
	// include the echoed prompt prefix.
	Generate(ctx context.Context, h *ModelHandle, prompt string, p Params) (string, error)
	// GenerateStream starts incremental generation and returns the token
	// stream. The stream must stop promptly once ctx is canceled.
	GenerateStream(ctx context.Context, h *ModelHandle, prompt string, p Params) (TokenStream, error)
}
