package runtime

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable is returned by the stub runtime when no real model backend
// was compiled in or injected.
var ErrUnavailable = errors.New("model runtime not available in this build")

// Unavailable is the default runtime. It refuses every operation with
// ErrUnavailable so that binaries without a real backend fail fast instead
// of serving mocked output.
type Unavailable struct{}

// NewUnavailable returns the stub runtime.
func NewUnavailable() Unavailable { return Unavailable{} }

func (Unavailable) Load(ctx context.Context, id string) (*ModelHandle, error) {
	return nil, fmt.Errorf("load %s: %w", id, ErrUnavailable)
}

func (Unavailable) Unload(h *ModelHandle) error { return nil }

func (Unavailable) Generate(ctx context.Context, h *ModelHandle, prompt string, p Params) (string, error) {
	return "", ErrUnavailable
}

func (Unavailable) GenerateStream(ctx context.Context, h *ModelHandle, prompt string, p Params) (TokenStream, error) {
	return nil, ErrUnavailable
}
