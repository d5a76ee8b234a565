package manager

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"mlxd/internal/runtime"
)

// tokenize splits text into fragments, each a run of characters ending at a
// space or newline. Concatenating the fragments reproduces the input, and
// the fragment count doubles as the fake token count so that prompt-echo
// skipping lines up exactly.
func tokenize(text string) []string {
	var out []string
	var cur strings.Builder
	for _, r := range text {
		cur.WriteRune(r)
		if r == ' ' || r == '\n' {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

type fakeTokenizer struct{}

func (fakeTokenizer) Encode(text string) []int {
	return make([]int, len(tokenize(text)))
}

// fakeRuntime is a deterministic Loader+Generator: every loaded model
// generates completion after echoing the prompt, fragment by fragment.
type fakeRuntime struct {
	mu         sync.Mutex
	completion string
	loads      []string
	unloads    []string
	failLoad   map[string]error
	genErr     error
	// streamErrAt injects a Next failure after this many completion
	// fragments were produced (-1 disables).
	streamErrAt int
	streamErr   error
	nextCalls   int
}

func newFakeRuntime(completion string) *fakeRuntime {
	return &fakeRuntime{completion: completion, streamErrAt: -1}
}

func (f *fakeRuntime) Load(ctx context.Context, id string) (*runtime.ModelHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failLoad[id]; err != nil {
		return nil, err
	}
	f.loads = append(f.loads, id)
	return &runtime.ModelHandle{
		ID:        id,
		Model:     struct{}{},
		Tokenizer: fakeTokenizer{},
		EstSizeMB: 1,
		LoadedAt:  time.Now(),
	}, nil
}

func (f *fakeRuntime) Unload(h *runtime.ModelHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unloads = append(f.unloads, h.ID)
	return nil
}

func (f *fakeRuntime) loadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.loads)
}

func (f *fakeRuntime) unloaded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.unloads...)
}

func (f *fakeRuntime) Generate(ctx context.Context, h *runtime.ModelHandle, prompt string, p runtime.Params) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.genErr != nil {
		return "", f.genErr
	}
	// Echo convention: the full text starts with the prompt.
	return prompt + f.completion, nil
}

func (f *fakeRuntime) GenerateStream(ctx context.Context, h *runtime.ModelHandle, prompt string, p runtime.Params) (runtime.TokenStream, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.genErr != nil {
		return nil, f.genErr
	}
	frags := tokenize(prompt)
	errAt := -1
	if f.streamErrAt >= 0 {
		errAt = len(frags) + f.streamErrAt
	}
	frags = append(frags, tokenize(f.completion)...)
	return &fakeStream{ctx: ctx, rt: f, frags: frags, errAt: errAt}, nil
}

type fakeStream struct {
	ctx    context.Context
	rt     *fakeRuntime
	frags  []string
	i      int
	errAt  int
	closed bool
}

func (s *fakeStream) Next() (string, error) {
	s.rt.mu.Lock()
	s.rt.nextCalls++
	s.rt.mu.Unlock()
	if err := s.ctx.Err(); err != nil {
		return "", err
	}
	if s.errAt >= 0 && s.i == s.errAt {
		return "", s.rt.streamErr
	}
	if s.i >= len(s.frags) {
		return "", io.EOF
	}
	frag := s.frags[s.i]
	s.i++
	return frag, nil
}

func (s *fakeStream) Close() error {
	s.closed = true
	return nil
}
