package manager

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mlxd/pkg/types"
)

// collect drains a stream into its chunk slice.
func collect(t *testing.T, s *ChatStream) []StreamChunk {
	t.Helper()
	var out []StreamChunk
	for c := range s.Chunks() {
		out = append(out, c)
	}
	return out
}

func TestStreamChunkSequence(t *testing.T) {
	rt := newFakeRuntime("Hello, streaming world")
	m := newTestManager(t, rt, 3)

	s, err := m.ChatCompletionStream(context.Background(), chatReq("/m/a", "hi"))
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer s.Close()
	chunks := collect(t, s)
	if s.Err() != nil {
		t.Fatalf("stream err: %v", s.Err())
	}

	if len(chunks) < 3 {
		t.Fatalf("chunks = %d, want role + deltas + terminal", len(chunks))
	}
	if chunks[0].Role != "assistant" || chunks[0].Delta != "" || chunks[0].Done {
		t.Fatalf("leading chunk = %+v", chunks[0])
	}
	terminal := 0
	for i, c := range chunks {
		if c.Done {
			terminal++
			if i != len(chunks)-1 {
				t.Fatalf("terminal chunk at %d of %d", i, len(chunks))
			}
			if c.Delta != "" || c.FinishReason != FinishStop {
				t.Fatalf("terminal chunk = %+v", c)
			}
		}
	}
	if terminal != 1 {
		t.Fatalf("terminal chunks = %d, want exactly 1", terminal)
	}
}

// concatDeltas joins the non-terminal content of a chunk sequence.
func concatDeltas(chunks []StreamChunk) string {
	var b strings.Builder
	for _, c := range chunks {
		b.WriteString(c.Delta)
	}
	return b.String()
}

func TestStreamMatchesAggregate(t *testing.T) {
	rt := newFakeRuntime("The ocean is deep and wide.")
	m := newTestManager(t, rt, 3)
	ctx := context.Background()
	req := chatReq("/m/a", "Tell me about the ocean")

	agg, err := m.ChatCompletion(ctx, req)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	s, err := m.ChatCompletionStream(ctx, req)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer s.Close()
	chunks := collect(t, s)

	if got := concatDeltas(chunks); got != agg.Content {
		t.Fatalf("streamed %q != aggregate %q", got, agg.Content)
	}
}

func TestStreamSkipsEchoedPrompt(t *testing.T) {
	rt := newFakeRuntime("fresh content only")
	m := newTestManager(t, rt, 3)

	s, err := m.ChatCompletionStream(context.Background(), chatReq("/m/a", "prompt words here"))
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer s.Close()
	got := concatDeltas(collect(t, s))
	if got != "fresh content only" {
		t.Fatalf("deltas = %q, prompt leaked into stream", got)
	}
}

func TestStreamStopSequence(t *testing.T) {
	rt := newFakeRuntime("Hello world END never seen")
	m := newTestManager(t, rt, 3)

	req := chatReq("/m/a", "hi")
	req.Stop = []string{"END"}
	s, err := m.ChatCompletionStream(context.Background(), req)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer s.Close()
	chunks := collect(t, s)

	if got := concatDeltas(chunks); got != "Hello world " {
		t.Fatalf("deltas = %q, want truncated at stop", got)
	}
	last := chunks[len(chunks)-1]
	if !last.Done || last.FinishReason != FinishStop {
		t.Fatalf("terminal = %+v", last)
	}
}

func TestStreamMaxTokens(t *testing.T) {
	rt := newFakeRuntime("one two three four five")
	m := newTestManager(t, rt, 3)

	req := chatReq("/m/a", "hi")
	req.MaxTokens = 2
	s, err := m.ChatCompletionStream(context.Background(), req)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer s.Close()
	chunks := collect(t, s)

	if got := concatDeltas(chunks); got != "one two " {
		t.Fatalf("deltas = %q, want budget-limited output", got)
	}
	last := chunks[len(chunks)-1]
	if !last.Done || last.FinishReason != FinishLength {
		t.Fatalf("terminal = %+v, want length", last)
	}
}

func TestStreamMidflightFailure(t *testing.T) {
	rt := newFakeRuntime("one two three four")
	rt.streamErrAt = 2
	rt.streamErr = errors.New("device lost")
	m := newTestManager(t, rt, 3)

	s, err := m.ChatCompletionStream(context.Background(), chatReq("/m/a", "hi"))
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	defer s.Close()
	chunks := collect(t, s)

	if !IsGenerationFailure(s.Err()) {
		t.Fatalf("stream err = %v, want generation failure", s.Err())
	}
	last := chunks[len(chunks)-1]
	if !last.Done || last.FinishReason != FinishError {
		t.Fatalf("terminal = %+v, want error finish", last)
	}
	if got := concatDeltas(chunks); got != "one two " {
		t.Fatalf("deltas before failure = %q", got)
	}
}

func TestStreamCancellationStopsGenerator(t *testing.T) {
	rt := newFakeRuntime("one two three four five six seven eight")
	m := newTestManager(t, rt, 3)

	s, err := m.ChatCompletionStream(context.Background(), chatReq("/m/a", "hi"))
	if err != nil {
		t.Fatalf("stream: %v", err)
	}

	// Read the role chunk and one delta, then hang up.
	<-s.Chunks()
	<-s.Chunks()
	s.Close()

	// The channel closes without a terminal chunk; nothing is delivered
	// after cancellation.
	for c := range s.Chunks() {
		if c.Done {
			t.Fatalf("terminal chunk delivered after cancel: %+v", c)
		}
	}

	// The generator is no longer driven once the session observed the
	// cancellation.
	rt.mu.Lock()
	calls := rt.nextCalls
	rt.mu.Unlock()
	time.Sleep(20 * time.Millisecond)
	rt.mu.Lock()
	after := rt.nextCalls
	rt.mu.Unlock()
	if after > calls+1 {
		t.Fatalf("generator still driven after cancel: %d -> %d", calls, after)
	}
}

func TestStreamReleasesBorrowOnCompletion(t *testing.T) {
	rt := newFakeRuntime("hi there")
	m := newTestManager(t, rt, 3)

	s, err := m.ChatCompletionStream(context.Background(), chatReq("/m/a", "hi"))
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	collect(t, s)
	s.Close()

	// With the borrow released, Clear frees the handle immediately.
	m.Clear()
	if got := rt.unloaded(); len(got) != 1 {
		t.Fatalf("unloads after clear = %v", got)
	}
}

func TestStreamValidation(t *testing.T) {
	rt := newFakeRuntime("hi")
	m := newTestManager(t, rt, 3)

	_, err := m.ChatCompletionStream(context.Background(), types.ChatCompletionRequest{Model: "/m/a"})
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if rt.loadCount() != 0 {
		t.Fatalf("loader called on invalid request")
	}
}

func TestStreamReportsResolvedModel(t *testing.T) {
	rt := newFakeRuntime("hi")
	m := NewWithConfig(Config{Loader: rt, Generator: rt, DefaultModel: "/m/default"})

	req := types.ChatCompletionRequest{Messages: []types.ChatMessage{{Role: "user", Content: "hi"}}}
	s, err := m.ChatCompletionStream(context.Background(), req)
	if err != nil {
		t.Fatalf("stream: %v", err)
	}
	collect(t, s)
	// The request omitted model; every chunk's model field names the model
	// that served the stream.
	if s.Model != "/m/default" {
		t.Fatalf("s.Model = %q, want /m/default", s.Model)
	}
}
