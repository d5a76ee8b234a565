package types

// ChatMessage is a single role-tagged message in a conversation.
type ChatMessage struct {
	// Role of the author: system, user, or assistant.
	// example: user
	Role string `json:"role" example:"user"`
	// Message text.
	// example: Write a haiku about the ocean.
	Content string `json:"content" example:"Write a haiku about the ocean."`
}

// ChatCompletionRequest is the body of POST /v1/chat/completions.
type ChatCompletionRequest struct {
	// Model identifier: a registry id or a path to a model on disk.
	// example: mistral-7b-4bit
	Model string `json:"model" example:"mistral-7b-4bit"`
	// Ordered conversation history. Must not be empty.
	Messages []ChatMessage `json:"messages"`
	// Sampling temperature (higher = more random). 0 uses the server default.
	// example: 0.7
	Temperature float64 `json:"temperature,omitempty" example:"0.7"`
	// Nucleus sampling probability. 0 uses the server default.
	// example: 0.9
	TopP float64 `json:"top_p,omitempty" example:"0.9"`
	// Maximum number of new tokens to generate. 0 uses the server default.
	// example: 256
	MaxTokens int `json:"max_tokens,omitempty" example:"256"`
	// If true, stream the completion as server-sent events.
	// example: true
	Stream bool `json:"stream,omitempty" example:"true"`
	// Optional stop sequences. Generation stops when any sequence is matched.
	// example: ["\n\n","END"]
	Stop []string `json:"stop,omitempty"`
}

// Usage contains token accounting for one completion.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ChatCompletionChoice is one generated alternative (always index 0 here).
type ChatCompletionChoice struct {
	Index        int         `json:"index"`
	Message      ChatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// ChatCompletionResponse is the non-streaming response body.
type ChatCompletionResponse struct {
	ID      string                 `json:"id"`
	Object  string                 `json:"object"`
	Created int64                  `json:"created"`
	Model   string                 `json:"model"`
	Choices []ChatCompletionChoice `json:"choices"`
	Usage   Usage                  `json:"usage"`
}

// ChunkDelta is the incremental payload of a streamed chunk. The leading
// chunk carries only the role; the terminal chunk is empty.
type ChunkDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// ChunkChoice wraps a delta inside a streamed chunk.
type ChunkChoice struct {
	Index        int        `json:"index"`
	Delta        ChunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason"`
}

// ChatCompletionChunk is one frame of a streamed completion.
type ChatCompletionChunk struct {
	ID      string        `json:"id"`
	Object  string        `json:"object"`
	Created int64         `json:"created"`
	Model   string        `json:"model"`
	Choices []ChunkChoice `json:"choices"`
}

// APIError is the inner error object of an error response.
type APIError struct {
	// Human-readable summary. Never contains raw runtime error text.
	// example: model unavailable: mistral-7b-4bit
	Message string `json:"message" example:"model unavailable: mistral-7b-4bit"`
	// Stable error class.
	// example: invalid_request_error
	Type string `json:"type" example:"invalid_request_error"`
	// Stable machine-readable code.
	// example: model_unavailable
	Code string `json:"code,omitempty" example:"model_unavailable"`
}

// ErrorResponse is the consistent JSON error payload.
type ErrorResponse struct {
	Error APIError `json:"error"`
}
