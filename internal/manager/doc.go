// Package manager owns the model cache and the generation sessions built on
// top of it. It is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, simple getters.
//   - config.go: Config and package defaults; NewWithConfig applies defaults.
//   - cache.go: LRU cache of loaded model handles, borrow counting, eviction.
//   - errors.go: error types and helpers (IsLoadFailure, IsValidation, ...).
//   - prompt.go: message-history to prompt linearization.
//   - chat.go: aggregate (non-streaming) completion.
//   - stream.go: streamed completion (ChatStream, StreamChunk).
//   - events.go: EventPublisher and implementations.
//   - metrics.go: prometheus collectors for cache activity.
//   - status_report.go: Health/Status reporting.
//
// The actual model runtime (loading, tokenizing, token generation) is
// injected through the contracts in internal/runtime; this package never
// assumes a concrete backend. External packages should use public methods
// only (NewWithConfig, ChatCompletion, ChatCompletionStream, Health, Status,
// ResidentModels, Clear, Close).
package manager
