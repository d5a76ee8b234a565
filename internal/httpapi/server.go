package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mlxd/internal/manager"
	"mlxd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	ChatCompletion(ctx context.Context, req types.ChatCompletionRequest) (manager.ChatResult, error)
	ChatCompletionStream(ctx context.Context, req types.ChatCompletionRequest) (*manager.ChatStream, error)
	Health() types.HealthResponse
	ResidentModels() []types.ModelInfo
	Status() types.StatusResponse
	Ready() bool
}

// NewMux builds the chi router serving the OpenAI-compatible surface plus
// health, status, and metrics endpoints.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	if corsEnabled {
		opts := cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Log-Level"},
		}
		if len(opts.AllowedOrigins) == 0 {
			opts.AllowedOrigins = []string{"*"}
		}
		r.Use(cors.Handler(opts))
	}
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	r.Post("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		handleChatCompletions(svc, w, r)
	})

	r.Get("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, types.ModelList{Object: "list", Data: svc.ResidentModels()})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Health())
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, svc.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("shutting down"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		writeRequestError(w, http.StatusInternalServerError, "failed to encode response")
	}
}

// newCompletionID builds the correlation id shared by every chunk of one
// request, matching the upstream "chatcmpl-<hex8>" convention.
func newCompletionID() string {
	return "chatcmpl-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

func handleChatCompletions(svc Service, w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeRequestError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req types.ChatCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRequestError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	lvl := requestLogLevel(r)
	start := time.Now()
	if lvl >= LevelInfo {
		ev := zlog.Info().Str("path", r.URL.Path).Str("model", req.Model).Bool("stream", req.Stream)
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			ev = ev.Str("request_id", rid)
		}
		ev.Msg("chat start")
	}

	// Join server base context with request context so shutdown cancels
	// in-flight generation too.
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()

	if req.Stream {
		handleChatStream(svc, w, r, ctx, req, lvl)
	} else {
		handleChatAggregate(svc, w, r, ctx, req)
	}

	if lvl >= LevelInfo {
		ev := zlog.Info().Dur("dur", time.Since(start))
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			ev = ev.Str("request_id", rid)
		}
		ev.Msg("chat end")
	}
}

func handleChatAggregate(svc Service, w http.ResponseWriter, r *http.Request, ctx context.Context, req types.ChatCompletionRequest) {
	res, err := svc.ChatCompletion(ctx, req)
	if err != nil {
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, types.ChatCompletionResponse{
		ID:      newCompletionID(),
		Object:  "chat.completion",
		Created: time.Now().Unix(),
		Model:   res.Model,
		Choices: []types.ChatCompletionChoice{{
			Index:        0,
			Message:      types.ChatMessage{Role: "assistant", Content: res.Content},
			FinishReason: res.FinishReason,
		}},
		Usage: types.Usage{
			PromptTokens:     res.Usage.PromptTokens,
			CompletionTokens: res.Usage.CompletionTokens,
			TotalTokens:      res.Usage.TotalTokens,
		},
	})
}

func handleChatStream(svc Service, w http.ResponseWriter, r *http.Request, ctx context.Context, req types.ChatCompletionRequest, lvl LogLevel) {
	st, err := svc.ChatCompletionStream(ctx, req)
	if err != nil {
		if r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			return
		}
		writeServiceError(w, r, err)
		return
	}
	defer st.Close()
	streamsStarted.Inc()

	var flush func()
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}
	out := io.Writer(w)
	if lvl >= LevelDebug {
		out = io.MultiWriter(w, &frameLogWriter{})
	}

	id := newCompletionID()
	created := time.Now().Unix()
	wrote := false
	for c := range st.Chunks() {
		if !wrote {
			w.Header().Set("Content-Type", "text/event-stream")
			w.Header().Set("Cache-Control", "no-cache")
			w.Header().Set("Connection", "keep-alive")
			wrote = true
		}
		if err := writeSSE(out, flush, chunkToWire(id, created, st.Model, c)); err != nil {
			// Client went away mid-write; Close cancels generation.
			return
		}
	}

	if err := st.Err(); err != nil && !wrote {
		// Failed before anything streamed: a plain error response is
		// still possible.
		writeServiceError(w, r, err)
		return
	}
	if err := st.Err(); err != nil {
		zlog.Error().Err(err).Str("model", st.Model).Msg("stream aborted")
	}
	if wrote {
		_ = writeSSEDone(out, flush)
	}
}

// chunkToWire shapes a session chunk into the OpenAI chunk format.
func chunkToWire(id string, created int64, model string, c manager.StreamChunk) types.ChatCompletionChunk {
	choice := types.ChunkChoice{Index: 0}
	if c.Done {
		reason := c.FinishReason
		choice.FinishReason = &reason
	} else {
		choice.Delta = types.ChunkDelta{Role: c.Role, Content: c.Delta}
	}
	return types.ChatCompletionChunk{
		ID:      id,
		Object:  "chat.completion.chunk",
		Created: created,
		Model:   model,
		Choices: []types.ChunkChoice{choice},
	}
}
