package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"mlxd/internal/manager"
	"mlxd/internal/runtime"
	"mlxd/pkg/types"
)

// apiError is the transport-facing classification of a service error. The
// message is always composed here; raw error text from the model runtime
// never reaches the client.
type apiError struct {
	status  int
	errType string
	code    string
	message string
}

// classifyError maps service errors to stable wire errors.
func classifyError(err error) apiError {
	switch {
	case manager.IsValidation(err):
		// Validation messages are produced by us and safe to forward.
		return apiError{http.StatusBadRequest, "invalid_request_error", "invalid_request", err.Error()}
	case errors.Is(err, manager.ErrClosed):
		return apiError{http.StatusServiceUnavailable, "server_error", "shutting_down", "server is shutting down"}
	case errors.Is(err, runtime.ErrUnavailable):
		return apiError{http.StatusServiceUnavailable, "server_error", "runtime_unavailable", "model runtime not available"}
	case manager.IsLoadFailure(err):
		return apiError{http.StatusServiceUnavailable, "server_error", "model_unavailable",
			"model unavailable: " + manager.LoadFailureModel(err)}
	case manager.IsGenerationFailure(err):
		return apiError{http.StatusInternalServerError, "server_error", "generation_failed", "generation failed"}
	default:
		return apiError{http.StatusInternalServerError, "server_error", "internal_error", "internal error"}
	}
}

// writeServiceError logs the full cause and writes the sanitized payload.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ae := classifyError(err)
	zlog.Error().Err(err).Int("status", ae.status).Str("code", ae.code).
		Str("path", r.URL.Path).Msg("request failed")
	writeAPIError(w, ae)
}

// writeAPIError writes a consistent OpenAI-style JSON error payload.
func writeAPIError(w http.ResponseWriter, ae apiError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ae.status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: types.APIError{
		Message: ae.message,
		Type:    ae.errType,
		Code:    ae.code,
	}})
}

// writeRequestError is for transport-level validation (bad JSON, wrong
// content type) that never reaches the service.
func writeRequestError(w http.ResponseWriter, status int, msg string) {
	writeAPIError(w, apiError{status: status, errType: "invalid_request_error", message: msg})
}
