package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"frequency/internal/manager"
	"frequency/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusForError maps manager errors to HTTP status codes.
func statusForError(err error) int {
	var he HTTPError
	switch {
	case manager.IsInvalidArgument(err),
		manager.IsUnsupportedModelType(err),
		manager.IsMultipleAdapters(err),
		manager.IsInvalidStorageURI(err):
		return http.StatusBadRequest
	case manager.IsModelNotFound(err),
		manager.IsAdapterNotFound(err),
		manager.IsAdapterNotAttached(err):
		return http.StatusNotFound
	case manager.IsModelNotLoaded(err):
		return http.StatusConflict
	case manager.IsDependencyUnavailable(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &he):
		return he.StatusCode()
	default:
		return http.StatusInternalServerError
	}
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// writeServiceError maps err and writes it as a JSON error.
func writeServiceError(w http.ResponseWriter, err error) int {
	status := statusForError(err)
	writeJSONError(w, status, err.Error())
	return status
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger().Error().Err(err).Msg("encode response")
	}
}
