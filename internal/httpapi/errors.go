package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"depthd/internal/depthmap"
	"depthd/internal/engine"
	"depthd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// statusForError maps well-known engine errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case engine.IsInvalidImage(err):
		return http.StatusBadRequest
	case engine.IsModelNotFound(err):
		return http.StatusNotFound
	case engine.IsTooBusy(err):
		return http.StatusTooManyRequests
	case engine.IsModelUnavailable(err):
		return http.StatusServiceUnavailable
	case engine.IsBudgetExceeded(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, depthmap.ErrEmptyMap):
		return http.StatusInternalServerError
	}
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// writeError resolves the status for err, records backpressure rejections,
// writes the JSON error payload and returns the status used.
func writeError(w http.ResponseWriter, err error) int {
	status := statusForError(err)
	if status == http.StatusTooManyRequests {
		IncrementBackpressure("queue")
	}
	writeJSONError(w, status, err.Error())
	return status
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
