// Package handler contains the HTTP handlers for the API server.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sponsorenlauf/backend/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain sentinel errors to HTTP statuses. Anything
// unrecognized becomes an opaque 500; the cause is logged, never leaked.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, domain.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "administrator rights required")
	case errors.Is(err, domain.ErrLockHeld):
		writeError(w, http.StatusConflict, "a settlement pass is already running")
	case errors.Is(err, domain.ErrNotSettled):
		writeError(w, http.StatusConflict, "no successful settlement pass yet")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	default:
		logger.Error("request failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// pathParam extracts a named path parameter from the request.
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}
