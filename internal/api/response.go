package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mzidar/numizmat/internal/store"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// writeStoreError translates a store/state-machine error into a status code
// and a structured body. Anything untyped is an internal error.
func writeStoreError(w http.ResponseWriter, err error) {
	var missing *store.MissingReferencesError

	switch {
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrUnique):
		jsonError(w, http.StatusConflict, "already exists")
	case errors.Is(err, store.ErrSelfTransfer):
		jsonError(w, http.StatusUnprocessableEntity, "source and destination are the same account")
	case errors.Is(err, store.ErrOwnerMismatch):
		jsonError(w, http.StatusUnprocessableEntity, "source does not own the coin")
	case errors.As(err, &missing):
		jsonResponse(w, http.StatusUnprocessableEntity, map[string]any{
			"error":        "missing references",
			"missing_keys": missing.Keys,
		})
	default:
		slog.Error("internal error", "error", err)
		jsonError(w, http.StatusInternalServerError, "internal error")
	}
}
