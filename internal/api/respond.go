package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"quickpim/internal/domain"
)

const (
	// maxBodyBytes bounds request bodies; captured header sets are small.
	maxBodyBytes = 1 << 20

	reasonInvalidBody = "InvalidBody"
	reasonInvalidPath = "InvalidPath"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err with its mapped status. Unmapped errors are logged
// and reported without detail.
func writeError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	status := httpStatusFromDomainError(err)
	body := errorBody{Code: status, Message: err.Error(), Reason: reasonFromError(err)}
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			"method", r.Method, "path", r.URL.Path,
			"request_id", domain.RequestIDFromContext(r.Context()), "error", err)
		body.Message = "internal error"
	}
	writeJSON(w, status, body)
}

// decodeJSON reads a single JSON value from the request body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return domain.ErrValidation(reasonInvalidBody, "request body is empty")
		case errors.As(err, &maxErr):
			return domain.ErrValidation(reasonInvalidBody, "request body exceeds %d bytes", maxErr.Limit)
		default:
			return domain.ErrValidation(reasonInvalidBody, "invalid JSON body: %v", err)
		}
	}
	if dec.More() {
		return domain.ErrValidation(reasonInvalidBody, "request body must contain a single JSON value")
	}
	return nil
}

