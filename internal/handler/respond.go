package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/dukerupert/pacto/internal/apperr"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// readJSON decodes the request body into v. An empty body leaves v untouched.
func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperr.Invalid("invalid JSON: %v", err)
	}
	return nil
}

// statusFor maps a domain error kind to an HTTP status.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindInvalid:
		return http.StatusBadRequest
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidTransition:
		return http.StatusConflict
	case apperr.KindPrecondition:
		return http.StatusPreconditionFailed
	}
	return http.StatusInternalServerError
}

// writeError renders err. Domain errors keep their message; anything else is
// logged and hidden behind a generic one.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, action string, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), action, "path", r.URL.Path, "error", err)
		writeJSON(w, status, map[string]string{"error": fmt.Sprintf("failed to %s", action)})
		return
	}

	var ae *apperr.Error
	errors.As(err, &ae)
	writeJSON(w, status, map[string]string{
		"error": ae.Message,
		"code":  ae.Kind.String(),
	})
}
