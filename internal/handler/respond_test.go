package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dukerupert/pacto/internal/apperr"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperr.Invalid("bad"), http.StatusBadRequest},
		{apperr.Forbidden("no"), http.StatusForbidden},
		{apperr.NotFound("gone"), http.StatusNotFound},
		{apperr.InvalidTransition("DONE -> PENDING"), http.StatusConflict},
		{apperr.Precondition("pact already confirmed"), http.StatusPreconditionFailed},
		{fmt.Errorf("get pact: %w", apperr.NotFound("pact not found")), http.StatusNotFound},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWriteErrorHidesInternalErrors(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	req := httptest.NewRequest("GET", "/households", nil)
	rec := httptest.NewRecorder()

	writeError(rec, req, logger, "list households", errors.New("sqlite: database is locked"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var body map[string]string
	json.NewDecoder(rec.Body).Decode(&body)
	if body["error"] != "failed to list households" {
		t.Errorf("error = %q, want generic message", body["error"])
	}
}

func TestWriteErrorKeepsDomainMessage(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	req := httptest.NewRequest("POST", "/", nil)
	rec := httptest.NewRecorder()

	writeError(rec, req, logger, "confirm pact", apperr.Forbidden("assignee cannot confirm their own pact"))

	var body map[string]string
	json.NewDecoder(rec.Body).Decode(&body)
	if body["error"] != "assignee cannot confirm their own pact" || body["code"] != "forbidden" {
		t.Errorf("body = %v", body)
	}
}

func TestReadJSON(t *testing.T) {
	var v struct {
		Name string `json:"name"`
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"Casa"}`))
	if err := readJSON(rec, req, &v); err != nil || v.Name != "Casa" {
		t.Errorf("readJSON = %v, name %q", err, v.Name)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader(""))
	if err := readJSON(rec, req, &v); err != nil {
		t.Errorf("empty body: unexpected error %v", err)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{"name":`))
	if err := readJSON(rec, req, &v); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("err = %v, want Invalid", err)
	}
}
