package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/pacto/internal/auth"
	"github.com/dukerupert/pacto/internal/model"
	"github.com/dukerupert/pacto/internal/pact"
)

type PactHandler struct {
	engine *pact.Engine
	logger *slog.Logger
}

func NewPactHandler(e *pact.Engine, logger *slog.Logger) *PactHandler {
	return &PactHandler{engine: e, logger: logger}
}

// Create handles POST /households/{id}/pacts
func (h *PactHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.PactCreate
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, "create pact", err)
		return
	}

	p, err := h.engine.Create(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), req)
	if err != nil {
		writeError(w, r, h.logger, "create pact", err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// List handles GET /households/{id}/pacts?filter=
func (h *PactHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := pact.ParseFilter(r.URL.Query().Get("filter"))

	pacts, err := h.engine.List(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), filter)
	if err != nil {
		writeError(w, r, h.logger, "list pacts", err)
		return
	}
	if pacts == nil {
		pacts = []model.Pact{}
	}
	writeJSON(w, http.StatusOK, pacts)
}

// Get handles GET /households/{id}/pacts/{pactId}
func (h *PactHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.engine.Get(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), r.PathValue("pactId"))
	if err != nil {
		writeError(w, r, h.logger, "get pact", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Update handles PATCH /households/{id}/pacts/{pactId}
func (h *PactHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.PactUpdate
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, "update pact", err)
		return
	}

	p, err := h.engine.Update(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), r.PathValue("pactId"), req)
	if err != nil {
		writeError(w, r, h.logger, "update pact", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Delete handles DELETE /households/{id}/pacts/{pactId}
func (h *PactHandler) Delete(w http.ResponseWriter, r *http.Request) {
	p, err := h.engine.Remove(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), r.PathValue("pactId"))
	if err != nil {
		writeError(w, r, h.logger, "delete pact", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// AssignToMe handles POST /households/{id}/pacts/{pactId}/assign-to-me
func (h *PactHandler) AssignToMe(w http.ResponseWriter, r *http.Request) {
	p, err := h.engine.AssignToMe(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), r.PathValue("pactId"))
	if err != nil {
		writeError(w, r, h.logger, "assign pact", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// MarkDone handles POST /households/{id}/pacts/{pactId}/mark-done
func (h *PactHandler) MarkDone(w http.ResponseWriter, r *http.Request) {
	p, err := h.engine.MarkDone(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), r.PathValue("pactId"))
	if err != nil {
		writeError(w, r, h.logger, "mark pact done", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Confirm handles POST /households/{id}/pacts/{pactId}/confirm
func (h *PactHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	p, err := h.engine.Confirm(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), r.PathValue("pactId"))
	if err != nil {
		writeError(w, r, h.logger, "confirm pact", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
