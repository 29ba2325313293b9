package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/pacto/internal/auth"
	"github.com/dukerupert/pacto/internal/household"
	"github.com/dukerupert/pacto/internal/model"
)

type HouseholdHandler struct {
	service *household.Service
	logger  *slog.Logger
}

func NewHouseholdHandler(s *household.Service, logger *slog.Logger) *HouseholdHandler {
	return &HouseholdHandler{service: s, logger: logger}
}

// Create handles POST /households
func (h *HouseholdHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, "create household", err)
		return
	}

	hh, err := h.service.Create(r.Context(), auth.UserID(r.Context()), req.Name)
	if err != nil {
		writeError(w, r, h.logger, "create household", err)
		return
	}
	writeJSON(w, http.StatusCreated, hh)
}

// List handles GET /households
func (h *HouseholdHandler) List(w http.ResponseWriter, r *http.Request) {
	households, err := h.service.List(r.Context(), auth.UserID(r.Context()))
	if err != nil {
		writeError(w, r, h.logger, "list households", err)
		return
	}
	if households == nil {
		households = []model.Household{}
	}
	writeJSON(w, http.StatusOK, households)
}

// Get handles GET /households/{id}
func (h *HouseholdHandler) Get(w http.ResponseWriter, r *http.Request) {
	hh, err := h.service.Get(r.Context(), auth.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, "get household", err)
		return
	}
	writeJSON(w, http.StatusOK, hh)
}

// Invite handles POST /households/{id}/invite
func (h *HouseholdHandler) Invite(w http.ResponseWriter, r *http.Request) {
	inv, err := h.service.CreateInvite(r.Context(), auth.UserID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, "create invite", err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

// Join handles POST /households/join
func (h *HouseholdHandler) Join(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InviteCode string `json:"inviteCode"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, "join household", err)
		return
	}

	hh, err := h.service.Join(r.Context(), auth.UserID(r.Context()), req.InviteCode)
	if err != nil {
		writeError(w, r, h.logger, "join household", err)
		return
	}
	writeJSON(w, http.StatusOK, hh)
}
