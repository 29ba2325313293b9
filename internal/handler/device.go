package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/pacto/internal/auth"
	"github.com/dukerupert/pacto/internal/device"
)

type DeviceHandler struct {
	service  *device.Service
	vapidKey string
	logger   *slog.Logger
}

// NewDeviceHandler returns the device handler. vapidKey is served to web
// clients and may be empty when Web Push is not configured.
func NewDeviceHandler(s *device.Service, vapidKey string, logger *slog.Logger) *DeviceHandler {
	return &DeviceHandler{service: s, vapidKey: vapidKey, logger: logger}
}

// Register handles POST /devices/register-token
func (h *DeviceHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req device.Registration
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, r, h.logger, "register device", err)
		return
	}

	d, err := h.service.Register(r.Context(), auth.UserID(r.Context()), req)
	if err != nil {
		writeError(w, r, h.logger, "register device", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Unregister handles DELETE /devices/unregister-token
func (h *DeviceHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	if _, err := h.service.Unregister(r.Context(), auth.UserID(r.Context())); err != nil {
		writeError(w, r, h.logger, "unregister device", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// VAPIDKey handles GET /push/vapid-key
func (h *DeviceHandler) VAPIDKey(w http.ResponseWriter, r *http.Request) {
	if h.vapidKey == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "web push is not configured"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"publicKey": h.vapidKey})
}
