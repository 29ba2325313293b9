package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/dukerupert/pacto/internal/activity"
	"github.com/dukerupert/pacto/internal/apperr"
	"github.com/dukerupert/pacto/internal/auth"
	"github.com/dukerupert/pacto/internal/model"
)

type ActivityHandler struct {
	log    *activity.Log
	logger *slog.Logger
}

func NewActivityHandler(l *activity.Log, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{log: l, logger: logger}
}

// Feed handles GET /households/{id}/activity?limit=&cursor=
func (h *ActivityHandler) Feed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, r, h.logger, "load activity", apperr.Invalid("limit must be an integer"))
			return
		}
		limit = n
	}

	page, err := h.log.Feed(r.Context(), auth.UserID(r.Context()), r.PathValue("id"), limit, q.Get("cursor"))
	if err != nil {
		writeError(w, r, h.logger, "load activity", err)
		return
	}
	if page.Items == nil {
		page.Items = []model.PactActivity{}
	}
	writeJSON(w, http.StatusOK, page)
}
