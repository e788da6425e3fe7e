package handlers

import (
	"net/http"

	"github.com/planit/planit/internal/log"
	"github.com/planit/planit/internal/task"
)

// Analytics serves aggregated completion activity for heatmap views.
type Analytics struct {
	store  *task.Store
	logger log.Logger
}

// NewAnalytics creates the analytics handler.
func NewAnalytics(store *task.Store, logger log.Logger) *Analytics {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Analytics{store: store, logger: logger}
}

// RegisterRoutes registers analytics routes on the given mux.
func (h *Analytics) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/analytics/activity", h.activity)
}

func (h *Analytics) activity(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	activity, err := h.store.ActivityByDay(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "fetch activity failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "Failed to fetch activity data")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]map[string]int{"activity": activity})
}
