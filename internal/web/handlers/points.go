package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/planit/planit/internal/log"
	"github.com/planit/planit/internal/points"
)

// Points handles the gamification endpoints.
type Points struct {
	store  *points.Store
	logger log.Logger
	now    func() time.Time
}

// NewPoints creates the points handler.
func NewPoints(store *points.Store, logger log.Logger) *Points {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Points{store: store, logger: logger, now: time.Now}
}

// RegisterRoutes registers points routes on the given mux.
func (h *Points) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/points/me", h.me)
	mux.HandleFunc("POST /api/points/daily-checkin", h.dailyCheckin)
}

func (h *Points) me(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	balance, err := h.store.Balance(r.Context(), userID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "fetch points failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "Error fetching points data")
		return
	}
	WriteJSON(w, http.StatusOK, balance)
}

func (h *Points) dailyCheckin(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	balance, err := h.store.DailyCheckin(r.Context(), userID, h.now())
	if err != nil {
		if errors.Is(err, points.ErrAlreadyCheckedIn) {
			WriteError(w, http.StatusBadRequest, "Daily check-in already claimed for today")
			return
		}
		h.logger.ErrorContext(r.Context(), "daily check-in failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "Error during daily check-in")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Daily check-in successful",
		"points":  balance,
	})
}
