package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/chorespec/chorespec/internal/store"
)

type AnalyticsHandler struct {
	analytics *store.AnalyticsStore
	logger    *slog.Logger
}

func NewAnalyticsHandler(analytics *store.AnalyticsStore, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, logger: logger}
}

// Weekly returns 7 days of completion counts per member.
func (h *AnalyticsHandler) Weekly(w http.ResponseWriter, r *http.Request) {
	days, err := h.analytics.WeeklyActivity(time.Now())
	if err != nil {
		h.logger.Error("weekly activity", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load weekly activity")
		return
	}
	writeJSON(w, http.StatusOK, days)
}

// Distribution returns each member's lifetime points share.
func (h *AnalyticsHandler) Distribution(w http.ResponseWriter, r *http.Request) {
	shares, err := h.analytics.PointsDistribution()
	if err != nil {
		h.logger.Error("points distribution", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load points distribution")
		return
	}
	if shares == nil {
		shares = []store.PointsShare{}
	}
	writeJSON(w, http.StatusOK, shares)
}
