package handlers

import (
	"net/http"

	"github.com/idfs-labs/starguide/internal/analytics"
)

// AnalyticsHandler handles study analytics endpoints
type AnalyticsHandler struct {
	analyticsService *analytics.Service
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(analyticsService *analytics.Service) *AnalyticsHandler {
	return &AnalyticsHandler{analyticsService: analyticsService}
}

// Dashboard returns the caller's aggregated study metrics
func (h *AnalyticsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	dashboard, err := h.analyticsService.Dashboard(r.Context(), user.ID)
	if err != nil {
		DomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, dashboard)
}

// Predictions returns projected XP and per-subject difficulty recommendations
func (h *AnalyticsHandler) Predictions(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	predictions, err := h.analyticsService.Predictions(r.Context(), user.ID)
	if err != nil {
		DomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, predictions)
}

// Streak returns the caller's current study streak in days
func (h *AnalyticsHandler) Streak(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	streak, err := h.analyticsService.StudyStreak(r.Context(), user.ID)
	if err != nil {
		DomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"user_id":      user.ID.String(),
		"study_streak": streak,
	})
}
