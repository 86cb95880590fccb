package handlers

import (
	"net/http"

	"github.com/idfs-labs/starguide/internal/achievements"
)

// AchievementHandler serves the badge catalog and per-user unlocks
type AchievementHandler struct {
	achievementService *achievements.Service
}

// NewAchievementHandler creates a new achievement handler
func NewAchievementHandler(achievementService *achievements.Service) *AchievementHandler {
	return &AchievementHandler{achievementService: achievementService}
}

// List returns the full badge catalog
func (h *AchievementHandler) List(w http.ResponseWriter, r *http.Request) {
	all := h.achievementService.Catalog()
	WriteJSON(w, http.StatusOK, map[string]any{
		"achievements": all,
		"count":        len(all),
	})
}

// My returns the badges the caller has unlocked
func (h *AchievementHandler) My(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	earned, err := h.achievementService.Earned(r.Context(), user.ID)
	if err != nil {
		DomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"achievements": earned,
		"count":        len(earned),
	})
}
