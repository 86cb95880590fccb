package handlers

import (
	"net/http"
	"strconv"

	"github.com/idfs-labs/starguide/internal/leaderboard"
)

// LeaderboardHandler handles ranking endpoints
type LeaderboardHandler struct {
	store *leaderboard.Store
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(store *leaderboard.Store) *LeaderboardHandler {
	return &LeaderboardHandler{store: store}
}

// Get returns a leaderboard page. The period query selects the global
// all-time board (default) or the current ISO week.
func (h *LeaderboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))

	var (
		result *leaderboard.Page
		err    error
	)
	period := r.URL.Query().Get("period")
	switch period {
	case "", "global", "all":
		period = "global"
		result, err = h.store.Global(r.Context(), page, pageSize)
	case "weekly", "week":
		period = "weekly"
		result, err = h.store.Weekly(r.Context(), page, pageSize)
	default:
		BadRequest(w, r, "unknown period: "+period)
		return
	}
	if err != nil {
		InternalError(w, r, "leaderboard unavailable", err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"period":      period,
		"entries":     result.Entries,
		"page":        result.Page,
		"page_size":   result.PageSize,
		"total_users": result.Total,
	})
}

// Me returns the caller's global rank and experience
func (h *LeaderboardHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	rank, xp, err := h.store.Rank(r.Context(), user.ID)
	if err != nil {
		InternalError(w, r, "leaderboard unavailable", err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"user_id": user.ID.String(),
		"rank":    rank,
		"xp":      xp,
		"level":   user.Level,
	})
}
