// Package achievements awards badges from the analytics event stream and
// serves the catalog. Awarding is idempotent, so replayed or redelivered
// events cannot hand out duplicates.
package achievements

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/idfs-labs/starguide/internal/domain"
)

// Repository defines earned-badge persistence
type Repository interface {
	Award(ctx context.Context, userID uuid.UUID, achievementID string, at time.Time) (bool, error)
	ListEarned(ctx context.Context, userID uuid.UUID) ([]domain.EarnedAchievement, error)
}

// catalog lists every badge the platform can award, in display order.
var catalog = []domain.Achievement{
	{ID: "first-contact", Name: "First Contact", Description: "Log in for the first time", Icon: "🛰️", Rarity: domain.RarityCommon, XPReward: 10},
	{ID: "curious-mind", Name: "Curious Mind", Description: "Ask the AI tutor a question", Icon: "💭", Rarity: domain.RarityCommon, XPReward: 15},
	{ID: "social-learner", Name: "Social Learner", Description: "Join a study group", Icon: "🤝", Rarity: domain.RarityCommon, XPReward: 20},
	{ID: "quiz-pioneer", Name: "Quiz Pioneer", Description: "Finish a live quiz room", Icon: "⚔️", Rarity: domain.RarityRare, XPReward: 30},
	{ID: "rising-star", Name: "Rising Star", Description: "Reach level 5", Icon: "🌟", Rarity: domain.RarityRare, XPReward: 50},
	{ID: "stellar-scholar", Name: "Stellar Scholar", Description: "Reach level 10", Icon: "🌠", Rarity: domain.RarityEpic, XPReward: 100},
	{ID: "galactic-master", Name: "Galactic Master", Description: "Reach level 25", Icon: "🌌", Rarity: domain.RarityLegendary, XPReward: 250},
}

// levelBadges maps level milestones to badge ids
var levelBadges = map[int]string{
	5:  "rising-star",
	10: "stellar-scholar",
	25: "galactic-master",
}

// Service awards and lists achievements
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates an achievements service
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Catalog returns every badge the platform knows about
func (s *Service) Catalog() []domain.Achievement {
	out := make([]domain.Achievement, len(catalog))
	copy(out, catalog)
	return out
}

// Earned returns the caller's unlocked badges with full catalog detail.
func (s *Service) Earned(ctx context.Context, userID uuid.UUID) ([]domain.Achievement, error) {
	earned, err := s.repo.ListEarned(ctx, userID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Achievement, len(catalog))
	for _, a := range catalog {
		byID[a.ID] = a
	}

	out := make([]domain.Achievement, 0, len(earned))
	for _, e := range earned {
		if a, ok := byID[e.AchievementID]; ok {
			out = append(out, a)
		}
	}
	return out, nil
}

// HandleEvent inspects one analytics event and awards any badges it
// unlocks. Runs on the queue consumer alongside the analytics rollup.
func (s *Service) HandleEvent(ctx context.Context, event *domain.Event) error {
	for _, id := range badgesFor(event) {
		awarded, err := s.repo.Award(ctx, event.UserID, id, event.CreatedAt)
		if err != nil {
			return err
		}
		if awarded {
			s.logger.Info("achievement unlocked", "user_id", event.UserID, "achievement", id)
		}
	}
	return nil
}

func badgesFor(event *domain.Event) []string {
	switch event.Type {
	case domain.EventLogin:
		return []string{"first-contact"}
	case domain.EventAIInteraction:
		return []string{"curious-mind"}
	case domain.EventGroupJoined:
		return []string{"social-learner"}
	case domain.EventQuizCompleted:
		return []string{"quiz-pioneer"}
	case domain.EventAchievementEarned:
		level, ok := levelFromData(event.Data)
		if !ok {
			return nil
		}
		var out []string
		for milestone, id := range levelBadges {
			if level >= milestone {
				out = append(out, id)
			}
		}
		return out
	}
	return nil
}

func levelFromData(data map[string]any) (int, bool) {
	v, ok := data["level"]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64: // JSON numbers decode as float64
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}
