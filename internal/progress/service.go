package progress

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/idfs-labs/starguide/internal/domain"
	"github.com/idfs-labs/starguide/internal/events"
)

// Repository defines the user progress data access
type Repository interface {
	// AddXP atomically adds points to the user's experience, recomputes
	// the level, and returns the updated user.
	AddXP(ctx context.Context, userID uuid.UUID, points int) (*domain.User, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// Ranker mirrors XP changes into the leaderboard
type Ranker interface {
	RecordXP(ctx context.Context, userID uuid.UUID, points int) error
}

// Service applies experience rewards and the side effects that come with
// them: leaderboard updates and level-up notifications.
type Service struct {
	repo      Repository
	ranker    Ranker
	publisher events.Publisher
	logger    *slog.Logger
}

// NewService creates a progress service. ranker and publisher may be nil.
func NewService(repo Repository, ranker Ranker, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{repo: repo, ranker: ranker, publisher: publisher, logger: logger}
}

// AwardXP grants experience to a user. Leaderboard and notification
// failures are logged but never fail the award.
func (s *Service) AwardXP(ctx context.Context, userID uuid.UUID, points int) error {
	if points <= 0 {
		return nil
	}

	before, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	user, err := s.repo.AddXP(ctx, userID, points)
	if err != nil {
		return err
	}

	s.logger.Info("xp awarded", "user_id", userID, "points", points, "xp", user.XP, "level", user.Level)

	if s.ranker != nil {
		if err := s.ranker.RecordXP(ctx, userID, points); err != nil {
			s.logger.Warn("leaderboard update failed", "user_id", userID, "error", err)
		}
	}

	if user.Level > before.Level && s.publisher != nil {
		n := &events.Notification{
			UserID:  userID.String(),
			Type:    "level_up",
			Title:   fmt.Sprintf("Level %d!", user.Level),
			Message: fmt.Sprintf("You reached level %d with %d XP. Keep it up!", user.Level, user.XP),
		}
		if err := s.publisher.PublishNotification(ctx, n); err != nil {
			s.logger.Warn("level-up notification failed", "user_id", userID, "error", err)
		}

		achievement := events.NewEvent(userID, domain.EventAchievementEarned, "", map[string]any{
			"achievement": "level_up",
			"level":       user.Level,
		})
		if err := s.publisher.PublishEvent(ctx, achievement); err != nil {
			s.logger.Warn("achievement event failed", "user_id", userID, "error", err)
		}
	}

	return nil
}

// Profile returns the user's current progress
func (s *Service) Profile(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	return s.repo.GetUser(ctx, userID)
}
