package achievements

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/idfs-labs/starguide/internal/domain"
)

type memRepo struct {
	earned map[uuid.UUID]map[string]time.Time
}

func newMemRepo() *memRepo {
	return &memRepo{earned: make(map[uuid.UUID]map[string]time.Time)}
}

func (m *memRepo) Award(_ context.Context, userID uuid.UUID, achievementID string, at time.Time) (bool, error) {
	byUser, ok := m.earned[userID]
	if !ok {
		byUser = make(map[string]time.Time)
		m.earned[userID] = byUser
	}
	if _, had := byUser[achievementID]; had {
		return false, nil
	}
	byUser[achievementID] = at
	return true, nil
}

func (m *memRepo) ListEarned(_ context.Context, userID uuid.UUID) ([]domain.EarnedAchievement, error) {
	var out []domain.EarnedAchievement
	for id, at := range m.earned[userID] {
		out = append(out, domain.EarnedAchievement{UserID: userID, AchievementID: id, EarnedAt: at})
	}
	return out, nil
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func newTestService(repo Repository) *Service {
	return NewService(repo, slog.New(slog.NewTextHandler(&discard{}, nil)))
}

func event(userID uuid.UUID, typ domain.EventType, data map[string]any) *domain.Event {
	return &domain.Event{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      typ,
		Data:      data,
		CreatedAt: time.Now(),
	}
}

func TestHandleEvent_AwardsOncePerBadge(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		if err := svc.HandleEvent(context.Background(), event(userID, domain.EventLogin, nil)); err != nil {
			t.Fatalf("HandleEvent: %v", err)
		}
	}

	earned, err := svc.Earned(context.Background(), userID)
	if err != nil {
		t.Fatalf("Earned: %v", err)
	}
	if len(earned) != 1 {
		t.Fatalf("earned %d badges after repeated logins, want 1", len(earned))
	}
	if earned[0].ID != "first-contact" {
		t.Errorf("earned badge = %q, want first-contact", earned[0].ID)
	}
}

func TestHandleEvent_LevelMilestones(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	userID := uuid.New()

	// Reaching level 12 unlocks every milestone at or below it, so a user
	// who skipped past level 5 still gets that badge.
	err := svc.HandleEvent(context.Background(), event(userID, domain.EventAchievementEarned, map[string]any{
		"achievement": "level_up",
		"level":       float64(12),
	}))
	if err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	earned, err := svc.Earned(context.Background(), userID)
	if err != nil {
		t.Fatalf("Earned: %v", err)
	}
	got := make(map[string]bool, len(earned))
	for _, a := range earned {
		got[a.ID] = true
	}
	if !got["rising-star"] || !got["stellar-scholar"] {
		t.Errorf("earned = %v, want rising-star and stellar-scholar", got)
	}
	if got["galactic-master"] {
		t.Error("galactic-master awarded below level 25")
	}
}

func TestHandleEvent_ActivityBadges(t *testing.T) {
	tests := []struct {
		typ  domain.EventType
		want string
	}{
		{domain.EventAIInteraction, "curious-mind"},
		{domain.EventGroupJoined, "social-learner"},
		{domain.EventQuizCompleted, "quiz-pioneer"},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ), func(t *testing.T) {
			repo := newMemRepo()
			svc := newTestService(repo)
			userID := uuid.New()

			if err := svc.HandleEvent(context.Background(), event(userID, tt.typ, nil)); err != nil {
				t.Fatalf("HandleEvent: %v", err)
			}
			earned, err := svc.Earned(context.Background(), userID)
			if err != nil {
				t.Fatalf("Earned: %v", err)
			}
			if len(earned) != 1 || earned[0].ID != tt.want {
				t.Errorf("earned = %v, want one %q", earned, tt.want)
			}
		})
	}
}

func TestHandleEvent_IgnoresUnrelatedEvents(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo)
	userID := uuid.New()

	if err := svc.HandleEvent(context.Background(), event(userID, domain.EventQuestionAnswered, nil)); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}
	earned, err := svc.Earned(context.Background(), userID)
	if err != nil {
		t.Fatalf("Earned: %v", err)
	}
	if len(earned) != 0 {
		t.Errorf("earned = %v, want none", earned)
	}
}

func TestCatalog(t *testing.T) {
	svc := newTestService(newMemRepo())

	all := svc.Catalog()
	if len(all) == 0 {
		t.Fatal("catalog is empty")
	}
	seen := make(map[string]bool, len(all))
	for _, a := range all {
		if a.ID == "" || a.Name == "" || a.Rarity == "" {
			t.Errorf("incomplete catalog entry: %+v", a)
		}
		if seen[a.ID] {
			t.Errorf("duplicate catalog id %q", a.ID)
		}
		seen[a.ID] = true
	}
}
