package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/idfs-labs/starguide/internal/domain"
)

// Service aggregates analytics events into dashboards and rollups
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates an analytics service
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// HandleEvent persists an event and folds it into the owning user's
// daily rollup. Wired as the queue consumer's handler.
func (s *Service) HandleEvent(ctx context.Context, event *domain.Event) error {
	if err := s.repo.SaveEvent(ctx, event); err != nil {
		return err
	}

	rollup := &domain.DailyRollup{
		UserID: event.UserID,
		Day:    event.CreatedAt.UTC().Truncate(24 * time.Hour),
		Events: 1,
	}
	if xp, ok := numberField(event.Data, "xp_earned"); ok {
		rollup.XPEarned = xp
	}
	if event.Type == domain.EventQuestionAnswered {
		rollup.QuestionsSeen = 1
		if correct, ok := event.Data["correct"].(bool); ok && correct {
			rollup.CorrectCount = 1
		}
	}

	if event.Type == domain.EventSessionStarted {
		if err := s.repo.SaveSession(ctx, sessionFromEvent(event)); err != nil {
			return err
		}
	}

	return s.repo.UpsertRollup(ctx, rollup)
}

// sessionFromEvent shapes a session_started event into a study session
// record. The event id carries over so redeliveries stay idempotent.
func sessionFromEvent(event *domain.Event) *domain.StudySession {
	session := &domain.StudySession{
		ID:        event.ID,
		UserID:    event.UserID,
		Subject:   event.Subject,
		CreatedAt: event.CreatedAt,
	}
	if activity, ok := event.Data["activity"].(string); ok {
		session.Activity = activity
	}
	if session.Activity == "" {
		session.Activity = "study"
	}
	if xp, ok := numberField(event.Data, "xp_earned"); ok {
		session.XPEarned = xp
	}
	if dur, ok := numberField(event.Data, "duration_sec"); ok {
		session.DurationSec = dur
	}
	return session
}

// Dashboard is the aggregated activity view for one user
type Dashboard struct {
	EventsThisWeek    int                     `json:"events_this_week"`
	QuestionsThisWeek int                     `json:"questions_this_week"`
	AIChatsThisWeek   int                     `json:"ai_chats_this_week"`
	StudyStreak       int                     `json:"study_streak"`
	WeeklyActivity    []DayActivity           `json:"weekly_activity"`
	RecentSessions    []SessionView           `json:"recent_sessions"`
	Subjects          map[string]SubjectStats `json:"subjects"`
	ProjectedXP       int                     `json:"projected_xp_next_week"`
}

// SessionView is one recent learning session on the dashboard
type SessionView struct {
	Activity    string `json:"activity"`
	Subject     string `json:"subject,omitempty"`
	XPEarned    int    `json:"xp_earned"`
	DurationSec int    `json:"duration_sec"`
	StartedAt   string `json:"started_at"`
}

// DayActivity is one day's aggregated numbers
type DayActivity struct {
	Day           string `json:"day"`
	Events        int    `json:"events"`
	XPEarned      int    `json:"xp_earned"`
	QuestionsSeen int    `json:"questions_seen"`
	CorrectCount  int    `json:"correct_count"`
}

// Dashboard builds the activity dashboard for a user.
func (s *Service) Dashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	now := s.now().UTC()
	weekAgo := now.AddDate(0, 0, -7)

	eventsWeek, err := s.repo.CountEvents(ctx, userID, weekAgo)
	if err != nil {
		return nil, err
	}
	questionsWeek, err := s.repo.CountEventsByType(ctx, userID, domain.EventQuestionAnswered, weekAgo)
	if err != nil {
		return nil, err
	}
	chatsWeek, err := s.repo.CountEventsByType(ctx, userID, domain.EventAIInteraction, weekAgo)
	if err != nil {
		return nil, err
	}

	streak, err := s.StudyStreak(ctx, userID)
	if err != nil {
		return nil, err
	}

	rollups, err := s.repo.DailyRollups(ctx, userID, weekAgo)
	if err != nil {
		return nil, err
	}
	weekly := make([]DayActivity, 0, len(rollups))
	for _, ru := range rollups {
		weekly = append(weekly, DayActivity{
			Day:           ru.Day.Format("2006-01-02"),
			Events:        ru.Events,
			XPEarned:      ru.XPEarned,
			QuestionsSeen: ru.QuestionsSeen,
			CorrectCount:  ru.CorrectCount,
		})
	}

	sessions, err := s.repo.RecentSessions(ctx, userID, 10)
	if err != nil {
		return nil, err
	}
	recent := make([]SessionView, 0, len(sessions))
	for _, sess := range sessions {
		recent = append(recent, SessionView{
			Activity:    sess.Activity,
			Subject:     sess.Subject,
			XPEarned:    sess.XPEarned,
			DurationSec: sess.DurationSec,
			StartedAt:   sess.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	subjects, err := s.repo.SubjectAccuracy(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Project next week's experience from the recent daily trend.
	monthAgo := now.AddDate(0, 0, -30)
	history, err := s.repo.DailyRollups(ctx, userID, monthAgo)
	if err != nil {
		return nil, err
	}

	return &Dashboard{
		EventsThisWeek:    eventsWeek,
		QuestionsThisWeek: questionsWeek,
		AIChatsThisWeek:   chatsWeek,
		StudyStreak:       streak,
		WeeklyActivity:    weekly,
		RecentSessions:    recent,
		Subjects:          subjects,
		ProjectedXP:       projectWeeklyXP(history),
	}, nil
}

// SubjectPrediction pairs observed accuracy with the difficulty band the
// platform will serve next for that subject.
type SubjectPrediction struct {
	Answered              int               `json:"answered"`
	Accuracy              float64           `json:"accuracy"`
	RecommendedDifficulty domain.Difficulty `json:"recommended_difficulty"`
}

// Predictions is the forward-looking view for one user
type Predictions struct {
	ProjectedXP int                          `json:"projected_xp_next_week"`
	Trend       string                       `json:"trend"`
	Subjects    map[string]SubjectPrediction `json:"subjects"`
}

// Predictions projects next week's experience from the recent daily trend
// and recommends a difficulty band per subject from observed accuracy.
func (s *Service) Predictions(ctx context.Context, userID uuid.UUID) (*Predictions, error) {
	monthAgo := s.now().UTC().AddDate(0, 0, -30)
	history, err := s.repo.DailyRollups(ctx, userID, monthAgo)
	if err != nil {
		return nil, err
	}

	accuracy, err := s.repo.SubjectAccuracy(ctx, userID)
	if err != nil {
		return nil, err
	}

	subjects := make(map[string]SubjectPrediction, len(accuracy))
	for subject, stats := range accuracy {
		subjects[subject] = SubjectPrediction{
			Answered:              stats.Answered,
			Accuracy:              stats.Accuracy,
			RecommendedDifficulty: recommendDifficulty(stats.Accuracy),
		}
	}

	return &Predictions{
		ProjectedXP: projectWeeklyXP(history),
		Trend:       xpTrend(history),
		Subjects:    subjects,
	}, nil
}

// recommendDifficulty maps accuracy to the band served when a learner does
// not pick one explicitly.
func recommendDifficulty(accuracy float64) domain.Difficulty {
	switch {
	case accuracy >= 0.8:
		return domain.DifficultyAdvanced
	case accuracy >= 0.6:
		return domain.DifficultyIntermediate
	default:
		return domain.DifficultyBeginner
	}
}

// StudyStreak counts consecutive active days ending today or yesterday.
// A streak survives until a full day passes with no activity.
func (s *Service) StudyStreak(ctx context.Context, userID uuid.UUID) (int, error) {
	since := s.now().UTC().AddDate(0, 0, -365)
	days, err := s.repo.ActiveDays(ctx, userID, since)
	if err != nil {
		return 0, err
	}
	if len(days) == 0 {
		return 0, nil
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	expected := today
	latest := days[0].UTC().Truncate(24 * time.Hour)
	if latest.Before(today) {
		// No activity yet today; a streak ending yesterday still counts.
		expected = today.AddDate(0, 0, -1)
	}

	streak := 0
	for _, raw := range days {
		day := raw.UTC().Truncate(24 * time.Hour)
		if !day.Equal(expected) {
			break
		}
		streak++
		expected = expected.AddDate(0, 0, -1)
	}
	return streak, nil
}

// projectWeeklyXP fits a least-squares line through the daily XP series
// and extrapolates the next seven days. Negative projections clamp to zero.
func projectWeeklyXP(rollups []domain.DailyRollup) int {
	n := len(rollups)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return rollups[0].XPEarned * 7
	}

	slope, intercept, ok := fitXPLine(rollups)
	if !ok {
		return 0
	}

	projected := 0.0
	for i := n; i < n+7; i++ {
		day := intercept + slope*float64(i)
		if day > 0 {
			projected += day
		}
	}
	return int(projected)
}

// xpTrend classifies the daily XP slope. Slopes within half a point per
// day count as stable.
func xpTrend(rollups []domain.DailyRollup) string {
	if len(rollups) < 2 {
		return "stable"
	}
	slope, _, ok := fitXPLine(rollups)
	switch {
	case !ok:
		return "stable"
	case slope > 0.5:
		return "improving"
	case slope < -0.5:
		return "declining"
	default:
		return "stable"
	}
}

func fitXPLine(rollups []domain.DailyRollup) (slope, intercept float64, ok bool) {
	n := len(rollups)
	var sumX, sumY, sumXY, sumXX float64
	for i, ru := range rollups {
		x := float64(i)
		y := float64(ru.XPEarned)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return 0, 0, false
	}
	slope = (fn*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / fn
	return slope, intercept, true
}

func numberField(data map[string]any, key string) (int, bool) {
	v, ok := data[key]
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
