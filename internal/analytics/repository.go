package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/idfs-labs/starguide/internal/domain"
)

// Repository defines analytics data access
type Repository interface {
	SaveEvent(ctx context.Context, event *domain.Event) error
	CountEvents(ctx context.Context, userID uuid.UUID, since time.Time) (int, error)
	CountEventsByType(ctx context.Context, userID uuid.UUID, eventType domain.EventType, since time.Time) (int, error)
	ActiveDays(ctx context.Context, userID uuid.UUID, since time.Time) ([]time.Time, error)
	DailyRollups(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.DailyRollup, error)
	UpsertRollup(ctx context.Context, rollup *domain.DailyRollup) error
	SubjectAccuracy(ctx context.Context, userID uuid.UUID) (map[string]SubjectStats, error)
	SaveSession(ctx context.Context, session *domain.StudySession) error
	RecentSessions(ctx context.Context, userID uuid.UUID, limit int) ([]domain.StudySession, error)
}

// SubjectStats summarizes answer accuracy within one subject
type SubjectStats struct {
	Answered int     `json:"answered"`
	Correct  int     `json:"correct"`
	Accuracy float64 `json:"accuracy"`
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) SaveEvent(ctx context.Context, event *domain.Event) error {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO events (id, user_id, type, subject, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, event.ID, event.UserID, event.Type, event.Subject, data, event.CreatedAt)
	return err
}

func (r *PostgresRepository) CountEvents(ctx context.Context, userID uuid.UUID, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM events WHERE user_id = $1 AND created_at >= $2
	`, userID, since).Scan(&count)
	return count, err
}

func (r *PostgresRepository) CountEventsByType(ctx context.Context, userID uuid.UUID, eventType domain.EventType, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM events WHERE user_id = $1 AND type = $2 AND created_at >= $3
	`, userID, eventType, since).Scan(&count)
	return count, err
}

func (r *PostgresRepository) ActiveDays(ctx context.Context, userID uuid.UUID, since time.Time) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT DATE(created_at) AS day
		FROM events
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY day DESC
	`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var day time.Time
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		out = append(out, day)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) DailyRollups(ctx context.Context, userID uuid.UUID, since time.Time) ([]domain.DailyRollup, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, day, events, xp_earned, questions_seen, correct_count
		FROM daily_rollups
		WHERE user_id = $1 AND day >= $2
		ORDER BY day
	`, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.DailyRollup
	for rows.Next() {
		var ru domain.DailyRollup
		if err := rows.Scan(&ru.UserID, &ru.Day, &ru.Events, &ru.XPEarned, &ru.QuestionsSeen, &ru.CorrectCount); err != nil {
			return nil, err
		}
		out = append(out, ru)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) UpsertRollup(ctx context.Context, rollup *domain.DailyRollup) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO daily_rollups (user_id, day, events, xp_earned, questions_seen, correct_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, day) DO UPDATE SET
			events = daily_rollups.events + EXCLUDED.events,
			xp_earned = daily_rollups.xp_earned + EXCLUDED.xp_earned,
			questions_seen = daily_rollups.questions_seen + EXCLUDED.questions_seen,
			correct_count = daily_rollups.correct_count + EXCLUDED.correct_count
	`, rollup.UserID, rollup.Day, rollup.Events, rollup.XPEarned, rollup.QuestionsSeen, rollup.CorrectCount)
	return err
}

func (r *PostgresRepository) SaveSession(ctx context.Context, session *domain.StudySession) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO study_sessions (id, user_id, activity, subject, xp_earned, duration_sec, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, session.ID, session.UserID, session.Activity, session.Subject,
		session.XPEarned, session.DurationSec, session.CreatedAt)
	return err
}

func (r *PostgresRepository) RecentSessions(ctx context.Context, userID uuid.UUID, limit int) ([]domain.StudySession, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, activity, subject, xp_earned, duration_sec, created_at
		FROM study_sessions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.StudySession
	for rows.Next() {
		var s domain.StudySession
		if err := rows.Scan(&s.ID, &s.UserID, &s.Activity, &s.Subject, &s.XPEarned, &s.DurationSec, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) SubjectAccuracy(ctx context.Context, userID uuid.UUID) (map[string]SubjectStats, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT subject,
			COUNT(*) AS answered,
			COUNT(*) FILTER (WHERE (data->>'correct')::boolean) AS correct
		FROM events
		WHERE user_id = $1 AND type = $2 AND subject <> ''
		GROUP BY subject
	`, userID, domain.EventQuestionAnswered)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]SubjectStats)
	for rows.Next() {
		var subject string
		var stats SubjectStats
		if err := rows.Scan(&subject, &stats.Answered, &stats.Correct); err != nil {
			return nil, err
		}
		if stats.Answered > 0 {
			stats.Accuracy = float64(stats.Correct) / float64(stats.Answered)
		}
		out[subject] = stats
	}
	return out, rows.Err()
}
