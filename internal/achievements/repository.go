package achievements

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/idfs-labs/starguide/internal/domain"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Award records a badge for the user. Returns false when the user already
// had it.
func (r *PostgresRepository) Award(ctx context.Context, userID uuid.UUID, achievementID string, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO user_achievements (user_id, achievement_id, earned_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, achievement_id) DO NOTHING
	`, userID, achievementID, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresRepository) ListEarned(ctx context.Context, userID uuid.UUID) ([]domain.EarnedAchievement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, achievement_id, earned_at
		FROM user_achievements
		WHERE user_id = $1
		ORDER BY earned_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.EarnedAchievement
	for rows.Next() {
		var e domain.EarnedAchievement
		if err := rows.Scan(&e.UserID, &e.AchievementID, &e.EarnedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
