package progress

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
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

// AddXP bumps experience and recomputes the level in a single statement
// so concurrent awards never lose points.
func (r *PostgresRepository) AddXP(ctx context.Context, userID uuid.UUID, points int) (*domain.User, error) {
	u := &domain.User{}
	err := r.pool.QueryRow(ctx, `
		UPDATE users
		SET xp = xp + $2,
		    level = LEAST((xp + $2) / 100 + 1, 100),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id, email, name, role, xp, level, study_streak, last_login, created_at, updated_at
	`, userID, points).Scan(
		&u.ID, &u.Email, &u.Name, &u.Role, &u.XP, &u.Level, &u.StudyStreak, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *PostgresRepository) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	u := &domain.User{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, email, name, role, xp, level, study_streak, last_login, created_at, updated_at
		FROM users WHERE id = $1
	`, userID).Scan(
		&u.ID, &u.Email, &u.Name, &u.Role, &u.XP, &u.Level, &u.StudyStreak, &u.LastLogin, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}
