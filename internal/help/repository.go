package help

import (
	"context"
	"errors"
	"time"

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

func (r *PostgresRepository) Create(ctx context.Context, req *domain.HelpRequest) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO help_requests (id, student_id, subject, description, priority, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, req.ID, req.StudentID, req.Subject, req.Description, req.Priority, req.Status, req.CreatedAt, req.UpdatedAt)
	return err
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*domain.HelpRequest, error) {
	req := &domain.HelpRequest{}
	err := r.pool.QueryRow(ctx, `
		SELECT id, student_id, subject, description, priority, status, assigned_teacher, created_at, updated_at
		FROM help_requests WHERE id = $1
	`, id).Scan(
		&req.ID, &req.StudentID, &req.Subject, &req.Description,
		&req.Priority, &req.Status, &req.AssignedTeacher, &req.CreatedAt, &req.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrHelpRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Queue lists open requests oldest first so no student waits forever
// behind a stream of urgent newcomers.
func (r *PostgresRepository) Queue(ctx context.Context, limit int) ([]domain.HelpRequest, error) {
	return r.list(ctx, `
		SELECT id, student_id, subject, description, priority, status, assigned_teacher, created_at, updated_at
		FROM help_requests
		WHERE status IN ($1, $2)
		ORDER BY created_at
		LIMIT $3
	`, domain.HelpStatusPending, domain.HelpStatusAssigned, limit)
}

// Claim flips a pending request to assigned. The status predicate makes
// concurrent claims race safely; the loser sees zero rows updated.
func (r *PostgresRepository) Claim(ctx context.Context, id, teacherID uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE help_requests
		SET status = $1, assigned_teacher = $2, updated_at = $3
		WHERE id = $4 AND status = $5
	`, domain.HelpStatusAssigned, teacherID, at, id, domain.HelpStatusPending)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return domain.ErrHelpRequestClaimed
	}
	return nil
}

func (r *PostgresRepository) ListByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]domain.HelpRequest, error) {
	return r.list(ctx, `
		SELECT id, student_id, subject, description, priority, status, assigned_teacher, created_at, updated_at
		FROM help_requests
		WHERE student_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, studentID, limit)
}

func (r *PostgresRepository) list(ctx context.Context, query string, args ...any) ([]domain.HelpRequest, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.HelpRequest
	for rows.Next() {
		var req domain.HelpRequest
		if err := rows.Scan(
			&req.ID, &req.StudentID, &req.Subject, &req.Description,
			&req.Priority, &req.Status, &req.AssignedTeacher, &req.CreatedAt, &req.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
