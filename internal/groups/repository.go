package groups

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

// CreateGroup inserts the group and its owner membership in one transaction.
func (r *PostgresRepository) CreateGroup(ctx context.Context, g *domain.StudyGroup, owner *domain.GroupMember) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO study_groups (id, name, description, subject, join_code, max_members, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, g.ID, g.Name, g.Description, g.Subject, g.JoinCode, g.MaxMembers, g.CreatedBy, g.CreatedAt)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO group_members (group_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
	`, owner.GroupID, owner.UserID, owner.Role, owner.JoinedAt)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *PostgresRepository) GetGroup(ctx context.Context, id uuid.UUID) (*domain.StudyGroup, error) {
	return r.getGroup(ctx, `
		SELECT id, name, description, subject, join_code, max_members, created_by, created_at
		FROM study_groups WHERE id = $1
	`, id)
}

func (r *PostgresRepository) GetGroupByJoinCode(ctx context.Context, code string) (*domain.StudyGroup, error) {
	return r.getGroup(ctx, `
		SELECT id, name, description, subject, join_code, max_members, created_by, created_at
		FROM study_groups WHERE join_code = $1
	`, code)
}

func (r *PostgresRepository) getGroup(ctx context.Context, query string, arg any) (*domain.StudyGroup, error) {
	g := &domain.StudyGroup{}
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&g.ID, &g.Name, &g.Description, &g.Subject, &g.JoinCode, &g.MaxMembers, &g.CreatedBy, &g.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrGroupNotFound
	}
	if err != nil {
		return nil, err
	}
	return g, nil
}

func (r *PostgresRepository) ListGroups(ctx context.Context, subject string, viewerID uuid.UUID, limit int) ([]domain.GroupSummary, error) {
	query := `
		SELECT g.id, g.name, g.description, g.subject, g.join_code, g.max_members, g.created_by, g.created_at,
			COUNT(m.user_id) AS member_count,
			BOOL_OR(m.user_id = $2) AS is_member
		FROM study_groups g
		LEFT JOIN group_members m ON m.group_id = g.id
		WHERE ($1 = '' OR g.subject = $1)
		GROUP BY g.id
		ORDER BY g.created_at DESC
		LIMIT $3
	`
	return r.querySummaries(ctx, query, subject, viewerID, limit)
}

func (r *PostgresRepository) ListUserGroups(ctx context.Context, userID uuid.UUID) ([]domain.GroupSummary, error) {
	query := `
		SELECT g.id, g.name, g.description, g.subject, g.join_code, g.max_members, g.created_by, g.created_at,
			COUNT(m.user_id) AS member_count,
			TRUE AS is_member
		FROM study_groups g
		JOIN group_members mine ON mine.group_id = g.id AND mine.user_id = $1
		LEFT JOIN group_members m ON m.group_id = g.id
		GROUP BY g.id
		ORDER BY g.created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

func (r *PostgresRepository) querySummaries(ctx context.Context, query string, args ...any) ([]domain.GroupSummary, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSummaries(rows)
}

func scanSummaries(rows pgx.Rows) ([]domain.GroupSummary, error) {
	var out []domain.GroupSummary
	for rows.Next() {
		var s domain.GroupSummary
		var isMember *bool
		if err := rows.Scan(
			&s.Group.ID, &s.Group.Name, &s.Group.Description, &s.Group.Subject,
			&s.Group.JoinCode, &s.Group.MaxMembers, &s.Group.CreatedBy, &s.Group.CreatedAt,
			&s.MemberCount, &isMember,
		); err != nil {
			return nil, err
		}
		s.IsMember = isMember != nil && *isMember
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) AddMember(ctx context.Context, m *domain.GroupMember) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO group_members (group_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
	`, m.GroupID, m.UserID, m.Role, m.JoinedAt)
	return err
}

func (r *PostgresRepository) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM group_members WHERE group_id = $1 AND user_id = $2
	`, groupID, userID)
	return err
}

func (r *PostgresRepository) IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2)
	`, groupID, userID).Scan(&exists)
	return exists, err
}

func (r *PostgresRepository) MemberCount(ctx context.Context, groupID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM group_members WHERE group_id = $1
	`, groupID).Scan(&count)
	return count, err
}

func (r *PostgresRepository) ListMembers(ctx context.Context, groupID uuid.UUID) ([]domain.GroupMember, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT group_id, user_id, role, joined_at
		FROM group_members WHERE group_id = $1
		ORDER BY joined_at
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.GroupMember
	for rows.Next() {
		var m domain.GroupMember
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
