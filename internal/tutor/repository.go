package tutor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/idfs-labs/starguide/internal/domain"
)

// PostgresRepository implements Repository using PostgreSQL. Message
// history lives in a JSONB column.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// GetConversation returns nil without error when the session is unknown.
func (r *PostgresRepository) GetConversation(ctx context.Context, userID uuid.UUID, sessionID string) (*domain.Conversation, error) {
	c := &domain.Conversation{}
	var messages []byte
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, session_id, provider, model, messages, tokens_used, created_at, updated_at
		FROM conversations
		WHERE user_id = $1 AND session_id = $2
	`, userID, sessionID).Scan(
		&c.ID, &c.UserID, &c.SessionID, &c.Provider, &c.Model, &messages, &c.TokensUsed, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(messages, &c.Messages); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) SaveConversation(ctx context.Context, c *domain.Conversation) error {
	messages, err := json.Marshal(c.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO conversations (id, user_id, session_id, provider, model, messages, tokens_used, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, session_id) DO UPDATE SET
			provider = EXCLUDED.provider,
			model = EXCLUDED.model,
			messages = EXCLUDED.messages,
			tokens_used = EXCLUDED.tokens_used,
			updated_at = EXCLUDED.updated_at
	`, c.ID, c.UserID, c.SessionID, c.Provider, c.Model, messages, c.TokensUsed, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *PostgresRepository) ListConversations(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Conversation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, session_id, provider, model, messages, tokens_used, created_at, updated_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		var messages []byte
		if err := rows.Scan(
			&c.ID, &c.UserID, &c.SessionID, &c.Provider, &c.Model, &messages, &c.TokensUsed, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(messages, &c.Messages); err != nil {
			return nil, fmt.Errorf("unmarshal messages: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
