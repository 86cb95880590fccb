package content

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

// Repository defines the interface for content data access
type Repository interface {
	CreateQuestion(ctx context.Context, q *domain.Question) error
	GetQuestion(ctx context.Context, id uuid.UUID) (*domain.Question, error)
	ListQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error)
	RecordQuestionAttempt(ctx context.Context, id uuid.UUID, correct bool) error

	CreateAssessment(ctx context.Context, a *domain.Assessment) error
	GetAssessment(ctx context.Context, id uuid.UUID) (*domain.Assessment, error)
	ListAssessments(ctx context.Context, subject string, limit int) ([]domain.Assessment, error)
	SaveResult(ctx context.Context, r *domain.AssessmentResult) error
	ListResults(ctx context.Context, userID uuid.UUID, limit int) ([]domain.AssessmentResult, error)
}

// PostgresRepository implements Repository using PostgreSQL. Option, hint
// and tag payloads live in JSONB columns.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) CreateQuestion(ctx context.Context, q *domain.Question) error {
	options, err := json.Marshal(q.Options)
	if err != nil {
		return fmt.Errorf("marshal options: %w", err)
	}
	hints, err := json.Marshal(q.Hints)
	if err != nil {
		return fmt.Errorf("marshal hints: %w", err)
	}
	tags, err := json.Marshal(q.Tags)
	if err != nil {
		return fmt.Errorf("marshal tags: %w", err)
	}

	query := `
		INSERT INTO questions (id, text, type, subject, difficulty, options, correct_answer,
			explanation, hints, tags, points, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = r.pool.Exec(ctx, query,
		q.ID, q.Text, q.Type, q.Subject, q.Difficulty, options, q.CorrectAnswer,
		q.Explanation, hints, tags, q.Points, q.CreatedBy, q.CreatedAt, q.UpdatedAt,
	)
	return err
}

func (r *PostgresRepository) GetQuestion(ctx context.Context, id uuid.UUID) (*domain.Question, error) {
	query := `
		SELECT id, text, type, subject, difficulty, options, correct_answer,
			explanation, hints, tags, points, created_by, times_answered, times_correct,
			created_at, updated_at
		FROM questions WHERE id = $1
	`
	q, err := scanQuestion(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrQuestionNotFound
	}
	return q, err
}

func (r *PostgresRepository) ListQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	query := `
		SELECT id, text, type, subject, difficulty, options, correct_answer,
			explanation, hints, tags, points, created_by, times_answered, times_correct,
			created_at, updated_at
		FROM questions
		WHERE ($1 = '' OR subject = $1)
		  AND ($2 = '' OR difficulty = $2)
		  AND ($3 = '' OR type = $3)
		ORDER BY created_at DESC
		LIMIT $4
	`
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, query, filter.Subject, string(filter.Difficulty), string(filter.Type), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) RecordQuestionAttempt(ctx context.Context, id uuid.UUID, correct bool) error {
	query := `
		UPDATE questions
		SET times_answered = times_answered + 1,
		    times_correct = times_correct + CASE WHEN $2 THEN 1 ELSE 0 END
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, correct)
	return err
}

func (r *PostgresRepository) CreateAssessment(ctx context.Context, a *domain.Assessment) error {
	ids, err := json.Marshal(a.QuestionIDs)
	if err != nil {
		return fmt.Errorf("marshal question ids: %w", err)
	}

	query := `
		INSERT INTO assessments (id, title, description, subject, difficulty, question_ids,
			time_limit_minutes, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.pool.Exec(ctx, query,
		a.ID, a.Title, a.Description, a.Subject, a.Difficulty, ids,
		a.TimeLimitMinutes, a.IsActive, a.CreatedBy, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (r *PostgresRepository) GetAssessment(ctx context.Context, id uuid.UUID) (*domain.Assessment, error) {
	query := `
		SELECT id, title, description, subject, difficulty, question_ids,
			time_limit_minutes, is_active, created_by, created_at, updated_at
		FROM assessments WHERE id = $1
	`
	a := &domain.Assessment{}
	var ids []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.Title, &a.Description, &a.Subject, &a.Difficulty, &ids,
		&a.TimeLimitMinutes, &a.IsActive, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrAssessmentNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(ids, &a.QuestionIDs); err != nil {
		return nil, fmt.Errorf("unmarshal question ids: %w", err)
	}
	return a, nil
}

func (r *PostgresRepository) ListAssessments(ctx context.Context, subject string, limit int) ([]domain.Assessment, error) {
	query := `
		SELECT id, title, description, subject, difficulty, question_ids,
			time_limit_minutes, is_active, created_by, created_at, updated_at
		FROM assessments
		WHERE is_active AND ($1 = '' OR subject = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx, query, subject, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Assessment
	for rows.Next() {
		a := domain.Assessment{}
		var ids []byte
		if err := rows.Scan(
			&a.ID, &a.Title, &a.Description, &a.Subject, &a.Difficulty, &ids,
			&a.TimeLimitMinutes, &a.IsActive, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(ids, &a.QuestionIDs); err != nil {
			return nil, fmt.Errorf("unmarshal question ids: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) SaveResult(ctx context.Context, res *domain.AssessmentResult) error {
	query := `
		INSERT INTO assessment_results (id, assessment_id, user_id, score, total_questions,
			correct_answers, time_taken_secs, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.pool.Exec(ctx, query,
		res.ID, res.AssessmentID, res.UserID, res.Score, res.TotalQuestions,
		res.CorrectAnswers, res.TimeTakenSecs, res.SubmittedAt,
	)
	return err
}

func (r *PostgresRepository) ListResults(ctx context.Context, userID uuid.UUID, limit int) ([]domain.AssessmentResult, error) {
	query := `
		SELECT id, assessment_id, user_id, score, total_questions, correct_answers,
			time_taken_secs, submitted_at
		FROM assessment_results
		WHERE user_id = $1
		ORDER BY submitted_at DESC
		LIMIT $2
	`
	if limit <= 0 {
		limit = 20
	}

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AssessmentResult
	for rows.Next() {
		res := domain.AssessmentResult{}
		if err := rows.Scan(
			&res.ID, &res.AssessmentID, &res.UserID, &res.Score, &res.TotalQuestions,
			&res.CorrectAnswers, &res.TimeTakenSecs, &res.SubmittedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (*domain.Question, error) {
	q := &domain.Question{}
	var options, hints, tags []byte
	err := row.Scan(
		&q.ID, &q.Text, &q.Type, &q.Subject, &q.Difficulty, &options, &q.CorrectAnswer,
		&q.Explanation, &hints, &tags, &q.Points, &q.CreatedBy, &q.TimesAnswered, &q.TimesCorrect,
		&q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(options, &q.Options); err != nil {
		return nil, fmt.Errorf("unmarshal options: %w", err)
	}
	if err := json.Unmarshal(hints, &q.Hints); err != nil {
		return nil, fmt.Errorf("unmarshal hints: %w", err)
	}
	if err := json.Unmarshal(tags, &q.Tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return q, nil
}
