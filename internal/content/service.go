package content

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/idfs-labs/starguide/internal/domain"
)

const defaultQuestionPoints = 10

// ProgressRecorder is notified when graded work should award experience.
type ProgressRecorder interface {
	AwardXP(ctx context.Context, userID uuid.UUID, points int) error
}

// EventPublisher feeds graded answers into the analytics pipeline.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *domain.Event) error
}

// Service manages the question bank and assessments
type Service struct {
	repo      Repository
	cache     *CachedLister
	progress  ProgressRecorder
	publisher EventPublisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a content service. progress and publisher may be nil
// when no experience tracking or analytics is wired.
func NewService(repo Repository, cache *CachedLister, progress ProgressRecorder, publisher EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		repo:      repo,
		cache:     cache,
		progress:  progress,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateQuestionInput carries the fields for a new question
type CreateQuestionInput struct {
	Text          string
	Type          domain.QuestionType
	Subject       string
	Difficulty    domain.Difficulty
	Options       []domain.AnswerOption
	CorrectAnswer string
	Explanation   string
	Hints         []string
	Tags          []string
	Points        int
	CreatedBy     uuid.UUID
}

// CreateQuestion validates and stores a new question
func (s *Service) CreateQuestion(ctx context.Context, in CreateQuestionInput) (*domain.Question, error) {
	if in.Text == "" || in.Subject == "" || in.CorrectAnswer == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.Type == domain.QuestionMultipleChoice && len(in.Options) < 2 {
		return nil, domain.ErrInvalidInput
	}
	if in.Points <= 0 {
		in.Points = defaultQuestionPoints
	}

	now := s.now()
	q := &domain.Question{
		ID:            uuid.New(),
		Text:          in.Text,
		Type:          in.Type,
		Subject:       in.Subject,
		Difficulty:    in.Difficulty,
		Options:       in.Options,
		CorrectAnswer: in.CorrectAnswer,
		Explanation:   in.Explanation,
		Hints:         in.Hints,
		Tags:          in.Tags,
		Points:        in.Points,
		CreatedBy:     in.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateQuestion(ctx, q); err != nil {
		return nil, err
	}
	s.cache.Invalidate()

	s.logger.Info("question created", "question_id", q.ID, "subject", q.Subject)
	return q, nil
}

// GetQuestion fetches a single question by id
func (s *Service) GetQuestion(ctx context.Context, id uuid.UUID) (*domain.Question, error) {
	return s.repo.GetQuestion(ctx, id)
}

// ListQuestions returns questions matching the filter, served from cache.
func (s *Service) ListQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	return s.cache.ListQuestions(ctx, filter)
}

// CreateAssessmentInput carries the fields for a new assessment
type CreateAssessmentInput struct {
	Title            string
	Description      string
	Subject          string
	Difficulty       domain.Difficulty
	QuestionIDs      []uuid.UUID
	TimeLimitMinutes int
	CreatedBy        uuid.UUID
}

// CreateAssessment validates the referenced questions and stores the assessment
func (s *Service) CreateAssessment(ctx context.Context, in CreateAssessmentInput) (*domain.Assessment, error) {
	if in.Title == "" || len(in.QuestionIDs) == 0 {
		return nil, domain.ErrInvalidInput
	}
	for _, id := range in.QuestionIDs {
		if _, err := s.repo.GetQuestion(ctx, id); err != nil {
			return nil, err
		}
	}

	now := s.now()
	a := &domain.Assessment{
		ID:               uuid.New(),
		Title:            in.Title,
		Description:      in.Description,
		Subject:          in.Subject,
		Difficulty:       in.Difficulty,
		QuestionIDs:      in.QuestionIDs,
		TimeLimitMinutes: in.TimeLimitMinutes,
		IsActive:         true,
		CreatedBy:        in.CreatedBy,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.CreateAssessment(ctx, a); err != nil {
		return nil, err
	}

	s.logger.Info("assessment created", "assessment_id", a.ID, "questions", len(a.QuestionIDs))
	return a, nil
}

// GetAssessment fetches an assessment by id
func (s *Service) GetAssessment(ctx context.Context, id uuid.UUID) (*domain.Assessment, error) {
	return s.repo.GetAssessment(ctx, id)
}

// ListAssessments returns active assessments, optionally filtered by subject
func (s *Service) ListAssessments(ctx context.Context, subject string, limit int) ([]domain.Assessment, error) {
	return s.repo.ListAssessments(ctx, subject, limit)
}

// QuestionAnswer pairs a question id with the submitted answer
type QuestionAnswer struct {
	QuestionID uuid.UUID `json:"question_id"`
	Answer     string    `json:"answer"`
}

// SubmitAssessment grades a full submission against the assessment's
// question set and persists the result. Unanswered questions count as
// incorrect. Experience worth double the earned score is awarded.
func (s *Service) SubmitAssessment(ctx context.Context, assessmentID, userID uuid.UUID, answers []QuestionAnswer, timeTakenSecs int) (*domain.AssessmentResult, error) {
	a, err := s.repo.GetAssessment(ctx, assessmentID)
	if err != nil {
		return nil, err
	}

	byQuestion := make(map[uuid.UUID]string, len(answers))
	for _, ans := range answers {
		byQuestion[ans.QuestionID] = ans.Answer
	}

	score := 0
	correct := 0
	for _, qid := range a.QuestionIDs {
		q, err := s.repo.GetQuestion(ctx, qid)
		if err != nil {
			return nil, err
		}
		answer, answered := byQuestion[qid]
		ok := answered && q.CheckAnswer(answer)
		if ok {
			score += q.Points
			correct++
		}
		if answered {
			if err := s.repo.RecordQuestionAttempt(ctx, qid, ok); err != nil {
				s.logger.Warn("record attempt failed", "question_id", qid, "error", err)
			}
			s.publishAnswered(ctx, userID, q, ok)
		}
	}

	result := &domain.AssessmentResult{
		ID:             uuid.New(),
		AssessmentID:   a.ID,
		UserID:         userID,
		Score:          score,
		TotalQuestions: len(a.QuestionIDs),
		CorrectAnswers: correct,
		TimeTakenSecs:  timeTakenSecs,
		SubmittedAt:    s.now(),
	}
	if err := s.repo.SaveResult(ctx, result); err != nil {
		return nil, err
	}

	if s.progress != nil && score > 0 {
		if err := s.progress.AwardXP(ctx, userID, score*2); err != nil {
			s.logger.Warn("xp award failed", "user_id", userID, "error", err)
		}
	}

	s.logger.Info("assessment submitted",
		"assessment_id", a.ID,
		"user_id", userID,
		"score", score,
		"correct", correct,
		"total", len(a.QuestionIDs),
	)
	return result, nil
}

// publishAnswered emits a question_answered event for one graded answer.
// Publish failures are logged, never surfaced to the submitter.
func (s *Service) publishAnswered(ctx context.Context, userID uuid.UUID, q *domain.Question, correct bool) {
	if s.publisher == nil {
		return
	}
	xp := 0
	if correct {
		xp = q.Points * 2
	}
	event := &domain.Event{
		ID:      uuid.New(),
		UserID:  userID,
		Type:    domain.EventQuestionAnswered,
		Subject: q.Subject,
		Data: map[string]any{
			"question_id": q.ID.String(),
			"correct":     correct,
			"xp_earned":   float64(xp),
		},
		CreatedAt: s.now(),
	}
	if err := s.publisher.PublishEvent(ctx, event); err != nil {
		s.logger.Warn("publish event failed", "event_type", event.Type, "error", err)
	}
}

// ListResults returns a user's recent assessment results
func (s *Service) ListResults(ctx context.Context, userID uuid.UUID, limit int) ([]domain.AssessmentResult, error) {
	return s.repo.ListResults(ctx, userID, limit)
}
