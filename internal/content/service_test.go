package content

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/idfs-labs/starguide/internal/domain"
)

type memRepo struct {
	mu          sync.Mutex
	questions   map[uuid.UUID]*domain.Question
	assessments map[uuid.UUID]*domain.Assessment
	results     []domain.AssessmentResult
	listCalls   int
}

func newMemRepo() *memRepo {
	return &memRepo{
		questions:   make(map[uuid.UUID]*domain.Question),
		assessments: make(map[uuid.UUID]*domain.Assessment),
	}
}

func (m *memRepo) CreateQuestion(_ context.Context, q *domain.Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *q
	m.questions[q.ID] = &cp
	return nil
}

func (m *memRepo) GetQuestion(_ context.Context, id uuid.UUID) (*domain.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return nil, domain.ErrQuestionNotFound
	}
	cp := *q
	return &cp, nil
}

func (m *memRepo) ListQuestions(_ context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	var out []domain.Question
	for _, q := range m.questions {
		if filter.Subject != "" && q.Subject != filter.Subject {
			continue
		}
		out = append(out, *q)
	}
	return out, nil
}

func (m *memRepo) RecordQuestionAttempt(_ context.Context, id uuid.UUID, correct bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.questions[id]
	if !ok {
		return domain.ErrQuestionNotFound
	}
	q.TimesAnswered++
	if correct {
		q.TimesCorrect++
	}
	return nil
}

func (m *memRepo) CreateAssessment(_ context.Context, a *domain.Assessment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.assessments[a.ID] = &cp
	return nil
}

func (m *memRepo) GetAssessment(_ context.Context, id uuid.UUID) (*domain.Assessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assessments[id]
	if !ok {
		return nil, domain.ErrAssessmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memRepo) ListAssessments(_ context.Context, subject string, _ int) ([]domain.Assessment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Assessment
	for _, a := range m.assessments {
		if subject != "" && a.Subject != subject {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}

func (m *memRepo) SaveResult(_ context.Context, r *domain.AssessmentResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, *r)
	return nil
}

func (m *memRepo) ListResults(_ context.Context, userID uuid.UUID, _ int) ([]domain.AssessmentResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.AssessmentResult
	for _, r := range m.results {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

type stubProgress struct {
	mu     sync.Mutex
	awards map[uuid.UUID]int
	err    error
}

func (s *stubProgress) AwardXP(_ context.Context, userID uuid.UUID, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.awards == nil {
		s.awards = make(map[uuid.UUID]int)
	}
	s.awards[userID] += points
	return nil
}

func newTestService(repo *memRepo, progress ProgressRecorder) *Service {
	cache := NewCachedLister(repo, time.Minute)
	return NewService(repo, cache, progress, nil, slog.New(slog.NewTextHandler(&discard{}, nil)))
}

type discard struct{}

func (*discard) Write(p []byte) (int, error) { return len(p), nil }

func seedQuestions(t *testing.T, svc *Service, n int) []uuid.UUID {
	t.Helper()
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		q, err := svc.CreateQuestion(context.Background(), CreateQuestionInput{
			Text:       "What is the closest star?",
			Type:       domain.QuestionMultipleChoice,
			Subject:    "astronomy",
			Difficulty: domain.DifficultyBeginner,
			Options: []domain.AnswerOption{
				{ID: "a", Text: "Sirius"},
				{ID: "b", Text: "The Sun"},
			},
			CorrectAnswer: "b",
			Points:        10,
		})
		if err != nil {
			t.Fatalf("CreateQuestion: %v", err)
		}
		ids = append(ids, q.ID)
	}
	return ids
}

func TestCreateQuestion_Validation(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)

	_, err := svc.CreateQuestion(context.Background(), CreateQuestionInput{
		Type:          domain.QuestionShortAnswer,
		Subject:       "astronomy",
		CorrectAnswer: "sun",
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("missing text: got %v, want ErrInvalidInput", err)
	}

	_, err = svc.CreateQuestion(context.Background(), CreateQuestionInput{
		Text:          "Pick one",
		Type:          domain.QuestionMultipleChoice,
		Subject:       "astronomy",
		CorrectAnswer: "a",
		Options:       []domain.AnswerOption{{ID: "a", Text: "only"}},
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("single option: got %v, want ErrInvalidInput", err)
	}
}

func TestCreateQuestion_DefaultPoints(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)

	q, err := svc.CreateQuestion(context.Background(), CreateQuestionInput{
		Text:          "Is the Sun a star?",
		Type:          domain.QuestionTrueFalse,
		Subject:       "astronomy",
		CorrectAnswer: "true",
	})
	if err != nil {
		t.Fatalf("CreateQuestion: %v", err)
	}
	if q.Points != defaultQuestionPoints {
		t.Errorf("Points = %d, want %d", q.Points, defaultQuestionPoints)
	}
}

func TestCreateAssessment_UnknownQuestion(t *testing.T) {
	svc := newTestService(newMemRepo(), nil)

	_, err := svc.CreateAssessment(context.Background(), CreateAssessmentInput{
		Title:       "Stars 101",
		QuestionIDs: []uuid.UUID{uuid.New()},
	})
	if !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Errorf("got %v, want ErrQuestionNotFound", err)
	}
}

type stubPublisher struct {
	mu     sync.Mutex
	events []*domain.Event
}

func (s *stubPublisher) PublishEvent(_ context.Context, e *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func TestSubmitAssessment_PublishesAnsweredEvents(t *testing.T) {
	repo := newMemRepo()
	publisher := &stubPublisher{}
	cache := NewCachedLister(repo, time.Minute)
	svc := NewService(repo, cache, nil, publisher, slog.New(slog.NewTextHandler(&discard{}, nil)))

	ids := seedQuestions(t, svc, 2)
	a, err := svc.CreateAssessment(context.Background(), CreateAssessmentInput{
		Title:       "Stars 101",
		Subject:     "astronomy",
		QuestionIDs: ids,
	})
	if err != nil {
		t.Fatalf("CreateAssessment: %v", err)
	}

	userID := uuid.New()
	answers := []QuestionAnswer{
		{QuestionID: ids[0], Answer: "b"},
		{QuestionID: ids[1], Answer: "a"},
	}
	if _, err := svc.SubmitAssessment(context.Background(), a.ID, userID, answers, 30); err != nil {
		t.Fatalf("SubmitAssessment: %v", err)
	}

	if len(publisher.events) != 2 {
		t.Fatalf("published %d events, want 2", len(publisher.events))
	}
	for _, e := range publisher.events {
		if e.Type != domain.EventQuestionAnswered {
			t.Errorf("event type = %q, want %q", e.Type, domain.EventQuestionAnswered)
		}
		if e.UserID != userID {
			t.Errorf("event user = %s, want %s", e.UserID, userID)
		}
	}
	correct, ok := publisher.events[0].Data["correct"].(bool)
	if !ok || !correct {
		t.Errorf("first answer event correct = %v, want true", publisher.events[0].Data["correct"])
	}
	if xp := publisher.events[0].Data["xp_earned"]; xp != float64(20) {
		t.Errorf("first answer event xp_earned = %v, want 20", xp)
	}
	if correct, _ := publisher.events[1].Data["correct"].(bool); correct {
		t.Errorf("second answer event correct = true, want false")
	}
}

func TestSubmitAssessment_GradesAndAwardsXP(t *testing.T) {
	repo := newMemRepo()
	progress := &stubProgress{}
	svc := newTestService(repo, progress)

	ids := seedQuestions(t, svc, 3)
	a, err := svc.CreateAssessment(context.Background(), CreateAssessmentInput{
		Title:       "Stars 101",
		Subject:     "astronomy",
		QuestionIDs: ids,
	})
	if err != nil {
		t.Fatalf("CreateAssessment: %v", err)
	}

	userID := uuid.New()
	answers := []QuestionAnswer{
		{QuestionID: ids[0], Answer: "b"},
		{QuestionID: ids[1], Answer: "a"},
		// ids[2] left unanswered
	}
	result, err := svc.SubmitAssessment(context.Background(), a.ID, userID, answers, 42)
	if err != nil {
		t.Fatalf("SubmitAssessment: %v", err)
	}

	if result.CorrectAnswers != 1 {
		t.Errorf("CorrectAnswers = %d, want 1", result.CorrectAnswers)
	}
	if result.Score != 10 {
		t.Errorf("Score = %d, want 10", result.Score)
	}
	if result.TotalQuestions != 3 {
		t.Errorf("TotalQuestions = %d, want 3", result.TotalQuestions)
	}
	if got := result.Percentage(); got < 33.3 || got > 33.4 {
		t.Errorf("Percentage = %f, want ~33.3", got)
	}
	if progress.awards[userID] != 20 {
		t.Errorf("awarded xp = %d, want 20 (double the score)", progress.awards[userID])
	}

	// Only answered questions count as attempts.
	q0, _ := repo.GetQuestion(context.Background(), ids[0])
	if q0.TimesAnswered != 1 || q0.TimesCorrect != 1 {
		t.Errorf("q0 stats = %d/%d, want 1/1", q0.TimesCorrect, q0.TimesAnswered)
	}
	q2, _ := repo.GetQuestion(context.Background(), ids[2])
	if q2.TimesAnswered != 0 {
		t.Errorf("unanswered question recorded an attempt")
	}

	results, err := svc.ListResults(context.Background(), userID, 10)
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("ListResults returned %d results, want 1", len(results))
	}
}

func TestSubmitAssessment_XPErrorDoesNotFailSubmission(t *testing.T) {
	repo := newMemRepo()
	progress := &stubProgress{err: errors.New("db down")}
	svc := newTestService(repo, progress)

	ids := seedQuestions(t, svc, 1)
	a, _ := svc.CreateAssessment(context.Background(), CreateAssessmentInput{
		Title:       "Quick check",
		QuestionIDs: ids,
	})

	result, err := svc.SubmitAssessment(context.Background(), a.ID, uuid.New(),
		[]QuestionAnswer{{QuestionID: ids[0], Answer: "b"}}, 5)
	if err != nil {
		t.Fatalf("SubmitAssessment: %v", err)
	}
	if result.Score != 10 {
		t.Errorf("Score = %d, want 10", result.Score)
	}
}

func TestListQuestions_ServedFromCache(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, nil)
	seedQuestions(t, svc, 2)

	filter := domain.QuestionFilter{Subject: "astronomy"}
	if _, err := svc.ListQuestions(context.Background(), filter); err != nil {
		t.Fatalf("ListQuestions: %v", err)
	}
	if _, err := svc.ListQuestions(context.Background(), filter); err != nil {
		t.Fatalf("ListQuestions: %v", err)
	}
	if repo.listCalls != 1 {
		t.Errorf("repo list calls = %d, want 1 (second call cached)", repo.listCalls)
	}

	// A write invalidates the cache.
	seedQuestions(t, svc, 1)
	if _, err := svc.ListQuestions(context.Background(), filter); err != nil {
		t.Fatalf("ListQuestions: %v", err)
	}
	if repo.listCalls != 2 {
		t.Errorf("repo list calls after invalidation = %d, want 2", repo.listCalls)
	}
}
