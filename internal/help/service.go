// Package help runs the teacher help queue: students file requests,
// teachers see the queue ordered by age and claim items off the top.
package help

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/idfs-labs/starguide/internal/domain"
)

const maxDescriptionLen = 2000

// Repository defines help request persistence
type Repository interface {
	Create(ctx context.Context, req *domain.HelpRequest) error
	Get(ctx context.Context, id uuid.UUID) (*domain.HelpRequest, error)
	Queue(ctx context.Context, limit int) ([]domain.HelpRequest, error)
	Claim(ctx context.Context, id, teacherID uuid.UUID, at time.Time) error
	ListByStudent(ctx context.Context, studentID uuid.UUID, limit int) ([]domain.HelpRequest, error)
}

// Service manages the help queue
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a help queue service
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// CreateInput carries the fields for a new help request
type CreateInput struct {
	Student     *domain.User
	Subject     string
	Description string
	Priority    domain.HelpPriority
}

// Create files a help request. Only students ask for help; teachers answer.
func (s *Service) Create(ctx context.Context, in CreateInput) (*domain.HelpRequest, error) {
	if in.Student.Role != domain.RoleStudent {
		return nil, domain.ErrForbidden
	}

	subject := strings.TrimSpace(in.Subject)
	description := strings.TrimSpace(in.Description)
	if subject == "" || description == "" {
		return nil, domain.ErrInvalidInput
	}
	if len(description) > maxDescriptionLen {
		return nil, domain.ErrInvalidInput
	}
	priority := in.Priority
	if priority == "" {
		priority = domain.HelpPriorityMedium
	}
	if !domain.ValidHelpPriority(priority) {
		return nil, domain.ErrInvalidInput
	}

	now := s.now()
	req := &domain.HelpRequest{
		ID:          uuid.New(),
		StudentID:   in.Student.ID,
		Subject:     subject,
		Description: description,
		Priority:    priority,
		Status:      domain.HelpStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, req); err != nil {
		return nil, err
	}

	s.logger.Info("help request created",
		"request_id", req.ID,
		"student_id", req.StudentID,
		"subject", req.Subject,
		"priority", req.Priority,
	)
	return req, nil
}

// Queue returns the open requests, oldest first. Teacher only.
func (s *Service) Queue(ctx context.Context, viewer *domain.User, limit int) ([]domain.HelpRequest, error) {
	if !viewer.CanModerate() {
		return nil, domain.ErrForbidden
	}
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	return s.repo.Queue(ctx, limit)
}

// Claim assigns a pending request to the calling teacher. A request
// already claimed by someone else stays with them.
func (s *Service) Claim(ctx context.Context, teacher *domain.User, id uuid.UUID) (*domain.HelpRequest, error) {
	if !teacher.CanModerate() {
		return nil, domain.ErrForbidden
	}

	if err := s.repo.Claim(ctx, id, teacher.ID, s.now()); err != nil {
		return nil, err
	}

	s.logger.Info("help request claimed", "request_id", id, "teacher_id", teacher.ID)
	return s.repo.Get(ctx, id)
}

// MyRequests returns the caller's own requests, newest first.
func (s *Service) MyRequests(ctx context.Context, studentID uuid.UUID, limit int) ([]domain.HelpRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.repo.ListByStudent(ctx, studentID, limit)
}
