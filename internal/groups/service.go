package groups

import (
	"context"
	"crypto/rand"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/idfs-labs/starguide/internal/domain"
)

const (
	joinCodeAlphabet  = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	joinCodeLength    = 8
	defaultMaxMembers = 20
	maxMembersCeiling = 100
)

// Repository defines group data access
type Repository interface {
	CreateGroup(ctx context.Context, g *domain.StudyGroup, owner *domain.GroupMember) error
	GetGroup(ctx context.Context, id uuid.UUID) (*domain.StudyGroup, error)
	GetGroupByJoinCode(ctx context.Context, code string) (*domain.StudyGroup, error)
	ListGroups(ctx context.Context, subject string, viewerID uuid.UUID, limit int) ([]domain.GroupSummary, error)
	ListUserGroups(ctx context.Context, userID uuid.UUID) ([]domain.GroupSummary, error)
	AddMember(ctx context.Context, m *domain.GroupMember) error
	RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error
	IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
	MemberCount(ctx context.Context, groupID uuid.UUID) (int, error)
	ListMembers(ctx context.Context, groupID uuid.UUID) ([]domain.GroupMember, error)
}

// Service manages study groups
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a groups service
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// CreateGroupInput carries the fields for a new study group
type CreateGroupInput struct {
	Name        string
	Description string
	Subject     string
	MaxMembers  int
	CreatedBy   uuid.UUID
}

// CreateGroup creates a group and enrolls the creator as its owner.
func (s *Service) CreateGroup(ctx context.Context, in CreateGroupInput) (*domain.StudyGroup, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, domain.ErrInvalidInput
	}
	maxMembers := in.MaxMembers
	if maxMembers <= 0 {
		maxMembers = defaultMaxMembers
	}
	if maxMembers > maxMembersCeiling {
		maxMembers = maxMembersCeiling
	}

	now := s.now()
	g := &domain.StudyGroup{
		ID:          uuid.New(),
		Name:        name,
		Description: in.Description,
		Subject:     in.Subject,
		JoinCode:    generateJoinCode(),
		MaxMembers:  maxMembers,
		CreatedBy:   in.CreatedBy,
		CreatedAt:   now,
	}
	owner := &domain.GroupMember{
		GroupID:  g.ID,
		UserID:   in.CreatedBy,
		Role:     domain.GroupRoleOwner,
		JoinedAt: now,
	}
	if err := s.repo.CreateGroup(ctx, g, owner); err != nil {
		return nil, err
	}

	s.logger.Info("study group created", "group_id", g.ID, "name", g.Name, "created_by", in.CreatedBy)
	return g, nil
}

// GetGroup fetches a group with its member count
func (s *Service) GetGroup(ctx context.Context, id uuid.UUID, viewerID uuid.UUID) (*domain.GroupSummary, error) {
	g, err := s.repo.GetGroup(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.repo.MemberCount(ctx, id)
	if err != nil {
		return nil, err
	}
	isMember, err := s.repo.IsMember(ctx, id, viewerID)
	if err != nil {
		return nil, err
	}
	return &domain.GroupSummary{Group: *g, MemberCount: count, IsMember: isMember}, nil
}

// ListGroups returns groups, optionally filtered by subject
func (s *Service) ListGroups(ctx context.Context, subject string, viewerID uuid.UUID, limit int) ([]domain.GroupSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	return s.repo.ListGroups(ctx, subject, viewerID, limit)
}

// MyGroups returns the groups the user belongs to
func (s *Service) MyGroups(ctx context.Context, userID uuid.UUID) ([]domain.GroupSummary, error) {
	return s.repo.ListUserGroups(ctx, userID)
}

// JoinGroup enrolls the user in the group by id.
func (s *Service) JoinGroup(ctx context.Context, groupID, userID uuid.UUID) error {
	g, err := s.repo.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	return s.join(ctx, g, userID)
}

// JoinByCode enrolls the user in the group matching the join code.
func (s *Service) JoinByCode(ctx context.Context, code string, userID uuid.UUID) (*domain.StudyGroup, error) {
	g, err := s.repo.GetGroupByJoinCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return nil, err
	}
	if err := s.join(ctx, g, userID); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Service) join(ctx context.Context, g *domain.StudyGroup, userID uuid.UUID) error {
	isMember, err := s.repo.IsMember(ctx, g.ID, userID)
	if err != nil {
		return err
	}
	if isMember {
		return domain.ErrAlreadyMember
	}
	count, err := s.repo.MemberCount(ctx, g.ID)
	if err != nil {
		return err
	}
	if count >= g.MaxMembers {
		return domain.ErrGroupFull
	}

	member := &domain.GroupMember{
		GroupID:  g.ID,
		UserID:   userID,
		Role:     domain.GroupRoleMember,
		JoinedAt: s.now(),
	}
	if err := s.repo.AddMember(ctx, member); err != nil {
		return err
	}

	s.logger.Info("user joined group", "group_id", g.ID, "user_id", userID)
	return nil
}

// LeaveGroup removes the user from the group.
func (s *Service) LeaveGroup(ctx context.Context, groupID, userID uuid.UUID) error {
	if _, err := s.repo.GetGroup(ctx, groupID); err != nil {
		return err
	}
	isMember, err := s.repo.IsMember(ctx, groupID, userID)
	if err != nil {
		return err
	}
	if !isMember {
		return domain.ErrNotFound
	}
	if err := s.repo.RemoveMember(ctx, groupID, userID); err != nil {
		return err
	}

	s.logger.Info("user left group", "group_id", groupID, "user_id", userID)
	return nil
}

// ListMembers returns the group's membership roster
func (s *Service) ListMembers(ctx context.Context, groupID uuid.UUID) ([]domain.GroupMember, error) {
	if _, err := s.repo.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	return s.repo.ListMembers(ctx, groupID)
}

func generateJoinCode() string {
	b := make([]byte, joinCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(joinCodeAlphabet))))
		if err != nil {
			panic(err)
		}
		b[i] = joinCodeAlphabet[n.Int64()]
	}
	return string(b)
}
