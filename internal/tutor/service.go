package tutor

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/idfs-labs/starguide/internal/domain"
	"github.com/idfs-labs/starguide/internal/events"
	"github.com/idfs-labs/starguide/internal/llm"
)

const (
	chatXPReward = 10
	maxHistory   = 40 // message turns kept per conversation

	tutorSystemPrompt = "You are StarGuide, a patient and encouraging tutor. " +
		"Explain concepts step by step, ask guiding questions instead of giving " +
		"answers away, and keep responses focused on the student's current topic."
)

// Repository defines conversation persistence
type Repository interface {
	GetConversation(ctx context.Context, userID uuid.UUID, sessionID string) (*domain.Conversation, error)
	SaveConversation(ctx context.Context, c *domain.Conversation) error
	ListConversations(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Conversation, error)
}

// ProgressRecorder awards experience for tutoring activity
type ProgressRecorder interface {
	AwardXP(ctx context.Context, userID uuid.UUID, points int) error
}

// Service orchestrates AI-tutor chats: routing to a provider, persisting
// the conversation, awarding experience and publishing analytics events.
type Service struct {
	router    *llm.Router
	repo      Repository
	progress  ProgressRecorder
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a tutor service. progress and publisher may be nil.
func NewService(router *llm.Router, repo Repository, progress ProgressRecorder, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		router:    router,
		repo:      repo,
		progress:  progress,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// ChatInput is one user turn
type ChatInput struct {
	UserID    uuid.UUID
	SessionID string
	Message   string
	Model     string
	Subject   string
}

// ChatOutput is the tutor's reply with session bookkeeping
type ChatOutput struct {
	Response       string `json:"response"`
	SessionID      string `json:"session_id"`
	Model          string `json:"model"`
	Provider       string `json:"provider"`
	TokensUsed     int    `json:"tokens_used"`
	ResponseTimeMS int64  `json:"response_time_ms"`
	XPEarned       int    `json:"xp_earned"`
}

// Chat runs one tutoring turn. The conversation history for the session is
// replayed to the model, the exchange is persisted, and the student earns
// experience for the interaction. Provider failures surface as apologetic
// responses rather than errors, so a chat turn only fails on storage
// problems.
func (s *Service) Chat(ctx context.Context, in ChatInput) (*ChatOutput, error) {
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, domain.ErrInvalidInput
	}
	if in.SessionID == "" {
		in.SessionID = uuid.New().String()
	}

	conv, err := s.repo.GetConversation(ctx, in.UserID, in.SessionID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	if conv == nil {
		conv = &domain.Conversation{
			ID:        uuid.New(),
			UserID:    in.UserID,
			SessionID: in.SessionID,
			CreatedAt: now,
		}
	}

	conv.Messages = append(conv.Messages, domain.ChatMessage{Role: "user", Content: message})

	history := make([]llm.Message, 0, len(conv.Messages))
	for _, m := range conv.Messages {
		history = append(history, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
	}

	result := s.router.ChatCompletion(ctx, in.Model, history, llm.ChatOptions{
		System: s.systemPrompt(in.Subject),
	})

	conv.Messages = append(conv.Messages, domain.ChatMessage{Role: "assistant", Content: result.Response})
	if len(conv.Messages) > maxHistory {
		conv.Messages = conv.Messages[len(conv.Messages)-maxHistory:]
	}
	conv.Model = result.Model
	conv.Provider = result.Provider
	conv.TokensUsed += result.TokensUsed
	conv.UpdatedAt = now

	if err := s.repo.SaveConversation(ctx, conv); err != nil {
		return nil, err
	}

	xp := 0
	if !result.Degraded {
		xp = chatXPReward
		if s.progress != nil {
			if err := s.progress.AwardXP(ctx, in.UserID, chatXPReward); err != nil {
				s.logger.Warn("xp award failed", "user_id", in.UserID, "error", err)
			}
		}
	}

	if s.publisher != nil {
		event := events.NewEvent(in.UserID, domain.EventAIInteraction, in.Subject, map[string]any{
			"session_id": in.SessionID,
			"model":      result.Model,
			"provider":   result.Provider,
			"tokens":     result.TokensUsed,
			"degraded":   result.Degraded,
			"xp_earned":  xp,
		})
		if err := s.publisher.PublishEvent(ctx, event); err != nil {
			s.logger.Warn("event publish failed", "user_id", in.UserID, "error", err)
		}
	}

	return &ChatOutput{
		Response:       result.Response,
		SessionID:      in.SessionID,
		Model:          result.Model,
		Provider:       result.Provider,
		TokensUsed:     result.TokensUsed,
		ResponseTimeMS: result.ResponseTimeMS,
		XPEarned:       xp,
	}, nil
}

// History returns the stored conversation for a session.
func (s *Service) History(ctx context.Context, userID uuid.UUID, sessionID string) (*domain.Conversation, error) {
	conv, err := s.repo.GetConversation(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, domain.ErrConversationNotFound
	}
	return conv, nil
}

// Sessions returns the user's recent conversations
func (s *Service) Sessions(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Conversation, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListConversations(ctx, userID, limit)
}

// Models lists the routable models with availability
func (s *Service) Models() []llm.ModelInfo {
	return s.router.AvailableModels()
}

func (s *Service) systemPrompt(subject string) string {
	if subject == "" {
		return tutorSystemPrompt
	}
	return tutorSystemPrompt + " The student is currently studying " + subject + "."
}
