package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one turn in a tutoring conversation
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is a persisted AI-tutor chat session
type Conversation struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	SessionID  string
	Provider   string
	Model      string
	Messages   []ChatMessage
	TokensUsed int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
