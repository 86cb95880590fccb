package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType classifies analytics events
type EventType string

const (
	EventLogin             EventType = "login"
	EventQuestionAnswered  EventType = "question_answered"
	EventSessionStarted    EventType = "session_started"
	EventAIInteraction     EventType = "ai_interaction"
	EventGroupJoined       EventType = "group_joined"
	EventQuizCompleted     EventType = "quiz_completed"
	EventAchievementEarned EventType = "achievement_earned"
)

// Event is one analytics occurrence, published through the event queue
// and persisted by the aggregator.
type Event struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Type      EventType      `json:"type"`
	Subject   string         `json:"subject,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// StudySession records a block of learning activity for streaks and rollups
type StudySession struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Activity    string
	Subject     string
	XPEarned    int
	DurationSec int
	CreatedAt   time.Time
}

// DailyRollup aggregates a user's activity for one calendar day
type DailyRollup struct {
	UserID        uuid.UUID
	Day           time.Time
	Events        int
	XPEarned      int
	QuestionsSeen int
	CorrectCount  int
}
