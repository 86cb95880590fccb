package arena

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/idfs-labs/starguide/internal/domain"
)

// Status is the lifecycle state of a quiz room. Transitions are monotonic:
// waiting -> active -> completed, never backwards.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// SnapshotQuestion is a question copied into a room at creation time.
// Edits to the source question bank never affect an in-flight room.
type SnapshotQuestion struct {
	ID            uuid.UUID
	Text          string
	Type          domain.QuestionType
	Options       []domain.AnswerOption
	CorrectAnswer string
	Points        int
	TimeLimitSecs int
}

// Check grades an answer against the snapshot using the same policy as the
// question bank: option-id equality for multiple choice, trimmed
// case-insensitive equality otherwise.
func (q *SnapshotQuestion) Check(answer string) bool {
	src := domain.Question{Type: q.Type, CorrectAnswer: q.CorrectAnswer}
	return src.CheckAnswer(answer)
}

// AnswerRecord is one entry in a participant's answer log
type AnswerRecord struct {
	QuestionIndex int       `json:"question_index"`
	Answer        string    `json:"answer"`
	Correct       bool      `json:"correct"`
	PointsEarned  int       `json:"points_earned"`
	AnsweredAt    time.Time `json:"answered_at"`
}

// Participant is a member of a room with their running score
type Participant struct {
	UserID   uuid.UUID      `json:"user_id"`
	Name     string         `json:"name"`
	Score    int            `json:"score"`
	Answers  []AnswerRecord `json:"answers"`
	JoinedAt time.Time      `json:"joined_at"`
}

// Room holds all mutable state for one live quiz session. Every operation
// that reads or mutates a room acquires mu for the whole check-then-mutate
// span, with no blocking calls while held.
type Room struct {
	mu sync.Mutex

	ID              uuid.UUID
	Code            string
	Title           string
	Subject         string
	Difficulty      domain.Difficulty
	Status          Status
	MaxParticipants int
	CreatedBy       uuid.UUID
	Questions       []SnapshotQuestion
	Participants    map[uuid.UUID]*Participant
	QuestionIndex   int
	CreatedAt       time.Time
	StartedAt       *time.Time

	subscribers map[chan Event]struct{}
}

// Event is broadcast to room subscribers on state changes
type Event struct {
	Type    string         `json:"type"`
	RoomID  uuid.UUID      `json:"room_id"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Event types delivered to live subscribers
const (
	EventParticipantJoined = "participant_joined"
	EventParticipantLeft   = "participant_left"
	EventQuizStarted       = "quiz_started"
	EventAnswerSubmitted   = "answer_submitted"
	EventQuestionAdvanced  = "question_advanced"
	EventQuizCompleted     = "quiz_completed"
)

// broadcastLocked delivers an event to all subscribers without blocking.
// Callers must hold r.mu.
func (r *Room) broadcastLocked(evt Event) {
	evt.RoomID = r.ID
	for ch := range r.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}

// Summary is a read-only view of room state
type Summary struct {
	RoomID          uuid.UUID     `json:"room_id"`
	RoomCode        string        `json:"room_code"`
	Title           string        `json:"title"`
	Subject         string        `json:"subject"`
	Status          Status        `json:"status"`
	MaxParticipants int           `json:"max_participants"`
	ParticipantList []Participant `json:"participants"`
	QuestionCount   int           `json:"question_count"`
	QuestionIndex   int           `json:"current_question_index"`
	CreatedBy       uuid.UUID     `json:"created_by"`
	CreatedAt       time.Time     `json:"created_at"`
}

// summaryLocked builds a Summary. Callers must hold r.mu.
func (r *Room) summaryLocked() Summary {
	participants := make([]Participant, 0, len(r.Participants))
	for _, p := range r.Participants {
		cp := *p
		cp.Answers = append([]AnswerRecord(nil), p.Answers...)
		participants = append(participants, cp)
	}
	return Summary{
		RoomID:          r.ID,
		RoomCode:        r.Code,
		Title:           r.Title,
		Subject:         r.Subject,
		Status:          r.Status,
		MaxParticipants: r.MaxParticipants,
		ParticipantList: participants,
		QuestionCount:   len(r.Questions),
		QuestionIndex:   r.QuestionIndex,
		CreatedBy:       r.CreatedBy,
		CreatedAt:       r.CreatedAt,
	}
}

// QuestionView is the participant-facing shape of the current question.
// It never carries the correct answer.
type QuestionView struct {
	Completed     bool                  `json:"completed"`
	Index         int                   `json:"question_index,omitempty"`
	Total         int                   `json:"total_questions,omitempty"`
	Text          string                `json:"text,omitempty"`
	Type          domain.QuestionType   `json:"type,omitempty"`
	Options       []domain.AnswerOption `json:"options,omitempty"`
	Points        int                   `json:"points,omitempty"`
	TimeLimitSecs int                   `json:"time_limit_seconds,omitempty"`
}

// AnswerResult is returned from SubmitAnswer
type AnswerResult struct {
	Correct      bool `json:"is_correct"`
	PointsEarned int  `json:"points_earned"`
	TotalScore   int  `json:"total_score"`
}
