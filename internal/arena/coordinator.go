package arena

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/idfs-labs/starguide/internal/domain"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 6

	defaultMaxParticipants = 10
	defaultTimeLimitSecs   = 30
)

// QuestionSource provides questions to snapshot into new rooms
type QuestionSource interface {
	ListQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error)
}

// Coordinator owns the registry of live quiz rooms. Rooms are process-local
// and non-persistent: a restart loses all of them. The registry map is
// guarded by mu; each room carries its own lock for state mutation, so
// operations on different rooms never contend.
type Coordinator struct {
	mu     sync.RWMutex
	rooms  map[uuid.UUID]*Room
	byCode map[string]uuid.UUID

	source QuestionSource
	logger *slog.Logger
	now    func() time.Time
}

// NewCoordinator creates a coordinator backed by the given question source
func NewCoordinator(source QuestionSource, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		rooms:  make(map[uuid.UUID]*Room),
		byCode: make(map[string]uuid.UUID),
		source: source,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock overrides the coordinator's clock. Test use only.
func (c *Coordinator) SetClock(now func() time.Time) {
	c.now = now
}

// CreateConfig carries room creation parameters
type CreateConfig struct {
	Title            string
	Subject          string
	Difficulty       domain.Difficulty
	QuestionCount    int
	TimeLimitMinutes int
	MaxParticipants  int
}

// CreateRoom allocates a new room in the waiting state, snapshotting
// QuestionCount questions from the content source. Fails with
// ErrInsufficientContent when the source cannot satisfy the count.
// The creator does not become a participant until they join.
func (c *Coordinator) CreateRoom(ctx context.Context, cfg CreateConfig, creatorID uuid.UUID) (*Summary, error) {
	if cfg.QuestionCount <= 0 {
		cfg.QuestionCount = 5
	}
	if cfg.MaxParticipants <= 0 {
		cfg.MaxParticipants = defaultMaxParticipants
	}

	questions, err := c.source.ListQuestions(ctx, domain.QuestionFilter{
		Subject:    cfg.Subject,
		Difficulty: cfg.Difficulty,
		Limit:      cfg.QuestionCount,
	})
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if len(questions) < cfg.QuestionCount {
		return nil, domain.ErrInsufficientContent
	}

	snapshots := make([]SnapshotQuestion, 0, cfg.QuestionCount)
	for _, q := range questions[:cfg.QuestionCount] {
		points := q.Points
		if points <= 0 {
			points = 10
		}
		snapshots = append(snapshots, SnapshotQuestion{
			ID:            q.ID,
			Text:          q.Text,
			Type:          q.Type,
			Options:       append([]domain.AnswerOption(nil), q.Options...),
			CorrectAnswer: q.CorrectAnswer,
			Points:        points,
			TimeLimitSecs: defaultTimeLimitSecs,
		})
	}

	room := &Room{
		ID:              uuid.New(),
		Title:           cfg.Title,
		Subject:         cfg.Subject,
		Difficulty:      cfg.Difficulty,
		Status:          StatusWaiting,
		MaxParticipants: cfg.MaxParticipants,
		CreatedBy:       creatorID,
		Questions:       snapshots,
		Participants:    make(map[uuid.UUID]*Participant),
		CreatedAt:       c.now(),
		subscribers:     make(map[chan Event]struct{}),
	}

	c.mu.Lock()
	for {
		code, err := generateCode(codeLength)
		if err != nil {
			c.mu.Unlock()
			return nil, fmt.Errorf("generate room code: %w", err)
		}
		if _, taken := c.byCode[code]; !taken {
			room.Code = code
			break
		}
	}
	c.rooms[room.ID] = room
	c.byCode[room.Code] = room.ID
	c.mu.Unlock()

	c.logger.Info("quiz room created",
		"room_id", room.ID,
		"room_code", room.Code,
		"subject", room.Subject,
		"questions", len(room.Questions),
		"created_by", creatorID,
	)

	room.mu.Lock()
	defer room.mu.Unlock()
	s := room.summaryLocked()
	return &s, nil
}

// JoinRoom adds a user to a waiting room found by its shareable code
func (c *Coordinator) JoinRoom(code string, userID uuid.UUID, name string) (*Summary, error) {
	c.mu.RLock()
	id, ok := c.byCode[code]
	var room *Room
	if ok {
		room = c.rooms[id]
	}
	c.mu.RUnlock()
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if room.Status != StatusWaiting {
		return nil, domain.ErrRoomNotJoinable
	}
	if _, joined := room.Participants[userID]; joined {
		return nil, domain.ErrAlreadyJoined
	}
	if len(room.Participants) >= room.MaxParticipants {
		return nil, domain.ErrRoomFull
	}

	room.Participants[userID] = &Participant{
		UserID:   userID,
		Name:     name,
		JoinedAt: c.now(),
	}
	room.broadcastLocked(Event{
		Type:    EventParticipantJoined,
		Payload: map[string]any{"user_id": userID.String(), "name": name, "participants": len(room.Participants)},
	})

	s := room.summaryLocked()
	return &s, nil
}

// LeaveRoom removes a participant from a waiting room
func (c *Coordinator) LeaveRoom(roomID, userID uuid.UUID) error {
	room := c.get(roomID)
	if room == nil {
		return domain.ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if _, joined := room.Participants[userID]; !joined {
		return domain.ErrNotFound
	}
	delete(room.Participants, userID)
	room.broadcastLocked(Event{
		Type:    EventParticipantLeft,
		Payload: map[string]any{"user_id": userID.String(), "participants": len(room.Participants)},
	})
	return nil
}

// StartRoom transitions a waiting room to active. Only the creator may start.
func (c *Coordinator) StartRoom(roomID, requesterID uuid.UUID) error {
	room := c.get(roomID)
	if room == nil {
		return domain.ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if requesterID != room.CreatedBy {
		return domain.ErrNotAuthorized
	}
	if room.Status != StatusWaiting {
		return domain.ErrAlreadyStarted
	}

	now := c.now()
	room.Status = StatusActive
	room.QuestionIndex = 0
	room.StartedAt = &now
	room.broadcastLocked(Event{Type: EventQuizStarted})

	c.logger.Info("quiz room started", "room_id", room.ID, "participants", len(room.Participants))
	return nil
}

// CurrentQuestion returns the active question for a participant, or the
// completion sentinel once the index has passed the last question. The view
// never includes the correct answer.
func (c *Coordinator) CurrentQuestion(roomID, userID uuid.UUID) (*QuestionView, error) {
	room := c.get(roomID)
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if _, joined := room.Participants[userID]; !joined {
		return nil, domain.ErrNotAuthorized
	}
	if room.Status == StatusWaiting {
		return nil, domain.ErrRoomNotActive
	}

	if room.QuestionIndex >= len(room.Questions) {
		if room.Status != StatusCompleted {
			room.Status = StatusCompleted
			room.broadcastLocked(Event{Type: EventQuizCompleted})
		}
		return &QuestionView{Completed: true, Total: len(room.Questions)}, nil
	}

	q := room.Questions[room.QuestionIndex]
	return &QuestionView{
		Index:         room.QuestionIndex,
		Total:         len(room.Questions),
		Text:          q.Text,
		Type:          q.Type,
		Options:       append([]domain.AnswerOption(nil), q.Options...),
		Points:        q.Points,
		TimeLimitSecs: q.TimeLimitSecs,
	}, nil
}

// SubmitAnswer grades an answer against the current snapshot question and
// updates the participant's running score. It never advances the question
// index; advancing is the host's explicit call.
func (c *Coordinator) SubmitAnswer(roomID, userID uuid.UUID, answer string) (*AnswerResult, error) {
	room := c.get(roomID)
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	p, joined := room.Participants[userID]
	if !joined {
		return nil, domain.ErrNotAuthorized
	}
	if room.Status != StatusActive || room.QuestionIndex >= len(room.Questions) {
		return nil, domain.ErrRoomNotActive
	}

	for _, rec := range p.Answers {
		if rec.QuestionIndex == room.QuestionIndex {
			return nil, domain.ErrConflict
		}
	}

	q := room.Questions[room.QuestionIndex]
	correct := q.Check(answer)
	points := 0
	if correct {
		points = q.Points
		p.Score += points
	}
	p.Answers = append(p.Answers, AnswerRecord{
		QuestionIndex: room.QuestionIndex,
		Answer:        answer,
		Correct:       correct,
		PointsEarned:  points,
		AnsweredAt:    c.now(),
	})
	room.broadcastLocked(Event{
		Type:    EventAnswerSubmitted,
		Payload: map[string]any{"user_id": userID.String(), "correct": correct, "score": p.Score},
	})

	return &AnswerResult{Correct: correct, PointsEarned: points, TotalScore: p.Score}, nil
}

// AdvanceQuestion moves an active room to the next question. Gated to the
// creator, same as StartRoom. Advancing past the last question completes
// the room.
func (c *Coordinator) AdvanceQuestion(roomID, requesterID uuid.UUID) (int, bool, error) {
	room := c.get(roomID)
	if room == nil {
		return 0, false, domain.ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if requesterID != room.CreatedBy {
		return 0, false, domain.ErrNotAuthorized
	}
	if room.Status != StatusActive {
		return 0, false, domain.ErrRoomNotActive
	}

	if room.QuestionIndex < len(room.Questions) {
		room.QuestionIndex++
	}

	finished := room.QuestionIndex >= len(room.Questions)
	if finished {
		room.Status = StatusCompleted
		room.broadcastLocked(Event{Type: EventQuizCompleted})
		c.logger.Info("quiz room completed", "room_id", room.ID)
	} else {
		room.broadcastLocked(Event{
			Type:    EventQuestionAdvanced,
			Payload: map[string]any{"question_index": room.QuestionIndex},
		})
	}
	return room.QuestionIndex, finished, nil
}

// Summary returns a read-only view of a room
func (c *Coordinator) Summary(roomID uuid.UUID) (*Summary, error) {
	room := c.get(roomID)
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	s := room.summaryLocked()
	return &s, nil
}

// ActiveRooms lists rooms still accepting participants, optionally filtered
// by subject
func (c *Coordinator) ActiveRooms(subject string) []Summary {
	c.mu.RLock()
	rooms := make([]*Room, 0, len(c.rooms))
	for _, room := range c.rooms {
		rooms = append(rooms, room)
	}
	c.mu.RUnlock()

	out := make([]Summary, 0, len(rooms))
	for _, room := range rooms {
		room.mu.Lock()
		if room.Status == StatusWaiting && (subject == "" || room.Subject == subject) {
			out = append(out, room.summaryLocked())
		}
		room.mu.Unlock()
	}
	return out
}

// Subscribe attaches a live event channel to a room. The returned channel
// receives broadcasts until Unsubscribe is called; slow readers drop events
// rather than block the room lock.
func (c *Coordinator) Subscribe(roomID, userID uuid.UUID) (chan Event, error) {
	room := c.get(roomID)
	if room == nil {
		return nil, domain.ErrRoomNotFound
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	if _, joined := room.Participants[userID]; !joined {
		return nil, domain.ErrNotAuthorized
	}
	ch := make(chan Event, 16)
	room.subscribers[ch] = struct{}{}
	return ch, nil
}

// Unsubscribe detaches a live event channel
func (c *Coordinator) Unsubscribe(roomID uuid.UUID, ch chan Event) {
	room := c.get(roomID)
	if room == nil {
		return
	}
	room.mu.Lock()
	delete(room.subscribers, ch)
	room.mu.Unlock()
}

func (c *Coordinator) get(roomID uuid.UUID) *Room {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.rooms[roomID]
}

// generateCode creates a random shareable room code
func generateCode(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	code := make([]byte, length)
	for i, b := range buf {
		code[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(code), nil
}
