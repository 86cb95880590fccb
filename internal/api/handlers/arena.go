package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/idfs-labs/starguide/internal/arena"
	"github.com/idfs-labs/starguide/internal/domain"
	"github.com/idfs-labs/starguide/internal/events"
)

// ProgressRecorder awards experience for quiz play
type ProgressRecorder interface {
	AwardXP(ctx context.Context, userID uuid.UUID, points int) error
}

// ArenaHandler handles live quiz room endpoints. Rooms live in memory on
// the coordinator; this layer adds auth, experience awards and analytics
// events around it.
type ArenaHandler struct {
	coordinator *arena.Coordinator
	progress    ProgressRecorder
	producer    events.Publisher
}

// NewArenaHandler creates a new arena handler
func NewArenaHandler(coordinator *arena.Coordinator, progress ProgressRecorder, producer events.Publisher) *ArenaHandler {
	return &ArenaHandler{
		coordinator: coordinator,
		progress:    progress,
		producer:    producer,
	}
}

// CreateRoomRequest is the request body for creating a quiz room
type CreateRoomRequest struct {
	Title            string `json:"title"`
	Subject          string `json:"subject"`
	Difficulty       string `json:"difficulty,omitempty"`
	QuestionCount    int    `json:"question_count,omitempty"`
	TimeLimitMinutes int    `json:"time_limit_minutes,omitempty"`
	MaxParticipants  int    `json:"max_participants,omitempty"`
}

// CreateRoom opens a new quiz room in the waiting state
func (h *ArenaHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, r, "invalid request body")
		return
	}
	if req.Subject == "" {
		BadRequest(w, r, "subject is required")
		return
	}

	summary, err := h.coordinator.CreateRoom(r.Context(), arena.CreateConfig{
		Title:            req.Title,
		Subject:          req.Subject,
		Difficulty:       domain.Difficulty(req.Difficulty),
		QuestionCount:    req.QuestionCount,
		TimeLimitMinutes: req.TimeLimitMinutes,
		MaxParticipants:  req.MaxParticipants,
	}, user.ID)
	if err != nil {
		DomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, summary)
}

// JoinRoomRequest is the request body for joining a room by code
type JoinRoomRequest struct {
	RoomCode string `json:"room_code"`
}

// JoinRoom adds the caller to a waiting room
func (h *ArenaHandler) JoinRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	var req JoinRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, r, "invalid request body")
		return
	}
	if req.RoomCode == "" {
		BadRequest(w, r, "room_code is required")
		return
	}

	summary, err := h.coordinator.JoinRoom(req.RoomCode, user.ID, user.Name)
	if err != nil {
		DomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}

// GetRoom returns a room's current state
func (h *ArenaHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	roomID, err := uuid.Parse(r.PathValue("room_id"))
	if err != nil {
		BadRequest(w, r, "invalid room id")
		return
	}

	summary, err := h.coordinator.Summary(roomID)
	if err != nil {
		DomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, summary)
}

// LeaveRoom removes the caller from a room
func (h *ArenaHandler) LeaveRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	roomID, err := uuid.Parse(r.PathValue("room_id"))
	if err != nil {
		BadRequest(w, r, "invalid room id")
		return
	}

	if err := h.coordinator.LeaveRoom(roomID, user.ID); err != nil {
		DomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"message": "left room"})
}

// StartRoom begins the quiz. Host only.
func (h *ArenaHandler) StartRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	roomID, err := uuid.Parse(r.PathValue("room_id"))
	if err != nil {
		BadRequest(w, r, "invalid room id")
		return
	}

	if err := h.coordinator.StartRoom(roomID, user.ID); err != nil {
		DomainError(w, r, err)
		return
	}
	h.publishStarted(r.Context(), roomID)

	WriteJSON(w, http.StatusOK, map[string]string{"message": "quiz started"})
}

// publishStarted emits a session_started event per participant so study
// sessions and streaks pick up quiz play.
func (h *ArenaHandler) publishStarted(ctx context.Context, roomID uuid.UUID) {
	if h.producer == nil {
		return
	}
	summary, err := h.coordinator.Summary(roomID)
	if err != nil {
		return
	}
	for _, p := range summary.ParticipantList {
		_ = h.producer.PublishEvent(ctx, events.NewEvent(p.UserID, domain.EventSessionStarted, summary.Subject, map[string]any{
			"activity": "quiz",
			"room_id":  roomID.String(),
		}))
	}
}

// CurrentQuestion returns the active question without its answer
func (h *ArenaHandler) CurrentQuestion(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	roomID, err := uuid.Parse(r.PathValue("room_id"))
	if err != nil {
		BadRequest(w, r, "invalid room id")
		return
	}

	view, err := h.coordinator.CurrentQuestion(roomID, user.ID)
	if err != nil {
		DomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, view)
}

// AnswerRequest is the request body for submitting a quiz answer
type AnswerRequest struct {
	Answer string `json:"answer"`
}

// SubmitAnswer grades the caller's answer to the current question.
// Correct answers earn experience immediately.
func (h *ArenaHandler) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	roomID, err := uuid.Parse(r.PathValue("room_id"))
	if err != nil {
		BadRequest(w, r, "invalid room id")
		return
	}

	var req AnswerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, r, "invalid request body")
		return
	}

	result, err := h.coordinator.SubmitAnswer(roomID, user.ID, req.Answer)
	if err != nil {
		DomainError(w, r, err)
		return
	}

	if result.Correct && h.progress != nil {
		// Award failures never fail the submission.
		_ = h.progress.AwardXP(r.Context(), user.ID, result.PointsEarned)
	}
	if h.producer != nil {
		_ = h.producer.PublishEvent(r.Context(), events.NewEvent(user.ID, domain.EventQuestionAnswered, "", map[string]any{
			"room_id":   roomID.String(),
			"correct":   result.Correct,
			"xp_earned": float64(result.PointsEarned),
		}))
	}

	WriteJSON(w, http.StatusOK, result)
}

// AdvanceQuestion moves the room to the next question. Host only.
func (h *ArenaHandler) AdvanceQuestion(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	roomID, err := uuid.Parse(r.PathValue("room_id"))
	if err != nil {
		BadRequest(w, r, "invalid room id")
		return
	}

	index, finished, err := h.coordinator.AdvanceQuestion(roomID, user.ID)
	if err != nil {
		DomainError(w, r, err)
		return
	}
	if finished {
		h.publishCompleted(r.Context(), roomID)
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"question_index": index,
		"finished":       finished,
	})
}

// ActiveRooms lists joinable rooms
func (h *ArenaHandler) ActiveRooms(w http.ResponseWriter, r *http.Request) {
	rooms := h.coordinator.ActiveRooms(r.URL.Query().Get("subject"))
	WriteJSON(w, http.StatusOK, map[string]any{
		"rooms": rooms,
		"count": len(rooms),
	})
}

// publishCompleted emits a quiz_completed event per participant with their
// final score.
func (h *ArenaHandler) publishCompleted(ctx context.Context, roomID uuid.UUID) {
	if h.producer == nil {
		return
	}
	summary, err := h.coordinator.Summary(roomID)
	if err != nil {
		return
	}
	for _, p := range summary.ParticipantList {
		_ = h.producer.PublishEvent(ctx, events.NewEvent(p.UserID, domain.EventQuizCompleted, summary.Subject, map[string]any{
			"room_id": roomID.String(),
			"score":   p.Score,
		}))
	}
}
