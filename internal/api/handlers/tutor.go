package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/idfs-labs/starguide/internal/tutor"
)

// TutorHandler handles AI tutoring endpoints
type TutorHandler struct {
	tutorService *tutor.Service
}

// NewTutorHandler creates a new tutor handler
func NewTutorHandler(tutorService *tutor.Service) *TutorHandler {
	return &TutorHandler{tutorService: tutorService}
}

// ChatRequest is the request body for a tutoring turn
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Model     string `json:"model,omitempty"`
	Subject   string `json:"subject,omitempty"`
}

// Chat runs one conversational turn with the AI tutor
func (h *TutorHandler) Chat(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, r, "invalid request body")
		return
	}

	out, err := h.tutorService.Chat(r.Context(), tutor.ChatInput{
		UserID:    user.ID,
		SessionID: req.SessionID,
		Message:   req.Message,
		Model:     req.Model,
		Subject:   req.Subject,
	})
	if err != nil {
		DomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, out)
}

// ConversationSummary is the listing shape for past tutoring sessions
type ConversationSummary struct {
	SessionID    string `json:"session_id"`
	Model        string `json:"model"`
	Provider     string `json:"provider"`
	MessageCount int    `json:"message_count"`
	TokensUsed   int    `json:"tokens_used"`
	UpdatedAt    string `json:"updated_at"`
}

// ListConversations returns the user's recent tutoring sessions
func (h *TutorHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	conversations, err := h.tutorService.Sessions(r.Context(), user.ID, limit)
	if err != nil {
		DomainError(w, r, err)
		return
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, c := range conversations {
		summaries = append(summaries, ConversationSummary{
			SessionID:    c.SessionID,
			Model:        c.Model,
			Provider:     c.Provider,
			MessageCount: len(c.Messages),
			TokensUsed:   c.TokensUsed,
			UpdatedAt:    c.UpdatedAt.Format(time.RFC3339),
		})
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"conversations": summaries,
	})
}

// GetConversation returns the full message history for one session
func (h *TutorHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	sessionID := r.PathValue("session_id")
	conv, err := h.tutorService.History(r.Context(), user.ID, sessionID)
	if err != nil {
		DomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"session_id":  conv.SessionID,
		"model":       conv.Model,
		"provider":    conv.Provider,
		"messages":    conv.Messages,
		"tokens_used": conv.TokensUsed,
		"created_at":  conv.CreatedAt.Format(time.RFC3339),
		"updated_at":  conv.UpdatedAt.Format(time.RFC3339),
	})
}

// ListModels returns the models the tutor can route to
func (h *TutorHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{
		"models": h.tutorService.Models(),
	})
}
