package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/idfs-labs/starguide/internal/domain"
	"github.com/idfs-labs/starguide/internal/help"
)

// HelpHandler handles help queue endpoints
type HelpHandler struct {
	helpService *help.Service
}

// NewHelpHandler creates a new help handler
func NewHelpHandler(helpService *help.Service) *HelpHandler {
	return &HelpHandler{helpService: helpService}
}

// HelpRequestBody is the request body for filing a help request
type HelpRequestBody struct {
	Subject     string `json:"subject"`
	Description string `json:"description"`
	Priority    string `json:"priority,omitempty"`
}

// HelpRequestResponse is the help request shape returned to clients
type HelpRequestResponse struct {
	ID              string `json:"id"`
	StudentID       string `json:"student_id"`
	Subject         string `json:"subject"`
	Description     string `json:"description"`
	Priority        string `json:"priority"`
	Status          string `json:"status"`
	AssignedTeacher string `json:"assigned_teacher,omitempty"`
	CreatedAt       string `json:"created_at"`
}

func toHelpResponse(req *domain.HelpRequest) HelpRequestResponse {
	resp := HelpRequestResponse{
		ID:          req.ID.String(),
		StudentID:   req.StudentID.String(),
		Subject:     req.Subject,
		Description: req.Description,
		Priority:    string(req.Priority),
		Status:      string(req.Status),
		CreatedAt:   req.CreatedAt.Format(time.RFC3339),
	}
	if req.AssignedTeacher != nil {
		resp.AssignedTeacher = req.AssignedTeacher.String()
	}
	return resp
}

// Create files a new help request for the calling student
func (h *HelpHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	var body HelpRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		BadRequest(w, r, "invalid request body")
		return
	}

	req, err := h.helpService.Create(r.Context(), help.CreateInput{
		Student:     user,
		Subject:     body.Subject,
		Description: body.Description,
		Priority:    domain.HelpPriority(body.Priority),
	})
	if err != nil {
		DomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, toHelpResponse(req))
}

// Queue returns open requests for teachers, oldest first
func (h *HelpHandler) Queue(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	requests, err := h.helpService.Queue(r.Context(), user, limit)
	if err != nil {
		DomainError(w, r, err)
		return
	}

	out := make([]HelpRequestResponse, 0, len(requests))
	for i := range requests {
		out = append(out, toHelpResponse(&requests[i]))
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"requests": out,
		"count":    len(out),
	})
}

// Claim assigns a pending request to the calling teacher
func (h *HelpHandler) Claim(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, r, "invalid request id")
		return
	}

	req, err := h.helpService.Claim(r.Context(), user, id)
	if err != nil {
		DomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toHelpResponse(req))
}

// My returns the caller's own help requests
func (h *HelpHandler) My(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	requests, err := h.helpService.MyRequests(r.Context(), user.ID, limit)
	if err != nil {
		DomainError(w, r, err)
		return
	}

	out := make([]HelpRequestResponse, 0, len(requests))
	for i := range requests {
		out = append(out, toHelpResponse(&requests[i]))
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"requests": out,
		"count":    len(out),
	})
}
