package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/idfs-labs/starguide/internal/domain"
	"github.com/idfs-labs/starguide/internal/events"
	"github.com/idfs-labs/starguide/internal/groups"
)

// GroupHandler handles study group endpoints
type GroupHandler struct {
	groupService *groups.Service
	producer     events.Publisher
}

// NewGroupHandler creates a new group handler
func NewGroupHandler(groupService *groups.Service, producer events.Publisher) *GroupHandler {
	return &GroupHandler{groupService: groupService, producer: producer}
}

// GroupRequest is the request body for creating a group
type GroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Subject     string `json:"subject"`
	MaxMembers  int    `json:"max_members,omitempty"`
}

// GroupResponse is the group shape returned to clients. The join code is
// only present for members.
type GroupResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Subject     string `json:"subject"`
	JoinCode    string `json:"join_code,omitempty"`
	MaxMembers  int    `json:"max_members"`
	MemberCount int    `json:"member_count"`
	IsMember    bool   `json:"is_member"`
	CreatedAt   string `json:"created_at"`
}

func toGroupResponse(s *domain.GroupSummary) GroupResponse {
	resp := GroupResponse{
		ID:          s.Group.ID.String(),
		Name:        s.Group.Name,
		Description: s.Group.Description,
		Subject:     s.Group.Subject,
		MaxMembers:  s.Group.MaxMembers,
		MemberCount: s.MemberCount,
		IsMember:    s.IsMember,
		CreatedAt:   s.Group.CreatedAt.Format(time.RFC3339),
	}
	if s.IsMember {
		resp.JoinCode = s.Group.JoinCode
	}
	return resp
}

// Create makes a new study group with the caller as owner
func (h *GroupHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	var req GroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, r, "invalid request body")
		return
	}

	g, err := h.groupService.CreateGroup(r.Context(), groups.CreateGroupInput{
		Name:        req.Name,
		Description: req.Description,
		Subject:     req.Subject,
		MaxMembers:  req.MaxMembers,
		CreatedBy:   user.ID,
	})
	if err != nil {
		DomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusCreated, toGroupResponse(&domain.GroupSummary{
		Group:       *g,
		MemberCount: 1,
		IsMember:    true,
	}))
}

// List returns groups, optionally filtered by subject
func (h *GroupHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	summaries, err := h.groupService.ListGroups(r.Context(), r.URL.Query().Get("subject"), user.ID, limit)
	if err != nil {
		DomainError(w, r, err)
		return
	}

	out := make([]GroupResponse, 0, len(summaries))
	for i := range summaries {
		out = append(out, toGroupResponse(&summaries[i]))
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"groups": out,
		"count":  len(out),
	})
}

// My returns the groups the caller belongs to
func (h *GroupHandler) My(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	summaries, err := h.groupService.MyGroups(r.Context(), user.ID)
	if err != nil {
		DomainError(w, r, err)
		return
	}

	out := make([]GroupResponse, 0, len(summaries))
	for i := range summaries {
		out = append(out, toGroupResponse(&summaries[i]))
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"groups": out,
		"count":  len(out),
	})
}

// Get returns one group with membership info for the caller
func (h *GroupHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, r, "invalid group id")
		return
	}

	summary, err := h.groupService.GetGroup(r.Context(), id, user.ID)
	if err != nil {
		DomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, toGroupResponse(summary))
}

// JoinRequest is the request body for joining by code
type JoinRequest struct {
	JoinCode string `json:"join_code"`
}

// Join adds the caller to a group by id
func (h *GroupHandler) Join(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, r, "invalid group id")
		return
	}

	if err := h.groupService.JoinGroup(r.Context(), id, user.ID); err != nil {
		DomainError(w, r, err)
		return
	}
	h.publishJoined(r, user.ID, id)

	WriteJSON(w, http.StatusOK, map[string]string{"message": "joined group"})
}

// JoinByCode adds the caller to a group by its shareable code
func (h *GroupHandler) JoinByCode(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	var req JoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, r, "invalid request body")
		return
	}
	if req.JoinCode == "" {
		BadRequest(w, r, "join_code is required")
		return
	}

	g, err := h.groupService.JoinByCode(r.Context(), req.JoinCode, user.ID)
	if err != nil {
		DomainError(w, r, err)
		return
	}
	h.publishJoined(r, user.ID, g.ID)

	WriteJSON(w, http.StatusOK, toGroupResponse(&domain.GroupSummary{
		Group:    *g,
		IsMember: true,
	}))
}

// Leave removes the caller from a group
func (h *GroupHandler) Leave(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "authentication required")
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, r, "invalid group id")
		return
	}

	if err := h.groupService.LeaveGroup(r.Context(), id, user.ID); err != nil {
		DomainError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"message": "left group"})
}

// Members lists a group's members
func (h *GroupHandler) Members(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, r, "invalid group id")
		return
	}

	members, err := h.groupService.ListMembers(r.Context(), id)
	if err != nil {
		DomainError(w, r, err)
		return
	}

	type memberResponse struct {
		UserID   string `json:"user_id"`
		Role     string `json:"role"`
		JoinedAt string `json:"joined_at"`
	}
	out := make([]memberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, memberResponse{
			UserID:   m.UserID.String(),
			Role:     string(m.Role),
			JoinedAt: m.JoinedAt.Format(time.RFC3339),
		})
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"members": out,
		"count":   len(out),
	})
}

func (h *GroupHandler) publishJoined(r *http.Request, userID, groupID uuid.UUID) {
	if h.producer == nil {
		return
	}
	_ = h.producer.PublishEvent(r.Context(), events.NewEvent(userID, domain.EventGroupJoined, "", map[string]any{
		"group_id": groupID.String(),
	}))
}
