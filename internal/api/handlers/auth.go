package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/idfs-labs/starguide/internal/auth"
	"github.com/idfs-labs/starguide/internal/domain"
	"github.com/idfs-labs/starguide/internal/events"
)

// AuthHandler handles authentication endpoints
type AuthHandler struct {
	authService  *auth.Service
	producer     events.Publisher
	cookieName   string
	cookieMaxAge int
	secureCookie bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service, producer events.Publisher, secureCookie bool, maxAge int) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		producer:     producer,
		cookieName:   "session",
		cookieMaxAge: maxAge,
		secureCookie: secureCookie,
	}
}

// RegisterRequest is the request body for registration
type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// LoginRequest is the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the response shape for user data
type UserResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	XP          int    `json:"xp"`
	Level       int    `json:"level"`
	StudyStreak int    `json:"study_streak"`
	CreatedAt   string `json:"created_at"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID.String(),
		Email:       u.Email,
		Name:        u.Name,
		Role:        string(u.Role),
		XP:          u.XP,
		Level:       u.Level,
		StudyStreak: u.StudyStreak,
		CreatedAt:   u.CreatedAt.Format(time.RFC3339),
	}
}

// Register handles user registration
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, r, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		BadRequest(w, r, "email and password are required")
		return
	}
	if len(req.Password) < 8 {
		BadRequest(w, r, "password must be at least 8 characters")
		return
	}

	user, err := h.authService.Register(r.Context(), auth.RegisterRequest{
		Email:    req.Email,
		Name:     req.Name,
		Password: req.Password,
		Role:     domain.Role(req.Role),
	})
	if errors.Is(err, auth.ErrEmailExists) {
		Conflict(w, r, "email already registered")
		return
	}
	if err != nil {
		InternalError(w, r, "registration failed", err)
		return
	}

	WriteJSON(w, http.StatusCreated, map[string]any{
		"user": toUserResponse(user),
	})
}

// Login authenticates the user and issues a bearer token
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, r, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		BadRequest(w, r, "email and password are required")
		return
	}

	result, err := h.authService.Login(r.Context(), auth.LoginRequest{
		Email:    req.Email,
		Password: req.Password,
	})
	if errors.Is(err, auth.ErrInvalidCredentials) {
		Unauthorized(w, r, "invalid email or password")
		return
	}
	if err != nil {
		InternalError(w, r, "login failed", err)
		return
	}

	if h.producer != nil {
		_ = h.producer.PublishEvent(r.Context(), events.NewEvent(result.User.ID, domain.EventLogin, "", nil))
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    result.Token,
		Path:     "/",
		MaxAge:   h.cookieMaxAge,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	WriteJSON(w, http.StatusOK, map[string]any{
		"user":  toUserResponse(result.User),
		"token": result.Token,
	})
}

// Logout clears the session cookie. Tokens are stateless, so an already
// issued token stays valid until it expires.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	WriteJSON(w, http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

// Me returns the current user
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := UserFromContext(r.Context())
	if !ok {
		Unauthorized(w, r, "not authenticated")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"user": toUserResponse(user),
	})
}
