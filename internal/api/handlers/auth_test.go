package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/idfs-labs/starguide/internal/auth"
	"github.com/idfs-labs/starguide/internal/domain"
)

type memUserRepo struct {
	byEmail map[string]*domain.User
	byID    map[uuid.UUID]*domain.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{
		byEmail: make(map[string]*domain.User),
		byID:    make(map[uuid.UUID]*domain.User),
	}
}

func (r *memUserRepo) CreateUser(_ context.Context, user *domain.User) error {
	r.byEmail[user.Email] = user
	r.byID[user.ID] = user
	return nil
}

func (r *memUserRepo) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	u, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *memUserRepo) GetUserByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *memUserRepo) UpdateLastLogin(_ context.Context, id uuid.UUID, at time.Time) error {
	if u, ok := r.byID[id]; ok {
		u.LastLogin = &at
	}
	return nil
}

func newTestAuthHandler() *AuthHandler {
	tokens := auth.NewTokenManager("test-secret", time.Hour)
	service := auth.NewService(newMemUserRepo(), tokens)
	return NewAuthHandler(service, nil, false, 3600)
}

func postJSON(t *testing.T, handler http.HandlerFunc, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("encode body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	rec := httptest.NewRecorder()
	handler(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec, decoded
}

func TestRegister_CreatesStudent(t *testing.T) {
	h := newTestAuthHandler()

	rec, resp := postJSON(t, h.Register, "/api/v1/auth/register", map[string]string{
		"email":    "astra@example.com",
		"name":     "Astra",
		"password": "supernova1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	user := resp["user"].(map[string]any)
	if user["email"] != "astra@example.com" {
		t.Errorf("email = %v", user["email"])
	}
	if user["role"] != "student" {
		t.Errorf("role = %v, want student", user["role"])
	}
	if user["level"] != float64(1) {
		t.Errorf("level = %v, want 1", user["level"])
	}
}

func TestRegister_RejectsShortPassword(t *testing.T) {
	h := newTestAuthHandler()

	rec, _ := postJSON(t, h.Register, "/api/v1/auth/register", map[string]string{
		"email":    "astra@example.com",
		"password": "short",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	h := newTestAuthHandler()

	body := map[string]string{
		"email":    "astra@example.com",
		"password": "supernova1",
	}
	if rec, _ := postJSON(t, h.Register, "/api/v1/auth/register", body); rec.Code != http.StatusCreated {
		t.Fatalf("first register status = %d", rec.Code)
	}
	rec, _ := postJSON(t, h.Register, "/api/v1/auth/register", body)
	if rec.Code != http.StatusConflict {
		t.Errorf("second register status = %d, want 409", rec.Code)
	}
}

func TestLogin_IssuesTokenAndCookie(t *testing.T) {
	h := newTestAuthHandler()

	if rec, _ := postJSON(t, h.Register, "/api/v1/auth/register", map[string]string{
		"email":    "astra@example.com",
		"password": "supernova1",
	}); rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d", rec.Code)
	}

	rec, resp := postJSON(t, h.Login, "/api/v1/auth/login", map[string]string{
		"email":    "astra@example.com",
		"password": "supernova1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	if token, _ := resp["token"].(string); token == "" {
		t.Errorf("login response carries no token")
	}

	var sessionCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "session" {
			sessionCookie = c
		}
	}
	if sessionCookie == nil || sessionCookie.Value == "" {
		t.Fatalf("no session cookie set")
	}
	if !sessionCookie.HttpOnly {
		t.Errorf("session cookie is not http-only")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	h := newTestAuthHandler()

	if rec, _ := postJSON(t, h.Register, "/api/v1/auth/register", map[string]string{
		"email":    "astra@example.com",
		"password": "supernova1",
	}); rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d", rec.Code)
	}

	rec, _ := postJSON(t, h.Login, "/api/v1/auth/login", map[string]string{
		"email":    "astra@example.com",
		"password": "wrong-password",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestMe_ReturnsContextUser(t *testing.T) {
	h := newTestAuthHandler()
	user := &domain.User{
		ID:    uuid.New(),
		Email: "astra@example.com",
		Name:  "Astra",
		Role:  domain.RoleStudent,
		XP:    250,
		Level: 3,
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req = req.WithContext(context.WithValue(req.Context(), ContextKeyUser, user))
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	got := resp["user"].(map[string]any)
	if got["xp"] != float64(250) || got["level"] != float64(3) {
		t.Errorf("user = %v, want xp 250, level 3", got)
	}
}
