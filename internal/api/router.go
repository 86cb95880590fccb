package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/idfs-labs/starguide/internal/api/handlers"
	"github.com/idfs-labs/starguide/internal/api/middleware"
)

// Router wraps the HTTP multiplexer with middleware and handlers
type Router struct {
	mux           *http.ServeMux
	app           *App
	auth          *handlers.AuthHandler
	tutor         *handlers.TutorHandler
	content       *handlers.ContentHandler
	groups        *handlers.GroupHandler
	help          *handlers.HelpHandler
	leaderboard   *handlers.LeaderboardHandler
	analytics     *handlers.AnalyticsHandler
	achievements  *handlers.AchievementHandler
	arena         *handlers.ArenaHandler
	live          *handlers.LiveHandler
	notifications *handlers.NotificationHandler
}

// NewRouter creates a new API router with all routes configured
func NewRouter(app *App) http.Handler {
	r := &Router{
		mux: http.NewServeMux(),
		app: app,
	}

	// Initialize handlers
	r.auth = handlers.NewAuthHandler(app.Auth, app.Producer, !app.Config.Debug, app.Config.TokenMaxAge)
	r.tutor = handlers.NewTutorHandler(app.Tutor)
	r.content = handlers.NewContentHandler(app.Content, app.Generator)
	r.groups = handlers.NewGroupHandler(app.Groups, app.Producer)
	r.help = handlers.NewHelpHandler(app.Help)
	r.leaderboard = handlers.NewLeaderboardHandler(app.Leaderboard)
	r.analytics = handlers.NewAnalyticsHandler(app.Analytics)
	r.achievements = handlers.NewAchievementHandler(app.Achievements)
	r.arena = handlers.NewArenaHandler(app.Arena, app.Progress, app.Producer)
	r.live = handlers.NewLiveHandler(app.Arena, slog.Default())
	r.notifications = handlers.NewNotificationHandler(app.Notifications, slog.Default())

	// Register routes
	r.registerRoutes()

	// Build middleware chain
	return r.buildMiddlewareChain(r.mux, app)
}

func (r *Router) registerRoutes() {
	// Health check
	r.mux.HandleFunc("GET /health", r.handleHealth)
	r.mux.HandleFunc("GET /ready", r.handleReady)

	// Auth (no auth required except /me)
	r.mux.HandleFunc("POST /api/v1/auth/register", r.auth.Register)
	r.mux.HandleFunc("POST /api/v1/auth/login", r.auth.Login)
	r.mux.HandleFunc("POST /api/v1/auth/logout", r.auth.Logout)
	r.mux.HandleFunc("GET /api/v1/auth/me", r.requireAuth(r.auth.Me))

	// AI tutor. Chat carries its own stricter rate limit since every call
	// spends provider tokens. Debug mode skips it, same as the general limiter.
	chat := http.Handler(r.requireAuth(r.tutor.Chat))
	if !r.app.Config.Debug {
		chat = middleware.AIRateLimitMiddleware(middleware.DefaultRateLimitConfig())(chat)
	}
	r.mux.Handle("POST /api/v1/ai/chat", chat)
	r.mux.HandleFunc("GET /api/v1/ai/conversations", r.requireAuth(r.tutor.ListConversations))
	r.mux.HandleFunc("GET /api/v1/ai/conversations/{session_id}", r.requireAuth(r.tutor.GetConversation))
	r.mux.HandleFunc("GET /api/v1/ai/models", r.tutor.ListModels)

	// Question bank (public read, moderator write). Generation spends
	// provider tokens, so it shares the AI rate limit with chat.
	r.mux.HandleFunc("GET /api/v1/questions", r.content.ListQuestions)
	r.mux.HandleFunc("POST /api/v1/questions", r.requireAuth(r.content.CreateQuestion))
	generate := http.Handler(r.requireAuth(r.content.GenerateQuestions))
	if !r.app.Config.Debug {
		generate = middleware.AIRateLimitMiddleware(middleware.DefaultRateLimitConfig())(generate)
	}
	r.mux.Handle("POST /api/v1/questions/generate", generate)
	r.mux.HandleFunc("GET /api/v1/questions/{id}", r.content.GetQuestion)

	// Assessments
	r.mux.HandleFunc("GET /api/v1/assessments", r.content.ListAssessments)
	r.mux.HandleFunc("POST /api/v1/assessments", r.requireAuth(r.content.CreateAssessment))
	r.mux.HandleFunc("GET /api/v1/assessments/{id}", r.content.GetAssessment)
	r.mux.HandleFunc("POST /api/v1/assessments/{id}/submit", r.requireAuth(r.content.SubmitAssessment))
	r.mux.HandleFunc("GET /api/v1/assessments/results", r.requireAuth(r.content.ListResults))

	// Study groups (requires auth)
	r.mux.HandleFunc("GET /api/v1/groups", r.requireAuth(r.groups.List))
	r.mux.HandleFunc("POST /api/v1/groups", r.requireAuth(r.groups.Create))
	r.mux.HandleFunc("GET /api/v1/groups/my", r.requireAuth(r.groups.My))
	r.mux.HandleFunc("POST /api/v1/groups/join", r.requireAuth(r.groups.JoinByCode))
	r.mux.HandleFunc("GET /api/v1/groups/{id}", r.requireAuth(r.groups.Get))
	r.mux.HandleFunc("POST /api/v1/groups/{id}/join", r.requireAuth(r.groups.Join))
	r.mux.HandleFunc("POST /api/v1/groups/{id}/leave", r.requireAuth(r.groups.Leave))
	r.mux.HandleFunc("GET /api/v1/groups/{id}/members", r.requireAuth(r.groups.Members))

	// Help queue (students file requests, teachers work the queue)
	r.mux.HandleFunc("POST /api/v1/help/requests", r.requireAuth(r.help.Create))
	r.mux.HandleFunc("GET /api/v1/help/requests/my", r.requireAuth(r.help.My))
	r.mux.HandleFunc("GET /api/v1/help/queue", r.requireAuth(r.help.Queue))
	r.mux.HandleFunc("POST /api/v1/help/requests/{id}/claim", r.requireAuth(r.help.Claim))

	// Achievements (catalog is public, earned badges require auth)
	r.mux.HandleFunc("GET /api/v1/achievements", r.achievements.List)
	r.mux.HandleFunc("GET /api/v1/achievements/my", r.requireAuth(r.achievements.My))

	// Leaderboard
	r.mux.HandleFunc("GET /api/v1/leaderboard", r.leaderboard.Get)
	r.mux.HandleFunc("GET /api/v1/leaderboard/me", r.requireAuth(r.leaderboard.Me))

	// Analytics (requires auth)
	r.mux.HandleFunc("GET /api/v1/analytics/dashboard", r.requireAuth(r.analytics.Dashboard))
	r.mux.HandleFunc("GET /api/v1/analytics/streak", r.requireAuth(r.analytics.Streak))
	r.mux.HandleFunc("GET /api/v1/analytics/predictions", r.requireAuth(r.analytics.Predictions))

	// Quiz rooms (requires auth)
	r.mux.HandleFunc("POST /api/v1/quiz/rooms", r.requireAuth(r.arena.CreateRoom))
	r.mux.HandleFunc("POST /api/v1/quiz/rooms/join", r.requireAuth(r.arena.JoinRoom))
	r.mux.HandleFunc("GET /api/v1/quiz/rooms/active", r.requireAuth(r.arena.ActiveRooms))
	r.mux.HandleFunc("GET /api/v1/quiz/rooms/{room_id}", r.requireAuth(r.arena.GetRoom))
	r.mux.HandleFunc("POST /api/v1/quiz/rooms/{room_id}/start", r.requireAuth(r.arena.StartRoom))
	r.mux.HandleFunc("POST /api/v1/quiz/rooms/{room_id}/leave", r.requireAuth(r.arena.LeaveRoom))
	r.mux.HandleFunc("GET /api/v1/quiz/rooms/{room_id}/question", r.requireAuth(r.arena.CurrentQuestion))
	r.mux.HandleFunc("POST /api/v1/quiz/rooms/{room_id}/answer", r.requireAuth(r.arena.SubmitAnswer))
	r.mux.HandleFunc("POST /api/v1/quiz/rooms/{room_id}/advance", r.requireAuth(r.arena.AdvanceQuestion))
	r.mux.HandleFunc("GET /api/v1/quiz/rooms/{room_id}/live", r.requireAuth(r.live.Stream))

	// Per-user notification stream
	r.mux.HandleFunc("GET /api/v1/notifications/stream", r.requireAuth(r.notifications.Stream))
}

func (r *Router) buildMiddlewareChain(handler http.Handler, app *App) http.Handler {
	// Apply middleware in reverse order (last applied = first executed)
	handler = middleware.Recovery(handler)
	handler = middleware.Logger(handler)

	// Apply rate limiting (skip in debug mode for easier development)
	if !app.Config.Debug {
		handler = middleware.RateLimitMiddleware(middleware.DefaultRateLimitConfig())(handler)
	}

	handler = middleware.RequestID(handler)
	handler = middleware.CORS(handler)

	return handler
}

// requireAuth wraps a handler with bearer token authentication. Tokens are
// accepted from the Authorization header or the session cookie.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		token := bearerToken(req)
		if token == "" {
			handlers.Unauthorized(w, req, "authentication required")
			return
		}

		user, err := r.app.Auth.ValidateToken(req.Context(), token)
		if err != nil {
			slog.Warn("invalid token",
				"error", err,
				"request_id", middleware.GetRequestID(req.Context()),
			)
			handlers.Unauthorized(w, req, "invalid or expired token")
			return
		}

		// Add user to context
		ctx := context.WithValue(req.Context(), handlers.ContextKeyUser, user)
		next(w, req.WithContext(ctx))
	}
}

func bearerToken(req *http.Request) string {
	header := req.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	if cookie, err := req.Cookie("session"); err == nil {
		return cookie.Value
	}
	return ""
}

// Health check handlers
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	handlers.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (r *Router) handleReady(w http.ResponseWriter, req *http.Request) {
	checks := map[string]string{
		"database": "ok",
		"redis":    "ok",
		"queue":    "ok",
	}
	ready := true

	if err := r.app.DB.Ping(req.Context()); err != nil {
		slog.Error("database health check failed",
			"error", err,
			"request_id", middleware.GetRequestID(req.Context()),
		)
		checks["database"] = "unhealthy"
		ready = false
	}
	if err := r.app.Redis.Ping(req.Context()).Err(); err != nil {
		checks["redis"] = "unhealthy"
		ready = false
	}
	if !r.app.Queue.IsConnected() {
		checks["queue"] = "unhealthy"
		ready = false
	}

	if !ready {
		handlers.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not ready",
			"checks": checks,
		})
		return
	}

	handlers.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"checks": checks,
	})
}
