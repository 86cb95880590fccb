package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/idfs-labs/starguide/internal/api/middleware"
)

func TestRateLimiter_BurstThenDeny(t *testing.T) {
	rl := middleware.NewRateLimiter(5, time.Second, 5)

	for i := 0; i < 5; i++ {
		if !rl.Allow("client") {
			t.Fatalf("request %d within burst should pass", i+1)
		}
	}
	if rl.Allow("client") {
		t.Error("request past burst should be denied")
	}
}

func TestRateLimiter_Refill(t *testing.T) {
	rl := middleware.NewRateLimiter(10, 100*time.Millisecond, 2)

	rl.Allow("client")
	rl.Allow("client")
	if rl.Allow("client") {
		t.Fatal("should be denied after burst is spent")
	}

	time.Sleep(110 * time.Millisecond)

	if !rl.Allow("client") {
		t.Error("should be allowed after refill interval")
	}
}

func TestRateLimiter_BucketsPerClient(t *testing.T) {
	rl := middleware.NewRateLimiter(2, time.Second, 2)

	rl.Allow("alice")
	rl.Allow("alice")
	if rl.Allow("alice") {
		t.Error("alice should be denied")
	}
	if !rl.Allow("bob") {
		t.Error("bob has a fresh bucket and should be allowed")
	}
}

func TestRateLimiter_Remaining(t *testing.T) {
	rl := middleware.NewRateLimiter(5, time.Second, 5)

	if got := rl.Remaining("client"); got != 5 {
		t.Errorf("fresh Remaining = %d, want 5", got)
	}
	rl.Allow("client")
	if got := rl.Remaining("client"); got != 4 {
		t.Errorf("Remaining after one request = %d, want 4", got)
	}
}

func TestRateLimitMiddleware_Returns429WithRetryAfter(t *testing.T) {
	cfg := middleware.RateLimitConfig{RequestsPerMinute: 1, AIRequestsPerMinute: 1, BurstMultiplier: 1}
	handler := middleware.RateLimitMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/v1/questions", nil))
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", first.Code)
	}
	if first.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", first.Header().Get("X-RateLimit-Remaining"))
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/v1/questions", nil))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", second.Header().Get("Retry-After"))
	}
}

func TestDefaultRateLimitConfig(t *testing.T) {
	cfg := middleware.DefaultRateLimitConfig()

	if cfg.RequestsPerMinute <= 0 || cfg.AIRequestsPerMinute <= 0 || cfg.BurstMultiplier <= 0 {
		t.Errorf("budgets should all be positive: %+v", cfg)
	}
	if cfg.AIRequestsPerMinute >= cfg.RequestsPerMinute {
		t.Error("AI budget should be stricter than the general budget")
	}
}
