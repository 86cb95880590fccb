package llm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/ratelimit"
	"github.com/felixgeelhaar/fortify/retry"
)

// ResilientProvider guards an upstream provider with fortify patterns so
// one flaky vendor cannot stall every tutoring chat: a rate limiter in
// front, a bulkhead capping concurrent calls, retries for transient HTTP
// failures, and a circuit breaker that sheds load once a vendor is down.
type ResilientProvider struct {
	provider Provider
	breaker  circuitbreaker.CircuitBreaker[*Response]
	retrier  retry.Retry[*Response]
	bulkhead bulkhead.Bulkhead[*Response]
	limiter  ratelimit.RateLimiter
	timeout  time.Duration
	logger   *slog.Logger
	name     string
}

// ResilientConfig selects which guards to apply
type ResilientConfig struct {
	EnableCircuitBreaker bool
	EnableRetry          bool
	EnableBulkhead       bool
	EnableRateLimit      bool

	// MaxAttempts bounds the retry sequence when retries are on (default 3)
	MaxAttempts int

	// CircuitFailures is how many consecutive failures open the breaker
	// (default 3)
	CircuitFailures int

	// CallTimeout bounds each Generate call end to end. Zero means no
	// deadline beyond the caller's context.
	CallTimeout time.Duration

	// MaxConcurrent caps in-flight calls when the bulkhead is on (default 5)
	MaxConcurrent int

	// RatePerSecond caps the request rate when limiting is on (default 2)
	RatePerSecond int

	Logger *slog.Logger
}

// DefaultResilientConfig enables every guard with conservative limits
// suited to paid vendor APIs.
func DefaultResilientConfig() ResilientConfig {
	return ResilientConfig{
		EnableCircuitBreaker: true,
		EnableRetry:          true,
		EnableBulkhead:       true,
		EnableRateLimit:      true,
		MaxAttempts:          3,
		CircuitFailures:      3,
		CallTimeout:          60 * time.Second,
		MaxConcurrent:        5,
		RatePerSecond:        2,
	}
}

// NewResilientProvider wraps provider according to cfg
func NewResilientProvider(provider Provider, cfg ResilientConfig) *ResilientProvider {
	rp := &ResilientProvider{
		provider: provider,
		logger:   cfg.Logger,
		timeout:  cfg.CallTimeout,
		name:     provider.Name(),
	}

	if cfg.EnableCircuitBreaker {
		failures := uint32(3)
		if cfg.CircuitFailures > 0 {
			failures = uint32(cfg.CircuitFailures)
		}
		rp.breaker = circuitbreaker.New[*Response](circuitbreaker.Config{
			MaxRequests: 2,
			Interval:    10 * time.Second,
			Timeout:     60 * time.Second,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				if rp.logger != nil {
					rp.logger.Warn("circuit breaker state change",
						"provider", rp.name,
						"from", from.String(),
						"to", to.String())
				}
			},
		})
	}

	if cfg.EnableRetry {
		attempts := cfg.MaxAttempts
		if attempts <= 0 {
			attempts = 3
		}
		rp.retrier = retry.New[*Response](retry.Config{
			MaxAttempts:   attempts,
			InitialDelay:  2 * time.Second,
			MaxDelay:      60 * time.Second,
			Multiplier:    2.0,
			BackoffPolicy: retry.BackoffExponential,
			Jitter:        true,
			IsRetryable:   isRetryableHTTPError,
		})
	}

	if cfg.EnableBulkhead {
		maxConcurrent := cfg.MaxConcurrent
		if maxConcurrent <= 0 {
			maxConcurrent = 5
		}
		rp.bulkhead = bulkhead.New[*Response](bulkhead.Config{
			MaxConcurrent: maxConcurrent,
			MaxQueue:      maxConcurrent * 2,
			QueueTimeout:  30 * time.Second,
		})
	}

	if cfg.EnableRateLimit {
		rate := cfg.RatePerSecond
		if rate <= 0 {
			rate = 2
		}
		rp.limiter = ratelimit.New(&ratelimit.Config{
			Rate:     rate,
			Burst:    rate * 3,
			Interval: time.Second,
		})
	}

	return rp
}

func (p *ResilientProvider) Name() string {
	return p.provider.Name()
}

func (p *ResilientProvider) SupportsStreaming() bool {
	return p.provider.SupportsStreaming()
}

// Generate runs the wrapped provider's Generate through the configured
// guards. Ordering matters: the breaker sees the outcome of the whole
// retry sequence, and retries re-enter the bulkhead each attempt.
func (p *ResilientProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	if p.limiter != nil && !p.limiter.Allow(ctx, p.name) {
		return nil, fmt.Errorf("rate limit exceeded for provider %s", p.name)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	call := func(ctx context.Context) (*Response, error) {
		return p.provider.Generate(ctx, req)
	}
	if p.bulkhead != nil {
		inner := call
		call = func(ctx context.Context) (*Response, error) {
			return p.bulkhead.Execute(ctx, inner)
		}
	}
	if p.retrier != nil {
		inner := call
		call = func(ctx context.Context) (*Response, error) {
			return p.retrier.Do(ctx, inner)
		}
	}
	if p.breaker != nil {
		inner := call
		call = func(ctx context.Context) (*Response, error) {
			return p.breaker.Execute(ctx, inner)
		}
	}

	return call(ctx)
}

// GenerateStream applies only the rate limiter. Streams are stateful, so
// retrying mid-stream would replay partial output, and they run long
// enough that holding a bulkhead slot would starve regular calls.
func (p *ResilientProvider) GenerateStream(ctx context.Context, req *Request) (<-chan StreamChunk, error) {
	if p.limiter != nil && !p.limiter.Allow(ctx, p.name) {
		return nil, fmt.Errorf("rate limit exceeded for provider %s", p.name)
	}
	return p.provider.GenerateStream(ctx, req)
}

// Close releases the rate limiter's refill goroutine
func (p *ResilientProvider) Close() error {
	if p.limiter != nil {
		return p.limiter.Close()
	}
	return nil
}

var retryableStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// isRetryableHTTPError reports whether err looks like a transient
// upstream failure worth another attempt.
func isRetryableHTTPError(err error) bool {
	return retryableStatuses[extractStatusCode(err)]
}

// extractStatusCode pulls an HTTP status out of a provider error message.
// Provider adapters format failures as "... status <code> ...".
func extractStatusCode(err error) int {
	if err == nil {
		return 0
	}
	msg := err.Error()
	for code := range retryableStatuses {
		if strings.Contains(msg, fmt.Sprintf("status %d", code)) {
			return code
		}
	}
	return 0
}
