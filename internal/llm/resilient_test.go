package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestDefaultResilientConfig(t *testing.T) {
	cfg := DefaultResilientConfig()

	if !cfg.EnableCircuitBreaker || !cfg.EnableRetry || !cfg.EnableBulkhead || !cfg.EnableRateLimit {
		t.Errorf("all guards should be enabled by default: %+v", cfg)
	}
	if cfg.MaxConcurrent != 5 {
		t.Errorf("MaxConcurrent = %d, want 5", cfg.MaxConcurrent)
	}
	if cfg.RatePerSecond != 2 {
		t.Errorf("RatePerSecond = %d, want 2", cfg.RatePerSecond)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("MaxAttempts = %d, want 3", cfg.MaxAttempts)
	}
	if cfg.CircuitFailures != 3 {
		t.Errorf("CircuitFailures = %d, want 3", cfg.CircuitFailures)
	}
	if cfg.CallTimeout != 60*time.Second {
		t.Errorf("CallTimeout = %v, want 60s", cfg.CallTimeout)
	}
}

// countingProvider tracks how many times Generate is invoked.
type countingProvider struct {
	fakeProvider
	calls int
}

func (p *countingProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	p.calls++
	return p.fakeProvider.Generate(ctx, req)
}

func TestResilientProvider_CircuitFailuresThreshold(t *testing.T) {
	p := &countingProvider{fakeProvider: fakeProvider{
		name: "test",
		err:  fmt.Errorf("provider down: status 400"),
	}}
	rp := NewResilientProvider(p, ResilientConfig{
		EnableCircuitBreaker: true,
		CircuitFailures:      1,
	})

	if _, err := rp.Generate(context.Background(), &Request{}); err == nil {
		t.Fatal("first call should fail")
	}
	if _, err := rp.Generate(context.Background(), &Request{}); err == nil {
		t.Fatal("second call should be rejected by the open breaker")
	}
	if p.calls != 1 {
		t.Errorf("provider called %d times, want 1 once the breaker is open", p.calls)
	}
}

func TestResilientProvider_MaxAttempts(t *testing.T) {
	p := &countingProvider{fakeProvider: fakeProvider{
		name: "test",
		err:  fmt.Errorf("overloaded: status 503"),
	}}
	rp := NewResilientProvider(p, ResilientConfig{
		EnableRetry: true,
		MaxAttempts: 1,
	})

	if _, err := rp.Generate(context.Background(), &Request{}); err == nil {
		t.Fatal("Generate should fail")
	}
	if p.calls != 1 {
		t.Errorf("provider called %d times, want 1 with a single attempt", p.calls)
	}
}

// slowProvider never answers until its context expires.
type slowProvider struct {
	fakeProvider
}

func (p *slowProvider) Generate(ctx context.Context, _ *Request) (*Response, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestResilientProvider_CallTimeout(t *testing.T) {
	rp := NewResilientProvider(&slowProvider{fakeProvider{name: "test"}}, ResilientConfig{
		CallTimeout: 20 * time.Millisecond,
	})

	start := time.Now()
	_, err := rp.Generate(context.Background(), &Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Generate error = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Generate took %v, timeout was not applied", elapsed)
	}
}

func TestNewResilientProvider_GuardConstruction(t *testing.T) {
	p := &fakeProvider{name: "test"}

	full := NewResilientProvider(p, DefaultResilientConfig())
	if full.Name() != "test" {
		t.Errorf("Name() = %v, want test", full.Name())
	}
	if full.breaker == nil || full.retrier == nil || full.bulkhead == nil || full.limiter == nil {
		t.Error("enabled guards should all be constructed")
	}

	bare := NewResilientProvider(p, ResilientConfig{})
	if bare.breaker != nil || bare.retrier != nil || bare.bulkhead != nil || bare.limiter != nil {
		t.Error("disabled guards should all be nil")
	}
}

func TestResilientProvider_Generate(t *testing.T) {
	tests := []struct {
		name string
		cfg  ResilientConfig
	}{
		{"no guards", ResilientConfig{}},
		{"breaker only", ResilientConfig{EnableCircuitBreaker: true}},
		{"retry only", ResilientConfig{EnableRetry: true}},
		{"retry and bulkhead", ResilientConfig{EnableRetry: true, EnableBulkhead: true, MaxConcurrent: 2, RatePerSecond: 10}},
		{"bulkhead default concurrency", ResilientConfig{EnableBulkhead: true}},
		{"rate limit default rate", ResilientConfig{EnableRateLimit: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{name: "test", response: &Response{Content: "ok", FinishReason: "stop"}}
			rp := NewResilientProvider(p, tt.cfg)

			resp, err := rp.Generate(context.Background(), &Request{})
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if resp.Content != "ok" {
				t.Errorf("Content = %q, want ok", resp.Content)
			}
		})
	}
}

func TestResilientProvider_SupportsStreaming(t *testing.T) {
	for _, streaming := range []bool{true, false} {
		p := &fakeProvider{name: "test", streaming: streaming}
		rp := NewResilientProvider(p, ResilientConfig{})
		if rp.SupportsStreaming() != streaming {
			t.Errorf("SupportsStreaming() = %v, want %v", rp.SupportsStreaming(), streaming)
		}
	}
}

func TestResilientProvider_GenerateStream(t *testing.T) {
	p := &fakeProvider{
		name:      "test",
		streaming: true,
		streamResp: []StreamChunk{
			{Content: "Hello"},
			{Content: " World"},
			{Done: true},
		},
	}
	rp := NewResilientProvider(p, ResilientConfig{EnableRateLimit: true, RatePerSecond: 10})

	ch, err := rp.GenerateStream(context.Background(), &Request{})
	if err != nil {
		t.Fatalf("GenerateStream: %v", err)
	}

	count := 0
	for range ch {
		count++
	}
	if count != 3 {
		t.Errorf("received %d chunks, want 3", count)
	}
}

func TestResilientProvider_Close(t *testing.T) {
	p := &fakeProvider{name: "test"}

	withLimit := NewResilientProvider(p, ResilientConfig{EnableRateLimit: true, RatePerSecond: 2})
	if err := withLimit.Close(); err != nil {
		t.Errorf("Close with limiter: %v", err)
	}

	bare := NewResilientProvider(p, ResilientConfig{})
	if err := bare.Close(); err != nil {
		t.Errorf("Close without limiter: %v", err)
	}
}

func TestIsRetryableHTTPError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"rate limited", fmt.Errorf("request failed: status 429"), true},
		{"server error", fmt.Errorf("internal error: status 500"), true},
		{"bad gateway", fmt.Errorf("gateway: status 502 bad gateway"), true},
		{"unavailable", fmt.Errorf("service unavailable: status 503"), true},
		{"gateway timeout", fmt.Errorf("timeout: status 504"), true},
		{"client error", fmt.Errorf("bad request: status 400"), false},
		{"auth error", fmt.Errorf("unauthorized: status 401"), false},
		{"different format", fmt.Errorf("HTTP 429"), false},
		{"no status at all", fmt.Errorf("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryableHTTPError(tt.err); got != tt.want {
				t.Errorf("isRetryableHTTPError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestExtractStatusCode(t *testing.T) {
	if got := extractStatusCode(nil); got != 0 {
		t.Errorf("extractStatusCode(nil) = %d, want 0", got)
	}
	if got := extractStatusCode(fmt.Errorf("error: status 503")); got != 503 {
		t.Errorf("extractStatusCode = %d, want 503", got)
	}
	if got := extractStatusCode(fmt.Errorf("plain failure")); got != 0 {
		t.Errorf("extractStatusCode = %d, want 0", got)
	}
}

func TestNewProviderClient(t *testing.T) {
	client := newProviderClient()
	if client.Timeout != 120*time.Second {
		t.Errorf("Timeout = %v, want 120s", client.Timeout)
	}
	if client.Transport == nil {
		t.Error("Transport should not be nil")
	}
}
