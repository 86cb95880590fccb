package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestRouter_ChatCompletion_RoutesByModel(t *testing.T) {
	registry := NewRegistry()
	registry.Register("openai", &fakeProvider{
		name:     "openai",
		response: &Response{Content: "openai says hi", Usage: Usage{InputTokens: 10, OutputTokens: 5}},
	})
	registry.Register("anthropic", &fakeProvider{
		name:     "anthropic",
		response: &Response{Content: "claude says hi", Usage: Usage{InputTokens: 3, OutputTokens: 4}},
	})

	rt := NewRouter(registry, ModelClaudeSonnet, slog.Default())

	result := rt.ChatCompletion(context.Background(), ModelGPT4, []Message{{Role: RoleUser, Content: "hello"}}, ChatOptions{})
	if result.Response != "openai says hi" {
		t.Errorf("expected openai response, got %q", result.Response)
	}
	if result.Provider != "openai" {
		t.Errorf("expected openai provider, got %s", result.Provider)
	}
	if result.TokensUsed != 15 {
		t.Errorf("expected 15 tokens, got %d", result.TokensUsed)
	}
	if result.Degraded {
		t.Error("successful completion should not be degraded")
	}

	result = rt.ChatCompletion(context.Background(), ModelClaudeOpus, []Message{{Role: RoleUser, Content: "hello"}}, ChatOptions{})
	if result.Response != "claude says hi" {
		t.Errorf("expected anthropic response, got %q", result.Response)
	}
}

func TestRouter_ChatCompletion_DefaultsUnknownModel(t *testing.T) {
	registry := NewRegistry()
	registry.Register("anthropic", &fakeProvider{
		name:     "anthropic",
		response: &Response{Content: "fallback"},
	})

	rt := NewRouter(registry, ModelClaudeSonnet, slog.Default())

	result := rt.ChatCompletion(context.Background(), "gpt-99", nil, ChatOptions{})
	if result.Model != ModelClaudeSonnet {
		t.Errorf("unknown model should fall back to default, got %s", result.Model)
	}
	if result.Response != "fallback" {
		t.Errorf("got %q", result.Response)
	}
}

func TestRouter_ChatCompletion_MasksProviderFailure(t *testing.T) {
	registry := NewRegistry()
	registry.Register("openai", &fakeProvider{
		name: "openai",
		err:  errors.New("API error (status 503): overloaded"),
	})

	rt := NewRouter(registry, ModelGPT4, slog.Default())

	result := rt.ChatCompletion(context.Background(), ModelGPT4, []Message{{Role: RoleUser, Content: "hi"}}, ChatOptions{})
	if !result.Degraded {
		t.Fatal("provider failure should produce a degraded result")
	}
	if !strings.HasPrefix(result.Response, "Sorry, I encountered an error") {
		t.Errorf("expected substituted response, got %q", result.Response)
	}
	if result.TokensUsed != 0 {
		t.Errorf("degraded response should report zero tokens, got %d", result.TokensUsed)
	}
	if rt.Substitutions() != 1 {
		t.Errorf("substitution counter = %d, want 1", rt.Substitutions())
	}
}

func TestRouter_ChatCompletion_MasksMissingProvider(t *testing.T) {
	rt := NewRouter(NewRegistry(), ModelGeminiPro, slog.Default())

	result := rt.ChatCompletion(context.Background(), ModelGeminiPro, nil, ChatOptions{})
	if !result.Degraded {
		t.Fatal("missing provider should produce a degraded result")
	}
	if rt.Substitutions() != 1 {
		t.Errorf("substitution counter = %d, want 1", rt.Substitutions())
	}
}

func TestRouter_AvailableModels(t *testing.T) {
	registry := NewRegistry()
	registry.Register("openai", &fakeProvider{name: "openai"})

	rt := NewRouter(registry, "", slog.Default())

	models := rt.AvailableModels()
	if len(models) != 5 {
		t.Fatalf("expected 5 models, got %d", len(models))
	}
	for _, m := range models {
		wantAvailable := m.Provider == "openai"
		if m.Available != wantAvailable {
			t.Errorf("model %s available = %v, want %v", m.ID, m.Available, wantAvailable)
		}
	}
}
