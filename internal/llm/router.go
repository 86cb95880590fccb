package llm

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// Supported model identifiers
const (
	ModelGPT4         = "gpt-4"
	ModelGPT35Turbo   = "gpt-3.5-turbo"
	ModelClaudeOpus   = "claude-3-opus"
	ModelClaudeSonnet = "claude-3-sonnet"
	ModelGeminiPro    = "gemini-pro"
)

// ModelInfo describes a routable model for the models listing endpoint
type ModelInfo struct {
	ID        string `json:"id"`
	Provider  string `json:"provider"`
	MaxTokens int    `json:"max_tokens"`
	Available bool   `json:"available"`
}

// modelTable maps model identifiers to their provider and limits
var modelTable = map[string]ModelInfo{
	ModelGPT4:         {ID: ModelGPT4, Provider: "openai", MaxTokens: 8192},
	ModelGPT35Turbo:   {ID: ModelGPT35Turbo, Provider: "openai", MaxTokens: 4096},
	ModelClaudeOpus:   {ID: ModelClaudeOpus, Provider: "anthropic", MaxTokens: 4096},
	ModelClaudeSonnet: {ID: ModelClaudeSonnet, Provider: "anthropic", MaxTokens: 4096},
	ModelGeminiPro:    {ID: ModelGeminiPro, Provider: "google", MaxTokens: 8192},
}

// ChatResult is the normalized chat-completion response
type ChatResult struct {
	Response       string `json:"response"`
	Model          string `json:"model"`
	Provider       string `json:"provider"`
	TokensUsed     int    `json:"tokens_used"`
	ResponseTimeMS int64  `json:"response_time_ms"`
	Degraded       bool   `json:"-"`
}

// Router dispatches chat completions to the provider owning the requested
// model. Provider failures are masked: the caller always gets a usable
// ChatResult, with failure substituted by an apologetic response. The
// substitution is logged and counted so the degradation stays observable.
type Router struct {
	registry      *Registry
	defaultModel  string
	logger        *slog.Logger
	substitutions atomic.Int64
}

// NewRouter creates a model router over the given provider registry
func NewRouter(registry *Registry, defaultModel string, logger *slog.Logger) *Router {
	if defaultModel == "" {
		defaultModel = ModelClaudeSonnet
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		registry:     registry,
		defaultModel: defaultModel,
		logger:       logger,
	}
}

// ChatOptions tunes a single chat completion
type ChatOptions struct {
	Temperature float64
	MaxTokens   int
	System      string
}

// ChatCompletion routes a chat request to the right provider and normalizes
// the response. Never returns an error for provider faults; see Router docs.
func (rt *Router) ChatCompletion(ctx context.Context, model string, messages []Message, opts ChatOptions) *ChatResult {
	if model == "" {
		model = rt.defaultModel
	}

	start := time.Now()

	info, ok := modelTable[model]
	if !ok {
		rt.logger.Warn("unknown model requested, using default", "model", model, "default", rt.defaultModel)
		model = rt.defaultModel
		info = modelTable[model]
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 || maxTokens > info.MaxTokens {
		maxTokens = info.MaxTokens
	}

	provider, err := rt.registry.Get(info.Provider)
	if err == nil {
		var resp *Response
		resp, err = provider.Generate(ctx, &Request{
			Model:       model,
			Messages:    messages,
			MaxTokens:   maxTokens,
			Temperature: opts.Temperature,
			System:      opts.System,
		})
		if err == nil {
			return &ChatResult{
				Response:       resp.Content,
				Model:          model,
				Provider:       info.Provider,
				TokensUsed:     resp.Usage.InputTokens + resp.Usage.OutputTokens,
				ResponseTimeMS: time.Since(start).Milliseconds(),
			}
		}
	}

	n := rt.substitutions.Add(1)
	rt.logger.Warn("chat completion degraded, substituting response",
		"model", model,
		"provider", info.Provider,
		"error", err,
		"substitutions_total", n,
	)

	return &ChatResult{
		Response:       fmt.Sprintf("Sorry, I encountered an error: %v", err),
		Model:          model,
		Provider:       info.Provider,
		TokensUsed:     0,
		ResponseTimeMS: time.Since(start).Milliseconds(),
		Degraded:       true,
	}
}

// Substitutions reports how many degraded responses have been served
func (rt *Router) Substitutions() int64 {
	return rt.substitutions.Load()
}

// AvailableModels lists every known model with its provider availability
func (rt *Router) AvailableModels() []ModelInfo {
	registered := make(map[string]bool)
	for _, name := range rt.registry.List() {
		registered[name] = true
	}

	order := []string{ModelGPT4, ModelGPT35Turbo, ModelClaudeOpus, ModelClaudeSonnet, ModelGeminiPro}
	out := make([]ModelInfo, 0, len(order))
	for _, id := range order {
		info := modelTable[id]
		info.Available = registered[info.Provider]
		out = append(out, info)
	}
	return out
}
