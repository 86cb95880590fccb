// Package llm abstracts the upstream AI chat providers the tutor speaks
// to. Each provider adapts one vendor API to a common request shape; the
// registry and router pick the adapter for a requested model.
package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrProviderNotFound  = errors.New("provider not found")
	ErrNoDefaultProvider = errors.New("no default provider configured")
)

// Provider is one upstream chat backend (OpenAI, Anthropic, Gemini).
type Provider interface {
	Name() string

	// Generate performs a single completion request.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// GenerateStream performs a streaming completion request.
	GenerateStream(ctx context.Context, req *Request) (<-chan StreamChunk, error)

	SupportsStreaming() bool
}

// Request is a vendor-neutral chat completion request
type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	StopSeqs    []string
	// System is the tutoring system prompt. Some vendors take it as a
	// dedicated field, others as the first message.
	System string
}

// Message is one turn of a conversation
type Message struct {
	Role    Role
	Content string
}

// Role identifies who produced a message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Response is a completed generation with its token accounting
type Response struct {
	Content      string
	FinishReason string
	Usage        Usage
}

// Usage tracks token consumption for a single exchange
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// StreamChunk is one increment of a streamed response. Done marks the end
// of the stream; Error carries a mid-stream failure.
type StreamChunk struct {
	Content string
	Done    bool
	Error   error
}

// Registry holds the configured providers keyed by name. Safe for
// concurrent use; providers register once at startup and are read on
// every chat request.
type Registry struct {
	mu         sync.RWMutex
	providers  map[string]Provider
	defaultKey string
}

// NewRegistry creates an empty provider registry
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds or replaces a provider under the given name
func (r *Registry) Register(name string, p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[name] = p
}

// SetDefault marks a registered provider as the fallback choice for
// requests that name no model.
func (r *Registry) SetDefault(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.providers[name]; !ok {
		return fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	r.defaultKey = name
	return nil
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, name)
	}
	return p, nil
}

// Default returns the configured default provider. "auto" or an unset
// default falls through to the first registered provider in name order.
func (r *Registry) Default() (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.defaultKey != "" && r.defaultKey != "auto" {
		if p, ok := r.providers[r.defaultKey]; ok {
			return p, nil
		}
	}

	for _, name := range r.sortedNames() {
		return r.providers[name], nil
	}
	return nil, ErrNoDefaultProvider
}

// List returns the registered provider names in stable order
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sortedNames()
}

// DefaultName returns the name of the default provider
func (r *Registry) DefaultName() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.defaultKey
}

// callers hold at least a read lock
func (r *Registry) sortedNames() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
