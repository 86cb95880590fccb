package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

// fakeProvider is a scriptable Provider for registry and router tests.
type fakeProvider struct {
	name       string
	streaming  bool
	response   *Response
	streamResp []StreamChunk
	err        error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(_ context.Context, _ *Request) (*Response, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.response, nil
}

func (f *fakeProvider) GenerateStream(_ context.Context, _ *Request) (<-chan StreamChunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan StreamChunk)
	go func() {
		defer close(ch)
		for _, chunk := range f.streamResp {
			ch <- chunk
		}
	}()
	return ch, nil
}

func (f *fakeProvider) SupportsStreaming() bool { return f.streaming }

func newChatRegistry() *Registry {
	r := NewRegistry()
	r.Register("anthropic", &fakeProvider{name: "anthropic"})
	r.Register("gemini", &fakeProvider{name: "gemini"})
	r.Register("openai", &fakeProvider{name: "openai"})
	return r
}

func TestRegistry_GetByVendorName(t *testing.T) {
	r := newChatRegistry()

	p, err := r.Get("openai")
	if err != nil {
		t.Fatalf("Get(openai): %v", err)
	}
	if p.Name() != "openai" {
		t.Errorf("Get(openai).Name() = %q", p.Name())
	}

	if _, err := r.Get("cohere"); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("Get(cohere) error = %v, want ErrProviderNotFound", err)
	}
}

func TestRegistry_SetDefault(t *testing.T) {
	r := newChatRegistry()

	if err := r.SetDefault("mistral"); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("SetDefault(mistral) error = %v, want ErrProviderNotFound", err)
	}
	if err := r.SetDefault("gemini"); err != nil {
		t.Fatalf("SetDefault(gemini): %v", err)
	}

	p, err := r.Default()
	if err != nil {
		t.Fatalf("Default(): %v", err)
	}
	if p.Name() != "gemini" {
		t.Errorf("Default().Name() = %q, want gemini", p.Name())
	}
	if r.DefaultName() != "gemini" {
		t.Errorf("DefaultName() = %q, want gemini", r.DefaultName())
	}
}

func TestRegistry_DefaultFallsBackToFirstName(t *testing.T) {
	// With no default configured, or the placeholder "auto", the first
	// provider in name order serves as the default.
	r := newChatRegistry()

	p, err := r.Default()
	if err != nil {
		t.Fatalf("Default(): %v", err)
	}
	if p.Name() != "anthropic" {
		t.Errorf("unset default resolved to %q, want anthropic", p.Name())
	}

	r.defaultKey = "auto"
	p, err = r.Default()
	if err != nil {
		t.Fatalf("Default() with auto: %v", err)
	}
	if p.Name() != "anthropic" {
		t.Errorf("auto default resolved to %q, want anthropic", p.Name())
	}
}

func TestRegistry_DefaultEmpty(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Default(); !errors.Is(err, ErrNoDefaultProvider) {
		t.Errorf("Default() on empty registry = %v, want ErrNoDefaultProvider", err)
	}
	if r.DefaultName() != "" {
		t.Errorf("DefaultName() on empty registry = %q, want empty", r.DefaultName())
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	r := NewRegistry()
	if got := r.List(); len(got) != 0 {
		t.Fatalf("List() on empty registry = %v", got)
	}

	// Registration order must not leak into the listing.
	r.Register("openai", &fakeProvider{name: "openai"})
	r.Register("anthropic", &fakeProvider{name: "anthropic"})
	r.Register("gemini", &fakeProvider{name: "gemini"})

	got := r.List()
	want := []string{"anthropic", "gemini", "openai"}
	if len(got) != len(want) {
		t.Fatalf("List() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("List() = %v, want %v", got, want)
		}
	}
}

func TestRegistry_RegisterReplaces(t *testing.T) {
	r := NewRegistry()
	r.Register("openai", &fakeProvider{name: "openai"})

	replacement := &fakeProvider{name: "openai", streaming: true}
	r.Register("openai", replacement)

	p, err := r.Get("openai")
	if err != nil {
		t.Fatalf("Get(openai): %v", err)
	}
	if !p.SupportsStreaming() {
		t.Error("Get(openai) returned the old provider after re-registration")
	}
	if got := r.List(); len(got) != 1 {
		t.Errorf("List() after re-registration = %v, want one entry", got)
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := newChatRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			name := fmt.Sprintf("provider-%d", n)
			r.Register(name, &fakeProvider{name: name})
		}(i)
		go func() {
			defer wg.Done()
			r.List()
			r.DefaultName()
			if _, err := r.Default(); err != nil {
				t.Errorf("Default(): %v", err)
			}
		}()
	}
	wg.Wait()

	if got := len(r.List()); got != 13 {
		t.Errorf("List() has %d entries after concurrent registration, want 13", got)
	}
}
