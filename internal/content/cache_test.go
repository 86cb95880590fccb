package content

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/idfs-labs/starguide/internal/domain"
)

type countingLister struct {
	calls atomic.Int64
	slow  time.Duration
}

func (c *countingLister) ListQuestions(_ context.Context, _ domain.QuestionFilter) ([]domain.Question, error) {
	c.calls.Add(1)
	if c.slow > 0 {
		time.Sleep(c.slow)
	}
	return []domain.Question{{Text: "q"}}, nil
}

func TestCachedLister_ExpiresAfterTTL(t *testing.T) {
	lister := &countingLister{}
	cache := NewCachedLister(lister, time.Minute)

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cache.clock = func() time.Time { return now }

	filter := domain.QuestionFilter{Subject: "astronomy"}
	for i := 0; i < 3; i++ {
		if _, err := cache.ListQuestions(context.Background(), filter); err != nil {
			t.Fatalf("ListQuestions: %v", err)
		}
	}
	if got := lister.calls.Load(); got != 1 {
		t.Fatalf("loader calls = %d, want 1", got)
	}

	// Past the TTL plus maximum jitter the entry must reload.
	now = now.Add(time.Minute + 7*time.Second)
	if _, err := cache.ListQuestions(context.Background(), filter); err != nil {
		t.Fatalf("ListQuestions: %v", err)
	}
	if got := lister.calls.Load(); got != 2 {
		t.Fatalf("loader calls after expiry = %d, want 2", got)
	}
}

func TestCachedLister_FirstMissCompletes(t *testing.T) {
	lister := &countingLister{}
	cache := NewCachedLister(lister, time.Minute)

	done := make(chan error, 1)
	go func() {
		_, err := cache.ListQuestions(context.Background(), domain.QuestionFilter{Subject: "astronomy"})
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("ListQuestions: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("ListQuestions did not return on a cold cache")
	}
}

func TestCachedLister_ZeroTTL(t *testing.T) {
	lister := &countingLister{}
	cache := NewCachedLister(lister, 0)

	filter := domain.QuestionFilter{Subject: "astronomy"}
	for i := 0; i < 2; i++ {
		if _, err := cache.ListQuestions(context.Background(), filter); err != nil {
			t.Fatalf("ListQuestions: %v", err)
		}
	}
	// A zero TTL disables caching entirely.
	if got := lister.calls.Load(); got != 2 {
		t.Fatalf("loader calls = %d, want 2", got)
	}
}

func TestCachedLister_DistinctFiltersDistinctEntries(t *testing.T) {
	lister := &countingLister{}
	cache := NewCachedLister(lister, time.Minute)

	if _, err := cache.ListQuestions(context.Background(), domain.QuestionFilter{Subject: "astronomy"}); err != nil {
		t.Fatalf("ListQuestions: %v", err)
	}
	if _, err := cache.ListQuestions(context.Background(), domain.QuestionFilter{Subject: "physics"}); err != nil {
		t.Fatalf("ListQuestions: %v", err)
	}
	if got := lister.calls.Load(); got != 2 {
		t.Fatalf("loader calls = %d, want 2", got)
	}
}

func TestCachedLister_CollapsesConcurrentMisses(t *testing.T) {
	lister := &countingLister{slow: 20 * time.Millisecond}
	cache := NewCachedLister(lister, time.Minute)
	filter := domain.QuestionFilter{Subject: "astronomy"}

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.ListQuestions(context.Background(), filter); err != nil {
				t.Errorf("ListQuestions: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := lister.calls.Load(); got != 1 {
		t.Errorf("loader calls = %d, want 1 (concurrent misses collapsed)", got)
	}
}
