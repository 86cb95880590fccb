package content

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/idfs-labs/starguide/internal/domain"
)

// QuestionLister loads question sets, typically from the database.
type QuestionLister interface {
	ListQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error)
}

type cachedList struct {
	questions []domain.Question
	expiresAt time.Time
}

// CachedLister caches question listings in memory with a TTL. Concurrent
// misses for the same filter are collapsed into a single load via
// singleflight, and TTLs are jittered so hot keys do not expire in lockstep.
type CachedLister struct {
	lister QuestionLister
	ttl    time.Duration

	mu    sync.RWMutex
	cache map[string]cachedList
	sf    singleflight.Group

	clock func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewCachedLister wraps lister with an in-memory TTL cache.
func NewCachedLister(lister QuestionLister, ttl time.Duration) *CachedLister {
	return &CachedLister{
		lister: lister,
		ttl:    ttl,
		cache:  make(map[string]cachedList),
		clock:  time.Now,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ListQuestions returns the cached listing for filter, loading it on miss.
func (c *CachedLister) ListQuestions(ctx context.Context, filter domain.QuestionFilter) ([]domain.Question, error) {
	key := filterKey(filter)

	c.mu.RLock()
	entry, ok := c.cache[key]
	c.mu.RUnlock()
	if ok && c.clock().Before(entry.expiresAt) {
		return entry.questions, nil
	}

	v, err, _ := c.sf.Do(key, func() (any, error) {
		// Another caller may have refreshed while we waited on the flight.
		c.mu.RLock()
		entry, ok := c.cache[key]
		c.mu.RUnlock()
		if ok && c.clock().Before(entry.expiresAt) {
			return entry.questions, nil
		}

		questions, err := c.lister.ListQuestions(ctx, filter)
		if err != nil {
			return nil, err
		}

		expiry := c.clock().Add(c.ttlWithJitter())
		c.mu.Lock()
		c.cache[key] = cachedList{
			questions: questions,
			expiresAt: expiry,
		}
		c.mu.Unlock()

		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Question), nil
}

// Invalidate drops every cached listing. Called after writes to the
// question bank.
func (c *CachedLister) Invalidate() {
	c.mu.Lock()
	c.cache = make(map[string]cachedList)
	c.mu.Unlock()
}

// ttlWithJitter extends the base TTL by up to 10%.
func (c *CachedLister) ttlWithJitter() time.Duration {
	span := int64(c.ttl) / 10
	if span <= 0 {
		return c.ttl
	}
	c.rngMu.Lock()
	jitter := time.Duration(c.rng.Int63n(span))
	c.rngMu.Unlock()
	return c.ttl + jitter
}

func filterKey(f domain.QuestionFilter) string {
	return fmt.Sprintf("%s|%s|%s|%d", f.Subject, f.Difficulty, f.Type, f.Limit)
}
