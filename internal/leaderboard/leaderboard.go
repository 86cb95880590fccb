package leaderboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	globalKey = "starguide:leaderboard:global"
	weeklyKey = "starguide:leaderboard:weekly:%s" // ISO week, e.g. 2026-W35

	defaultPageSize = 20
	maxPageSize     = 100
)

// Entry is one ranked row
type Entry struct {
	Rank   int       `json:"rank"`
	UserID uuid.UUID `json:"user_id"`
	Name   string    `json:"name"`
	XP     int       `json:"xp"`
}

// Page is a paginated leaderboard view
type Page struct {
	Entries  []Entry `json:"entries"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
	Total    int     `json:"total"`
}

// NameResolver maps user ids to display names for ranked rows.
type NameResolver interface {
	DisplayNames(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error)
}

// FallbackRanker serves ranked rows straight from persistent storage
// when the Redis boards are unreachable.
type FallbackRanker interface {
	TopByXP(ctx context.Context, offset, limit int) (entries []Entry, total int, err error)
}

// Store ranks users by experience using Redis sorted sets. The weekly
// board lives under a per-ISO-week key that expires after two weeks.
type Store struct {
	client   *redis.Client
	names    NameResolver
	fallback FallbackRanker
	logger   *slog.Logger
	now      func() time.Time
}

// NewStore creates a leaderboard store. fallback may be nil.
func NewStore(client *redis.Client, names NameResolver, fallback FallbackRanker, logger *slog.Logger) *Store {
	return &Store{client: client, names: names, fallback: fallback, logger: logger, now: time.Now}
}

// RecordXP adds earned experience to the global and current-week boards.
func (s *Store) RecordXP(ctx context.Context, userID uuid.UUID, points int) error {
	if points <= 0 {
		return nil
	}
	member := userID.String()
	wk := s.currentWeekKey()

	pipe := s.client.Pipeline()
	pipe.ZIncrBy(ctx, globalKey, float64(points), member)
	pipe.ZIncrBy(ctx, wk, float64(points), member)
	pipe.Expire(ctx, wk, 14*24*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record xp: %w", err)
	}
	return nil
}

// SetXP overwrites a user's global score, used when backfilling from the
// persisted user record.
func (s *Store) SetXP(ctx context.Context, userID uuid.UUID, xp int) error {
	return s.client.ZAdd(ctx, globalKey, redis.Z{
		Score:  float64(xp),
		Member: userID.String(),
	}).Err()
}

// Global returns a page of the all-time leaderboard.
func (s *Store) Global(ctx context.Context, page, pageSize int) (*Page, error) {
	return s.page(ctx, globalKey, page, pageSize)
}

// Weekly returns a page of the current week's leaderboard.
func (s *Store) Weekly(ctx context.Context, page, pageSize int) (*Page, error) {
	return s.page(ctx, s.currentWeekKey(), page, pageSize)
}

// Rank returns the user's rank and score on the global board. Rank is
// zero when the user has never scored.
func (s *Store) Rank(ctx context.Context, userID uuid.UUID) (rank int, xp int, err error) {
	member := userID.String()
	r, err := s.client.ZRevRank(ctx, globalKey, member).Result()
	if err == redis.Nil {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	score, err := s.client.ZScore(ctx, globalKey, member).Result()
	if err != nil {
		return 0, 0, err
	}
	return int(r) + 1, int(score), nil
}

func (s *Store) page(ctx context.Context, key string, page, pageSize int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	start := int64((page - 1) * pageSize)
	stop := start + int64(pageSize) - 1

	rows, err := s.client.ZRevRangeWithScores(ctx, key, start, stop).Result()
	if err != nil {
		if s.fallback != nil {
			s.logger.Warn("leaderboard read failed, serving from storage", "error", err)
			return s.pageFromFallback(ctx, page, pageSize)
		}
		return nil, fmt.Errorf("range leaderboard: %w", err)
	}
	total, err := s.client.ZCard(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("count leaderboard: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	ids := make([]uuid.UUID, 0, len(rows))
	for i, row := range rows {
		id, err := uuid.Parse(row.Member.(string))
		if err != nil {
			s.logger.Warn("skipping malformed leaderboard member", "member", row.Member)
			continue
		}
		ids = append(ids, id)
		entries = append(entries, Entry{
			Rank:   int(start) + i + 1,
			UserID: id,
			XP:     int(row.Score),
		})
	}

	if s.names != nil && len(ids) > 0 {
		names, err := s.names.DisplayNames(ctx, ids)
		if err != nil {
			s.logger.Warn("name resolution failed", "error", err)
		} else {
			for i := range entries {
				entries[i].Name = names[entries[i].UserID]
			}
		}
	}

	return &Page{Entries: entries, Page: page, PageSize: pageSize, Total: int(total)}, nil
}

func (s *Store) pageFromFallback(ctx context.Context, page, pageSize int) (*Page, error) {
	offset := (page - 1) * pageSize
	entries, total, err := s.fallback.TopByXP(ctx, offset, pageSize)
	if err != nil {
		return nil, fmt.Errorf("fallback leaderboard: %w", err)
	}
	for i := range entries {
		entries[i].Rank = offset + i + 1
	}
	return &Page{Entries: entries, Page: page, PageSize: pageSize, Total: total}, nil
}

func (s *Store) currentWeekKey() string {
	year, week := s.now().UTC().ISOWeek()
	return fmt.Sprintf(weeklyKey, fmt.Sprintf("%d-W%02d", year, week))
}
