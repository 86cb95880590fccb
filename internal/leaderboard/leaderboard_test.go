package leaderboard

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type stubNames map[uuid.UUID]string

func (s stubNames) DisplayNames(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	out := make(map[uuid.UUID]string, len(ids))
	for _, id := range ids {
		out[id] = s[id]
	}
	return out, nil
}

type discard struct{}

func (*discard) Write(p []byte) (int, error) { return len(p), nil }

func newTestStore(t *testing.T, names NameResolver) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	store := NewStore(client, names, nil, slog.New(slog.NewTextHandler(&discard{}, nil)))
	store.now = func() time.Time { return time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC) }
	return store, mr
}

func TestRecordXP_RanksUsers(t *testing.T) {
	alice, bob, carol := uuid.New(), uuid.New(), uuid.New()
	store, _ := newTestStore(t, stubNames{alice: "Alice", bob: "Bob", carol: "Carol"})
	ctx := context.Background()

	for _, rec := range []struct {
		id     uuid.UUID
		points int
	}{
		{alice, 50}, {bob, 120}, {carol, 80}, {alice, 40},
	} {
		if err := store.RecordXP(ctx, rec.id, rec.points); err != nil {
			t.Fatalf("RecordXP: %v", err)
		}
	}

	page, err := store.Global(ctx, 1, 10)
	if err != nil {
		t.Fatalf("Global: %v", err)
	}
	if page.Total != 3 {
		t.Fatalf("Total = %d, want 3", page.Total)
	}

	want := []struct {
		name string
		xp   int
	}{
		{"Bob", 120}, {"Alice", 90}, {"Carol", 80},
	}
	for i, w := range want {
		e := page.Entries[i]
		if e.Rank != i+1 || e.Name != w.name || e.XP != w.xp {
			t.Errorf("entry %d = rank %d %s %d, want rank %d %s %d",
				i, e.Rank, e.Name, e.XP, i+1, w.name, w.xp)
		}
	}
}

func TestGlobal_Pagination(t *testing.T) {
	store, _ := newTestStore(t, nil)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		if err := store.RecordXP(ctx, uuid.New(), i*10); err != nil {
			t.Fatalf("RecordXP: %v", err)
		}
	}

	page, err := store.Global(ctx, 2, 2)
	if err != nil {
		t.Fatalf("Global: %v", err)
	}
	if len(page.Entries) != 2 {
		t.Fatalf("page 2 has %d entries, want 2", len(page.Entries))
	}
	if page.Entries[0].Rank != 3 || page.Entries[0].XP != 30 {
		t.Errorf("first entry on page 2 = rank %d xp %d, want rank 3 xp 30",
			page.Entries[0].Rank, page.Entries[0].XP)
	}
	if page.Total != 5 {
		t.Errorf("Total = %d, want 5", page.Total)
	}
}

func TestGlobal_ClampsPageSize(t *testing.T) {
	store, _ := newTestStore(t, nil)

	page, err := store.Global(context.Background(), 0, 1000)
	if err != nil {
		t.Fatalf("Global: %v", err)
	}
	if page.Page != 1 {
		t.Errorf("Page = %d, want 1", page.Page)
	}
	if page.PageSize != maxPageSize {
		t.Errorf("PageSize = %d, want %d", page.PageSize, maxPageSize)
	}
}

func TestWeekly_SeparateFromGlobal(t *testing.T) {
	store, mr := newTestStore(t, nil)
	ctx := context.Background()
	user := uuid.New()

	if err := store.RecordXP(ctx, user, 30); err != nil {
		t.Fatalf("RecordXP: %v", err)
	}

	weekly, err := store.Weekly(ctx, 1, 10)
	if err != nil {
		t.Fatalf("Weekly: %v", err)
	}
	if weekly.Total != 1 || weekly.Entries[0].XP != 30 {
		t.Fatalf("weekly = %+v", weekly)
	}

	// The weekly key carries an expiry, the global key does not.
	if mr.TTL(store.currentWeekKey()) <= 0 {
		t.Error("weekly key has no TTL")
	}

	// A new week starts a fresh board.
	store.now = func() time.Time { return time.Date(2026, 9, 7, 12, 0, 0, 0, time.UTC) }
	weekly2, err := store.Weekly(ctx, 1, 10)
	if err != nil {
		t.Fatalf("Weekly: %v", err)
	}
	if weekly2.Total != 0 {
		t.Errorf("next week Total = %d, want 0", weekly2.Total)
	}
}

func TestRank(t *testing.T) {
	store, _ := newTestStore(t, nil)
	ctx := context.Background()
	first, second := uuid.New(), uuid.New()

	store.RecordXP(ctx, first, 200)
	store.RecordXP(ctx, second, 100)

	rank, xp, err := store.Rank(ctx, second)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if rank != 2 || xp != 100 {
		t.Errorf("rank = %d xp = %d, want rank 2 xp 100", rank, xp)
	}

	rank, xp, err = store.Rank(ctx, uuid.New())
	if err != nil {
		t.Fatalf("Rank unknown user: %v", err)
	}
	if rank != 0 || xp != 0 {
		t.Errorf("unknown user rank = %d xp = %d, want 0 0", rank, xp)
	}
}

type stubFallback struct {
	entries []Entry
	calls   int
}

func (s *stubFallback) TopByXP(_ context.Context, offset, limit int) ([]Entry, int, error) {
	s.calls++
	end := offset + limit
	if end > len(s.entries) {
		end = len(s.entries)
	}
	if offset > len(s.entries) {
		offset = len(s.entries)
	}
	return s.entries[offset:end], len(s.entries), nil
}

func TestGlobal_FallsBackWhenRedisDown(t *testing.T) {
	store, mr := newTestStore(t, nil)
	fallback := &stubFallback{entries: []Entry{
		{UserID: uuid.New(), Name: "Alice", XP: 90},
		{UserID: uuid.New(), Name: "Bob", XP: 40},
	}}
	store.fallback = fallback
	mr.Close()

	page, err := store.Global(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("Global with fallback: %v", err)
	}
	if fallback.calls != 1 {
		t.Fatalf("fallback calls = %d, want 1", fallback.calls)
	}
	if page.Total != 2 || len(page.Entries) != 2 {
		t.Fatalf("page = %+v", page)
	}
	if page.Entries[0].Rank != 1 || page.Entries[0].Name != "Alice" {
		t.Errorf("first entry = %+v, want rank 1 Alice", page.Entries[0])
	}
	if page.Entries[1].Rank != 2 {
		t.Errorf("second entry rank = %d, want 2", page.Entries[1].Rank)
	}
}

func TestSetXP_Overwrites(t *testing.T) {
	store, _ := newTestStore(t, nil)
	ctx := context.Background()
	user := uuid.New()

	store.RecordXP(ctx, user, 500)
	if err := store.SetXP(ctx, user, 42); err != nil {
		t.Fatalf("SetXP: %v", err)
	}

	_, xp, err := store.Rank(ctx, user)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if xp != 42 {
		t.Errorf("xp = %d, want 42", xp)
	}
}
