package profile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/khanglvm/persona-search/internal/logging"
	"github.com/khanglvm/persona-search/internal/storage"
	"github.com/khanglvm/persona-search/internal/storage/storagetest"
)

func newTestService(store storage.Storage) *Service {
	return NewService(store, DefaultParams(), WithClock(func() time.Time { return testNow }))
}

func seedHistory(t *testing.T, store storage.Storage) {
	t.Helper()
	ctx := context.Background()
	events := []storage.QueryEvent{
		query("q1", "golang generics", testNow.Add(-2*time.Hour)),
		query("q2", "golang channels", testNow.Add(-110*time.Minute)),
		query("q3", "python asyncio", testNow.Add(-3*24*time.Hour)),
	}
	for _, e := range events {
		if err := store.RecordQuery(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	if err := store.RecordInteraction(ctx, storage.InteractionEvent{
		ID: "i1", UserID: "alice", QueryID: "q1", ClickedURL: "https://go.dev/doc/effective_go",
		Rank: 2, Timestamp: testNow.Add(-2 * time.Hour), ActionType: storage.ActionClick,
	}); err != nil {
		t.Fatal(err)
	}
}

func TestRebuild(t *testing.T) {
	store := storagetest.New()
	seedHistory(t, store)
	svc := newTestService(store)

	p, err := svc.Rebuild(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	if len(p.ImplicitInterests) == 0 {
		t.Fatal("expected implicit interests")
	}
	if p.ImplicitInterests[0].Key != "golang" {
		t.Errorf("top interest = %q, want golang", p.ImplicitInterests[0].Key)
	}
	if _, ok := p.ImplicitInterests.Get("go.dev/doc"); !ok {
		t.Error("clicked domain key missing")
	}
	for i := 1; i < len(p.ImplicitInterests); i++ {
		prev, cur := p.ImplicitInterests[i-1], p.ImplicitInterests[i]
		if prev.Score < cur.Score || (prev.Score == cur.Score && prev.Key > cur.Key) {
			t.Errorf("interests not sorted at %d: %+v then %+v", i, prev, cur)
		}
	}
	if !p.LastUpdated.Equal(testNow) {
		t.Errorf("LastUpdated = %v", p.LastUpdated)
	}
	if len(p.QueryHistory) != 5 {
		t.Errorf("QueryHistory = %v", p.QueryHistory)
	}
	if len(p.ClickHistory) != 1 || p.ClickHistory[0] != "go.dev/doc" {
		t.Errorf("ClickHistory = %v", p.ClickHistory)
	}

	stored, _ := store.GetProfile(context.Background(), "alice")
	if stored == nil || len(stored.ImplicitInterests) != len(p.ImplicitInterests) {
		t.Error("profile was not persisted")
	}
}

func TestRebuildIdempotent(t *testing.T) {
	store := storagetest.New()
	seedHistory(t, store)
	svc := newTestService(store)
	ctx := context.Background()

	first, err := svc.Rebuild(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	firstJSON, _ := json.Marshal(first.ImplicitInterests)

	second, err := svc.Rebuild(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	secondJSON, _ := json.Marshal(second.ImplicitInterests)

	if !bytes.Equal(firstJSON, secondJSON) {
		t.Errorf("rebuilds differ:\n%s\n%s", firstJSON, secondJSON)
	}
}

func TestRebuildAppliesExclusion(t *testing.T) {
	store := storagetest.New()
	seedHistory(t, store)
	svc := newTestService(store)
	ctx := context.Background()

	before, _ := svc.Rebuild(ctx, "alice")
	if score, ok := before.ImplicitInterests.Get("python"); !ok || score <= 0 {
		t.Fatalf("python should be scored before exclusion, got %v", score)
	}

	if _, err := svc.Exclude(ctx, "alice", "Python"); err != nil {
		t.Fatalf("Exclude failed: %v", err)
	}

	after, err := svc.Rebuild(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := after.ImplicitInterests.Get("python"); ok {
		t.Error("excluded keyword still present after rebuild")
	}
	if len(after.ImplicitExclusions) != 1 || after.ImplicitExclusions[0] != "Python" {
		t.Errorf("exclusions should keep original case: %v", after.ImplicitExclusions)
	}

	// The raw aggregation still scores it
	queries, _ := store.QueriesForUser(ctx, "alice")
	raw, _ := AggregateQueries(queries, testNow, DefaultParams(), nil)
	if raw["python"] <= 0 {
		t.Error("aggregator should still compute a score for python")
	}
}

func TestRebuildDropsExplicitKeywords(t *testing.T) {
	store := storagetest.New()
	seedHistory(t, store)
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.Promote(ctx, "alice", "GOLANG", 0.9); err != nil {
		t.Fatal(err)
	}
	p, err := svc.Rebuild(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.ImplicitInterests.Get("golang"); ok {
		t.Error("explicit keyword should not appear as implicit")
	}
	if len(p.ExplicitInterests) != 1 || p.ExplicitInterests[0].Keyword != "GOLANG" {
		t.Errorf("explicit interests not carried over: %+v", p.ExplicitInterests)
	}
}

func TestRebuildSwallowsDiagnosticsFailure(t *testing.T) {
	store := storagetest.New()
	seedHistory(t, store)
	store.DiscardedErr = errors.New("diagnostics unavailable")

	prev := logging.Logger()
	defer logging.SetLogger(prev)
	var buf bytes.Buffer
	logging.SetLogger(logging.NewTestLogger(&buf))

	svc := newTestService(store)
	if _, err := svc.Rebuild(context.Background(), "alice"); err != nil {
		t.Fatalf("Rebuild should succeed when diagnostics fail: %v", err)
	}
	if store.Upserts != 1 {
		t.Errorf("Upserts = %d, want 1", store.Upserts)
	}
	if !bytes.Contains(buf.Bytes(), []byte("failed to record discarded tokens")) {
		t.Errorf("expected warning in log, got %s", buf.String())
	}
}

func TestRebuildRecordsDiscards(t *testing.T) {
	store := storagetest.New()
	store.RecordQuery(context.Background(), query("q1", "the best golang", testNow))
	svc := newTestService(store)

	if _, err := svc.Rebuild(context.Background(), "alice"); err != nil {
		t.Fatal(err)
	}
	top, _ := store.TopDiscardedTokens(context.Background(), 10)
	if len(top) != 2 {
		t.Errorf("discarded = %+v, want the and best", top)
	}
}

func TestRebuildEmptyHistory(t *testing.T) {
	svc := newTestService(storagetest.New())
	p, err := svc.Rebuild(context.Background(), storage.GuestUserID)
	if err != nil {
		t.Fatal(err)
	}
	if p.UserID != "guest" || len(p.ImplicitInterests) != 0 {
		t.Errorf("unexpected profile: %+v", p)
	}
}

func TestRebuildRequiresUser(t *testing.T) {
	svc := newTestService(storagetest.New())
	if _, err := svc.Rebuild(context.Background(), " "); !errors.Is(err, ErrBadInput) {
		t.Errorf("expected ErrBadInput, got %v", err)
	}
}

func TestRebuildPropagatesStoreErrors(t *testing.T) {
	store := storagetest.New()
	store.QueriesErr["alice"] = errors.New("disk on fire")
	svc := newTestService(store)

	if _, err := svc.Rebuild(context.Background(), "alice"); err == nil {
		t.Error("expected error")
	}
}

func TestGet(t *testing.T) {
	store := storagetest.New()
	svc := newTestService(store)
	ctx := context.Background()

	if _, err := svc.Get(ctx, "nobody"); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("expected ErrProfileNotFound, got %v", err)
	}
	svc.Rebuild(ctx, "alice")
	if p, err := svc.Get(ctx, "alice"); err != nil || p.UserID != "alice" {
		t.Errorf("Get = %+v, %v", p, err)
	}
}

func TestConcurrentEditsSerialized(t *testing.T) {
	store := storagetest.New()
	svc := newTestService(store)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := svc.Promote(ctx, "alice", fmt.Sprintf("kw%d", i), 0.5); err != nil {
				t.Errorf("Promote failed: %v", err)
			}
		}(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Rebuild(ctx, "alice")
		}()
	}
	wg.Wait()

	p, _ := store.GetProfile(ctx, "alice")
	if len(p.ExplicitInterests) != 20 {
		t.Errorf("lost updates: %d explicit interests, want 20", len(p.ExplicitInterests))
	}
}
