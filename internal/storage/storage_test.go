/*
Package storage provides tests for the storage layer.
*/
package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// newTestStorage opens a fresh database under t.TempDir().
func newTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	storage := NewStorage(filepath.Join(t.TempDir(), "test.db"))
	if err := storage.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { storage.Close() })
	return storage
}

// TestInit verifies database initialization and schema creation.
func TestInit(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "test.db")

	storage := NewStorage(dbPath)
	if err := storage.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer storage.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file not created")
	}

	// Second Init is a no-op
	if err := storage.Init(); err != nil {
		t.Errorf("second Init failed: %v", err)
	}
}

// TestNotInitialized verifies operations fail cleanly before Init.
func TestNotInitialized(t *testing.T) {
	storage := NewStorage(filepath.Join(t.TempDir(), "never.db"))

	if _, err := storage.GetProfile(context.Background(), "u1"); err != ErrNotInitialized {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
	if err := storage.RecordQuery(context.Background(), QueryEvent{ID: "q"}); err != ErrNotInitialized {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

// TestRecordQuery verifies query events round-trip in timestamp order.
func TestRecordQuery(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []QueryEvent{
		{ID: "q2", UserID: "alice", RawText: "golang generics", Timestamp: base.Add(time.Minute)},
		{ID: "q1", UserID: "alice", RawText: "golang channels", EnhancedText: "go channels tutorial", Timestamp: base},
		{ID: "q3", UserID: "bob", RawText: "rust", Timestamp: base},
	}
	for _, e := range events {
		if err := storage.RecordQuery(ctx, e); err != nil {
			t.Fatalf("RecordQuery failed: %v", err)
		}
	}

	got, err := storage.QueriesForUser(ctx, "alice")
	if err != nil {
		t.Fatalf("QueriesForUser failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(got))
	}
	if got[0].ID != "q1" || got[1].ID != "q2" {
		t.Errorf("Expected ascending order [q1 q2], got [%s %s]", got[0].ID, got[1].ID)
	}
	if got[0].EnhancedText != "go channels tutorial" {
		t.Errorf("EnhancedText = %q", got[0].EnhancedText)
	}
	if !got[0].Timestamp.Equal(base) {
		t.Errorf("Timestamp = %v, want %v", got[0].Timestamp, base)
	}
}

// TestFeedbackExclusivity verifies a new feedback entry replaces earlier
// feedback for the same user and URL while clicks are kept.
func TestFeedbackExclusivity(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()
	now := time.Now()

	record := func(id string, action ActionType, url string) {
		t.Helper()
		err := storage.RecordInteraction(ctx, InteractionEvent{
			ID:         id,
			UserID:     "alice",
			QueryID:    "q1",
			ClickedURL: url,
			Rank:       1,
			Timestamp:  now,
			ActionType: action,
		})
		if err != nil {
			t.Fatalf("RecordInteraction failed: %v", err)
		}
	}

	record("i1", ActionClick, "https://a.com/p")
	record("i2", ActionPositiveFeedback, "https://a.com/p")
	record("i3", ActionNegativeFeedback, "https://a.com/p")
	record("i4", ActionPositiveFeedback, "https://b.com/q")

	got, err := storage.InteractionsForUser(ctx, "alice")
	if err != nil {
		t.Fatalf("InteractionsForUser failed: %v", err)
	}

	ids := map[string]ActionType{}
	for _, e := range got {
		ids[e.ID] = e.ActionType
	}
	if len(ids) != 3 {
		t.Fatalf("Expected 3 interactions, got %d: %v", len(ids), ids)
	}
	if _, ok := ids["i2"]; ok {
		t.Error("earlier feedback should have been replaced")
	}
	if ids["i1"] != ActionClick || ids["i3"] != ActionNegativeFeedback || ids["i4"] != ActionPositiveFeedback {
		t.Errorf("unexpected interactions: %v", ids)
	}
}

// TestProfileRoundTrip verifies full-document upsert and ordered implicit scores.
func TestProfileRoundTrip(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	missing, err := storage.GetProfile(ctx, "alice")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if missing != nil {
		t.Fatal("Expected nil profile for unknown user")
	}

	p := NewProfile("alice")
	p.ExplicitInterests = append(p.ExplicitInterests, ExplicitInterest{Keyword: "Go", Weight: 0.8})
	p.ImplicitInterests = InterestScores{
		{Key: "rust", Score: 1},
		{Key: "golang", Score: 3},
		{Key: "a.com/p", Score: 3},
	}
	SortScores(p.ImplicitInterests)
	p.ImplicitExclusions = []string{"Python"}
	p.LastUpdated = time.Now()

	if err := storage.UpsertProfile(ctx, p); err != nil {
		t.Fatalf("UpsertProfile failed: %v", err)
	}

	got, err := storage.GetProfile(ctx, "alice")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected stored profile")
	}

	wantOrder := []string{"a.com/p", "golang", "rust"}
	if len(got.ImplicitInterests) != len(wantOrder) {
		t.Fatalf("Expected %d implicit interests, got %d", len(wantOrder), len(got.ImplicitInterests))
	}
	for i, key := range wantOrder {
		if got.ImplicitInterests[i].Key != key {
			t.Errorf("implicit[%d] = %q, want %q", i, got.ImplicitInterests[i].Key, key)
		}
	}
	if len(got.ExplicitInterests) != 1 || got.ExplicitInterests[0].Keyword != "Go" {
		t.Errorf("ExplicitInterests = %+v", got.ExplicitInterests)
	}
	if got.QueryHistory == nil || got.ClickHistory == nil {
		t.Error("collections should be non-nil after load")
	}

	// Full overwrite drops fields not present in the new document
	p2 := NewProfile("alice")
	if err := storage.UpsertProfile(ctx, p2); err != nil {
		t.Fatalf("UpsertProfile failed: %v", err)
	}
	got, _ = storage.GetProfile(ctx, "alice")
	if len(got.ExplicitInterests) != 0 || len(got.ImplicitInterests) != 0 {
		t.Errorf("Expected overwritten profile, got %+v", got)
	}
}

// TestInterestScoresJSON verifies the ordered object encoding.
func TestInterestScoresJSON(t *testing.T) {
	scores := InterestScores{{Key: "b", Score: 2}, {Key: "a", Score: 2}, {Key: "c", Score: 0.5}}
	SortScores(scores)

	data, err := scores.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON failed: %v", err)
	}
	if string(data) != `{"a":2,"b":2,"c":0.5}` {
		t.Errorf("MarshalJSON = %s", data)
	}

	var back InterestScores
	if err := back.UnmarshalJSON([]byte(`{"c":0.5,"b":2,"a":2}`)); err != nil {
		t.Fatalf("UnmarshalJSON failed: %v", err)
	}
	if back[0].Key != "a" || back[1].Key != "b" || back[2].Key != "c" {
		t.Errorf("unexpected order: %+v", back)
	}
}

// TestDistinctUsers verifies the union across events and profiles.
func TestDistinctUsers(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	storage.RecordQuery(ctx, QueryEvent{ID: "q1", UserID: "bob", RawText: "x", Timestamp: time.Now()})
	storage.RecordInteraction(ctx, InteractionEvent{ID: "i1", UserID: "carol", QueryID: "q", ClickedURL: "a.com", Rank: 1, Timestamp: time.Now()})
	storage.UpsertProfile(ctx, NewProfile("alice"))
	storage.RecordQuery(ctx, QueryEvent{ID: "q2", UserID: "alice", RawText: "y", Timestamp: time.Now()})

	users, err := storage.DistinctUsers(ctx)
	if err != nil {
		t.Fatalf("DistinctUsers failed: %v", err)
	}
	want := []string{"alice", "bob", "carol"}
	if len(users) != len(want) {
		t.Fatalf("DistinctUsers = %v, want %v", users, want)
	}
	for i := range want {
		if users[i] != want[i] {
			t.Errorf("users[%d] = %q, want %q", i, users[i], want[i])
		}
	}
}

// TestDiscardedTokens verifies counter accumulation and ordering.
func TestDiscardedTokens(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	if err := storage.IncrementDiscardedTokens(ctx, map[string]int{"the": 2, "of": 1}); err != nil {
		t.Fatalf("IncrementDiscardedTokens failed: %v", err)
	}
	if err := storage.IncrementDiscardedTokens(ctx, map[string]int{"of": 4, "http": 1}); err != nil {
		t.Fatalf("IncrementDiscardedTokens failed: %v", err)
	}

	top, err := storage.TopDiscardedTokens(ctx, 2)
	if err != nil {
		t.Fatalf("TopDiscardedTokens failed: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(top))
	}
	if top[0].Token != "of" || top[0].Count != 5 {
		t.Errorf("top[0] = %+v, want of=5", top[0])
	}
	if top[1].Token != "the" || top[1].Count != 2 {
		t.Errorf("top[1] = %+v, want the=2", top[1])
	}
}

// TestCleanup verifies old events are pruned and profiles survive.
func TestCleanup(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	old := time.Now().Add(-100 * 24 * time.Hour)
	storage.RecordQuery(ctx, QueryEvent{ID: "old", UserID: "alice", RawText: "x", Timestamp: old})
	storage.RecordQuery(ctx, QueryEvent{ID: "new", UserID: "alice", RawText: "y", Timestamp: time.Now()})
	storage.RecordInteraction(ctx, InteractionEvent{ID: "i-old", UserID: "alice", QueryID: "old", ClickedURL: "a.com", Rank: 1, Timestamp: old})
	storage.UpsertProfile(ctx, NewProfile("alice"))

	deleted, err := storage.Cleanup(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("Cleanup failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 deleted rows, got %d", deleted)
	}

	queries, _ := storage.QueriesForUser(ctx, "alice")
	if len(queries) != 1 || queries[0].ID != "new" {
		t.Errorf("unexpected remaining queries: %+v", queries)
	}
	if p, _ := storage.GetProfile(ctx, "alice"); p == nil {
		t.Error("profile should survive cleanup")
	}
}

// TestGracefulDegradation verifies behavior when the path is unusable.
func TestGracefulDegradation(t *testing.T) {
	tmpDir := t.TempDir()
	blocker := filepath.Join(tmpDir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	storage := NewStorage(filepath.Join(blocker, "sub", "test.db"))
	if err := storage.Init(); err == nil {
		t.Error("Expected Init to fail when parent is a file")
	}
	if _, err := storage.DistinctUsers(context.Background()); err != ErrNotInitialized {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}
