package profile

import (
	"context"
	"errors"
	"testing"

	"github.com/khanglvm/persona-search/internal/storage"
	"github.com/khanglvm/persona-search/internal/storage/storagetest"
)

func TestPromotePurgesImplicit(t *testing.T) {
	store := storagetest.New()
	ctx := context.Background()

	seed := storage.NewProfile("alice")
	seed.ImplicitInterests = storage.InterestScores{{Key: "x", Score: 3}, {Key: "y", Score: 1}}
	seed.ImplicitExclusions = []string{"X"}
	store.UpsertProfile(ctx, seed)

	svc := newTestService(store)
	p, err := svc.Promote(ctx, "alice", "x", 1.0)
	if err != nil {
		t.Fatalf("Promote failed: %v", err)
	}

	if len(p.ExplicitInterests) != 1 || p.ExplicitInterests[0].Keyword != "x" || p.ExplicitInterests[0].Weight != 1.0 {
		t.Errorf("explicit = %+v", p.ExplicitInterests)
	}
	if !p.ExplicitInterests[0].LastUpdated.Equal(testNow) {
		t.Errorf("LastUpdated = %v", p.ExplicitInterests[0].LastUpdated)
	}
	if len(p.ImplicitExclusions) != 0 {
		t.Errorf("exclusions = %v, want empty", p.ImplicitExclusions)
	}
	if _, ok := p.ImplicitInterests.Get("x"); ok {
		t.Error("x should be removed from implicit interests")
	}
	if _, ok := p.ImplicitInterests.Get("y"); !ok {
		t.Error("y should be kept")
	}
}

func TestPromoteDuplicate(t *testing.T) {
	svc := newTestService(storagetest.New())
	ctx := context.Background()

	if _, err := svc.Promote(ctx, "alice", "Rust", 0.7); err != nil {
		t.Fatal(err)
	}
	_, err := svc.Promote(ctx, "alice", "rust", 0.2)
	if !errors.Is(err, ErrDuplicateKeyword) {
		t.Errorf("expected ErrDuplicateKeyword, got %v", err)
	}
}

func TestBadInput(t *testing.T) {
	svc := newTestService(storagetest.New())
	ctx := context.Background()

	cases := map[string]func() error{
		"promote empty":   func() error { _, err := svc.Promote(ctx, "alice", "  ", 1); return err },
		"promote weight":  func() error { _, err := svc.Promote(ctx, "alice", "go", 1.5); return err },
		"negative weight": func() error { _, err := svc.Promote(ctx, "alice", "go", -0.1); return err },
		"remove empty":    func() error { _, err := svc.RemoveExplicit(ctx, "alice", ""); return err },
		"exclude empty":   func() error { _, err := svc.Exclude(ctx, "alice", ""); return err },
		"unexclude empty": func() error { _, err := svc.Unexclude(ctx, "alice", ""); return err },
		"empty user":      func() error { _, err := svc.Exclude(ctx, "", "go"); return err },
		"bulk empty":      func() error { _, err := svc.UpdateExplicit(ctx, "alice", nil); return err },
		"bulk weight": func() error {
			_, err := svc.UpdateExplicit(ctx, "alice", []WeightUpdate{{Keyword: "go", Weight: 2}})
			return err
		},
	}
	for name, fn := range cases {
		if err := fn(); !errors.Is(err, ErrBadInput) {
			t.Errorf("%s: expected ErrBadInput, got %v", name, err)
		}
	}
}

func TestExcludeIdempotent(t *testing.T) {
	svc := newTestService(storagetest.New())
	ctx := context.Background()

	svc.Exclude(ctx, "alice", "Sports")
	svc.Exclude(ctx, "alice", "sports")
	p, err := svc.Exclude(ctx, "alice", "SPORTS")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.ImplicitExclusions) != 1 || p.ImplicitExclusions[0] != "Sports" {
		t.Errorf("exclusions = %v, want [Sports]", p.ImplicitExclusions)
	}

	p, err = svc.Unexclude(ctx, "alice", "sPoRtS")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.ImplicitExclusions) != 0 {
		t.Errorf("exclusions = %v, want empty", p.ImplicitExclusions)
	}
}

func TestRemoveExplicit(t *testing.T) {
	store := storagetest.New()
	store.RecordQuery(context.Background(), query("q1", "kotlin", testNow))
	svc := newTestService(store)
	ctx := context.Background()

	svc.Promote(ctx, "alice", "Kotlin", 1)
	svc.Promote(ctx, "alice", "swift", 0.4)

	p, err := svc.RemoveExplicit(ctx, "alice", "KOTLIN")
	if err != nil {
		t.Fatal(err)
	}
	if len(p.ExplicitInterests) != 1 || p.ExplicitInterests[0].Keyword != "swift" {
		t.Errorf("explicit = %+v", p.ExplicitInterests)
	}
	if _, ok := p.ImplicitInterests.Get("kotlin"); ok {
		t.Error("removal should not re-admit the keyword before a rebuild")
	}

	p, _ = svc.Rebuild(ctx, "alice")
	if _, ok := p.ImplicitInterests.Get("kotlin"); !ok {
		t.Error("keyword should return as implicit after rebuild")
	}
}

func TestUpdateExplicit(t *testing.T) {
	store := storagetest.New()
	ctx := context.Background()
	seed := storage.NewProfile("alice")
	seed.ImplicitInterests = storage.InterestScores{{Key: "docker", Score: 2}}
	store.UpsertProfile(ctx, seed)

	svc := newTestService(store)
	svc.Promote(ctx, "alice", "Go", 1)

	p, err := svc.UpdateExplicit(ctx, "alice", []WeightUpdate{
		{Keyword: "go", Weight: 0.3},
		{Keyword: "Docker", Weight: 0.8},
	})
	if err != nil {
		t.Fatalf("UpdateExplicit failed: %v", err)
	}

	if len(p.ExplicitInterests) != 2 {
		t.Fatalf("explicit = %+v", p.ExplicitInterests)
	}
	if p.ExplicitInterests[0].Keyword != "Go" || p.ExplicitInterests[0].Weight != 0.3 {
		t.Errorf("existing entry not updated: %+v", p.ExplicitInterests[0])
	}
	if p.ExplicitInterests[1].Keyword != "Docker" || p.ExplicitInterests[1].Weight != 0.8 {
		t.Errorf("new entry not appended: %+v", p.ExplicitInterests[1])
	}
	if _, ok := p.ImplicitInterests.Get("docker"); ok {
		t.Error("new explicit keyword should be purged from implicit")
	}
}
