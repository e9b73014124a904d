/*
Package storagetest provides an in-memory storage.Storage for tests.

Profiles are stored as encoded JSON documents, so callers get the same
copy-on-read and field ordering behavior as the sqlite store. Error fields
inject failures per operation.
*/
package storagetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/khanglvm/persona-search/internal/storage"
)

// Memory is a concurrency-safe in-memory storage.Storage.
type Memory struct {
	mu           sync.Mutex
	queries      []storage.QueryEvent
	interactions []storage.InteractionEvent
	profiles     map[string][]byte
	discarded    map[string]int64

	// QueriesErr fails QueriesForUser for the listed users.
	QueriesErr map[string]error

	// DiscardedErr fails IncrementDiscardedTokens.
	DiscardedErr error

	// UpsertErr fails UpsertProfile.
	UpsertErr error

	// Upserts counts successful UpsertProfile calls.
	Upserts int
}

// New returns an empty store.
func New() *Memory {
	return &Memory{
		profiles:   make(map[string][]byte),
		discarded:  make(map[string]int64),
		QueriesErr: make(map[string]error),
	}
}

var _ storage.Storage = (*Memory)(nil)

func (m *Memory) Init() error  { return nil }
func (m *Memory) Close() error { return nil }

func (m *Memory) RecordQuery(_ context.Context, e storage.QueryEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, e)
	return nil
}

func (m *Memory) RecordInteraction(_ context.Context, e storage.InteractionEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ActionType == "" {
		e.ActionType = storage.ActionClick
	}
	if e.ActionType.IsFeedback() {
		kept := m.interactions[:0]
		for _, old := range m.interactions {
			if old.UserID == e.UserID && old.ClickedURL == e.ClickedURL && old.ActionType.IsFeedback() {
				continue
			}
			kept = append(kept, old)
		}
		m.interactions = kept
	}
	m.interactions = append(m.interactions, e)
	return nil
}

func (m *Memory) QueriesForUser(_ context.Context, userID string) ([]storage.QueryEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.QueriesErr[userID]; err != nil {
		return nil, err
	}
	out := []storage.QueryEvent{}
	for _, e := range m.queries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *Memory) InteractionsForUser(_ context.Context, userID string) ([]storage.InteractionEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []storage.InteractionEvent{}
	for _, e := range m.interactions {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (m *Memory) GetProfile(_ context.Context, userID string) (*storage.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.profiles[userID]
	if !ok {
		return nil, nil
	}
	p := storage.NewProfile(userID)
	if err := json.Unmarshal(doc, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (m *Memory) UpsertProfile(_ context.Context, p *storage.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpsertErr != nil {
		return m.UpsertErr
	}
	doc, err := json.Marshal(p)
	if err != nil {
		return err
	}
	m.profiles[p.UserID] = doc
	m.Upserts++
	return nil
}

// ProfileJSON returns the raw stored document for userID.
func (m *Memory) ProfileJSON(userID string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.profiles[userID]...)
}

func (m *Memory) DistinctUsers(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[string]struct{}{}
	for _, e := range m.queries {
		seen[e.UserID] = struct{}{}
	}
	for _, e := range m.interactions {
		seen[e.UserID] = struct{}{}
	}
	for id := range m.profiles {
		seen[id] = struct{}{}
	}
	users := make([]string, 0, len(seen))
	for id := range seen {
		users = append(users, id)
	}
	sort.Strings(users)
	return users, nil
}

func (m *Memory) IncrementDiscardedTokens(_ context.Context, counts map[string]int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DiscardedErr != nil {
		return m.DiscardedErr
	}
	for tok, n := range counts {
		m.discarded[tok] += int64(n)
	}
	return nil
}

func (m *Memory) TopDiscardedTokens(_ context.Context, limit int) ([]storage.TokenCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]storage.TokenCount, 0, len(m.discarded))
	for tok, n := range m.discarded {
		out = append(out, storage.TokenCount{Token: tok, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Token < out[j].Token
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Cleanup(_ context.Context, retention time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-retention)
	var deleted int64

	keptQ := m.queries[:0]
	for _, e := range m.queries {
		if e.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		keptQ = append(keptQ, e)
	}
	m.queries = keptQ

	keptI := m.interactions[:0]
	for _, e := range m.interactions {
		if e.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		keptI = append(keptI, e)
	}
	m.interactions = keptI

	return deleted, nil
}
