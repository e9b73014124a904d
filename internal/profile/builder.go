package profile

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/khanglvm/persona-search/internal/logging"
	"github.com/khanglvm/persona-search/internal/storage"
)

// Service rebuilds profiles and edits explicit interests and exclusions.
type Service struct {
	store  storage.Storage
	params Params
	now    func() time.Time
	locks  *keyedMutex
	log    zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger replaces the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService creates a profile service over store.
func NewService(store storage.Storage, params Params, opts ...Option) *Service {
	s := &Service{
		store:  store,
		params: params,
		now:    time.Now,
		locks:  newKeyedMutex(),
		log:    logging.Component("profile"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the stored profile or ErrProfileNotFound.
func (s *Service) Get(ctx context.Context, userID string) (*storage.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrBadInput)
	}
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, userID)
	}
	return p, nil
}

// Rebuild recomputes userID's implicit interests from the full event history,
// carries explicit interests and exclusions over from the stored profile and
// overwrites the stored document.
func (s *Service) Rebuild(ctx context.Context, userID string) (*storage.Profile, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrBadInput)
	}

	unlock := s.locks.Lock(userID)
	defer unlock()

	queries, err := s.store.QueriesForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load queries for %s: %w", userID, err)
	}
	clicks, err := s.store.InteractionsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load interactions for %s: %w", userID, err)
	}
	existing, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile for %s: %w", userID, err)
	}

	now := s.now()
	discards := DiscardCounter{}
	tokenScores, tokens := AggregateQueries(queries, now, s.params, discards)
	clickScores, domains := AggregateClicks(clicks, now, s.params)

	p := storage.NewProfile(userID)
	if existing != nil {
		p.ExplicitInterests = existing.ExplicitInterests
		p.ImplicitExclusions = existing.ImplicitExclusions
	}
	p.ImplicitInterests = s.merge(tokenScores, clickScores, p)
	p.QueryHistory = tokens
	p.ClickHistory = domains
	p.LastUpdated = now

	if err := s.store.UpsertProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to save profile for %s: %w", userID, err)
	}

	if err := s.store.IncrementDiscardedTokens(ctx, discards); err != nil {
		s.log.Warn().Err(err).Str("user_id", userID).Msg("failed to record discarded tokens")
	}

	s.log.Debug().
		Str("user_id", userID).
		Int("queries", len(queries)).
		Int("interactions", len(clicks)).
		Int("implicit", len(p.ImplicitInterests)).
		Msg("profile rebuilt")

	return p, nil
}

// merge combines the weighted token and click scores and drops keys that
// match an exclusion or an explicit keyword.
func (s *Service) merge(tokens, clicks map[string]float64, p *storage.Profile) storage.InterestScores {
	blocked := NewKeywordSet(p.ImplicitExclusions...)
	for _, e := range p.ExplicitInterests {
		blocked.Add(e.Keyword)
	}

	combined := make(map[string]float64, len(tokens)+len(clicks))
	for k, v := range tokens {
		combined[k] += v * s.params.QueryWeight
	}
	for k, v := range clicks {
		combined[k] += v * s.params.ClickWeight
	}

	out := make(storage.InterestScores, 0, len(combined))
	for k, v := range combined {
		if blocked.Has(k) {
			continue
		}
		out = append(out, storage.InterestScore{Key: k, Score: v})
	}
	storage.SortScores(out)
	return out
}
