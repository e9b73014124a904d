package search

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/khanglvm/persona-search/internal/learning"
	"github.com/khanglvm/persona-search/internal/logging"
	"github.com/khanglvm/persona-search/internal/metrics"
	"github.com/khanglvm/persona-search/internal/storage"
)

// ErrEmptyQuery is returned for a blank query.
var ErrEmptyQuery = errors.New("query is required")

// Expander rewrites a query for a user.
type Expander interface {
	Expand(ctx context.Context, seed, userID string) string
}

// QueryTracker records query events.
type QueryTracker interface {
	TrackQuery(e storage.QueryEvent)
}

// ProfileSource loads stored profiles.
type ProfileSource interface {
	GetProfile(ctx context.Context, userID string) (*storage.Profile, error)
}

// Service runs expand, search, fallback, record and rerank for one query.
type Service struct {
	provider Provider
	index    *LocalIndex
	expander Expander
	tracker  QueryTracker
	profiles ProfileSource
	now      func() time.Time
	log      zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a search service. provider, index and expander may be
// nil; the pipeline skips the missing stage.
func NewService(provider Provider, index *LocalIndex, expander Expander, tracker QueryTracker, profiles ProfileSource, opts ...Option) *Service {
	s := &Service{
		provider: provider,
		index:    index,
		expander: expander,
		tracker:  tracker,
		profiles: profiles,
		now:      time.Now,
		log:      logging.Component("search"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search answers q for userID. Provider failures fall back to the local
// index and then to an empty list; only a blank query is an error.
func (s *Service) Search(ctx context.Context, userID, q string) (*Response, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, ErrEmptyQuery
	}
	if strings.TrimSpace(userID) == "" {
		userID = storage.GuestUserID
	}

	expanded := q
	if s.expander != nil {
		if e := s.expander.Expand(ctx, q, userID); e != "" {
			expanded = e
		}
	}

	results, source := s.fetch(ctx, expanded)
	metrics.SearchRequests.WithLabelValues(source).Inc()

	event := learning.NewQueryEvent(userID, q, expanded, s.now())
	if s.tracker != nil {
		s.tracker.TrackQuery(event)
	}

	var p *storage.Profile
	if s.profiles != nil {
		var err error
		if p, err = s.profiles.GetProfile(ctx, userID); err != nil {
			s.log.Warn().Err(err).Str("user_id", userID).Msg("failed to load profile for rerank")
			p = nil
		}
	}

	return &Response{
		QueryID:       event.ID,
		Query:         q,
		ExpandedQuery: expanded,
		Source:        source,
		Results:       Rerank(results, p),
	}, nil
}

func (s *Service) fetch(ctx context.Context, query string) ([]Result, string) {
	if s.provider != nil {
		results, err := s.provider.Search(ctx, query)
		if err == nil {
			if s.index != nil && len(results) > 0 {
				if err := s.index.Add(results); err != nil {
					s.log.Warn().Err(err).Msg("failed to index results")
				}
			}
			return results, SourceProvider
		}
		if !errors.Is(err, ErrProviderNotConfigured) {
			s.log.Warn().Err(err).Str("query", query).Msg("web search failed, using local index")
		}
	}

	if s.index != nil {
		results, err := s.index.Search(ctx, query, 10)
		if err == nil && len(results) > 0 {
			return results, SourceLocal
		}
		if err != nil {
			s.log.Warn().Err(err).Msg("local index search failed")
		}
	}

	return []Result{}, SourceNone
}
