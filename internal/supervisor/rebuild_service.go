package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/khanglvm/persona-search/internal/logging"
	"github.com/khanglvm/persona-search/internal/metrics"
	"github.com/khanglvm/persona-search/internal/storage"
)

// Rebuilder rebuilds one user's profile.
type Rebuilder interface {
	Rebuild(ctx context.Context, userID string) (*storage.Profile, error)
}

// UserLister lists every known user id.
type UserLister interface {
	DistinctUsers(ctx context.Context) ([]string, error)
}

// CycleStats summarizes one pass over all users.
type CycleStats struct {
	Users    int
	Rebuilt  int
	Failed   int
	Duration time.Duration
}

// RebuildService rebuilds every user's profile on a fixed interval.
type RebuildService struct {
	profiles Rebuilder
	users    UserLister
	interval time.Duration
	enabled  bool
	log      zerolog.Logger
}

// NewRebuildService creates the scheduler. A disabled service stops itself
// without being restarted.
func NewRebuildService(profiles Rebuilder, users UserLister, interval time.Duration, enabled bool) *RebuildService {
	if interval <= 0 {
		interval = 3 * time.Minute
	}
	return &RebuildService{
		profiles: profiles,
		users:    users,
		interval: interval,
		enabled:  enabled,
		log:      logging.Component("rebuild"),
	}
}

// Serve runs a cycle immediately and then once per interval until ctx is done.
func (s *RebuildService) Serve(ctx context.Context) error {
	if !s.enabled {
		s.log.Info().Msg("profile rebuild disabled")
		return suture.ErrDoNotRestart
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		stats, err := s.RunCycle(ctx)
		if err != nil && ctx.Err() == nil {
			s.log.Error().Err(err).Msg("rebuild cycle failed")
		} else if err == nil {
			s.log.Info().
				Int("users", stats.Users).
				Int("rebuilt", stats.Rebuilt).
				Int("failed", stats.Failed).
				Dur("duration", stats.Duration).
				Msg("rebuild cycle complete")
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunCycle rebuilds every known user once. A failing user is logged and
// counted; the cycle goes on. Cancellation is checked between users.
func (s *RebuildService) RunCycle(ctx context.Context) (stats CycleStats, err error) {
	start := time.Now()
	defer func() {
		stats.Duration = time.Since(start)
		metrics.RebuildCycleDuration.Observe(stats.Duration.Seconds())
	}()

	users, err := s.users.DistinctUsers(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list users: %w", err)
	}
	stats.Users = len(users)

	for _, userID := range users {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		_, rerr := s.profiles.Rebuild(ctx, userID)
		metrics.RecordRebuild(rerr)
		if rerr != nil {
			stats.Failed++
			s.log.Warn().Err(rerr).Str("user_id", userID).Msg("profile rebuild failed")
			continue
		}
		stats.Rebuilt++
	}

	return stats, nil
}

func (s *RebuildService) String() string {
	return "profile-rebuild"
}
