/*
Package breaker wraps sony/gobreaker with logging and Prometheus state tracking.

The expansion client and the web-search client each own one breaker so a
failing upstream is skipped quickly and callers fall back without waiting on
timeouts.
*/
package breaker

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/khanglvm/persona-search/internal/logging"
	"github.com/khanglvm/persona-search/internal/metrics"
)

// Settings configures a breaker. Zero values pick the defaults below.
type Settings struct {
	// Name labels logs and metrics.
	Name string

	// MinRequests is the request count before the failure ratio is considered.
	MinRequests uint32

	// FailureRatio in (0, 1] that opens the circuit.
	FailureRatio float64

	// Interval resets counts while closed.
	Interval time.Duration

	// Timeout is how long the circuit stays open before probing.
	Timeout time.Duration
}

// Breaker guards calls returning T.
type Breaker[T any] struct {
	name string
	cb   *gobreaker.CircuitBreaker[T]
}

// New creates a breaker. Defaults: 5 requests, 60% failures, 1m interval,
// 30s open timeout.
func New[T any](s Settings) *Breaker[T] {
	if s.MinRequests == 0 {
		s.MinRequests = 5
	}
	if s.FailureRatio <= 0 || s.FailureRatio > 1 {
		s.FailureRatio = 0.6
	}
	if s.Interval == 0 {
		s.Interval = time.Minute
	}
	if s.Timeout == 0 {
		s.Timeout = 30 * time.Second
	}

	log := logging.Component("breaker").With().Str("name", s.Name).Logger()
	metrics.CircuitBreakerState.WithLabelValues(s.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < s.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= s.FailureRatio {
				log.Warn().Uint32("failures", counts.TotalFailures).Float64("ratio", ratio).Msg("opening circuit")
				return true
			}
			return false
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Info().Str("from", from.String()).Str("to", to.String()).Msg("circuit state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
		// Caller cancellations do not count against the upstream.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})

	return &Breaker[T]{name: s.Name, cb: cb}
}

// Execute runs fn through the breaker.
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	result, err := b.cb.Execute(fn)
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	case IsOpen(err):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
	case errors.Is(err, context.Canceled):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "canceled").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	}
	return result, err
}

// State returns the current breaker state.
func (b *Breaker[T]) State() gobreaker.State {
	return b.cb.State()
}

// IsOpen reports whether err is a rejection by an open or saturated breaker.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
