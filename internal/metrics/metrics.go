/*
Package metrics registers the Prometheus collectors exported on /metrics.

Collectors are package globals registered with promauto at init, so any
package can record without plumbing a registry through constructors.

Rebuild metrics:
  - persona_rebuild_total{outcome}: per-user rebuilds (success, failure)
  - persona_rebuild_cycle_duration_seconds: scheduled cycle wall time

Expansion metrics:
  - persona_expansion_cache_total{result}: cache lookups (hit, miss)
  - persona_expansion_fallback_total{reason}: seed fallbacks (error, empty)

Search metrics:
  - persona_search_requests_total{source}: result source (provider, local, none)

Circuit breaker metrics:
  - persona_circuit_breaker_state{name}: 0=closed, 1=half-open, 2=open
  - persona_circuit_breaker_requests_total{name,result}
*/
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RebuildTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persona_rebuild_total",
			Help: "Total number of profile rebuilds by outcome",
		},
		[]string{"outcome"},
	)

	RebuildCycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "persona_rebuild_cycle_duration_seconds",
			Help:    "Duration of a scheduled rebuild cycle over all users",
			Buckets: []float64{.01, .05, .1, .5, 1, 5, 10, 30, 60},
		},
	)

	ExpansionCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persona_expansion_cache_total",
			Help: "Expansion cache lookups by result",
		},
		[]string{"result"},
	)

	ExpansionFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persona_expansion_fallback_total",
			Help: "Expansions that fell back to the seed text",
		},
		[]string{"reason"},
	)

	SearchRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persona_search_requests_total",
			Help: "Search requests by result source",
		},
		[]string{"source"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "persona_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persona_circuit_breaker_requests_total",
			Help: "Requests through a circuit breaker by result",
		},
		[]string{"name", "result"},
	)
)

// RecordRebuild counts one per-user rebuild.
func RecordRebuild(err error) {
	if err != nil {
		RebuildTotal.WithLabelValues("failure").Inc()
		return
	}
	RebuildTotal.WithLabelValues("success").Inc()
}

// RecordCacheLookup counts an expansion cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		ExpansionCache.WithLabelValues("hit").Inc()
		return
	}
	ExpansionCache.WithLabelValues("miss").Inc()
}
