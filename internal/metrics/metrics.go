// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReducerActions counts applied reducer actions by type.
	ReducerActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outliner_reducer_actions_total",
		Help: "Reducer actions applied, by action type",
	}, []string{"type"})

	// GenerationsTotal counts finished generations by provider and result (success, error, rejected).
	GenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outliner_generations_total",
		Help: "Child generations by provider and result",
	}, []string{"provider", "result"})

	// GenerationDuration tracks time from request to stream completion.
	GenerationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outliner_generation_duration_seconds",
		Help:    "Generation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
	}, []string{"provider"})

	// GenerationsInFlight is the number of generations currently streaming.
	GenerationsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "outliner_generations_in_flight",
		Help: "Generations currently streaming",
	})

	// NodesMerged tracks how many nodes a single generation merged into the tree.
	NodesMerged = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "outliner_generation_nodes_merged",
		Help:    "Nodes merged per generation",
		Buckets: []float64{0, 1, 2, 4, 6, 8, 12, 20},
	})

	// ActiveSessions is the number of live outline sessions.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "outliner_sessions_active",
		Help: "Live outline sessions",
	})

	// TransportRateLimited counts requests delayed by the per-provider rate limiter.
	TransportRateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outliner_transport_rate_limited_total",
		Help: "Transport requests that waited on the rate limiter",
	}, []string{"provider"})
)
