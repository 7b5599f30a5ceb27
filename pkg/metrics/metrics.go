// Package metrics exposes Prometheus metrics for the staking engine.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// EngineMetrics collects the engine's Prometheus metrics on a private
// registry.
type EngineMetrics struct {
	registry *prometheus.Registry

	// Import metrics
	PredictionsImported *prometheus.CounterVec
	QuotesImported      prometheus.Counter
	ImportErrors        *prometheus.CounterVec

	// Matching metrics
	MatchesTotal  *prometheus.CounterVec // result: matched / unmatched
	EdgeEvaluated prometheus.Histogram   // edge pct distribution

	// Execution metrics
	BetsTotal    *prometheus.CounterVec // status: submitted / skipped / errored / deferred
	StakeCents   prometheus.Histogram
	VenueLatency prometheus.Histogram
	RunDuration  prometheus.Histogram

	// Backtest metrics
	BacktestRuns prometheus.Counter
}

// New creates the metrics collectors.
func New() *EngineMetrics {
	registry := prometheus.NewRegistry()

	m := &EngineMetrics{
		registry: registry,

		PredictionsImported: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "staker_predictions_imported_total",
				Help: "Predictions pulled from the upstream model",
			},
			[]string{"result"}, // inserted, duplicate
		),
		QuotesImported: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "staker_quotes_imported_total",
				Help: "Market quote snapshots persisted",
			},
		),
		ImportErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "staker_import_errors_total",
				Help: "Errors during import, by source",
			},
			[]string{"source"},
		),

		MatchesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "staker_matches_total",
				Help: "Prediction-to-market match attempts",
			},
			[]string{"result"},
		),
		EdgeEvaluated: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "staker_edge_pct",
				Help:    "Evaluated edge in percentage points",
				Buckets: []float64{-10, -5, -2, 0, 2, 3, 5, 8, 12, 20},
			},
		),

		BetsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "staker_bets_total",
				Help: "Batch execution outcomes",
			},
			[]string{"status"},
		),
		StakeCents: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "staker_stake_cents",
				Help:    "Submitted stake sizes in cents",
				Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000},
			},
		),
		VenueLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "staker_venue_latency_seconds",
				Help:    "Venue order submission latency",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "staker_run_duration_seconds",
				Help:    "End-to-end duration of one scheduled run",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
		),

		BacktestRuns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "staker_backtest_runs_total",
				Help: "Backtest sweeps executed",
			},
		),
	}

	registry.MustRegister(
		m.PredictionsImported,
		m.QuotesImported,
		m.ImportErrors,
		m.MatchesTotal,
		m.EdgeEvaluated,
		m.BetsTotal,
		m.StakeCents,
		m.VenueLatency,
		m.RunDuration,
		m.BacktestRuns,
	)

	return m
}

// Handler returns the HTTP handler serving the private registry.
func (m *EngineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
