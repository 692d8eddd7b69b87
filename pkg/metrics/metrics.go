// Package metrics provides Prometheus metrics for the prediction pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// PipelineMetrics collects and exposes pipeline-related Prometheus metrics.
type PipelineMetrics struct {
	registry *prometheus.Registry

	// Prediction metrics
	PredictionsTotal  *prometheus.CounterVec
	PredictionMargin  *prometheus.HistogramVec
	PredictionErrors  *prometheus.CounterVec
	PredictionLatency *prometheus.HistogramVec

	// Recommendation metrics
	RecommendationsTotal *prometheus.CounterVec
	SignalEdge           *prometheus.HistogramVec
	StakeFraction        *prometheus.HistogramVec
	StakeAmount          *prometheus.CounterVec

	// Data metrics
	PlaysLoaded     *prometheus.GaugeVec
	SentinelProfile *prometheus.CounterVec

	// Card metrics
	CardRuns     *prometheus.CounterVec
	CardDuration *prometheus.HistogramVec
}

// NewPipelineMetrics creates a pipeline metrics collector with its own
// registry so tests and multiple instances never collide.
func NewPipelineMetrics() *PipelineMetrics {
	registry := prometheus.NewRegistry()

	pm := &PipelineMetrics{
		registry: registry,

		PredictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridiron_predictions_total",
				Help: "Total number of predictions produced",
			},
			[]string{"confidence"},
		),
		PredictionMargin: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gridiron_prediction_margin_points",
				Help:    "Absolute predicted margin in points",
				Buckets: []float64{0, 1, 2, 3, 4, 6, 7, 10, 14, 21},
			},
			[]string{},
		),
		PredictionErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridiron_prediction_errors_total",
				Help: "Total number of failed predictions",
			},
			[]string{"stage"},
		),
		PredictionLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gridiron_prediction_latency_seconds",
				Help:    "Single-matchup prediction latency",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
			[]string{},
		),

		RecommendationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridiron_recommendations_total",
				Help: "Total number of betting recommendations",
			},
			[]string{"tier", "side"},
		),
		SignalEdge: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gridiron_signal_edge_points",
				Help:    "Recommendation edge in points",
				Buckets: []float64{0, 0.5, 1, 1.5, 2, 2.5, 3, 4, 5, 7, 10},
			},
			[]string{"tier"},
		),
		StakeFraction: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gridiron_stake_fraction",
				Help:    "Recommended stake as a fraction of bankroll",
				Buckets: prometheus.LinearBuckets(0, 0.005, 11),
			},
			[]string{},
		),
		StakeAmount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridiron_stake_amount_usd",
				Help: "Total recommended stake in USD",
			},
			[]string{"tier"},
		),

		PlaysLoaded: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "gridiron_plays_loaded",
				Help: "Number of plays in the loaded dataset",
			},
			[]string{"season"},
		),
		SentinelProfile: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridiron_sentinel_profiles_total",
				Help: "Total insufficient-data profiles emitted",
			},
			[]string{"team"},
		),

		CardRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gridiron_card_runs_total",
				Help: "Total betting-card builds",
			},
			[]string{"status"},
		),
		CardDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gridiron_card_duration_seconds",
				Help:    "Full betting-card build duration",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
			},
			[]string{},
		),
	}

	pm.registerAll()

	return pm
}

func (pm *PipelineMetrics) registerAll() {
	pm.registry.MustRegister(
		pm.PredictionsTotal,
		pm.PredictionMargin,
		pm.PredictionErrors,
		pm.PredictionLatency,
		pm.RecommendationsTotal,
		pm.SignalEdge,
		pm.StakeFraction,
		pm.StakeAmount,
		pm.PlaysLoaded,
		pm.SentinelProfile,
		pm.CardRuns,
		pm.CardDuration,
	)
}

// Registry returns the prometheus registry.
func (pm *PipelineMetrics) Registry() *prometheus.Registry {
	return pm.registry
}

// RecordPrediction records a completed prediction.
func (pm *PipelineMetrics) RecordPrediction(confidence string, margin float64) {
	pm.PredictionsTotal.WithLabelValues(confidence).Inc()
	if margin < 0 {
		margin = -margin
	}
	pm.PredictionMargin.WithLabelValues().Observe(margin)
}

// RecordRecommendation records a sized recommendation.
func (pm *PipelineMetrics) RecordRecommendation(tier, side string, edge, stakeFraction float64, stake decimal.Decimal) {
	pm.RecommendationsTotal.WithLabelValues(tier, side).Inc()
	pm.SignalEdge.WithLabelValues(tier).Observe(edge)
	pm.StakeFraction.WithLabelValues().Observe(stakeFraction)
	f, _ := stake.Float64()
	if f > 0 {
		pm.StakeAmount.WithLabelValues(tier).Add(f)
	}
}

// RecordError records a failed pipeline stage for one matchup.
func (pm *PipelineMetrics) RecordError(stage string) {
	pm.PredictionErrors.WithLabelValues(stage).Inc()
}
