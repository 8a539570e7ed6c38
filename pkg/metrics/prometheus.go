package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	recommendations   *prometheus.CounterVec
	edgeCases         *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	trainingRuns      *prometheus.CounterVec
	modelRMSE         *prometheus.GaugeVec
	analyticsFailures *prometheus.CounterVec
	latency           *prometheus.HistogramVec
}

// New creates a recorder registered on reg; nil means the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		recommendations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loadcoach_recommendations_total",
				Help: "Recommendations generated, by source (model, fallback, cache)",
			},
			[]string{"source"},
		),
		edgeCases: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loadcoach_edge_cases_total",
				Help: "Recommendations served by an edge-case policy",
			},
			[]string{"edge_case"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loadcoach_cache_lookups_total",
				Help: "Recommendation cache lookups by result",
			},
			[]string{"result"},
		),
		trainingRuns: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loadcoach_training_runs_total",
				Help: "Model training runs by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		modelRMSE: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "loadcoach_model_rmse",
				Help: "Held-out RMSE of the most recently trained model",
			},
			[]string{"kind"},
		),
		analyticsFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "loadcoach_analytics_failures_total",
				Help: "Analytics records that could not be written",
			},
			[]string{"backend"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "loadcoach_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordRecommendation(source string) {
	r.recommendations.WithLabelValues(source).Inc()
}

func (r *Recorder) RecordEdgeCase(edgeCase string) {
	r.edgeCases.WithLabelValues(edgeCase).Inc()
}

// RecordCacheLookup counts a hit or a miss.
func (r *Recorder) RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheLookups.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordTraining(kind, outcome string) {
	r.trainingRuns.WithLabelValues(kind, outcome).Inc()
}

func (r *Recorder) RecordModelRMSE(kind string, rmse float64) {
	r.modelRMSE.WithLabelValues(kind).Set(rmse)
}

func (r *Recorder) RecordAnalyticsFailure(backend string) {
	r.analyticsFailures.WithLabelValues(backend).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
