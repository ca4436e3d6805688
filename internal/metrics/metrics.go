// Package metrics holds the Prometheus instrumentation for the forecasting
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the system.
type Metrics struct {
	ForecastsTotal   prometheus.Counter
	ForecastFailures prometheus.Counter
	ForecastSeconds  prometheus.Histogram

	AccuracyEvaluations prometheus.Counter
	BatchRuns           prometheus.Counter
	BatchSKUsByCategory *prometheus.CounterVec

	CorrelationRuns prometheus.Counter

	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	RemoteCalls     prometheus.Counter
	RemoteFallbacks prometheus.Counter
}

// New creates and registers all metrics. Call once per process.
func New() *Metrics {
	return &Metrics{
		ForecastsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dc_forecasts_total",
			Help: "Total number of ensemble forecasts produced",
		}),
		ForecastFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dc_forecast_failures_total",
			Help: "Number of forecast requests where every model failed",
		}),
		ForecastSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "dc_forecast_duration_seconds",
			Help:    "Wall time spent fitting and forecasting one series",
			Buckets: prometheus.DefBuckets,
		}),
		AccuracyEvaluations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dc_accuracy_evaluations_total",
			Help: "Number of single-series accuracy back-tests run",
		}),
		BatchRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dc_batch_runs_total",
			Help: "Number of batch accuracy evaluations run",
		}),
		BatchSKUsByCategory: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dc_batch_skus_total",
				Help: "SKUs evaluated in batch runs, labeled by reliability category",
			},
			[]string{"category"},
		),
		CorrelationRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dc_correlation_runs_total",
			Help: "Number of price/sales correlation analyses run",
		}),
		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dc_model_cache_hits_total",
			Help: "Trained-model cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dc_model_cache_misses_total",
			Help: "Trained-model cache misses",
		}),
		RemoteCalls: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dc_remote_calls_total",
			Help: "Forecast requests dispatched to the remote computation service",
		}),
		RemoteFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "dc_remote_fallbacks_total",
			Help: "Remote forecast calls that fell back to local computation",
		}),
	}
}
