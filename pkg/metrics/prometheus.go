package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	submissions        *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	staleDrops         *prometheus.CounterVec
	accuracy           *prometheus.GaugeVec
	errorsTotal        *prometheus.CounterVec
	latency            *prometheus.HistogramVec
}

// New registers the recorder's collectors on reg; nil means the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		submissions: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finrisk_submissions_total",
				Help: "Accepted user forecast submissions",
			},
			[]string{"symbol"},
		),
		validationFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finrisk_validation_failures_total",
				Help: "Rejected candle saves and submits by failure kind",
			},
			[]string{"kind"},
		),
		staleDrops: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finrisk_stale_results_total",
				Help: "Async results discarded because the session moved on",
			},
			[]string{"source"},
		),
		accuracy: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "finrisk_forecast_mae",
				Help: "Latest mean absolute error per symbol and forecast source",
			},
			[]string{"symbol", "source"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finrisk_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finrisk_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordSubmission(symbol string) {
	r.submissions.WithLabelValues(symbol).Inc()
}

func (r *Recorder) RecordValidationFailure(kind string) {
	r.validationFailures.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordStaleDrop(source string) {
	r.staleDrops.WithLabelValues(source).Inc()
}

func (r *Recorder) RecordAccuracy(symbol, source string, mae float64) {
	r.accuracy.WithLabelValues(symbol, source).Set(mae)
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
