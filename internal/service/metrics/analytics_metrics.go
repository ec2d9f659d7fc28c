package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	AnalyticsLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "finrisk",
			Subsystem: "analytics",
			Name:      "latency_seconds",
			Help:      "Latency of analytics service calls",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	AnalyticsErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finrisk",
			Subsystem: "analytics",
			Name:      "errors_total",
			Help:      "Failed analytics calls by endpoint and cause",
		},
		[]string{"endpoint", "cause"},
	)

	AnalyticsRepairs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "finrisk",
			Subsystem: "analytics",
			Name:      "json_repairs_total",
			Help:      "Responses that needed JSON repair before decoding",
		},
		[]string{"endpoint"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(AnalyticsLatency, AnalyticsErrors, AnalyticsRepairs)
	})
}
