package engine

import "github.com/prometheus/client_golang/prometheus"

var (
	engineLoadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "depthd",
			Subsystem: "engine",
			Name:      "loads_total",
			Help:      "Total number of model instance loads",
		},
	)

	engineEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "depthd",
			Subsystem: "engine",
			Name:      "evictions_total",
			Help:      "Total number of instances evicted to fit the memory budget",
		},
	)

	engineInferenceSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "depthd",
			Subsystem: "engine",
			Name:      "inference_duration_seconds",
			Help:      "Duration of successful forward passes in seconds",
			Buckets:   prometheus.DefBuckets,
		},
	)

	engineInferenceFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "depthd",
			Subsystem: "engine",
			Name:      "inference_failures_total",
			Help:      "Total number of failed forward passes",
		},
	)
)

func init() {
	prometheus.MustRegister(engineLoadsTotal, engineEvictionsTotal, engineInferenceSeconds, engineInferenceFailures)
}
