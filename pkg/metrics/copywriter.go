package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(copyRequestsTotal, copyLatencySeconds, copyCacheTotal)
}

var (
	copyRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "copy_requests_total",
			Help:      "AI copy generations by flow and outcome.",
		},
		[]string{"flow", "outcome"},
	)

	copyLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "copy_latency_seconds",
			Help:      "Latency of AI copy generation calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16},
		},
		[]string{"flow"},
	)

	copyCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ai",
			Name:      "copy_cache_total",
			Help:      "AI copy cache lookups by flow and result (hit, miss).",
		},
		[]string{"flow", "result"},
	)
)

func ObserveCopy(flow, outcome string, latency time.Duration) {
	copyRequestsTotal.WithLabelValues(flow, outcome).Inc()
	copyLatencySeconds.WithLabelValues(flow).Observe(latency.Seconds())
}

func IncCopyCache(flow, result string) {
	copyCacheTotal.WithLabelValues(flow, result).Inc()
}
