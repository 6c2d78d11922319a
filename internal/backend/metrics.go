package backend

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_upstream_requests_total",
			Help: "Total number of calls made to the billing/usage backend.",
		},
		[]string{"op", "outcome"},
	)
	upstreamDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_upstream_duration_seconds",
			Help:    "Backend call latency in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

// outcome is the HTTP status code, or "error" when no response arrived.
func observeUpstream(op, outcome string, dur time.Duration) {
	upstreamRequestsTotal.WithLabelValues(op, outcome).Inc()
	upstreamDurationSeconds.WithLabelValues(op).Observe(dur.Seconds())
}
