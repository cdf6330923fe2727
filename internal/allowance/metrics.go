package allowance

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// ReadDuration tracks allowance read latency.
	ReadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fanify_allowance_read_duration_seconds",
		Help:    "Allowance read latency (seconds)",
		Buckets: prometheus.DefBuckets,
	})

	// ReadErrorsTotal counts failed allowance reads.
	ReadErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fanify_allowance_read_errors_total",
		Help: "Total failed allowance reads",
	})

	// WatchedKeys tracks how many (owner, spender, token) keys are polled.
	WatchedKeys = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fanify_allowance_watched_keys",
		Help: "Number of allowance keys being polled",
	})
)
