package action

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// SubmissionsTotal tracks action submissions by type and outcome.
	SubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanify_action_submissions_total",
			Help: "Total number of bet/stake/unstake submissions",
		},
		[]string{"type", "result"},
	)

	// SubmitDuration tracks write latency per action type.
	SubmitDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fanify_action_submit_duration_seconds",
			Help:    "Duration of action submissions",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)
)
