package eventdata

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// ReadsTotal counts odds/hype/match reads by outcome.
	ReadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fanify_event_reads_total",
		Help: "Total event data reads by kind and result",
	}, []string{"kind", "result"})

	// PollDuration tracks how long one poll cycle takes.
	PollDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fanify_event_poll_duration_seconds",
		Help:    "Duration of one event data poll cycle (seconds)",
		Buckets: prometheus.DefBuckets,
	})

	// MatchStarted is 1 once the bound match has kicked off.
	MatchStarted = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fanify_event_match_started",
		Help: "Whether the bound match has started (1) or not (0)",
	})
)
