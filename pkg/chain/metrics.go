package chain

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// CallDuration tracks contract read latency per method.
	CallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fanify_chain_call_duration_seconds",
		Help:    "Contract read latency (seconds)",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	// CallErrorsTotal counts failed contract reads per method.
	CallErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fanify_chain_call_errors_total",
		Help: "Total failed contract reads",
	}, []string{"method"})

	// WriteDuration tracks build-sign-send latency per operation.
	WriteDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fanify_chain_write_duration_seconds",
		Help:    "Transaction submission latency (seconds)",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	// WritesTotal counts submissions by operation and outcome kind.
	WritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fanify_chain_writes_total",
		Help: "Total transaction submissions by op and result kind",
	}, []string{"op", "kind"})
)

func observeCall(method string, start time.Time, err error) {
	CallDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		CallErrorsTotal.WithLabelValues(method).Inc()
	}
}

func observeWrite(op string, start time.Time, err error) {
	WriteDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	kind := "success"
	if err != nil {
		kind = string(Classify(err))
	}
	WritesTotal.WithLabelValues(op, kind).Inc()
}
