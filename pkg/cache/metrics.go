package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	HitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fanify_snapshot_cache_hits_total",
		Help: "Total snapshot cache hits by kind",
	}, []string{"kind"})

	MissesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fanify_snapshot_cache_misses_total",
		Help: "Total snapshot cache misses by kind",
	}, []string{"kind"})

	SetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fanify_snapshot_cache_sets_total",
		Help: "Total snapshot cache writes by kind",
	}, []string{"kind"})
)
