package history

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	RecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fanify_history_records_total",
		Help: "Total transactions recorded by type",
	}, []string{"type"})

	StatusUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fanify_history_status_updates_total",
		Help: "Total transaction status changes by new status",
	}, []string{"status"})

	PublishErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fanify_history_publish_errors_total",
		Help: "Total failed history event publishes",
	})
)
