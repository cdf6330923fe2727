package flow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// TransitionsTotal counts step transitions.
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanify_flow_transitions_total",
			Help: "Total flow step transitions",
		},
		[]string{"kind", "from", "to"},
	)

	// ResetsTotal counts resets to the select step.
	ResetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanify_flow_resets_total",
			Help: "Total flow resets by reason",
		},
		[]string{"kind", "reason"},
	)

	// DiscardedResultsTotal counts async results dropped after a reset.
	DiscardedResultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanify_flow_discarded_results_total",
			Help: "Async results discarded because the flow was reset",
		},
		[]string{"kind", "op"},
	)
)
