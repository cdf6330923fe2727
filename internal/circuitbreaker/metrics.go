package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// GasGuardEnabled indicates whether writes are allowed.
	GasGuardEnabled = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fanify_gas_guard_enabled",
		Help: "Whether the gas guard allows writes (1=enabled, 0=disabled)",
	})

	// GasGuardBalance tracks the last checked CHZ balance.
	GasGuardBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fanify_gas_guard_balance_chz",
		Help: "Last checked CHZ balance in the wallet",
	})

	// GasGuardDisableThreshold tracks the balance below which writes stop.
	GasGuardDisableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fanify_gas_guard_disable_threshold_chz",
		Help: "CHZ balance threshold for disabling writes",
	})

	// GasGuardEnableThreshold tracks the balance at which writes resume.
	GasGuardEnableThreshold = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fanify_gas_guard_enable_threshold_chz",
		Help: "CHZ balance threshold for re-enabling writes (with hysteresis)",
	})

	// GasGuardAvgCost tracks the rolling average gas cost per write.
	GasGuardAvgCost = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fanify_gas_guard_avg_cost_chz",
		Help: "Rolling average gas cost of recent writes (CHZ)",
	})

	// GasGuardStateChanges counts enable/disable transitions.
	GasGuardStateChanges = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fanify_gas_guard_state_changes_total",
		Help: "Total number of gas guard state changes",
	})

	// GasGuardCheckDuration tracks the time taken to check balance.
	GasGuardCheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fanify_gas_guard_check_duration_seconds",
		Help:    "Time taken to check wallet balance",
		Buckets: prometheus.DefBuckets,
	})
)
