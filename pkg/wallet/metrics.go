package wallet

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// CHZBalance tracks the native balance used for gas and staking.
	CHZBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fanify_wallet_chz_balance",
		Help: "Current CHZ balance in wallet (native units)",
	})

	// HypeBalance tracks the HYPE balance available for bets.
	HypeBalance = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fanify_wallet_hype_balance",
		Help: "Current HYPE balance in wallet",
	})

	// FanTokenBalance tracks configured fan token balances.
	FanTokenBalance = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fanify_wallet_fan_token_balance",
		Help: "Current fan token balance in wallet",
	}, []string{"symbol"})

	// UpdateDuration tracks how long balance polls take.
	UpdateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fanify_wallet_update_duration_seconds",
		Help:    "Time taken to fetch wallet balances",
		Buckets: prometheus.DefBuckets,
	})

	// UpdateErrorsTotal counts failed balance polls.
	UpdateErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fanify_wallet_update_errors_total",
		Help: "Total number of failed wallet balance polls",
	})

	// LastUpdateTimestamp records the last successful poll.
	LastUpdateTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fanify_wallet_last_update_timestamp",
		Help: "Unix timestamp of last successful wallet poll",
	})
)
