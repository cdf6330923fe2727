package approval

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// ApprovalsTotal counts approval submissions by result.
	ApprovalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fanify_approvals_total",
		Help: "Total approval submissions by result kind",
	}, []string{"result"})

	// VerificationsTotal counts re-verification outcomes.
	VerificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fanify_approval_verifications_total",
		Help: "Total approval re-verification outcomes",
	}, []string{"outcome"})

	// VerificationDuration tracks time from submission to visible allowance.
	VerificationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fanify_approval_verification_duration_seconds",
		Help:    "Time until an approved allowance became visible (seconds)",
		Buckets: []float64{0.5, 1, 2, 3, 5, 8, 13},
	})
)
