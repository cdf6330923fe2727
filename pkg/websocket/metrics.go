package websocket

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// ActiveConnections tracks the stream client connection.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fanify_stream_client_active_connections",
		Help: "Number of active flow stream client connections",
	})

	// ReconnectAttemptsTotal tracks reconnection attempts.
	ReconnectAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fanify_stream_client_reconnect_attempts_total",
		Help: "Total number of stream reconnection attempts",
	})

	// ReconnectFailuresTotal tracks reconnection failures.
	ReconnectFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fanify_stream_client_reconnect_failures_total",
		Help: "Total number of stream reconnection failures",
	})

	// MessagesReceivedTotal tracks views received.
	MessagesReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fanify_stream_client_messages_received_total",
		Help: "Total number of flow views received",
	})

	// MessagesDroppedTotal tracks views dropped because the consumer lagged.
	MessagesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fanify_stream_client_messages_dropped_total",
		Help: "Total number of flow views dropped due to a full buffer",
	})

	// ConnectionDuration tracks connection lifetime.
	ConnectionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fanify_stream_client_connection_duration_seconds",
		Help:    "Duration of stream connections before disconnect",
		Buckets: []float64{1, 10, 60, 300, 600, 1800, 3600, 14400, 43200, 86400},
	})
)
