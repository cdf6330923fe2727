package httpserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Prometheus metrics
var (
	// RequestsTotal counts API requests by route pattern and status code.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fanify_http_requests_total",
			Help: "Total HTTP API requests by route and status",
		},
		[]string{"route", "method", "status"},
	)

	// RequestDuration tracks API latency by route pattern.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fanify_http_request_duration_seconds",
			Help:    "HTTP API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"route", "method"},
	)

	// StreamClientsActive is the number of connected websocket clients.
	StreamClientsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fanify_stream_clients_active",
			Help: "Number of connected flow stream clients",
		},
	)

	// StreamMessagesTotal counts flow views pushed to stream clients.
	StreamMessagesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fanify_stream_messages_total",
			Help: "Total flow views written to stream clients",
		},
	)
)

// instrument records request count and latency per route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		RequestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(ww.Status())).Inc()
		RequestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}
