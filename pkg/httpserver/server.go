package httpserver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fanify/hype-flow/internal/flow"
	"github.com/fanify/hype-flow/pkg/healthprobe"
)

// Server provides the flow API, the view stream, metrics and health checks.
type Server struct {
	server        *http.Server
	logger        *zap.Logger
	healthChecker *healthprobe.HealthChecker
	cancel        context.CancelFunc
}

// Config holds server configuration. Every API dependency is optional;
// routes whose dependency is nil are not mounted.
type Config struct {
	Port          string
	Logger        *zap.Logger
	HealthChecker *healthprobe.HealthChecker
	Flows         map[flow.Kind]FlowController
	Events        EventSource
	Staking       Unstaker
	History       HistoryLister
	GasGuard      GuardStatus
	Wallet        WalletSource
	// StreamPingInterval defaults to 54s.
	StreamPingInterval time.Duration
}

// New creates a new HTTP server.
func New(cfg *Config) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(instrument)

	// Routes
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Get("/health", cfg.HealthChecker.Health())
	r.Get("/ready", cfg.HealthChecker.Ready())

	var flows *FlowHandler
	if len(cfg.Flows) > 0 {
		flows = NewFlowHandler(cfg.Flows, cfg.Events, cfg.Logger)

		// Streams are long-lived and stay outside the request timeout.
		stream := NewStreamHandler(ctx, flows, cfg.StreamPingInterval, cfg.Logger)
		r.Get("/ws/flows/{kind}", stream.HandleStream)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		if flows != nil {
			flows.Routes(r)
		}

		if cfg.Events != nil {
			events := NewEventHandler(cfg.Events, cfg.Logger)
			r.Get("/api/events/{eventID}/{field}", events.HandleEvent)
		}

		account := NewAccountHandler(cfg)
		if cfg.Staking != nil {
			r.Post("/api/staking/unstake", account.HandleUnstake)
		}
		if cfg.History != nil {
			r.Get("/api/history", account.HandleHistory)
		}
		if cfg.GasGuard != nil {
			r.Get("/api/gas-guard", account.HandleGasGuard)
		}
		if cfg.Wallet != nil {
			r.Get("/api/wallet", account.HandleWallet)
		}
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return &Server{
		server:        server,
		logger:        cfg.Logger,
		healthChecker: cfg.HealthChecker,
		cancel:        cancel,
	}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
// This is a blocking call that returns when the server stops or encounters an error.
func (s *Server) Start() error {
	s.logger.Info("http-server-starting", zap.String("addr", s.server.Addr))

	err := s.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("listen and serve: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server and ends open streams.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http-server-shutting-down")

	s.cancel()
	err := s.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("http-server-shutdown-complete")
	return nil
}
