package websocket

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrMaxAttempts is returned by Reconnect when MaxAttempts is reached.
var ErrMaxAttempts = errors.New("reconnect attempts exhausted")

// ReconnectConfig holds the configuration for exponential backoff reconnection.
type ReconnectConfig struct {
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
	JitterPercent     float64 // 0.2 = 20%
	// MaxAttempts bounds one Reconnect call. Zero retries until ctx is done.
	MaxAttempts int
}

// ReconnectManager handles exponential backoff reconnection with jitter.
type ReconnectManager struct {
	config         ReconnectConfig
	logger         *zap.Logger
	currentBackoff time.Duration
	mu             sync.Mutex
}

// NewReconnectManager creates a new reconnection manager with the specified config.
func NewReconnectManager(cfg ReconnectConfig, logger *zap.Logger) *ReconnectManager {
	if cfg.BackoffMultiplier < 1 {
		cfg.BackoffMultiplier = 1
	}
	if cfg.MaxDelay < cfg.InitialDelay {
		cfg.MaxDelay = cfg.InitialDelay
	}

	return &ReconnectManager{
		config:         cfg,
		logger:         logger,
		currentBackoff: cfg.InitialDelay,
	}
}

// Reconnect calls connect after each backoff until it succeeds, ctx is
// done or MaxAttempts is reached. Success resets the backoff.
func (rm *ReconnectManager) Reconnect(ctx context.Context, connect func(context.Context) error) error {
	for attempt := 1; ; attempt++ {
		if rm.config.MaxAttempts > 0 && attempt > rm.config.MaxAttempts {
			return ErrMaxAttempts
		}

		backoff := rm.nextBackoff()

		rm.logger.Info("stream-reconnect-waiting",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff))

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		ReconnectAttemptsTotal.Inc()

		err := connect(ctx)
		if err == nil {
			rm.Reset()
			rm.logger.Info("stream-reconnected", zap.Int("attempt", attempt))
			return nil
		}

		rm.logger.Warn("stream-reconnect-failed", zap.Int("attempt", attempt), zap.Error(err))
		ReconnectFailuresTotal.Inc()

		rm.incrementBackoff()
	}
}

// Reset resets the backoff to the initial delay.
func (rm *ReconnectManager) Reset() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.currentBackoff = rm.config.InitialDelay
}

// nextBackoff returns the current backoff duration with jitter applied.
func (rm *ReconnectManager) nextBackoff() time.Duration {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	// backoff * (1.0 + random(0, jitterPercent))
	jitter := rand.Float64() * rm.config.JitterPercent
	return time.Duration(float64(rm.currentBackoff) * (1.0 + jitter))
}

// incrementBackoff grows the backoff by the multiplier, capped at MaxDelay.
func (rm *ReconnectManager) incrementBackoff() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	rm.currentBackoff = min(time.Duration(float64(rm.currentBackoff)*rm.config.BackoffMultiplier), rm.config.MaxDelay)
}
