package circuitbreaker

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/fanify/hype-flow/pkg/wallet"
)

// costWindow is how many recent gas costs feed the threshold.
const costWindow = 20

// BalanceFetcher is an interface for fetching wallet balances.
// Both wallet.Client and test mocks can implement this interface.
type BalanceFetcher interface {
	GetBalances(ctx context.Context, address common.Address) (*wallet.Balances, error)
}

// GasGuard monitors the native CHZ balance and blocks writes when it can no
// longer cover gas. The threshold follows the recent average gas cost and
// uses hysteresis to prevent rapid state changes.
type GasGuard struct {
	enabled atomic.Bool // Atomic for lock-free reads

	// Configuration
	checkInterval   time.Duration
	walletClient    BalanceFetcher
	address         common.Address
	logger          *zap.Logger
	costMultiplier  float64 // Multiplier for avg gas cost
	minBalance      float64 // Absolute minimum CHZ
	hysteresisRatio float64 // Re-enable at ratio * disable threshold

	// Protected by mutex
	mu               sync.RWMutex
	lastBalance      float64   // Last checked balance (CHZ)
	lastCheck        time.Time // When we last checked
	recentCosts      []float64 // Rolling window of gas costs (CHZ)
	disableThreshold float64
	enableThreshold  float64
}

// Config holds gas guard configuration.
type Config struct {
	CheckInterval   time.Duration
	CostMultiplier  float64
	MinBalance      float64
	HysteresisRatio float64
	WalletClient    BalanceFetcher
	Address         common.Address
	Logger          *zap.Logger
}

// Status holds current guard status for debugging and the HTTP API.
type Status struct {
	Enabled          bool      `json:"enabled"`
	LastBalance      float64   `json:"lastBalance"`
	LastCheck        time.Time `json:"lastCheck"`
	DisableThreshold float64   `json:"disableThreshold"`
	EnableThreshold  float64   `json:"enableThreshold"`
	AvgGasCost       float64   `json:"avgGasCost"`
	RecentWriteCount int       `json:"recentWriteCount"`
}

// New creates a new gas guard with the given configuration.
func New(cfg *Config) (guard *GasGuard, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.WalletClient == nil {
		return nil, fmt.Errorf("wallet client cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if cfg.CheckInterval <= 0 {
		return nil, fmt.Errorf("check interval must be positive")
	}
	if cfg.CostMultiplier <= 0 {
		return nil, fmt.Errorf("cost multiplier must be positive")
	}
	if cfg.MinBalance <= 0 {
		return nil, fmt.Errorf("min balance must be positive")
	}
	if cfg.HysteresisRatio < 1.0 {
		return nil, fmt.Errorf("hysteresis ratio must be >= 1.0")
	}

	guard = &GasGuard{
		checkInterval:    cfg.CheckInterval,
		walletClient:     cfg.WalletClient,
		address:          cfg.Address,
		logger:           cfg.Logger,
		costMultiplier:   cfg.CostMultiplier,
		minBalance:       cfg.MinBalance,
		hysteresisRatio:  cfg.HysteresisRatio,
		recentCosts:      make([]float64, 0, costWindow),
		disableThreshold: cfg.MinBalance,
		enableThreshold:  cfg.MinBalance * cfg.HysteresisRatio,
	}

	// Start enabled until the first check says otherwise
	guard.enabled.Store(true)

	GasGuardEnabled.Set(1)
	GasGuardDisableThreshold.Set(guard.disableThreshold)
	GasGuardEnableThreshold.Set(guard.enableThreshold)

	return guard, nil
}

// IsEnabled returns true if writes may be submitted.
// This is lock-free and safe to call from hot paths.
func (g *GasGuard) IsEnabled() (enabled bool) {
	return g.enabled.Load()
}

// RecordGasCost adds the CHZ spent by a settled write to the rolling window
// and recalculates thresholds.
func (g *GasGuard) RecordGasCost(cost float64) {
	if cost <= 0 || math.IsNaN(cost) || math.IsInf(cost, 0) {
		g.logger.Debug("invalid-gas-cost", zap.Float64("cost", cost))
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.recentCosts = append(g.recentCosts, cost)
	if len(g.recentCosts) > costWindow {
		g.recentCosts = g.recentCosts[1:]
	}

	avg := average(g.recentCosts)
	g.disableThreshold = math.Max(avg*g.costMultiplier, g.minBalance)
	g.enableThreshold = g.disableThreshold * g.hysteresisRatio

	GasGuardAvgCost.Set(avg)
	GasGuardDisableThreshold.Set(g.disableThreshold)
	GasGuardEnableThreshold.Set(g.enableThreshold)

	g.logger.Debug("thresholds-updated",
		zap.Float64("avg-gas-cost", avg),
		zap.Int("write-count", len(g.recentCosts)),
		zap.Float64("disable-threshold", g.disableThreshold),
		zap.Float64("enable-threshold", g.enableThreshold))
}

// CheckBalance checks the current balance and updates the enabled state.
func (g *GasGuard) CheckBalance(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		GasGuardCheckDuration.Observe(time.Since(start).Seconds())
	}()

	balances, err := g.walletClient.GetBalances(ctx, g.address)
	if err != nil {
		g.logger.Error("failed-to-check-balance",
			zap.Error(err),
			zap.String("address", g.address.Hex()))
		return fmt.Errorf("get balances: %w", err)
	}

	balance := wallet.ToFloat(balances.Native)

	g.mu.Lock()
	g.lastBalance = balance
	g.lastCheck = time.Now()
	disableThreshold := g.disableThreshold
	enableThreshold := g.enableThreshold
	g.mu.Unlock()

	GasGuardBalance.Set(balance)

	currentlyEnabled := g.enabled.Load()

	// State transition logic with hysteresis
	shouldDisable := currentlyEnabled && balance < disableThreshold
	shouldEnable := !currentlyEnabled && balance >= enableThreshold

	switch {
	case shouldDisable:
		g.enabled.Store(false)
		GasGuardEnabled.Set(0)
		GasGuardStateChanges.Inc()

		g.logger.Warn("gas-guard-disabled",
			zap.Float64("balance", balance),
			zap.Float64("disable-threshold", disableThreshold),
			zap.Float64("enable-threshold", enableThreshold))
	case shouldEnable:
		g.enabled.Store(true)
		GasGuardEnabled.Set(1)
		GasGuardStateChanges.Inc()

		g.logger.Info("gas-guard-enabled",
			zap.Float64("balance", balance),
			zap.Float64("disable-threshold", disableThreshold),
			zap.Float64("enable-threshold", enableThreshold))
	default:
		g.logger.Debug("balance-checked",
			zap.Float64("balance", balance),
			zap.Bool("enabled", currentlyEnabled))
	}

	return nil
}

// Start checks the balance once and then keeps checking in the background
// until ctx is cancelled.
func (g *GasGuard) Start(ctx context.Context) {
	g.logger.Info("gas-guard-started",
		zap.Duration("check-interval", g.checkInterval),
		zap.Float64("cost-multiplier", g.costMultiplier),
		zap.Float64("min-balance", g.minBalance),
		zap.Float64("hysteresis-ratio", g.hysteresisRatio))

	if err := g.CheckBalance(ctx); err != nil {
		g.logger.Error("initial-balance-check-failed", zap.Error(err))
	}

	go g.monitorLoop(ctx)
}

func (g *GasGuard) monitorLoop(ctx context.Context) {
	ticker := time.NewTicker(g.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.logger.Info("gas-guard-stopped")
			return
		case <-ticker.C:
			if err := g.CheckBalance(ctx); err != nil {
				g.logger.Error("balance-check-error", zap.Error(err))
			}
		}
	}
}

// GetStatus returns the current guard status.
func (g *GasGuard) GetStatus() (status Status) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	status = Status{
		Enabled:          g.enabled.Load(),
		LastBalance:      g.lastBalance,
		LastCheck:        g.lastCheck,
		DisableThreshold: g.disableThreshold,
		EnableThreshold:  g.enableThreshold,
		AvgGasCost:       average(g.recentCosts),
		RecentWriteCount: len(g.recentCosts),
	}

	return status
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
