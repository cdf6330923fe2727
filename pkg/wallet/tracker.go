package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fanify/hype-flow/pkg/types"
)

// nativeDecimals is the precision of CHZ.
const nativeDecimals = 18

// Snapshot is the last known set of balances in token units.
type Snapshot struct {
	Address   string                     `json:"address"`
	CHZ       decimal.Decimal            `json:"chz"`
	Hype      decimal.Decimal            `json:"hype"`
	Tokens    map[string]decimal.Decimal `json:"tokens"`
	UpdatedAt time.Time                  `json:"updatedAt"`
}

// Tracker keeps the bound account's balances fresh. It polls on an interval
// and immediately after Kick, which the app calls once a write is mined.
type Tracker struct {
	client       *Client
	address      common.Address
	decimals     int32
	pollInterval time.Duration
	logger       *zap.Logger
	kick         chan struct{}

	mu   sync.RWMutex
	last *Snapshot
}

// Config holds tracker configuration.
type Config struct {
	Client  *Client
	Address common.Address
	// Decimals of HYPE and the fan tokens; CHZ always has 18.
	Decimals     int32
	PollInterval time.Duration
	Logger       *zap.Logger
}

// New creates a new wallet tracker.
func New(cfg *Config) (t *Tracker, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Client == nil {
		return nil, errors.New("client cannot be nil")
	}

	if cfg.PollInterval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}

	decimals := cfg.Decimals
	if decimals <= 0 {
		decimals = nativeDecimals
	}

	return &Tracker{
		client:       cfg.Client,
		address:      cfg.Address,
		decimals:     decimals,
		pollInterval: cfg.PollInterval,
		logger:       cfg.Logger,
		kick:         make(chan struct{}, 1),
	}, nil
}

// Run polls until ctx is cancelled (blocking).
func (t *Tracker) Run(ctx context.Context) (err error) {
	t.logger.Info("wallet-tracker-starting",
		zap.Duration("poll-interval", t.pollInterval),
		zap.String("address", t.address.Hex()))

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	t.pollAndLog(ctx)

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("wallet-tracker-stopping")
			return ctx.Err()
		case <-ticker.C:
			t.pollAndLog(ctx)
		case <-t.kick:
			t.pollAndLog(ctx)
		}
	}
}

// Kick requests an immediate refresh. Requests made while one is pending
// are merged.
func (t *Tracker) Kick() {
	select {
	case t.kick <- struct{}{}:
	default:
	}
}

// Snapshot returns the latest balances. ok is false before the first
// successful poll.
func (t *Tracker) Snapshot() (snap Snapshot, ok bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.last == nil {
		return Snapshot{}, false
	}

	snap = *t.last
	snap.Tokens = make(map[string]decimal.Decimal, len(t.last.Tokens))
	for symbol, amount := range t.last.Tokens {
		snap.Tokens[symbol] = amount
	}
	return snap, true
}

func (t *Tracker) pollAndLog(ctx context.Context) {
	err := t.poll(ctx)
	if err != nil {
		t.logger.Warn("wallet-poll-failed", zap.Error(err))
		UpdateErrorsTotal.Inc()
	}
}

// poll fetches balances once. A failure leaves the previous snapshot.
func (t *Tracker) poll(ctx context.Context) (err error) {
	start := time.Now()
	defer func() {
		UpdateDuration.Observe(time.Since(start).Seconds())
	}()

	balCtx, balCancel := context.WithTimeout(ctx, 15*time.Second)
	defer balCancel()

	balances, err := t.client.GetBalances(balCtx, t.address)
	if err != nil {
		return fmt.Errorf("get balances: %w", err)
	}

	snap := &Snapshot{
		Address:   t.address.Hex(),
		CHZ:       types.FromUnits(balances.Native, nativeDecimals),
		Hype:      types.FromUnits(balances.Hype, t.decimals),
		Tokens:    make(map[string]decimal.Decimal, len(balances.Tokens)),
		UpdatedAt: time.Now(),
	}
	for symbol, units := range balances.Tokens {
		snap.Tokens[symbol] = types.FromUnits(units, t.decimals)
	}

	t.mu.Lock()
	t.last = snap
	t.mu.Unlock()

	CHZBalance.Set(snap.CHZ.InexactFloat64())
	HypeBalance.Set(snap.Hype.InexactFloat64())
	for symbol, amount := range snap.Tokens {
		FanTokenBalance.WithLabelValues(symbol).Set(amount.InexactFloat64())
	}
	LastUpdateTimestamp.Set(float64(snap.UpdatedAt.Unix()))

	t.logger.Debug("wallet-poll-complete",
		zap.String("chz", snap.CHZ.String()),
		zap.String("hype", snap.Hype.String()),
		zap.Int("fan-token-count", len(snap.Tokens)),
		zap.Duration("duration", time.Since(start)))

	return nil
}

// ToFloat converts native CHZ base units to a float for gas accounting.
func ToFloat(units *big.Int) float64 {
	if units == nil {
		return 0
	}
	return types.FromUnits(units, nativeDecimals).InexactFloat64()
}
