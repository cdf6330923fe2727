package allowance

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
)

// Reader reads raw ERC20 allowances.
type Reader interface {
	Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
}

// Config holds tracker configuration.
type Config struct {
	Reader       Reader
	Store        *Store
	Decimals     int32
	PollInterval time.Duration
	Logger       *zap.Logger
}

// Tracker reads allowances and keeps the shared store current for every
// watched key. It re-reads on a fixed interval and whenever Kick is called.
type Tracker struct {
	reader       Reader
	store        *Store
	decimals     int32
	pollInterval time.Duration
	logger       *zap.Logger

	mu   sync.Mutex
	keys map[Key]struct{}
	kick chan struct{}
}

// New creates a new allowance tracker.
func New(cfg *Config) (t *Tracker, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Reader == nil {
		return nil, errors.New("reader cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.PollInterval <= 0 {
		return nil, errors.New("poll interval must be positive")
	}

	store := cfg.Store
	if store == nil {
		store = NewStore()
	}

	t = &Tracker{
		reader:       cfg.Reader,
		store:        store,
		decimals:     cfg.Decimals,
		pollInterval: cfg.PollInterval,
		logger:       cfg.Logger,
		keys:         make(map[Key]struct{}),
		kick:         make(chan struct{}, 1),
	}

	return t, nil
}

// Store returns the shared snapshot store.
func (t *Tracker) Store() *Store {
	return t.store
}

// Get reads the allowance for key. It never fails: an absent owner or a
// failed read both yield zero.
func (t *Tracker) Get(ctx context.Context, key Key) decimal.Decimal {
	amount, err := t.read(ctx, key)
	if err != nil {
		t.logger.Debug("allowance-read-failed",
			zap.String("owner", key.Owner.Hex()),
			zap.String("spender", key.Spender.Hex()),
			zap.Error(err))
		return decimal.Zero
	}
	return amount
}

// Refresh reads the allowance and records it in the store. On failure the
// previous snapshot is left untouched.
func (t *Tracker) Refresh(ctx context.Context, key Key) (Snapshot, error) {
	amount, err := t.read(ctx, key)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{Key: key, Amount: amount, UpdatedAt: time.Now()}
	t.store.Set(snap)
	return snap, nil
}

// Current returns the last recorded allowance for key.
func (t *Tracker) Current(key Key) decimal.Decimal {
	return t.store.Current(key)
}

// Subscribe streams every recorded snapshot.
func (t *Tracker) Subscribe() (<-chan Snapshot, func()) {
	return t.store.Subscribe()
}

// Watch adds key to the poll set and triggers an immediate read.
func (t *Tracker) Watch(key Key) {
	if key.Owner == (common.Address{}) {
		return
	}

	t.mu.Lock()
	_, exists := t.keys[key]
	t.keys[key] = struct{}{}
	t.mu.Unlock()

	if !exists {
		WatchedKeys.Inc()
	}
	t.Kick()
}

// Unwatch removes key from the poll set.
func (t *Tracker) Unwatch(key Key) {
	t.mu.Lock()
	_, exists := t.keys[key]
	delete(t.keys, key)
	t.mu.Unlock()

	if exists {
		WatchedKeys.Dec()
	}
}

// Kick requests an out-of-band refresh of all watched keys.
func (t *Tracker) Kick() {
	select {
	case t.kick <- struct{}{}:
	default:
	}
}

// Run polls watched keys until ctx is cancelled (blocking).
func (t *Tracker) Run(ctx context.Context) (err error) {
	t.logger.Info("allowance-tracker-starting",
		zap.Duration("poll-interval", t.pollInterval))

	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	t.pollAll(ctx)

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("allowance-tracker-stopping")
			return ctx.Err()
		case <-ticker.C:
			t.pollAll(ctx)
		case <-t.kick:
			t.pollAll(ctx)
		}
	}
}

func (t *Tracker) pollAll(ctx context.Context) {
	t.mu.Lock()
	keys := make([]Key, 0, len(t.keys))
	for k := range t.keys {
		keys = append(keys, k)
	}
	t.mu.Unlock()

	for _, key := range keys {
		_, err := t.Refresh(ctx, key)
		if err != nil {
			t.logger.Warn("allowance-poll-failed",
				zap.String("owner", key.Owner.Hex()),
				zap.String("spender", key.Spender.Hex()),
				zap.String("token", key.Token.Hex()),
				zap.Error(err))
		}
	}
}

func (t *Tracker) read(ctx context.Context, key Key) (decimal.Decimal, error) {
	if key.Owner == (common.Address{}) {
		return decimal.Zero, errors.New("no account")
	}

	start := time.Now()
	raw, err := t.reader.Allowance(ctx, key.Token, key.Owner, key.Spender)
	ReadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		ReadErrorsTotal.Inc()
		return decimal.Zero, fmt.Errorf("read allowance: %w", err)
	}

	if raw == nil || raw.Sign() < 0 {
		return decimal.Zero, nil
	}

	return decimal.NewFromBigInt(raw, -t.decimals), nil
}
