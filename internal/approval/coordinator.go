package approval

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fanify/hype-flow/internal/allowance"
	"github.com/fanify/hype-flow/internal/history"
	"github.com/fanify/hype-flow/pkg/chain"
	"github.com/fanify/hype-flow/pkg/types"
)

const fallbackMessage = "Approval failed. Please try again."

// Writer submits ERC20 approvals.
type Writer interface {
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error)
}

// Refresher re-reads an allowance into the shared snapshot store.
type Refresher interface {
	Refresh(ctx context.Context, key allowance.Key) (allowance.Snapshot, error)
}

// Request asks for permission for Spender to move Amount of Token.
type Request struct {
	Account common.Address
	Spender common.Address
	Token   common.Address
	Amount  decimal.Decimal
}

func (r Request) key() allowance.Key {
	return allowance.Key{Owner: r.Account, Spender: r.Spender, Token: r.Token}
}

// Verification is the outcome of the post-approval allowance re-check.
type Verification struct {
	Confirmed bool
	Allowance decimal.Decimal
	Attempts  int
	// Err is set when verification was cut short by shutdown.
	Err error
}

// Config holds coordinator configuration.
type Config struct {
	Writer       Writer
	Allowance    Refresher
	Recorder     *history.Recorder // optional
	Decimals     int32
	InitialDelay time.Duration
	RetryDelay   time.Duration
	MaxRetries   int
	Logger       *zap.Logger
}

// Coordinator submits exact-amount approvals and re-verifies the
// resulting allowance until it is visible or retries run out.
type Coordinator struct {
	writer       Writer
	allowance    Refresher
	recorder     *history.Recorder
	decimals     int32
	initialDelay time.Duration
	retryDelay   time.Duration
	maxRetries   int
	logger       *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new approval coordinator.
func New(cfg *Config) (c *Coordinator, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Writer == nil {
		return nil, errors.New("writer cannot be nil")
	}

	if cfg.Allowance == nil {
		return nil, errors.New("allowance refresher cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.InitialDelay < 0 || cfg.RetryDelay < 0 || cfg.MaxRetries < 0 {
		return nil, errors.New("delays and retries cannot be negative")
	}

	ctx, cancel := context.WithCancel(context.Background())

	c = &Coordinator{
		writer:       cfg.Writer,
		allowance:    cfg.Allowance,
		recorder:     cfg.Recorder,
		decimals:     cfg.Decimals,
		initialDelay: cfg.InitialDelay,
		retryDelay:   cfg.RetryDelay,
		maxRetries:   cfg.MaxRetries,
		logger:       cfg.Logger,
		ctx:          ctx,
		cancel:       cancel,
	}

	return c, nil
}

// Approve submits approve(spender, amount) for exactly req.Amount.
//
// On failure the returned channel is nil. On success the channel yields a
// single Verification once the re-check loop finishes, then closes.
func (c *Coordinator) Approve(ctx context.Context, req Request) (types.TransactionResult, <-chan Verification) {
	if req.Account == (common.Address{}) {
		ApprovalsTotal.WithLabelValues(string(types.ErrorKindValidation)).Inc()
		return types.Failed(types.TxTypeApprove, types.ErrorKindValidation,
			"Connect a wallet to approve.", errors.New("no account")), nil
	}

	if !req.Amount.IsPositive() {
		ApprovalsTotal.WithLabelValues(string(types.ErrorKindValidation)).Inc()
		return types.Failed(types.TxTypeApprove, types.ErrorKindValidation,
			"Enter a valid amount.", types.ErrInvalidAmount), nil
	}

	c.logger.Info("approval-submitting",
		zap.String("account", req.Account.Hex()),
		zap.String("spender", req.Spender.Hex()),
		zap.String("token", req.Token.Hex()),
		zap.String("amount", req.Amount.String()))

	hash, err := c.writer.Approve(ctx, req.Token, req.Spender, types.ToUnits(req.Amount, c.decimals))
	if err != nil {
		kind := chain.Classify(err)
		ApprovalsTotal.WithLabelValues(string(kind)).Inc()
		c.logger.Warn("approval-failed",
			zap.String("kind", string(kind)),
			zap.Error(err))
		return types.Failed(types.TxTypeApprove, kind, types.UserMessage(kind, fallbackMessage), err), nil
	}

	ApprovalsTotal.WithLabelValues("success").Inc()
	c.logger.Info("approval-submitted", zap.String("tx-hash", hash.Hex()))

	rec := history.NewRecord(types.TxTypeApprove, hash.Hex())
	rec.From = req.Account.Hex()
	rec.To = req.Spender.Hex()
	rec.Value = req.Amount.String()
	rec.Token = req.Token.Hex()
	c.recorder.Submitted(ctx, rec)

	out := make(chan Verification, 1)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(out)
		out <- c.verify(req)
	}()

	return types.Succeeded(types.TxTypeApprove, hash), out
}

// Close stops all outstanding verification loops and waits for them.
func (c *Coordinator) Close() {
	c.cancel()
	c.wg.Wait()
}

// verify waits InitialDelay, then re-reads the allowance until it covers
// the request. Failed reads count as attempts. At most 1+MaxRetries reads.
func (c *Coordinator) verify(req Request) Verification {
	start := time.Now()
	result := Verification{}

	if !c.sleep(c.initialDelay) {
		result.Err = c.ctx.Err()
		return result
	}

	for {
		result.Attempts++

		snap, err := c.allowance.Refresh(c.ctx, req.key())
		if err != nil {
			c.logger.Debug("approval-verify-read-failed",
				zap.Int("attempt", result.Attempts),
				zap.Error(err))
		} else {
			result.Allowance = snap.Amount
			if snap.Amount.GreaterThanOrEqual(req.Amount) {
				result.Confirmed = true
				VerificationsTotal.WithLabelValues("confirmed").Inc()
				VerificationDuration.Observe(time.Since(start).Seconds())
				c.logger.Info("approval-confirmed",
					zap.String("allowance", snap.Amount.String()),
					zap.Int("attempts", result.Attempts))
				return result
			}
		}

		if result.Attempts > c.maxRetries {
			VerificationsTotal.WithLabelValues("unconfirmed").Inc()
			c.logger.Warn("approval-unconfirmed",
				zap.String("required", req.Amount.String()),
				zap.String("allowance", result.Allowance.String()),
				zap.Int("attempts", result.Attempts))
			return result
		}

		if !c.sleep(c.retryDelay) {
			result.Err = c.ctx.Err()
			return result
		}
	}
}

func (c *Coordinator) sleep(d time.Duration) bool {
	if d <= 0 {
		return c.ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-c.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
