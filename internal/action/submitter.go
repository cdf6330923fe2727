package action

import (
	"context"
	"errors"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fanify/hype-flow/internal/history"
	"github.com/fanify/hype-flow/pkg/chain"
	"github.com/fanify/hype-flow/pkg/types"
)

const (
	betFallback     = "Bet failed. Please try again."
	stakeFallback   = "Staking failed. Please try again."
	unstakeFallback = "Unstaking failed. Please try again."

	insufficientBalance = "Insufficient balance."
)

// Writer submits the state-changing contract calls.
type Writer interface {
	PlaceBet(ctx context.Context, eventID [32]byte, teamA bool, amount *big.Int) (common.Hash, error)
	Stake(ctx context.Context, value *big.Int) (common.Hash, error)
	Unstake(ctx context.Context, amount *big.Int) (common.Hash, error)
}

// BalanceReader reads the balances used by the pre-submit check.
type BalanceReader interface {
	NativeBalance(ctx context.Context, owner common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)
}

// BetRequest places Amount HYPE on Side of Event.
type BetRequest struct {
	Account common.Address
	Event   types.Event
	Side    types.Side
	Amount  decimal.Decimal
	// Odds is the multiplier shown at confirmation; history only.
	Odds decimal.Decimal
}

// Config holds submitter configuration.
type Config struct {
	Writer Writer
	// Balances enables the balance pre-check when set.
	Balances  BalanceReader
	HypeToken common.Address
	Betting   common.Address
	Recorder  *history.Recorder // optional
	Decimals  int32
	Logger    *zap.Logger
}

// Submitter places bets and stakes. It trusts the caller's allowance gating
// and never retries a failed write.
type Submitter struct {
	writer    Writer
	balances  BalanceReader
	hypeToken common.Address
	betting   common.Address
	recorder  *history.Recorder
	decimals  int32
	logger    *zap.Logger
}

// New creates a new action submitter.
func New(cfg *Config) (s *Submitter, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Writer == nil {
		return nil, errors.New("writer cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	s = &Submitter{
		writer:    cfg.Writer,
		balances:  cfg.Balances,
		hypeToken: cfg.HypeToken,
		betting:   cfg.Betting,
		recorder:  cfg.Recorder,
		decimals:  cfg.Decimals,
		logger:    cfg.Logger,
	}
	return s, nil
}

// PlaceBet submits placeBet(eventId, side == A, amount).
func (s *Submitter) PlaceBet(ctx context.Context, req BetRequest) types.TransactionResult {
	res, ok := s.precheck(types.TxTypeBet, req.Account, req.Amount)
	if !ok {
		return res
	}

	if req.Side == types.SideNone {
		return s.reject(types.TxTypeBet, "Select a side to bet on.", errors.New("no side selected"))
	}

	eventID, err := types.ParseEventID(req.Event.ID)
	if err != nil {
		return s.reject(types.TxTypeBet, "Select a valid event.", err)
	}

	start := time.Now()
	hash, err := s.writer.PlaceBet(ctx, eventID, req.Side == types.SideA, types.ToUnits(req.Amount, s.decimals))
	SubmitDuration.WithLabelValues(string(types.TxTypeBet)).Observe(time.Since(start).Seconds())
	if err != nil {
		return s.fail(types.TxTypeBet, betFallback, err)
	}

	rec := history.NewRecord(types.TxTypeBet, hash.Hex())
	rec.From = req.Account.Hex()
	rec.To = s.betting.Hex()
	rec.Value = req.Amount.String()
	rec.Token = s.hypeToken.Hex()
	rec.Details = history.Details{
		EventID: req.Event.ID,
		Side:    string(req.Side),
		Team:    req.Event.Name(req.Side),
	}
	if !req.Odds.IsZero() {
		rec.Details.Odds = req.Odds.String()
	}

	return s.succeed(ctx, types.TxTypeBet, hash, rec)
}

// Stake sends amount CHZ to the payable stake function. token and bonus are
// recorded in history only.
func (s *Submitter) Stake(ctx context.Context, account common.Address, amount decimal.Decimal, token string, bonus decimal.Decimal) types.TransactionResult {
	res, ok := s.precheck(types.TxTypeStake, account, amount)
	if !ok {
		return res
	}

	value := types.ToUnits(amount, s.decimals)
	if s.balances != nil {
		balance, err := s.balances.NativeBalance(ctx, account)
		if s.short(types.TxTypeStake, balance, value, err) {
			return s.reject(types.TxTypeStake, insufficientBalance, errors.New("native balance below stake"))
		}
	}

	start := time.Now()
	hash, err := s.writer.Stake(ctx, value)
	SubmitDuration.WithLabelValues(string(types.TxTypeStake)).Observe(time.Since(start).Seconds())
	if err != nil {
		return s.fail(types.TxTypeStake, stakeFallback, err)
	}

	rec := history.NewRecord(types.TxTypeStake, hash.Hex())
	rec.From = account.Hex()
	rec.To = s.hypeToken.Hex()
	rec.Value = amount.String()
	rec.Token = token
	if bonus.IsPositive() {
		rec.Details.Bonus = bonus.String()
	}

	return s.succeed(ctx, types.TxTypeStake, hash, rec)
}

// Unstake burns amount HYPE for CHZ.
func (s *Submitter) Unstake(ctx context.Context, account common.Address, amount decimal.Decimal) types.TransactionResult {
	res, ok := s.precheck(types.TxTypeUnstake, account, amount)
	if !ok {
		return res
	}

	units := types.ToUnits(amount, s.decimals)
	if s.balances != nil {
		balance, err := s.balances.TokenBalance(ctx, s.hypeToken, account)
		if s.short(types.TxTypeUnstake, balance, units, err) {
			return s.reject(types.TxTypeUnstake, insufficientBalance, errors.New("HYPE balance below unstake"))
		}
	}

	start := time.Now()
	hash, err := s.writer.Unstake(ctx, units)
	SubmitDuration.WithLabelValues(string(types.TxTypeUnstake)).Observe(time.Since(start).Seconds())
	if err != nil {
		return s.fail(types.TxTypeUnstake, unstakeFallback, err)
	}

	rec := history.NewRecord(types.TxTypeUnstake, hash.Hex())
	rec.From = account.Hex()
	rec.To = s.hypeToken.Hex()
	rec.Value = amount.String()
	rec.Token = s.hypeToken.Hex()

	return s.succeed(ctx, types.TxTypeUnstake, hash, rec)
}

func (s *Submitter) precheck(txType types.TxType, account common.Address, amount decimal.Decimal) (types.TransactionResult, bool) {
	if account == (common.Address{}) {
		return s.reject(txType, "Connect a wallet first.", errors.New("no account")), false
	}

	if !amount.IsPositive() {
		return s.reject(txType, "Enter a valid amount.", types.ErrInvalidAmount), false
	}

	return types.TransactionResult{}, true
}

// short reports whether balance is known to be below need. Read failures
// skip the check.
func (s *Submitter) short(txType types.TxType, balance, need *big.Int, err error) bool {
	if err != nil {
		s.logger.Debug("balance-check-skipped",
			zap.String("type", string(txType)),
			zap.Error(err))
		return false
	}
	return balance != nil && balance.Cmp(need) < 0
}

func (s *Submitter) reject(txType types.TxType, message string, err error) types.TransactionResult {
	SubmissionsTotal.WithLabelValues(string(txType), string(types.ErrorKindValidation)).Inc()
	return types.Failed(txType, types.ErrorKindValidation, message, err)
}

func (s *Submitter) fail(txType types.TxType, fallback string, err error) types.TransactionResult {
	kind := chain.Classify(err)
	SubmissionsTotal.WithLabelValues(string(txType), string(kind)).Inc()
	s.logger.Warn("action-failed",
		zap.String("type", string(txType)),
		zap.String("kind", string(kind)),
		zap.Error(err))
	return types.Failed(txType, kind, types.UserMessage(kind, fallback), err)
}

func (s *Submitter) succeed(ctx context.Context, txType types.TxType, hash common.Hash, rec *history.Record) types.TransactionResult {
	SubmissionsTotal.WithLabelValues(string(txType), "success").Inc()
	s.logger.Info("action-submitted",
		zap.String("type", string(txType)),
		zap.String("tx-hash", hash.Hex()),
		zap.String("value", rec.Value))

	s.recorder.Submitted(ctx, rec)
	return types.Succeeded(txType, hash)
}
