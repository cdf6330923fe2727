package history

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/fanify/hype-flow/pkg/types"
)

// ReceiptWaiter blocks until a transaction is mined.
type ReceiptWaiter interface {
	WaitReceipt(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error)
}

// RecorderConfig holds recorder configuration.
type RecorderConfig struct {
	Store Store
	// Waiter is optional; without it records stay pending.
	Waiter         ReceiptWaiter
	ReceiptTimeout time.Duration
	// OnReceipt is called for every mined receipt, success or not.
	OnReceipt func(*gethtypes.Receipt)
	Logger    *zap.Logger
}

// Recorder stores submitted transactions and settles their status once
// receipts arrive. A nil *Recorder records nothing.
type Recorder struct {
	store          Store
	waiter         ReceiptWaiter
	receiptTimeout time.Duration
	onReceipt      func(*gethtypes.Receipt)
	logger         *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRecorder creates a new recorder.
func NewRecorder(cfg *RecorderConfig) (r *Recorder, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Store == nil {
		return nil, errors.New("store cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	timeout := cfg.ReceiptTimeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	ctx, cancel := context.WithCancel(context.Background())

	r = &Recorder{
		store:          cfg.Store,
		waiter:         cfg.Waiter,
		receiptTimeout: timeout,
		onReceipt:      cfg.OnReceipt,
		logger:         cfg.Logger,
		ctx:            ctx,
		cancel:         cancel,
	}
	return r, nil
}

// Store returns the underlying store.
func (r *Recorder) Store() Store {
	if r == nil {
		return nil
	}
	return r.store
}

// Submitted records rec as pending and, when a waiter is configured,
// settles it in the background.
func (r *Recorder) Submitted(ctx context.Context, rec *Record) {
	if r == nil {
		return
	}

	err := r.store.Record(ctx, rec)
	if err != nil {
		r.logger.Warn("history-record-failed",
			zap.String("tx-hash", rec.Hash),
			zap.Error(err))
		return
	}

	if r.waiter == nil {
		return
	}

	hash := common.HexToHash(rec.Hash)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.settle(hash)
	}()
}

// Close stops outstanding receipt waits.
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.cancel()
	r.wg.Wait()
}

func (r *Recorder) settle(hash common.Hash) {
	ctx, cancel := context.WithTimeout(r.ctx, r.receiptTimeout)
	defer cancel()

	receipt, err := r.waiter.WaitReceipt(ctx, hash)
	if err != nil {
		r.logger.Debug("receipt-wait-ended", zap.String("tx-hash", hash.Hex()), zap.Error(err))
		return
	}

	if r.onReceipt != nil {
		r.onReceipt(receipt)
	}

	status := types.TxStatusConfirmed
	if receipt.Status != gethtypes.ReceiptStatusSuccessful {
		status = types.TxStatusFailed
	}

	// r.ctx may already be done at shutdown; the status write still matters.
	writeCtx, writeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer writeCancel()

	err = r.store.UpdateStatus(writeCtx, hash.Hex(), status)
	if err != nil {
		r.logger.Warn("history-status-update-failed",
			zap.String("tx-hash", hash.Hex()),
			zap.Error(err))
		return
	}

	r.logger.Info("transaction-settled",
		zap.String("tx-hash", hash.Hex()),
		zap.String("status", string(status)))
}
