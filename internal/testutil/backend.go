package testutil

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// CallFunc answers one contract call with ABI-encoded return data.
type CallFunc func(input []byte) ([]byte, error)

// MockBackend is an in-memory chain backend for testing.
// It satisfies the chain package Backend interface.
type MockBackend struct {
	mu sync.Mutex

	calls    map[string]CallFunc
	balances map[common.Address]*big.Int
	receipts map[common.Hash]*types.Receipt

	Nonce    uint64
	GasPrice *big.Int
	Gas      uint64
	// StaleNonce, when set, is what PendingNonceAt reports instead of Nonce.
	StaleNonce *uint64

	CallErr     error
	BalanceErr  error
	EstimateErr error
	SendErr     error

	sent []*types.Transaction
}

// NewMockBackend creates a backend with sane gas defaults.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		calls:    make(map[string]CallFunc),
		balances: make(map[common.Address]*big.Int),
		receipts: make(map[common.Hash]*types.Receipt),
		GasPrice: big.NewInt(1_000_000_000),
		Gas:      50_000,
	}
}

func callKey(to common.Address, selector []byte) string {
	return to.Hex() + ":" + hex.EncodeToString(selector)
}

// OnCall registers a handler for calls to `to` with the given 4-byte selector.
func (m *MockBackend) OnCall(to common.Address, selector []byte, fn CallFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[callKey(to, selector)] = fn
}

// SetBalance sets the native balance of an account.
func (m *MockBackend) SetBalance(account common.Address, wei *big.Int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[account] = wei
}

// SetReceipt makes a receipt available for hash.
func (m *MockBackend) SetReceipt(hash common.Hash, receipt *types.Receipt) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receipts[hash] = receipt
}

// Sent returns all transactions accepted by SendTransaction.
func (m *MockBackend) Sent() []*types.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*types.Transaction, len(m.sent))
	copy(out, m.sent)
	return out
}

// CallContract dispatches to the handler registered for the target and selector.
func (m *MockBackend) CallContract(ctx context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	callErr := m.CallErr
	var fn CallFunc
	if call.To != nil && len(call.Data) >= 4 {
		fn = m.calls[callKey(*call.To, call.Data[:4])]
	}
	m.mu.Unlock()

	if callErr != nil {
		return nil, callErr
	}
	if fn == nil {
		return nil, errors.New("execution reverted")
	}
	return fn(call.Data[4:])
}

// BalanceAt returns the configured native balance, zero if unset.
func (m *MockBackend) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.BalanceErr != nil {
		return nil, m.BalanceErr
	}
	if b, ok := m.balances[account]; ok {
		return new(big.Int).Set(b), nil
	}
	return big.NewInt(0), nil
}

// PendingNonceAt returns the current nonce.
func (m *MockBackend) PendingNonceAt(_ context.Context, _ common.Address) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.StaleNonce != nil {
		return *m.StaleNonce, nil
	}
	return m.Nonce, nil
}

// SuggestGasPrice returns the configured gas price.
func (m *MockBackend) SuggestGasPrice(_ context.Context) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return new(big.Int).Set(m.GasPrice), nil
}

// EstimateGas returns the configured gas estimate.
func (m *MockBackend) EstimateGas(_ context.Context, _ ethereum.CallMsg) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.EstimateErr != nil {
		return 0, m.EstimateErr
	}
	return m.Gas, nil
}

// SendTransaction records tx and bumps the nonce. Like a node, it rejects
// a nonce that is already used or leaves a gap.
func (m *MockBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SendErr != nil {
		return m.SendErr
	}
	if tx.Nonce() < m.Nonce {
		return fmt.Errorf("nonce too low: next nonce %d, tx nonce %d", m.Nonce, tx.Nonce())
	}
	if tx.Nonce() > m.Nonce {
		return fmt.Errorf("nonce too high: next nonce %d, tx nonce %d", m.Nonce, tx.Nonce())
	}
	m.sent = append(m.sent, tx)
	m.Nonce++
	return nil
}

// TransactionReceipt returns a registered receipt or ethereum.NotFound.
func (m *MockBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.receipts[hash]; ok {
		return r, nil
	}
	return nil, ethereum.NotFound
}
