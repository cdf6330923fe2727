package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// Backend is the subset of *ethclient.Client the chain layer uses.
type Backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *gethtypes.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*gethtypes.Receipt, error)
}

// Contracts holds the deployed contract addresses.
type Contracts struct {
	HypeToken common.Address
	Betting   common.Address
	Oracle    common.Address
}

// Config holds chain client configuration.
type Config struct {
	Backend   Backend
	Signer    Signer // nil for read-only use
	ChainID   *big.Int
	Contracts Contracts
	// CallTimeout bounds each read and each write submission.
	CallTimeout         time.Duration
	ReceiptPollInterval time.Duration
	Logger              *zap.Logger
}

// Client performs contract reads and signed writes.
type Client struct {
	backend             Backend
	signer              Signer
	chainID             *big.Int
	contracts           Contracts
	abis                *abis
	callTimeout         time.Duration
	receiptPollInterval time.Duration
	logger              *zap.Logger

	// txMu serializes nonce allocation through send for the one signer.
	txMu      sync.Mutex
	nextNonce uint64
}

// MatchData is the decoded getMatch result.
type MatchData struct {
	GoalsA *big.Int
	GoalsB *big.Int
	Status uint8
}

// New creates a new chain client.
func New(cfg *Config) (c *Client, err error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	if cfg.Backend == nil {
		return nil, errors.New("backend cannot be nil")
	}

	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.Signer != nil && (cfg.ChainID == nil || cfg.ChainID.Sign() <= 0) {
		return nil, errors.New("chain ID must be positive when a signer is set")
	}

	parsed, err := parseABIs()
	if err != nil {
		return nil, err
	}

	callTimeout := cfg.CallTimeout
	if callTimeout <= 0 {
		callTimeout = 15 * time.Second
	}

	pollInterval := cfg.ReceiptPollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	c = &Client{
		backend:             cfg.Backend,
		signer:              cfg.Signer,
		chainID:             cfg.ChainID,
		contracts:           cfg.Contracts,
		abis:                parsed,
		callTimeout:         callTimeout,
		receiptPollInterval: pollInterval,
		logger:              cfg.Logger,
	}

	return c, nil
}

// Contracts returns the configured contract addresses.
func (c *Client) Contracts() Contracts {
	return c.contracts
}

// Account returns the signer address, or the zero address when read-only.
func (c *Client) Account() common.Address {
	if c.signer == nil {
		return common.Address{}
	}
	return c.signer.Address()
}

// Allowance reads token.allowance(owner, spender) in base units.
func (c *Client) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	out, err := c.call(ctx, "allowance", token, &c.abis.token, "allowance", owner, spender)
	if err != nil {
		return nil, err
	}
	return firstBigInt(out)
}

// TokenBalance reads token.balanceOf(owner) in base units.
func (c *Client) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	out, err := c.call(ctx, "balanceOf", token, &c.abis.token, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return firstBigInt(out)
}

// NativeBalance reads the CHZ balance of owner in wei.
func (c *Client) NativeBalance(ctx context.Context, owner common.Address) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	start := time.Now()
	balance, err := c.backend.BalanceAt(ctx, owner, nil)
	observeCall("balance", start, err)
	if err != nil {
		return nil, fmt.Errorf("get native balance: %w", err)
	}
	return balance, nil
}

// Odds reads the 18-decimal odds for both sides of an event.
func (c *Client) Odds(ctx context.Context, eventID [32]byte) (oddsA, oddsB *big.Int, err error) {
	out, err := c.call(ctx, "getOdds", c.contracts.Betting, &c.abis.betting, "getOdds", eventID)
	if err != nil {
		return nil, nil, err
	}
	return pairBigInt(out)
}

// Hype reads raw hype values for both sides. Raw/100 is a percentage.
func (c *Client) Hype(ctx context.Context, eventID [32]byte) (hypeA, hypeB *big.Int, err error) {
	out, err := c.call(ctx, "getHype", c.contracts.Oracle, &c.abis.oracle, "getHype", eventID)
	if err != nil {
		return nil, nil, err
	}
	return pairBigInt(out)
}

// Match reads status and score for an event.
func (c *Client) Match(ctx context.Context, eventID [32]byte) (*MatchData, error) {
	out, err := c.call(ctx, "getMatch", c.contracts.Oracle, &c.abis.oracle, "getMatch", eventID)
	if err != nil {
		return nil, err
	}

	if len(out) < 8 {
		return nil, fmt.Errorf("getMatch: expected 8 values, got %d", len(out))
	}

	goalsA, okA := out[2].(*big.Int)
	goalsB, okB := out[3].(*big.Int)
	status, okS := out[7].(uint8)
	if !okA || !okB || !okS {
		return nil, errors.New("getMatch: unexpected value types")
	}

	return &MatchData{GoalsA: goalsA, GoalsB: goalsB, Status: status}, nil
}

func (c *Client) call(
	ctx context.Context,
	label string,
	to common.Address,
	contract *abi.ABI,
	method string,
	args ...interface{},
) ([]interface{}, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	start := time.Now()
	result, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	observeCall(label, start, err)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}

	out, err := contract.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}

	return out, nil
}

func firstBigInt(out []interface{}) (*big.Int, error) {
	if len(out) == 0 {
		return nil, errors.New("empty result")
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected result type %T", out[0])
	}
	return v, nil
}

func pairBigInt(out []interface{}) (*big.Int, *big.Int, error) {
	if len(out) < 2 {
		return nil, nil, fmt.Errorf("expected 2 values, got %d", len(out))
	}
	a, okA := out[0].(*big.Int)
	b, okB := out[1].(*big.Int)
	if !okA || !okB {
		return nil, nil, errors.New("unexpected result types")
	}
	return a, b, nil
}
