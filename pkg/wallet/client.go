package wallet

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Reader reads raw on-chain balances.
type Reader interface {
	NativeBalance(ctx context.Context, owner common.Address) (*big.Int, error)
	TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)
}

// Client fetches wallet balances from the chain.
type Client struct {
	reader    Reader
	hypeToken common.Address
	fanTokens map[string]common.Address
	logger    *zap.Logger
}

// Balances holds on-chain balances in base units.
type Balances struct {
	Native *big.Int            // CHZ, in wei
	Hype   *big.Int            // HYPE
	Tokens map[string]*big.Int // fan tokens by symbol
}

// NewClient creates a new wallet client. fanTokens maps symbol to token
// address and may be nil.
func NewClient(
	reader Reader,
	hypeToken common.Address,
	fanTokens map[string]common.Address,
	logger *zap.Logger,
) (c *Client, err error) {
	if reader == nil {
		return nil, errors.New("reader cannot be nil")
	}

	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	client := &Client{
		reader:    reader,
		hypeToken: hypeToken,
		fanTokens: fanTokens,
		logger:    logger,
	}

	return client, nil
}

// GetBalances fetches native, HYPE and fan token balances. A failed fan
// token read is logged and left out; native and HYPE failures are errors.
func (c *Client) GetBalances(ctx context.Context, address common.Address) (balances *Balances, err error) {
	native, err := c.reader.NativeBalance(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("get CHZ balance: %w", err)
	}

	hype, err := c.reader.TokenBalance(ctx, c.hypeToken, address)
	if err != nil {
		return nil, fmt.Errorf("get HYPE balance: %w", err)
	}

	balances = &Balances{
		Native: native,
		Hype:   hype,
		Tokens: make(map[string]*big.Int, len(c.fanTokens)),
	}

	for _, symbol := range c.symbols() {
		bal, err := c.reader.TokenBalance(ctx, c.fanTokens[symbol], address)
		if err != nil {
			c.logger.Warn("fan-token-balance-failed",
				zap.String("symbol", symbol),
				zap.Error(err))
			continue
		}
		balances.Tokens[symbol] = bal
	}

	return balances, nil
}

func (c *Client) symbols() []string {
	out := make([]string, 0, len(c.fanTokens))
	for symbol := range c.fanTokens {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}
