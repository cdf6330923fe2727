package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"
)

// gasHeadroomPercent pads estimated gas so small state drift between
// estimate and inclusion does not run the call out of gas.
const gasHeadroomPercent = 120

// Approve submits token.approve(spender, amount) and returns the hash.
func (c *Client) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (common.Hash, error) {
	data, err := c.abis.token.Pack("approve", spender, amount)
	if err != nil {
		return common.Hash{}, wrapTxError("approve", fmt.Errorf("pack approve: %w", err))
	}
	return c.transact(ctx, "approve", token, nil, data)
}

// PlaceBet submits placeBet(eventId, teamA, amount) to the betting contract.
func (c *Client) PlaceBet(ctx context.Context, eventID [32]byte, teamA bool, amount *big.Int) (common.Hash, error) {
	data, err := c.abis.betting.Pack("placeBet", eventID, teamA, amount)
	if err != nil {
		return common.Hash{}, wrapTxError("placeBet", fmt.Errorf("pack placeBet: %w", err))
	}
	return c.transact(ctx, "placeBet", c.contracts.Betting, nil, data)
}

// Stake sends value wei of CHZ to the payable stake() function.
func (c *Client) Stake(ctx context.Context, value *big.Int) (common.Hash, error) {
	data, err := c.abis.token.Pack("stake")
	if err != nil {
		return common.Hash{}, wrapTxError("stake", fmt.Errorf("pack stake: %w", err))
	}
	return c.transact(ctx, "stake", c.contracts.HypeToken, value, data)
}

// Unstake burns amount HYPE base units for CHZ.
func (c *Client) Unstake(ctx context.Context, amount *big.Int) (common.Hash, error) {
	data, err := c.abis.token.Pack("unstake", amount)
	if err != nil {
		return common.Hash{}, wrapTxError("unstake", fmt.Errorf("pack unstake: %w", err))
	}
	return c.transact(ctx, "unstake", c.contracts.HypeToken, nil, data)
}

// WaitReceipt polls for the receipt of hash until found or ctx ends.
func (c *Client) WaitReceipt(ctx context.Context, hash common.Hash) (*gethtypes.Receipt, error) {
	ticker := time.NewTicker(c.receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			c.logger.Debug("receipt-poll-error",
				zap.String("tx-hash", hash.Hex()),
				zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for receipt %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// transact builds, signs and sends a legacy transaction. The returned error
// is always a *types.TxError.
func (c *Client) transact(
	ctx context.Context,
	op string,
	to common.Address,
	value *big.Int,
	data []byte,
) (hash common.Hash, err error) {
	if c.signer == nil {
		return common.Hash{}, wrapTxError(op, ErrNoSigner)
	}

	if value == nil {
		value = big.NewInt(0)
	}

	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		observeWrite(op, start, err)
	}()

	from := c.signer.Address()

	c.txMu.Lock()
	defer c.txMu.Unlock()

	nonce, err := c.backend.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, wrapTxError(op, fmt.Errorf("get nonce: %w", err))
	}
	// The node's pending count can lag a send we just made.
	if nonce < c.nextNonce {
		nonce = c.nextNonce
	}

	gasPrice, err := c.backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, wrapTxError(op, fmt.Errorf("get gas price: %w", err))
	}

	gasLimit, err := c.backend.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return common.Hash{}, wrapTxError(op, fmt.Errorf("estimate gas: %w", err))
	}
	gasLimit = gasLimit * gasHeadroomPercent / 100

	tx := gethtypes.NewTx(&gethtypes.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := c.signer.SignTx(ctx, tx, c.chainID)
	if err != nil {
		return common.Hash{}, wrapTxError(op, err)
	}

	err = c.backend.SendTransaction(ctx, signed)
	if err != nil {
		// Fall back to the node's count; a rejected nonce may never be used.
		c.nextNonce = 0
		return common.Hash{}, wrapTxError(op, fmt.Errorf("send transaction: %w", err))
	}
	c.nextNonce = nonce + 1

	c.logger.Info("transaction-sent",
		zap.String("op", op),
		zap.String("tx-hash", signed.Hash().Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas-limit", gasLimit))

	return signed.Hash(), nil
}
