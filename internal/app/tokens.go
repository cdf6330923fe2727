package app

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"go.uber.org/zap"

	"github.com/fanify/hype-flow/internal/eventdata"
	"github.com/fanify/hype-flow/internal/flow"
	"github.com/fanify/hype-flow/pkg/config"
	"github.com/fanify/hype-flow/pkg/wallet"
)

func flowFanTokens(tokens []config.FanToken) []flow.FanToken {
	out := make([]flow.FanToken, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, flow.FanToken{
			Symbol:  t.Symbol,
			Address: common.HexToAddress(t.Address),
		})
	}
	return out
}

func fanTokenAddresses(tokens []config.FanToken) map[string]common.Address {
	if len(tokens) == 0 {
		return nil
	}
	out := make(map[string]common.Address, len(tokens))
	for _, t := range tokens {
		out[t.Symbol] = common.HexToAddress(t.Address)
	}
	return out
}

// gasCost returns the native cost paid for a mined transaction, in CHZ.
func gasCost(receipt *gethtypes.Receipt) float64 {
	if receipt == nil || receipt.EffectiveGasPrice == nil {
		return 0
	}
	wei := new(big.Int).Mul(new(big.Int).SetUint64(receipt.GasUsed), receipt.EffectiveGasPrice)
	return wallet.ToFloat(wei)
}

type gasRecorder interface {
	RecordGasCost(cost float64)
}

func gasCostRecorder(guard gasRecorder) func(*gethtypes.Receipt) {
	return func(receipt *gethtypes.Receipt) {
		if cost := gasCost(receipt); cost > 0 {
			guard.RecordGasCost(cost)
		}
	}
}

// onReceipt refreshes balances after every mined write and feeds its gas
// cost to the guard.
func (a *App) onReceipt(receipt *gethtypes.Receipt) {
	if a.gasGuard != nil {
		gasCostRecorder(a.gasGuard)(receipt)
	}
	a.walletTracker.Kick()
}

type gameGate interface {
	View() flow.View
	SetGameStarted(started bool)
}

// matchHandler closes betting on the bet flow once its event kicks off.
// Reads for other events are ignored.
func matchHandler(logger *zap.Logger, gate gameGate) func(*eventdata.MatchInfo) {
	return func(info *eventdata.MatchInfo) {
		if info == nil {
			return
		}
		if !strings.EqualFold(gate.View().EventID, info.EventID) {
			return
		}

		started := info.Started()
		if started == gate.View().Closed {
			return
		}

		logger.Info("match-state-changed",
			zap.String("event-id", info.EventID),
			zap.Bool("started", started))
		gate.SetGameStarted(started)
	}
}
