package flow

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fanify/hype-flow/pkg/types"
)

// Step is a position in the flow.
type Step string

const (
	StepSelect  Step = "select"
	StepAmount  Step = "amount"
	StepApprove Step = "approve"
	StepConfirm Step = "confirm"
)

// Kind selects what the flow submits.
type Kind string

const (
	KindBet   Kind = "bet"
	KindStake Kind = "stake"
)

// ParseKind accepts "bet" or "stake".
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindBet:
		return KindBet, nil
	case KindStake:
		return KindStake, nil
	default:
		return "", fmt.Errorf("unknown flow kind %q", s)
	}
}

// Option is one choice in the select step: a side for bets, a token for
// stakes.
type Option struct {
	ID    string         `json:"id"`
	Label string         `json:"label"`
	Side  types.Side     `json:"side,omitempty"`
	Token common.Address `json:"token"`
	// Native options pay in CHZ and need no allowance.
	Native   bool            `json:"native"`
	BaseRate decimal.Decimal `json:"baseRate"`
	Bonus    decimal.Decimal `json:"bonus"`
}

// FanToken is a stakeable ERC20 fan token.
type FanToken struct {
	Symbol  string
	Address common.Address
}

// StakeRates are the HYPE conversion rates per staked unit.
type StakeRates struct {
	Chz           decimal.Decimal
	FanToken      decimal.Decimal
	FanTokenBonus decimal.Decimal
}

// BetOptions returns the two sides of an event, both paid in HYPE.
func BetOptions(hypeToken common.Address) []Option {
	return []Option{
		{ID: string(types.SideA), Label: "Side A", Side: types.SideA, Token: hypeToken},
		{ID: string(types.SideB), Label: "Side B", Side: types.SideB, Token: hypeToken},
	}
}

// StakeOptions returns native CHZ followed by the configured fan tokens.
func StakeOptions(rates StakeRates, fanTokens []FanToken) []Option {
	options := []Option{{
		ID:       "CHZ",
		Label:    "CHZ",
		Native:   true,
		BaseRate: rates.Chz,
		Bonus:    decimal.Zero,
	}}

	for _, ft := range fanTokens {
		options = append(options, Option{
			ID:       strings.ToUpper(ft.Symbol),
			Label:    strings.ToUpper(ft.Symbol),
			Token:    ft.Address,
			BaseRate: rates.FanToken,
			Bonus:    rates.FanTokenBonus,
		})
	}
	return options
}
