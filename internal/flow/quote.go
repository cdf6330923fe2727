package flow

import "github.com/shopspring/decimal"

// Quote is the outcome shown before confirming.
type Quote struct {
	Amount decimal.Decimal `json:"amount"`

	// Bets
	Multiplier decimal.Decimal `json:"multiplier"`
	Payout     decimal.Decimal `json:"payout"`
	Profit     decimal.Decimal `json:"profit"`

	// Stakes
	Receive decimal.Decimal `json:"receive"`
	Bonus   decimal.Decimal `json:"bonus"`
}

// BetQuote computes payout = amount * multiplier and profit = payout - amount.
func BetQuote(amount, multiplier decimal.Decimal) Quote {
	payout := amount.Mul(multiplier)
	return Quote{
		Amount:     amount,
		Multiplier: multiplier,
		Payout:     payout,
		Profit:     payout.Sub(amount),
	}
}

// StakeQuote computes HYPE received = amount * baseRate * (1 + bonus).
func StakeQuote(amount, baseRate, bonus decimal.Decimal) Quote {
	return Quote{
		Amount:  amount,
		Receive: amount.Mul(baseRate).Mul(decimal.NewFromInt(1).Add(bonus)),
		Bonus:   bonus,
	}
}
