package types

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// TokenDecimals is the fixed-point precision of HYPE and CHZ.
const TokenDecimals = 18

// maxUnitDigits is the number of decimal digits in 2^256-1.
const maxUnitDigits = 78

// ErrInvalidAmount is returned for empty, non-numeric, zero or negative
// amounts, and for amounts a uint256 in base units cannot carry.
var ErrInvalidAmount = errors.New("amount must be a number greater than zero")

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// ParseAmount parses a user-entered amount. Only finite values > 0 with at
// most TokenDecimals fractional digits that fit a uint256 in base units are
// valid.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}

	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}

	// Exponent first: scaling 1e100000000 to base units would take minutes.
	if d.Exponent() < -TokenDecimals {
		return decimal.Zero, fmt.Errorf("%w: more than %d decimal places", ErrInvalidAmount, TokenDecimals)
	}
	if int64(d.Exponent())+TokenDecimals > maxUnitDigits {
		return decimal.Zero, fmt.Errorf("%w: too large", ErrInvalidAmount)
	}
	if ToUnits(d, TokenDecimals).Cmp(maxUint256) > 0 {
		return decimal.Zero, fmt.Errorf("%w: too large", ErrInvalidAmount)
	}

	return d, nil
}

// IsValidAmount reports whether raw parses to a positive amount.
func IsValidAmount(raw string) bool {
	_, err := ParseAmount(raw)
	return err == nil
}

// ToUnits scales a decimal amount to integer base units, truncating
// anything below the token precision.
func ToUnits(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Truncate(0).BigInt()
}

// FromUnits converts integer base units back to a decimal amount.
// Nil and negative inputs yield zero.
func FromUnits(units *big.Int, decimals int32) decimal.Decimal {
	if units == nil || units.Sign() < 0 {
		return decimal.Zero
	}

	return decimal.NewFromBigInt(units, -decimals)
}
