package types

import (
	"errors"
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  string
		valid bool
	}{
		{name: "integer", raw: "100", want: "100", valid: true},
		{name: "fraction", raw: "0.5", want: "0.5", valid: true},
		{name: "surrounding-space", raw: " 25 ", want: "25", valid: true},
		{name: "empty", raw: "", valid: false},
		{name: "zero", raw: "0", valid: false},
		{name: "negative", raw: "-1", valid: false},
		{name: "letters", raw: "abc", valid: false},
		{name: "nan", raw: "NaN", valid: false},
		{name: "token-precision", raw: "0.000000000000000001", want: "1e-18", valid: true},
		{name: "below-token-precision", raw: "1e-30", valid: false},
		{name: "19-decimal-places", raw: "0.0000000000000000001", valid: false},
		{name: "max-exponent", raw: "1e59", want: "1e59", valid: true},
		{name: "exponent-overflow", raw: "1e400", valid: false},
		{name: "huge-exponent", raw: "1e100000000", valid: false},
		{name: "digits-overflow", raw: "999999999999999999999999999999999999999999999999999999999999999", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.raw)
			if !tt.valid {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidAmount))
				assert.False(t, IsValidAmount(tt.raw))
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s", got)
			assert.True(t, IsValidAmount(tt.raw))
		})
	}
}

func TestParseAmount_Uint256Bound(t *testing.T) {
	// 2^256-1 base units is the largest amount a transaction can carry.
	maxAmount := FromUnits(maxUint256, TokenDecimals)

	got, err := ParseAmount(maxAmount.String())
	require.NoError(t, err)
	assert.Equal(t, maxUint256, ToUnits(got, TokenDecimals))

	over := FromUnits(new(big.Int).Add(maxUint256, big.NewInt(1)), TokenDecimals)
	_, err = ParseAmount(over.String())
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestToUnits(t *testing.T) {
	oneHype, _ := new(big.Int).SetString("1000000000000000000", 10)

	assert.Equal(t, oneHype, ToUnits(decimal.NewFromInt(1), TokenDecimals))
	assert.Equal(t, big.NewInt(1500), ToUnits(decimal.RequireFromString("1.5"), 3))
	// sub-unit remainder is truncated
	assert.Equal(t, big.NewInt(1), ToUnits(decimal.RequireFromString("1.9"), 0))
}

func TestFromUnits(t *testing.T) {
	units, _ := new(big.Int).SetString("2500000000000000000", 10)

	assert.True(t, FromUnits(units, TokenDecimals).Equal(decimal.RequireFromString("2.5")))
	assert.True(t, FromUnits(nil, TokenDecimals).IsZero())
	assert.True(t, FromUnits(big.NewInt(-5), TokenDecimals).IsZero())
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "Transaction rejected by user.", UserMessage(ErrorKindUserRejected, "x"))
	assert.Equal(t, "Insufficient funds for this transaction.", UserMessage(ErrorKindInsufficientFunds, "x"))
	assert.Equal(t, "Network error. Please check your connection.", UserMessage(ErrorKindNetwork, "x"))
	assert.Equal(t, "Approval failed. Please try again.", UserMessage(ErrorKindGeneric, "Approval failed. Please try again."))
}

func TestTxError(t *testing.T) {
	inner := errors.New("boom")
	err := &TxError{Kind: ErrorKindNetwork, Op: "approve", Err: inner}

	assert.Equal(t, "approve failed (network): boom", err.Error())
	assert.True(t, errors.Is(err, inner))

	var txErr *TxError
	require.True(t, errors.As(error(err), &txErr))
	assert.Equal(t, ErrorKindNetwork, txErr.Kind)
}
