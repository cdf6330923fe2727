package testutil

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Well-known addresses used across tests.
var (
	//nolint:gochecknoglobals // test fixtures
	HypeTokenAddress = common.HexToAddress("0x1111111111111111111111111111111111111111")
	//nolint:gochecknoglobals // test fixtures
	BettingAddress = common.HexToAddress("0x2222222222222222222222222222222222222222")
	//nolint:gochecknoglobals // test fixtures
	OracleAddress = common.HexToAddress("0x3333333333333333333333333333333333333333")
	//nolint:gochecknoglobals // test fixtures
	FanTokenAddress = common.HexToAddress("0x4444444444444444444444444444444444444444")
	//nolint:gochecknoglobals // test fixtures
	UserAddress = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	//nolint:gochecknoglobals // test fixtures
	OtherUserAddress = common.HexToAddress("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

// Event ids used across tests.
const (
	EventE1 = "0x00000000000000000000000000000000000000000000000000000000000000e1"
	EventE2 = "0x00000000000000000000000000000000000000000000000000000000000000e2"
)

// Units converts a whole-token amount to 18-decimal base units.
func Units(whole int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))
}

// Dec parses a decimal literal and panics on bad input.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
