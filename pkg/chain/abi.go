package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// HypeTokenABI covers the ERC20 allowance surface plus payable staking.
const HypeTokenABI = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
	{"inputs":[],"name":"stake","outputs":[],"stateMutability":"payable","type":"function"},
	{"inputs":[{"name":"amount","type":"uint256"}],"name":"unstake","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// BettingABI covers odds reads and bet placement.
const BettingABI = `[
	{"inputs":[{"name":"eventId","type":"bytes32"}],"name":"getOdds","outputs":[{"name":"oddsA","type":"uint256"},{"name":"oddsB","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"eventId","type":"bytes32"},{"name":"teamA","type":"bool"},{"name":"amount","type":"uint256"}],"name":"placeBet","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

// OracleABI covers hype and match reads.
const OracleABI = `[
	{"inputs":[{"name":"eventId","type":"bytes32"}],"name":"getHype","outputs":[{"name":"hypeA","type":"uint256"},{"name":"hypeB","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"eventId","type":"bytes32"}],"name":"getMatch","outputs":[
		{"name":"teamA","type":"string"},
		{"name":"teamB","type":"string"},
		{"name":"goalsA","type":"uint256"},
		{"name":"goalsB","type":"uint256"},
		{"name":"hypeA","type":"uint256"},
		{"name":"hypeB","type":"uint256"},
		{"name":"startTime","type":"uint256"},
		{"name":"status","type":"uint8"}
	],"stateMutability":"view","type":"function"}
]`

type abis struct {
	token   abi.ABI
	betting abi.ABI
	oracle  abi.ABI
}

func parseABIs() (*abis, error) {
	token, err := abi.JSON(strings.NewReader(HypeTokenABI))
	if err != nil {
		return nil, fmt.Errorf("parse token ABI: %w", err)
	}

	betting, err := abi.JSON(strings.NewReader(BettingABI))
	if err != nil {
		return nil, fmt.Errorf("parse betting ABI: %w", err)
	}

	oracle, err := abi.JSON(strings.NewReader(OracleABI))
	if err != nil {
		return nil, fmt.Errorf("parse oracle ABI: %w", err)
	}

	return &abis{token: token, betting: betting, oracle: oracle}, nil
}
