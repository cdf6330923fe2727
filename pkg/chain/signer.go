package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	gethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Signer signs transactions on behalf of one account.
type Signer interface {
	Address() common.Address
	SignTx(ctx context.Context, tx *gethtypes.Transaction, chainID *big.Int) (*gethtypes.Transaction, error)
}

// KeySigner signs with an in-process private key.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewKeySigner parses a hex private key, with or without 0x prefix.
func NewKeySigner(hexKey string) (s *KeySigner, err error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	if hexKey == "" {
		return nil, errors.New("private key cannot be empty")
	}

	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	return NewKeySignerFromKey(key), nil
}

// NewKeySignerFromKey wraps an existing key.
func NewKeySignerFromKey(key *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}
}

// Address returns the signing account.
func (s *KeySigner) Address() common.Address {
	return s.address
}

// SignTx signs tx for chainID.
func (s *KeySigner) SignTx(
	_ context.Context,
	tx *gethtypes.Transaction,
	chainID *big.Int,
) (*gethtypes.Transaction, error) {
	signed, err := gethtypes.SignTx(tx, gethtypes.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	return signed, nil
}
