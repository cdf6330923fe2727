package types

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TxType identifies the kind of on-chain action.
type TxType string

const (
	TxTypeApprove TxType = "approve"
	TxTypeBet     TxType = "bet"
	TxTypeStake   TxType = "stake"
	TxTypeUnstake TxType = "unstake"
)

// TxStatus tracks a submitted transaction.
type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusConfirmed TxStatus = "confirmed"
	TxStatusFailed    TxStatus = "failed"
)

// TransactionResult is the outcome of a single approve or action submission.
// Write failures never escape as raw errors past the component that made
// the call; they are carried here.
type TransactionResult struct {
	Type        TxType
	Success     bool
	TxHash      common.Hash
	Kind        ErrorKind
	Message     string
	Err         error
	SubmittedAt time.Time
}

// Succeeded builds a success result.
func Succeeded(txType TxType, hash common.Hash) TransactionResult {
	return TransactionResult{
		Type:        txType,
		Success:     true,
		TxHash:      hash,
		SubmittedAt: time.Now(),
	}
}

// Failed builds a failure result with a user-facing message.
func Failed(txType TxType, kind ErrorKind, message string, err error) TransactionResult {
	return TransactionResult{
		Type:        txType,
		Kind:        kind,
		Message:     message,
		Err:         err,
		SubmittedAt: time.Now(),
	}
}
