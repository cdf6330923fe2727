package types

import "fmt"

// ErrorKind categorizes a failed chain write.
type ErrorKind string

const (
	ErrorKindNone              ErrorKind = ""
	ErrorKindValidation        ErrorKind = "validation"
	ErrorKindUserRejected      ErrorKind = "user_rejected"
	ErrorKindInsufficientFunds ErrorKind = "insufficient_funds"
	ErrorKindNetwork           ErrorKind = "network"
	ErrorKindGeneric           ErrorKind = "generic"
)

// TxError is a chain write failure tagged with its kind.
type TxError struct {
	Kind ErrorKind
	Op   string // approve, placeBet, stake, unstake
	Err  error
}

func (e *TxError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s failed (%s)", e.Op, e.Kind)
	}

	return fmt.Sprintf("%s failed (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *TxError) Unwrap() error {
	return e.Err
}

// UserMessage returns the text shown to the user for a failure kind.
// fallback is used for generic and validation failures.
func UserMessage(kind ErrorKind, fallback string) string {
	switch kind {
	case ErrorKindUserRejected:
		return "Transaction rejected by user."
	case ErrorKindInsufficientFunds:
		return "Insufficient funds for this transaction."
	case ErrorKindNetwork:
		return "Network error. Please check your connection."
	default:
		return fallback
	}
}
