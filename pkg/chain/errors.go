package chain

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/ethereum/go-ethereum/rpc"

	"github.com/fanify/hype-flow/pkg/types"
)

// codeUserRejected is the EIP-1193 code a wallet or remote signer returns
// when the user declines a request.
const codeUserRejected = 4001

// ErrNoSigner is returned by write calls on a read-only client.
var ErrNoSigner = errors.New("no signer configured")

// Classify maps a write error to its kind. Structured signals win; the
// message text is only inspected when nothing structured matched.
func Classify(err error) types.ErrorKind {
	if err == nil {
		return types.ErrorKindNone
	}

	var txErr *types.TxError
	if errors.As(err, &txErr) && txErr.Kind != types.ErrorKindNone {
		return txErr.Kind
	}

	if errors.Is(err, ErrNoSigner) {
		return types.ErrorKindValidation
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == codeUserRejected {
		return types.ErrorKindUserRejected
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return types.ErrorKindNetwork
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return types.ErrorKindNetwork
	}

	return classifyMessage(err.Error())
}

func classifyMessage(msg string) types.ErrorKind {
	msg = strings.ToLower(msg)

	switch {
	case strings.Contains(msg, "insufficient funds"):
		return types.ErrorKindInsufficientFunds
	case strings.Contains(msg, "user rejected"), strings.Contains(msg, "user denied"):
		return types.ErrorKindUserRejected
	case strings.Contains(msg, "network"), strings.Contains(msg, "connection refused"):
		return types.ErrorKindNetwork
	default:
		return types.ErrorKindGeneric
	}
}

func wrapTxError(op string, err error) error {
	return &types.TxError{Kind: Classify(err), Op: op, Err: err}
}
