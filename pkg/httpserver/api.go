package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	json "github.com/goccy/go-json"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fanify/hype-flow/internal/circuitbreaker"
	"github.com/fanify/hype-flow/internal/eventdata"
	"github.com/fanify/hype-flow/internal/flow"
	"github.com/fanify/hype-flow/internal/history"
	"github.com/fanify/hype-flow/pkg/types"
	"github.com/fanify/hype-flow/pkg/wallet"
)

// maxBodyBytes caps request bodies on the JSON endpoints.
const maxBodyBytes = 64 << 10

// FlowController is the flow state machine as driven over HTTP.
type FlowController interface {
	View() flow.View
	Subscribe() (<-chan flow.View, func())
	BindEvent(ev types.Event) (previous string)
	BindAccount(account common.Address)
	SetGameStarted(started bool)
	Select(optionID string) error
	SetAmount(input string) error
	Continue(ctx context.Context) error
	Back() error
	Approve(ctx context.Context) (types.TransactionResult, error)
	Submit(ctx context.Context) (types.TransactionResult, error)
}

// EventSource serves cached event reads and tracks the events to poll.
type EventSource interface {
	Watch(eventID string)
	Unwatch(eventID string)
	Odds(ctx context.Context, eventID string) *eventdata.Odds
	Hype(ctx context.Context, eventID string) *eventdata.Hype
	Match(ctx context.Context, eventID string) *eventdata.MatchInfo
}

// Unstaker withdraws staked HYPE.
type Unstaker interface {
	Unstake(ctx context.Context, account common.Address, amount decimal.Decimal) types.TransactionResult
}

// HistoryLister lists recorded transactions.
type HistoryLister interface {
	List(ctx context.Context, filter history.Filter) ([]*history.Record, error)
}

// GuardStatus reports the gas guard state.
type GuardStatus interface {
	GetStatus() circuitbreaker.Status
}

// WalletSource reports the bound account's latest balances.
type WalletSource interface {
	Snapshot() (wallet.Snapshot, bool)
}

// ErrorResponse represents an HTTP error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ResultResponse carries a write outcome and the flow view after it.
type ResultResponse struct {
	Type    types.TxType    `json:"type,omitempty"`
	Success bool            `json:"success"`
	TxHash  string          `json:"txHash,omitempty"`
	Kind    types.ErrorKind `json:"kind,omitempty"`
	Message string          `json:"message,omitempty"`
	View    *flow.View      `json:"view,omitempty"`
}

func newResultResponse(res types.TransactionResult) ResultResponse {
	resp := ResultResponse{
		Type:    res.Type,
		Success: res.Success,
		Kind:    res.Kind,
		Message: res.Message,
	}
	if res.Success {
		resp.TxHash = res.TxHash.Hex()
	}
	return resp
}

// statusFor maps flow errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, flow.ErrInvalidAmount),
		errors.Is(err, flow.ErrUnknownOption),
		errors.Is(err, flow.ErrNoAccount):
		return http.StatusBadRequest
	case errors.Is(err, flow.ErrInvalidStep),
		errors.Is(err, flow.ErrBusy),
		errors.Is(err, flow.ErrBettingClosed):
		return http.StatusConflict
	case errors.Is(err, flow.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, logger *zap.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		logger.Error("failed-to-encode-response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, logger *zap.Logger, message string, status int) {
	writeJSON(w, logger, status, ErrorResponse{Error: message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
