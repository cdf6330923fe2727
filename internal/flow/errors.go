package flow

import "errors"

var (
	ErrInvalidStep   = errors.New("action not allowed in current step")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrNoAccount     = errors.New("no account connected")
	ErrBusy          = errors.New("operation already in progress")
	ErrBettingClosed = errors.New("betting is closed for this event")
	ErrUnknownOption = errors.New("unknown option")
	ErrClosed        = errors.New("flow is closed")

	// ErrGasGuard is carried in results rejected by the gas guard.
	ErrGasGuard = errors.New("native balance below gas guard minimum")
)

// User-facing texts.
const (
	NoticeApprovalPending = "Approval not yet confirmed. Please wait or retry."
	NoticeBettingClosed   = "Betting is closed. The match has started."

	messageApprovalSent = "Approval submitted. Waiting for confirmation."
	messageApproved     = "Approval confirmed. You can now proceed to confirm."
	messageBetPlaced    = "Bet placed successfully!"
	messageStaked       = "Staking successful! Your tokens are now locked for the season."
	messageGasGuard     = "Not enough CHZ to pay for gas."
)
