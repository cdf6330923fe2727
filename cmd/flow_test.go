package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fanify/hype-flow/internal/flow"
	"github.com/fanify/hype-flow/pkg/types"
)

// fakeDriver moves through the flow steps without a chain. When
// approveFirst is set, Continue lands on the approve step and a
// successful Approve publishes the confirm step on the subscription.
type fakeDriver struct {
	view         flow.View
	approveFirst bool
	approveRes   types.TransactionResult
	submitRes    types.TransactionResult
	selectErr    error
	views        chan flow.View
	calls        []string
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		view:  flow.View{Kind: flow.KindBet, Step: flow.StepSelect},
		views: make(chan flow.View, 4),
	}
}

func (f *fakeDriver) View() flow.View { return f.view }

func (f *fakeDriver) Subscribe() (<-chan flow.View, func()) {
	return f.views, func() {}
}

func (f *fakeDriver) Select(optionID string) error {
	f.calls = append(f.calls, "select:"+optionID)
	if f.selectErr != nil {
		return f.selectErr
	}
	f.view.Step = flow.StepAmount
	return nil
}

func (f *fakeDriver) SetAmount(input string) error {
	f.calls = append(f.calls, "amount:"+input)
	f.view.Amount = input
	return nil
}

func (f *fakeDriver) Continue(context.Context) error {
	f.calls = append(f.calls, "continue")
	if f.approveFirst {
		f.view.Step = flow.StepApprove
		f.view.Allowance = decimal.Zero
		f.view.ApproveAmount = f.view.Amount
		return nil
	}
	f.view.Step = flow.StepConfirm
	return nil
}

func (f *fakeDriver) Approve(context.Context) (types.TransactionResult, error) {
	f.calls = append(f.calls, "approve")
	if f.approveRes.Success {
		confirmed := f.view
		confirmed.Step = flow.StepConfirm
		f.views <- confirmed
	}
	return f.approveRes, nil
}

func (f *fakeDriver) Submit(context.Context) (types.TransactionResult, error) {
	f.calls = append(f.calls, "submit")
	return f.submitRes, nil
}

func okResult(txType types.TxType) types.TransactionResult {
	return types.TransactionResult{Type: txType, Success: true, TxHash: common.HexToHash("0x01")}
}

func TestDriveFlow(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(f *fakeDriver)
		wantErr   error
		wantCalls []string
	}{
		{
			name: "allowance-covers",
			setup: func(f *fakeDriver) {
				f.submitRes = okResult(types.TxTypeBet)
			},
			wantCalls: []string{"select:A", "amount:25", "continue", "submit"},
		},
		{
			name: "approve-then-submit",
			setup: func(f *fakeDriver) {
				f.approveFirst = true
				f.approveRes = okResult(types.TxTypeApprove)
				f.submitRes = okResult(types.TxTypeBet)
			},
			wantCalls: []string{"select:A", "amount:25", "continue", "approve", "submit"},
		},
		{
			name: "approve-rejected",
			setup: func(f *fakeDriver) {
				f.approveFirst = true
				f.approveRes = types.Failed(types.TxTypeApprove, types.ErrorKindUserRejected, "Transaction was rejected", nil)
			},
			wantErr:   errTxFailed,
			wantCalls: []string{"select:A", "amount:25", "continue", "approve"},
		},
		{
			name: "submit-failed",
			setup: func(f *fakeDriver) {
				f.submitRes = types.Failed(types.TxTypeBet, types.ErrorKindInsufficientFunds, "Insufficient balance", nil)
			},
			wantErr:   errTxFailed,
			wantCalls: []string{"select:A", "amount:25", "continue", "submit"},
		},
		{
			name: "unknown-option",
			setup: func(f *fakeDriver) {
				f.selectErr = flow.ErrUnknownOption
			},
			wantErr:   flow.ErrUnknownOption,
			wantCalls: []string{"select:A"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFakeDriver()
			tt.setup(f)

			var out bytes.Buffer
			err := driveFlow(context.Background(), f, &out, "A", "25", time.Second)

			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}

			if len(f.calls) != len(tt.wantCalls) {
				t.Fatalf("expected calls %v, got %v", tt.wantCalls, f.calls)
			}
			for i := range tt.wantCalls {
				if f.calls[i] != tt.wantCalls[i] {
					t.Errorf("call %d: expected %s, got %s", i, tt.wantCalls[i], f.calls[i])
				}
			}
		})
	}
}

func TestWaitForStep_Timeout(t *testing.T) {
	f := newFakeDriver()
	f.view.Step = flow.StepApprove

	err := waitForStep(context.Background(), f, f.views, flow.StepConfirm, 20*time.Millisecond)
	if err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestWaitForStep_FlowError(t *testing.T) {
	f := newFakeDriver()
	f.view.Step = flow.StepApprove
	f.views <- flow.View{Step: flow.StepApprove, Error: "Approval not confirmed"}

	err := waitForStep(context.Background(), f, f.views, flow.StepConfirm, time.Second)
	if err == nil || err.Error() != "Approval not confirmed" {
		t.Fatalf("expected flow error, got %v", err)
	}
}
