package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fanify/hype-flow/internal/app"
	"github.com/fanify/hype-flow/internal/flow"
	"github.com/fanify/hype-flow/pkg/types"
)

// flowDriver is the part of a flow machine the one-shot commands drive.
type flowDriver interface {
	View() flow.View
	Subscribe() (<-chan flow.View, func())
	Select(optionID string) error
	SetAmount(input string) error
	Continue(ctx context.Context) error
	Approve(ctx context.Context) (types.TransactionResult, error)
	Submit(ctx context.Context) (types.TransactionResult, error)
}

// errTxFailed marks a write that reached the chain layer and failed there.
var errTxFailed = errors.New("transaction failed")

// openApp builds the application and starts its polling loops. The caller
// must invoke the returned cleanup.
func openApp(readOnly bool) (*app.App, *zap.Logger, func(), error) {
	cfg, logger, err := loadRuntime(true)
	if err != nil {
		return nil, nil, nil, err
	}

	application, err := app.New(cfg, logger, &app.Options{ReadOnly: readOnly})
	if err != nil {
		_ = logger.Sync()
		return nil, nil, nil, fmt.Errorf("create app: %w", err)
	}

	application.StartBackground()

	cleanup := func() {
		application.Close()
		_ = logger.Sync()
	}
	return application, logger, cleanup, nil
}

// driveFlow walks a flow from option selection to a submitted write,
// approving first when the allowance is short.
func driveFlow(ctx context.Context, m flowDriver, out io.Writer, optionID, amount string, confirmTimeout time.Duration) error {
	err := m.Select(optionID)
	if err != nil {
		return fmt.Errorf("select %s: %w", optionID, err)
	}

	err = m.SetAmount(amount)
	if err != nil {
		return fmt.Errorf("amount: %w", err)
	}

	err = m.Continue(ctx)
	if err != nil {
		return fmt.Errorf("continue: %w", err)
	}

	if m.View().Step == flow.StepApprove {
		views, cancel := m.Subscribe()
		defer cancel()

		fmt.Fprintf(out, "Allowance %s is below %s, approving...\n",
			m.View().Allowance.String(), m.View().ApproveAmount)

		res, err := m.Approve(ctx)
		if err != nil {
			return fmt.Errorf("approve: %w", err)
		}
		printResult(out, res)
		if !res.Success {
			return fmt.Errorf("approve: %w", errTxFailed)
		}

		err = waitForStep(ctx, m, views, flow.StepConfirm, confirmTimeout)
		if err != nil {
			return err
		}
	}

	res, err := m.Submit(ctx)
	if err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	printResult(out, res)
	if !res.Success {
		return fmt.Errorf("%s: %w", res.Type, errTxFailed)
	}
	return nil
}

func waitForStep(ctx context.Context, m flowDriver, views <-chan flow.View, step flow.Step, timeout time.Duration) error {
	if m.View().Step == step {
		return nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return fmt.Errorf("allowance not visible after %s", timeout)
		case v, ok := <-views:
			if !ok {
				return errors.New("flow closed")
			}
			if v.Step == step {
				return nil
			}
			if v.Error != "" {
				return errors.New(v.Error)
			}
		}
	}
}

func printResult(out io.Writer, res types.TransactionResult) {
	if res.Success {
		fmt.Fprintf(out, "%s sent: %s\n", res.Type, res.TxHash.Hex())
		return
	}
	fmt.Fprintf(out, "%s failed (%s): %s\n", res.Type, res.Kind, res.Message)
}

// commandContext returns a context bounded by the --timeout flag and
// cancelled on SIGINT or SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(sigCtx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}
