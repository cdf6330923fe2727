package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/fanify/hype-flow/internal/approval"
	"github.com/fanify/hype-flow/internal/flow"
	"github.com/fanify/hype-flow/pkg/config"
	"github.com/fanify/hype-flow/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var approveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Approve a spender for HYPE or a fan token",
	Long: `Sends an ERC20 approve for exactly the given amount and waits until the
new allowance is visible on chain.

Bets spend HYPE through the betting contract. Fan token stakes are pulled
by the HYPE contract itself.

Examples:
  hype-flow approve --for bet --amount 100
  hype-flow approve --for stake --token PSG --amount 5`,
	RunE: runApprove,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(approveCmd)
	approveCmd.Flags().StringP("for", "f", "bet", "Flow the allowance is for (bet or stake)")
	approveCmd.Flags().StringP("token", "t", "HYPE", "Token to approve (HYPE or a configured fan token symbol)")
	approveCmd.Flags().StringP("amount", "a", "", "Exact allowance to set")
	approveCmd.Flags().Bool("no-wait", false, "Return after submission without verifying the allowance")
	approveCmd.Flags().Duration("timeout", 0, "Overall command timeout (default 5m)")
	_ = approveCmd.MarkFlagRequired("amount")
}

func runApprove(cmd *cobra.Command, args []string) error {
	forFlag, _ := cmd.Flags().GetString("for")
	kind, err := flow.ParseKind(forFlag)
	if err != nil {
		return err
	}

	amountFlag, _ := cmd.Flags().GetString("amount")
	amount, err := types.ParseAmount(amountFlag)
	if err != nil {
		return err
	}

	symbol, _ := cmd.Flags().GetString("token")
	noWait, _ := cmd.Flags().GetBool("no-wait")

	ctx, cancel := commandContext(cmd)
	defer cancel()

	application, _, cleanup, err := openApp(false)
	if err != nil {
		return err
	}
	defer cleanup()

	account := application.Chain().Account()
	if account == (common.Address{}) {
		return errors.New("WALLET_PRIVATE_KEY is required to approve")
	}

	cfg := application.Config()
	token, err := resolveToken(cfg, symbol)
	if err != nil {
		return err
	}

	req := approval.Request{
		Account: account,
		Spender: spenderFor(cfg, kind),
		Token:   token,
		Amount:  amount,
	}

	fmt.Printf("Approving %s %s for %s (spender %s)\n",
		amount.String(), strings.ToUpper(symbol), kind, req.Spender.Hex())

	res, verified := application.Coordinator().Approve(ctx, req)
	printResult(cmd.OutOrStdout(), res)
	if !res.Success {
		return fmt.Errorf("approve: %w", errTxFailed)
	}

	if noWait || verified == nil {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case v := <-verified:
		if v.Err != nil {
			return fmt.Errorf("verify allowance: %w", v.Err)
		}
		if !v.Confirmed {
			fmt.Printf("Allowance still %s after %d checks\n", v.Allowance.String(), v.Attempts)
			return errors.New("allowance not confirmed")
		}
		fmt.Printf("Allowance confirmed: %s (%d checks)\n", v.Allowance.String(), v.Attempts)
	}

	return nil
}

// resolveToken maps HYPE or a configured fan token symbol to its address.
func resolveToken(cfg *config.Config, symbol string) (common.Address, error) {
	symbol = strings.TrimSpace(symbol)
	if strings.EqualFold(symbol, "HYPE") {
		return common.HexToAddress(cfg.HypeTokenAddress), nil
	}

	for _, ft := range cfg.FanTokens {
		if strings.EqualFold(ft.Symbol, symbol) {
			return common.HexToAddress(ft.Address), nil
		}
	}

	return common.Address{}, fmt.Errorf("unknown token %q", symbol)
}

// spenderFor returns the contract that pulls tokens for kind.
func spenderFor(cfg *config.Config, kind flow.Kind) common.Address {
	if kind == flow.KindStake {
		return common.HexToAddress(cfg.HypeTokenAddress)
	}
	return common.HexToAddress(cfg.BettingContractAddress)
}
