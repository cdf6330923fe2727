package cmd

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/fanify/hype-flow/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var unstakeCmd = &cobra.Command{
	Use:   "unstake",
	Short: "Burn HYPE and withdraw the staked CHZ",
	RunE:  runUnstake,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(unstakeCmd)
	unstakeCmd.Flags().StringP("amount", "a", "", "HYPE amount to unstake")
	unstakeCmd.Flags().Duration("timeout", 0, "Overall command timeout (default 5m)")
	_ = unstakeCmd.MarkFlagRequired("amount")
}

func runUnstake(cmd *cobra.Command, args []string) error {
	amountFlag, _ := cmd.Flags().GetString("amount")
	amount, err := types.ParseAmount(amountFlag)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	application, _, cleanup, err := openApp(false)
	if err != nil {
		return err
	}
	defer cleanup()

	account := application.Chain().Account()
	if account == (common.Address{}) {
		return errors.New("WALLET_PRIVATE_KEY is required to unstake")
	}

	res := application.Submitter().Unstake(ctx, account, amount)
	printResult(cmd.OutOrStdout(), res)
	if !res.Success {
		return fmt.Errorf("unstake: %w", errTxFailed)
	}
	return nil
}
