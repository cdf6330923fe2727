package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/fanify/hype-flow/internal/flow"
)

//nolint:gochecknoglobals // Cobra boilerplate
var stakeCmd = &cobra.Command{
	Use:   "stake",
	Short: "Stake CHZ or a fan token for HYPE",
	Long: `Runs the stake flow once for the account behind WALLET_PRIVATE_KEY. CHZ is
staked directly. Fan tokens are approved to the HYPE contract first when
the allowance is short.

Examples:
  hype-flow stake --token CHZ --amount 100
  hype-flow stake --token PSG --amount 5`,
	RunE: runStake,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(stakeCmd)
	stakeCmd.Flags().StringP("token", "t", "CHZ", "Token to stake (CHZ or a configured fan token symbol)")
	stakeCmd.Flags().StringP("amount", "a", "", "Amount to stake")
	stakeCmd.Flags().Duration("confirm-timeout", 2*time.Minute, "How long to wait for an approval to become visible")
	stakeCmd.Flags().Duration("timeout", 5*time.Minute, "Overall command timeout")
	_ = stakeCmd.MarkFlagRequired("amount")
}

func runStake(cmd *cobra.Command, args []string) error {
	token, _ := cmd.Flags().GetString("token")
	amount, _ := cmd.Flags().GetString("amount")
	confirmTimeout, _ := cmd.Flags().GetDuration("confirm-timeout")

	ctx, cancel := commandContext(cmd)
	defer cancel()

	application, _, cleanup, err := openApp(false)
	if err != nil {
		return err
	}
	defer cleanup()

	if application.Chain().Account() == (common.Address{}) {
		return errors.New("WALLET_PRIVATE_KEY is required to stake")
	}

	machine := application.Flow(flow.KindStake)

	fmt.Printf("Account: %s\n", application.Chain().Account().Hex())
	if q := machine.View(); len(q.Options) > 0 {
		fmt.Printf("Options: %s\n\n", optionIDs(q.Options))
	}

	return driveFlow(ctx, machine, os.Stdout, strings.ToUpper(strings.TrimSpace(token)), amount, confirmTimeout)
}

func optionIDs(options []flow.Option) string {
	ids := make([]string, 0, len(options))
	for _, o := range options {
		ids = append(ids, o.ID)
	}
	return strings.Join(ids, ", ")
}
