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
	"github.com/fanify/hype-flow/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var betCmd = &cobra.Command{
	Use:   "bet <event-id>",
	Short: "Place a HYPE bet on one side of an event",
	Long: `Runs the bet flow once for the account behind WALLET_PRIVATE_KEY: selects a
side, checks the HYPE allowance of the betting contract, approves exactly
the missing amount when needed and places the bet.

Example:
  hype-flow bet 0x8a3c...e1 --side A --amount 25`,
	Args: cobra.ExactArgs(1),
	RunE: runBet,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(betCmd)
	betCmd.Flags().StringP("side", "s", "", "Side to back (A or B)")
	betCmd.Flags().StringP("amount", "a", "", "HYPE amount to bet")
	betCmd.Flags().String("team-a", "", "Display name of side A")
	betCmd.Flags().String("team-b", "", "Display name of side B")
	betCmd.Flags().Duration("confirm-timeout", 2*time.Minute, "How long to wait for an approval to become visible")
	betCmd.Flags().Duration("timeout", 5*time.Minute, "Overall command timeout")
	_ = betCmd.MarkFlagRequired("side")
	_ = betCmd.MarkFlagRequired("amount")
}

func runBet(cmd *cobra.Command, args []string) error {
	eventID := strings.TrimSpace(args[0])
	if _, err := types.ParseEventID(eventID); err != nil {
		return err
	}

	sideFlag, _ := cmd.Flags().GetString("side")
	side, err := types.ParseSide(sideFlag)
	if err != nil {
		return err
	}

	amount, _ := cmd.Flags().GetString("amount")
	teamA, _ := cmd.Flags().GetString("team-a")
	teamB, _ := cmd.Flags().GetString("team-b")
	confirmTimeout, _ := cmd.Flags().GetDuration("confirm-timeout")

	ctx, cancel := commandContext(cmd)
	defer cancel()

	application, _, cleanup, err := openApp(false)
	if err != nil {
		return err
	}
	defer cleanup()

	if application.Chain().Account() == (common.Address{}) {
		return errors.New("WALLET_PRIVATE_KEY is required to bet")
	}

	application.Events().Watch(eventID)
	machine := application.Flow(flow.KindBet)
	machine.BindEvent(types.Event{ID: eventID, SideA: teamA, SideB: teamB})

	if application.Events().Match(ctx, eventID).Started() {
		machine.SetGameStarted(true)
		return flow.ErrBettingClosed
	}

	fmt.Printf("Event: %s\n", eventID)
	fmt.Printf("Account: %s\n\n", application.Chain().Account().Hex())

	return driveFlow(ctx, machine, os.Stdout, string(side), amount, confirmTimeout)
}
