package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/fanify/hype-flow/internal/history"
	"github.com/fanify/hype-flow/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded transactions",
	Long: `Lists approve, bet, stake and unstake transactions from the history
store, newest first. Only the postgres store (HISTORY_MODE=postgres) keeps
records across runs.

Example:
  hype-flow history --type bet --search 0x8a3c --limit 20`,
	RunE: runHistory,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().String("type", "all", "Transaction type (all, approve, bet, stake, unstake)")
	historyCmd.Flags().String("search", "", "Case-insensitive match on hash, token, team or event id")
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of records")
	historyCmd.Flags().BoolP("json", "j", false, "Output JSON")
	historyCmd.Flags().Duration("timeout", 0, "Overall command timeout (default 5m)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	typeFlag, _ := cmd.Flags().GetString("type")
	txType, err := parseTxType(typeFlag)
	if err != nil {
		return err
	}

	search, _ := cmd.Flags().GetString("search")
	limit, _ := cmd.Flags().GetInt("limit")
	if limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", limit)
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ctx, cancel := commandContext(cmd)
	defer cancel()

	application, _, cleanup, err := openApp(true)
	if err != nil {
		return err
	}
	defer cleanup()

	records, err := application.History().List(ctx, history.Filter{
		Type:   txType,
		Search: search,
		Limit:  limit,
	})
	if err != nil {
		return fmt.Errorf("list history: %w", err)
	}

	if jsonOutput {
		if records == nil {
			records = []*history.Record{}
		}
		out, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return fmt.Errorf("encode history: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	printHistory(os.Stdout, records)
	return nil
}

// parseTxType accepts a transaction type or "all", which maps to no filter.
func parseTxType(s string) (types.TxType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch types.TxType(s) {
	case "", "all":
		return "", nil
	case types.TxTypeApprove, types.TxTypeBet, types.TxTypeStake, types.TxTypeUnstake:
		return types.TxType(s), nil
	default:
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
}

func printHistory(out io.Writer, records []*history.Record) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No transactions recorded")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "TIME\tTYPE\tSTATUS\tVALUE\tTOKEN\tHASH")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Timestamp.Format("2006-01-02 15:04:05"),
			r.Type, r.Status, r.Value, r.Token, r.Hash)
	}
}
