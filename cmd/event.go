package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/fanify/hype-flow/internal/eventdata"
	"github.com/fanify/hype-flow/pkg/types"
)

//nolint:gochecknoglobals // Cobra boilerplate
var eventCmd = &cobra.Command{
	Use:   "event <event-id>",
	Short: "Show odds, hype and match state for an event",
	Long: `Reads the current odds and hype of both sides from the betting contract
and the match status and score from the oracle.

Example:
  hype-flow event 0x8a3c...e1 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runEvent,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(eventCmd)
	eventCmd.Flags().BoolP("json", "j", false, "Output JSON")
	eventCmd.Flags().Duration("timeout", 0, "Overall command timeout (default 5m)")
}

type eventSnapshot struct {
	EventID string               `json:"eventId"`
	Odds    *eventdata.Odds      `json:"odds"`
	Hype    *eventdata.Hype      `json:"hype"`
	Match   *eventdata.MatchInfo `json:"match"`
}

func runEvent(cmd *cobra.Command, args []string) error {
	eventID := strings.TrimSpace(args[0])
	if _, err := types.ParseEventID(eventID); err != nil {
		return err
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")

	ctx, cancel := commandContext(cmd)
	defer cancel()

	application, _, cleanup, err := openApp(true)
	if err != nil {
		return err
	}
	defer cleanup()

	events := application.Events()
	snap := eventSnapshot{
		EventID: eventID,
		Odds:    events.Odds(ctx, eventID),
		Hype:    events.Hype(ctx, eventID),
		Match:   events.Match(ctx, eventID),
	}

	if jsonOutput {
		out, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	printEvent(os.Stdout, snap)
	return nil
}

func printEvent(out io.Writer, snap eventSnapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "Event:\t%s\n", snap.EventID)

	if snap.Odds != nil {
		fmt.Fprintf(w, "Odds:\tA %s\tB %s\n", snap.Odds.SideA.StringFixed(2), snap.Odds.SideB.StringFixed(2))
	} else {
		fmt.Fprintf(w, "Odds:\tunknown\n")
	}

	if snap.Hype != nil {
		fmt.Fprintf(w, "Hype:\tA %s\tB %s\n", snap.Hype.SideA.String(), snap.Hype.SideB.String())
	} else {
		fmt.Fprintf(w, "Hype:\tunknown\n")
	}

	switch {
	case snap.Match == nil:
		fmt.Fprintf(w, "Match:\tunknown\n")
	case snap.Match.Started():
		fmt.Fprintf(w, "Match:\tstarted (status %d)\t%d - %d\n", snap.Match.Status, snap.Match.GoalsA, snap.Match.GoalsB)
	default:
		fmt.Fprintf(w, "Match:\tnot started\n")
	}
}
