package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fanify/hype-flow/internal/app"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the flow server",
	Long: `Starts the flow server, which will:
1. Track HYPE and fan token allowances for the bound account
2. Poll odds, hype and match state for watched events
3. Serve the bet and stake flows over HTTP and websocket
4. Record every submitted transaction in the history store

Use --read-only to serve reads without loading the signing key.`,
	RunE: runServer,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().Bool("read-only", false, "Ignore WALLET_PRIVATE_KEY and disable writes")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadRuntime(false)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	readOnly, _ := cmd.Flags().GetBool("read-only")

	application, err := app.New(cfg, logger, &app.Options{ReadOnly: readOnly})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	err = application.Run()
	if err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
