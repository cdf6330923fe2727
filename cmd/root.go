package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fanify/hype-flow/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "hype-flow",
	Short: "Bet and stake flow controller for the Chiliz chain",
	Long: `hype-flow drives the multi-step bet and stake flows of the Fanify
HYPE contracts: pick an option, enter an amount, approve the HYPE or fan
token allowance when needed, then place the bet or stake.

The run command serves both flows over HTTP and websocket. The other
commands drive a single flow or read chain state from the terminal.`,
	SilenceUsage: true,
}

//nolint:gochecknoglobals // Cobra boilerplate
var logLevelFlag string

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override LOG_LEVEL (debug, info, warn, error)")
}

// loadRuntime loads .env, the config and a logger at the configured level.
// One-shot commands pass console to get human-readable output.
func loadRuntime(console bool) (*config.Config, *zap.Logger, error) {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if logLevelFlag != "" {
		cfg.LogLevel = logLevelFlag
	}

	newLogger := config.NewLoggerWithLevel
	if console {
		newLogger = config.NewConsoleLogger
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}

	return cfg, logger, nil
}
