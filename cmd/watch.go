package cmd

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fanify/hype-flow/internal/flow"
	"github.com/fanify/hype-flow/pkg/config"
	"github.com/fanify/hype-flow/pkg/websocket"
)

//nolint:gochecknoglobals // Cobra boilerplate
var watchCmd = &cobra.Command{
	Use:   "watch <bet|stake>",
	Short: "Follow a running server's flow state",
	Long: `Connects to the flow stream of a running server and prints every state
change. The stream reconnects with backoff when the server restarts.

Example:
  hype-flow watch bet --server http://localhost:8080`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().String("server", "http://localhost:8080", "Base URL of the flow server")
	watchCmd.Flags().BoolP("json", "j", false, "Output raw JSON views")
}

func runWatch(cmd *cobra.Command, args []string) error {
	kind, err := flow.ParseKind(args[0])
	if err != nil {
		return err
	}

	server, _ := cmd.Flags().GetString("server")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	streamURL, err := flowStreamURL(server, kind)
	if err != nil {
		return err
	}

	level := logLevelFlag
	if level == "" {
		level = "warn"
	}
	logger, err := config.NewConsoleLogger(level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	client, err := websocket.New(websocket.Config{
		URL:                   streamURL,
		DialTimeout:           10 * time.Second,
		PingInterval:          30 * time.Second,
		ReconnectInitialDelay: time.Second,
		ReconnectMaxDelay:     30 * time.Second,
		ReconnectBackoffMult:  2.0,
		MessageBufferSize:     16,
		Logger:                logger,
	})
	if err != nil {
		return fmt.Errorf("create stream client: %w", err)
	}

	err = client.Start()
	if err != nil {
		return fmt.Errorf("start stream: %w", err)
	}
	defer client.Close()

	fmt.Printf("Watching %s flow at %s\n\n", kind, streamURL)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	for {
		select {
		case <-sigChan:
			fmt.Println("\nShutting down...")
			return nil
		case msg, ok := <-client.Messages():
			if !ok {
				return errors.New("stream closed")
			}

			if jsonOutput {
				fmt.Println(string(msg))
				continue
			}

			var v flow.View
			if err := json.Unmarshal(msg, &v); err != nil {
				logger.Warn("view-decode-failed", zap.Error(err))
				continue
			}
			printView(os.Stdout, time.Now(), v)
		}
	}
}

// flowStreamURL turns a server base URL into the websocket URL of a flow.
func flowStreamURL(server string, kind flow.Kind) (string, error) {
	u, err := url.Parse(strings.TrimSpace(server))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported server scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("server url %q has no host", server)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/flows/" + string(kind)
	u.RawQuery = ""
	return u.String(), nil
}

func printView(out io.Writer, at time.Time, v flow.View) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s %-7s", at.Format("15:04:05"), v.Kind, v.Step)

	if v.Selection != "" {
		fmt.Fprintf(&b, " option=%s", v.Selection)
	}
	if v.Amount != "" {
		fmt.Fprintf(&b, " amount=%s", v.Amount)
	}
	fmt.Fprintf(&b, " allowance=%s", v.Allowance.String())
	if v.Quote != nil {
		if v.Kind == flow.KindBet {
			fmt.Fprintf(&b, " payout=%s", v.Quote.Payout.StringFixed(2))
		} else {
			fmt.Fprintf(&b, " receive=%s", v.Quote.Receive.StringFixed(2))
		}
	}
	if v.LoadingApprove || v.LoadingAction {
		b.WriteString(" (pending)")
	}
	if v.Closed {
		b.WriteString(" [closed]")
	}
	if v.Error != "" {
		fmt.Fprintf(&b, " error=%q", v.Error)
	}
	if v.Success != "" {
		fmt.Fprintf(&b, " success=%q", v.Success)
	}

	fmt.Fprintln(out, b.String())
}
