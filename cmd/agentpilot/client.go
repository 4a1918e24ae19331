package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/agentpilot/internal/ipc"
)

var (
	requestTimeout time.Duration

	submitWait bool

	statusOutput string

	startBackground   bool
	startPro          bool
	startIDE          string
	startPollInterval time.Duration
)

// submitCmd queues a prompt in the running daemon
var submitCmd = &cobra.Command{
	Use:   "submit <prompt>",
	Short: "Queue a prompt for delivery",
	Long: `Queue a prompt in the running daemon. Prompts are delivered one at a time
once the agent panel is idle. With --wait the command returns after delivery.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		text := strings.Join(args, " ")
		timeout := requestTimeout
		if submitWait && !cmd.Flags().Changed("timeout") {
			timeout = 0
		}

		resp, err := request(cmd, timeout, ipc.Request{Type: ipc.TypeSubmit, Text: text, Wait: submitWait})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", resp.CommandID, resp.CommandStatus)
		return nil
	},
}

// statusCmd prints the daemon state
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show automation, queue and scheduler state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := parseFormat(statusOutput)
		if err != nil {
			return err
		}
		resp, err := request(cmd, requestTimeout, ipc.Request{Type: ipc.TypeStatus})
		if err != nil {
			return err
		}
		if resp.Status == nil {
			return fmt.Errorf("daemon returned no status")
		}
		return writeStatus(cmd.OutOrStdout(), *resp.Status, format)
	},
}

// startCmd starts the automation loops
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start accepting controls in the IDE",
	Long: `Start the automation loop. Background mode needs both --background and --pro;
otherwise the simple loop clicks accept-like controls of the focused panel.
Starting the mode that already runs does nothing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := request(cmd, requestTimeout, ipc.Request{
			Type:           ipc.TypeStart,
			Background:     startBackground,
			Pro:            startPro,
			IDE:            startIDE,
			PollIntervalMS: int(startPollInterval / time.Millisecond),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "automation running, session %d\n", resp.SessionID)
		return nil
	},
}

// stopCmd stops the automation loops
var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the automation loop and reset the session",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := request(cmd, requestTimeout, ipc.Request{Type: ipc.TypeStop}); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "automation stopped")
		return nil
	},
}

// request sends req to the daemon of the configured workspace. A zero
// timeout waits indefinitely.
func request(cmd *cobra.Command, timeout time.Duration, req ipc.Request) (*ipc.Response, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return ipc.Send(ctx, ipc.GetSocketPath(cfg.Workspace.Path), req)
}

func init() {
	for _, c := range []*cobra.Command{submitCmd, statusCmd, startCmd, stopCmd} {
		c.Flags().DurationVar(&requestTimeout, "timeout", 10*time.Second, "Request timeout")
	}

	submitCmd.Flags().BoolVar(&submitWait, "wait", false, "Wait until the prompt is delivered")

	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "text", "Output format: text, json or yaml")

	startCmd.Flags().BoolVar(&startBackground, "background", false, "Request background mode")
	startCmd.Flags().BoolVar(&startPro, "pro", false, "Pro tier (required for background mode)")
	startCmd.Flags().StringVar(&startIDE, "ide", "", "IDE profile (default from config)")
	startCmd.Flags().DurationVar(&startPollInterval, "poll-interval", 0, "Simple mode poll interval (default from config)")
}
