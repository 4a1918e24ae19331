package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/agentpilot/internal/app"
	"github.com/aatumaykin/agentpilot/internal/logger"
	"github.com/aatumaykin/agentpilot/internal/version"
)

var serveLogLevel string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the agentpilot daemon",
	Long: `Start the agentpilot daemon with specified configuration.
The daemon owns the prompt queue, the automation loops and the scheduler,
and listens on a unix socket in the workspace for the other commands.`,
	RunE: serveHandler,
}

func serveHandler(cmd *cobra.Command, args []string) error {
	cfg, path, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if serveLogLevel != "" {
		cfg.Logging.Level = serveLogLevel
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "❌ Configuration validation failed:")
		for _, e := range errs {
			fmt.Fprintf(cmd.ErrOrStderr(), "  - %v\n", e)
		}
		return fmt.Errorf("%d configuration errors", len(errs))
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetDefault(log)

	log.Info("🚀 Starting agentpilot",
		logger.Field{Key: "version", Value: version.Version},
		logger.Field{Key: "git_commit", Value: version.GitCommit},
		logger.Field{Key: "config", Value: path},
		logger.Field{Key: "workspace", Value: cfg.Workspace.Path},
		logger.Field{Key: "cdp_url", Value: cfg.Remote.CDPURL},
		logger.Field{Key: "ide", Value: cfg.Automation.IDE},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []app.Option
	if path != "" {
		opts = append(opts, app.WithConfigPath(path))
	}
	if err := app.New(cfg, log, opts...).Run(ctx); err != nil {
		log.Error("agentpilot stopped with error", err)
		return err
	}

	log.Info("👋 agentpilot stopped gracefully")
	return nil
}

func init() {
	serveCmd.Flags().StringVarP(&serveLogLevel, "log-level", "l", "", "Override log level (debug, info, warn, error)")
}
