package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/agentpilot/internal/config"
)

const defaultConfigPath = "./config.toml"

var (
	configPath    string
	workspacePath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "agentpilot",
	Short: "agentpilot - autopilot for IDE agent panels",
	Long: `agentpilot drives the agent panel of an IDE over the Chrome DevTools Protocol.
It queues prompts and delivers them one at a time, clicks accept-like controls,
rotates conversation tabs in background mode and sends a scheduled prompt.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
	rootCmd.PersistentFlags().StringVarP(&workspacePath, "workspace", "w", "", "Workspace directory with PID file and socket (overrides config)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(submitCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(inspectCmd)
}

// loadConfig loads the configuration and returns it with the path the
// scheduler should re-read. Without --config a missing ./config.toml means
// built-in defaults and no file to re-read.
func loadConfig() (*config.Config, string, error) {
	if err := config.LoadEnvOptional("./.env"); err != nil {
		return nil, "", fmt.Errorf("failed to load .env: %w", err)
	}

	path := configPath
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	var cfg *config.Config
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !explicit {
		cfg, err = config.Parse(nil)
		if err != nil {
			return nil, "", err
		}
		path = ""
	} else {
		cfg, err = config.Load(path)
		if err != nil {
			return nil, "", err
		}
	}

	if workspacePath != "" {
		cfg.Workspace.Path = workspacePath
	}
	return cfg, path, nil
}
