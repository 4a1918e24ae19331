package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aatumaykin/agentpilot/internal/classifier"
	"github.com/aatumaykin/agentpilot/internal/config"
	"github.com/aatumaykin/agentpilot/internal/logger"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Validate agentpilot configuration.`,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate configuration file",
	Long: `Validate the configuration file and check for errors.
Classifier patterns are compiled, so an invalid regex is reported here too.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := defaultConfigPath
		if configPath != "" {
			path = configPath
		}
		if len(args) > 0 {
			path = args[0]
		}
		return validateConfig(cmd, path)
	},
}

func validateConfig(cmd *cobra.Command, path string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	errs := cfg.Validate()
	if _, err := classifier.New(cfg.Classifier, logger.Nop()); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		fmt.Fprintf(out, "❌ Configuration validation failed (%s):\n", path)
		for _, e := range errs {
			fmt.Fprintf(out, "  - %v\n", e)
		}
		return fmt.Errorf("%d configuration errors", len(errs))
	}

	fmt.Fprintf(out, "✅ Configuration is valid: %s\n", path)
	return nil
}

func init() {
	configCmd.AddCommand(configValidateCmd)
}
