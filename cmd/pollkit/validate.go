package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pollkit/config"
)

// validateCmd validates a config file without running any poll.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate a pollkit configuration file without running any poll.

This command parses the YAML, expands environment variables, validates all
fields and compiles every until condition. It's useful for CI/CD pipelines
or pre-deployment checks.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  pollkit validate -c config.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("config", "c", "", "path to config file (required)")
	_ = validateCmd.MarkFlagRequired("config")
}

func runValidate(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := config.BuildPolls(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  Port:  %d\n", cfg.Port)
	fmt.Fprintf(out, "  Polls: %d\n", len(cfg.Polls))
	for _, pc := range cfg.Polls {
		until := pc.Until.Type
		if until == "" {
			until = "always"
		}
		fmt.Fprintf(out, "    - %s (%s, until %s)\n", pc.Name, pc.URL, until)
	}
	return nil
}
