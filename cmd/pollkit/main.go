// Package main is the entry point for the pollkit CLI.
//
// pollkit can be used as a library (SDK) or as a standalone binary. This CLI
// exposes the SDK's single requests and poll chains from the shell, and can
// run a YAML-configured set of polls behind an HTTP API.
//
// Usage:
//
//	pollkit send GET https://example.com       # One request
//	pollkit poll https://ci/jobs/1 --until ... # Poll until a condition holds
//	pollkit serve -c config.yaml               # Run configured polls + API
//	pollkit validate -c config.yaml            # Validate configuration
//	pollkit version                            # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information - set by GoReleaser at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCmd is the base command when called without subcommands.
var rootCmd = &cobra.Command{
	Use:   "pollkit",
	Short: "Send HTTP requests and poll until a condition holds",
	Long: `pollkit sends HTTP requests and polls URLs until the response satisfies a
condition, the timeout budget runs out, or the server returns an error.

Quick start:
  pollkit send GET https://httpbin.org/get
  pollkit poll https://ci.example.com/jobs/42 --until json:status=done --timeout 2m

Example config (pollkit serve -c pollkit.yaml):
  port: 8080
  polls:
    - name: build
      url: https://ci.example.com/jobs/42
      token: ${CI_TOKEN}
      until: json:status=done
      done_event: buildReady`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error, just exit with code 1
		os.Exit(1)
	}
}

func main() {
	Execute()
}

// versionCmd prints version information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Print the version, commit hash, and build date of this pollkit binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "pollkit %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
