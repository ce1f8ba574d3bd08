// Package main is the entry point for the pulsewatch CLI.
//
// pulsewatch can be used as a library (SDK) or as a standalone binary driven
// by a YAML config or a plain URL list. This CLI provides the binary.
//
// Usage:
//
//	pulsewatch serve -c config.yaml      # Dashboard and control API
//	pulsewatch watch --urls urls.txt     # Live table in the terminal
//	pulsewatch check --urls urls.txt     # One cycle, exit 1 if anything is down
//	pulsewatch validate -c config.yaml   # Validate configuration
//	pulsewatch version                   # Show version info
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pulsewatch"
)

// Build information, set at build time via ldflags.
// Example: go build -ldflags "-X main.commit=abc123 -X main.date=2026-01-01"
var (
	commit = "none"
	date   = "unknown"
)

// rootCmd is the base command when called without subcommands.
// It just displays help; actual functionality is in subcommands.
var rootCmd = &cobra.Command{
	Use:   "pulsewatch",
	Short: "A URL reachability monitor",
	Long: `pulsewatch checks whether a list of URLs is reachable.

Each URL gets an HTTP HEAD request with a short timeout. The result is
shown as OK, an HTTP error code, a timeout, a connection error, or another
error, and is refreshed after every interval.

Quick start:
  1. Put one URL per line in urls.txt
  2. Run: pulsewatch watch --urls urls.txt
     or:  pulsewatch serve --urls urls.txt
  3. For the dashboard, open http://localhost:8080

Example config:
  port: 8080
  interval: 10s
  timeout: 3s
  urls:
    - https://example.com
    - https://${API_HOST:-api.example.com}/health`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// cobra already prints the error
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
	Long:  `Print the version, commit hash, and build date of this pulsewatch binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "pulsewatch %s\n", pulsewatch.Version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
