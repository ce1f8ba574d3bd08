package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// validateCmd validates settings without monitoring anything.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a config file",
	Long: `Validate pulsewatch settings without starting a monitor.

This command parses the YAML, expands environment variables, reads the URL
list and validates all fields. Flags are applied on top of the file, exactly
as serve, watch and check would apply them.

Exit codes:
  0 - Config is valid
  1 - Config is invalid (error details printed to stderr)

Example:
  pulsewatch validate -c config.yaml
  pulsewatch validate --urls urls.txt --interval 30s`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	addSettingsFlags(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Config is valid!\n")
	fmt.Fprintf(out, "  URLs:         %d\n", len(cfg.URLs))
	fmt.Fprintf(out, "  Port:         %d\n", cfg.Port)
	fmt.Fprintf(out, "  Timeout:      %s\n", cfg.Timeout.Duration())
	fmt.Fprintf(out, "  Interval:     %s\n", cfg.Interval.Duration())
	fmt.Fprintf(out, "  Concurrency:  %d\n", cfg.Concurrency)
	fmt.Fprintf(out, "  Refresh mode: %s\n", cfg.RefreshMode)

	return nil
}
