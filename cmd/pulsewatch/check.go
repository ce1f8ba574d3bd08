package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pulsewatch/internal/display"
)

// errUnhealthy is returned by check when any URL did not resolve to success.
var errUnhealthy = errors.New("one or more URLs are unhealthy")

// checkCmd probes every URL once.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Probe every URL once",
	Long: `Probe every URL once, print the results and exit.

This runs a single cycle outside any monitoring session. It is useful for
CI/CD pipelines and cron jobs.

Exit codes:
  0 - Every URL responded with a status below 400
  1 - At least one URL failed, or the configuration is invalid

Example:
  pulsewatch check --urls urls.txt
  pulsewatch check -c config.yaml --concurrency 8`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	addSettingsFlags(checkCmd)
	checkCmd.Flags().Bool("no-color", false, "disable coloured output")
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	logger, closer, err := newLogger(cmd, cfg.Log, true)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer closer.Close()

	m, err := newMonitor(cfg, logger)
	if err != nil {
		return err
	}
	defer m.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	entries, err := m.RunOnce(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	noColor, _ := cmd.Flags().GetBool("no-color")
	display.NewTable(out, display.IsTerminal(out) && !noColor).Render(entries)

	healthy := 0
	for _, e := range entries {
		if e.Status.Healthy() {
			healthy++
		}
	}
	fmt.Fprintf(out, "%d/%d healthy\n", healthy, len(entries))

	if healthy < len(entries) {
		return errUnhealthy
	}
	return nil
}
