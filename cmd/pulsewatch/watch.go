package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pulsewatch/internal/display"
)

// watchCmd monitors URLs and shows a live table in the terminal.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor URLs in the terminal",
	Long: `Monitor URLs and show their status in the terminal.

When stdout is a terminal the table is redrawn on every change, with
colours. Otherwise one line is printed per resolved probe, which suits
log files and pipes.

Press Ctrl+C to stop. A final summary is printed on exit.

Example:
  pulsewatch watch --urls urls.txt
  pulsewatch watch -c config.yaml --interval 30s`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	addSettingsFlags(watchCmd)
	watchCmd.Flags().Bool("no-color", false, "disable coloured output")
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	out := cmd.OutOrStdout()
	tty := display.IsTerminal(out)
	noColor, _ := cmd.Flags().GetBool("no-color")

	header := fmt.Sprintf("pulsewatch: %d URLs, every %s (Ctrl+C to stop)", len(cfg.URLs), cfg.Interval.Duration())
	view := display.NewLive(out, tty, tty && !noColor, header)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// subscribe before starting so no transition is missed
	events := m.Subscribe()
	defer m.Unsubscribe(events)

	view.Reset(m.Snapshot())
	m.Start()

	for {
		select {
		case ev := <-events:
			view.Apply(ev)
		case <-ctx.Done():
			m.Stop()
			view.Summary()
			return nil
		}
	}
}
