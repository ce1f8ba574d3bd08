package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pulsewatch"
)

const (
	shutdownTimeout = 10 * time.Second
)

// serveCmd starts the dashboard server.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard server",
	Long: `Start the pulsewatch dashboard server.

The server will:
  - Load URLs and settings from the config file and flags
  - Start monitoring immediately, unless --paused is given
  - Serve the dashboard UI and control API on the configured port

Monitoring can be started and stopped from the dashboard or with
POST /api/start and POST /api/stop.

The server runs until interrupted (Ctrl+C) or receives SIGTERM.

Example:
  pulsewatch serve -c config.yaml
  pulsewatch serve --urls urls.txt --port 9090 --paused`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	addSettingsFlags(serveCmd)
	serveCmd.Flags().Bool("paused", false, "serve without starting a monitoring session")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	logger, closer, err := newLogger(cmd, cfg.Log, false)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer closer.Close()

	logger.Info("config loaded", "url_count", len(cfg.URLs))

	var extra []pulsewatch.Option
	if paused, _ := cmd.Flags().GetBool("paused"); paused {
		extra = append(extra, pulsewatch.WithStartPaused())
	}

	m, err := newMonitor(cfg, logger, extra...)
	if err != nil {
		return err
	}

	// cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Run blocks until ctx is cancelled
	errChan := make(chan error, 1)
	go func() {
		errChan <- m.Run(ctx)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		logger.Info("shutdown complete")
		return nil

	case <-ctx.Done():
		// signal received, wait for graceful shutdown with timeout
		select {
		case err := <-errChan:
			if err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			logger.Info("shutdown complete")
			return nil
		case <-time.After(shutdownTimeout):
			logger.Warn("shutdown timed out",
				"timeout", shutdownTimeout.String(),
				"action", "forcing exit",
			)
			return nil
		}
	}
}
