package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpalmerr/pulsewatch"
	"github.com/jpalmerr/pulsewatch/config"
	"github.com/jpalmerr/pulsewatch/internal/logging"
)

// addSettingsFlags registers the flags shared by every command that builds
// a monitor. Flags override values from the config file.
func addSettingsFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("config", "c", "", "path to config file")
	f.StringP("urls", "u", "", "path to a URL list, one per line (replaces urls from config)")
	f.Duration("timeout", 0, "per-probe timeout (default 3s)")
	f.Duration("interval", 0, "pause after each cycle (default 10s)")
	f.Int("concurrency", 0, "probes in flight per cycle (default 1)")
	f.Int("port", 0, "dashboard port (default 8080)")
	f.String("refresh-mode", "", `"full" or "skip-healthy" (default "full")`)
	f.String("log-level", "", "debug, info, warn or error (default info)")
}

// loadSettings builds the effective configuration from the config file, if
// any, and the command's flags.
//
// Returns [config.ErrNoURLs] when neither source yields a URL.
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	f := cmd.Flags()
	configFile, _ := f.GetString("config")
	urlsFile, _ := f.GetString("urls")

	if configFile == "" && urlsFile == "" {
		return nil, fmt.Errorf("%w: pass --config or --urls", config.ErrNoURLs)
	}

	cfg := config.Default()
	if configFile != "" {
		// --urls replaces the file's URL source, so the file need not have one
		load := config.Load
		if urlsFile != "" {
			load = config.LoadSettings
		}
		loaded, err := load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if urlsFile != "" {
		urls, err := config.ReadURLList(urlsFile)
		if err != nil {
			return nil, err
		}
		cfg.URLs = urls
	}

	if f.Changed("timeout") {
		d, _ := f.GetDuration("timeout")
		cfg.Timeout = config.Duration(d)
	}
	if f.Changed("interval") {
		d, _ := f.GetDuration("interval")
		cfg.Interval = config.Duration(d)
	}
	if f.Changed("concurrency") {
		cfg.Concurrency, _ = f.GetInt("concurrency")
	}
	if f.Changed("port") {
		cfg.Port, _ = f.GetInt("port")
	}
	if f.Changed("refresh-mode") {
		cfg.RefreshMode, _ = f.GetString("refresh-mode")
	}
	if f.Changed("log-level") {
		cfg.Log.Level, _ = f.GetString("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	if len(cfg.URLs) == 0 {
		return nil, config.ErrNoURLs
	}
	return cfg, nil
}

// newLogger builds the CLI logger from cfg. When quiet is set, console
// output below WARN is suppressed unless the level was requested explicitly,
// so logs do not interleave with terminal output.
func newLogger(cmd *cobra.Command, cfg config.LogConfig, quiet bool) (*slog.Logger, io.Closer, error) {
	level := cfg.Level
	if quiet && !cmd.Flags().Changed("log-level") && (level == "debug" || level == "info") {
		level = "warn"
	}

	return logging.New(os.Stderr, logging.Options{
		Level:      level,
		Format:     cfg.Format,
		File:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	})
}

// newMonitor builds a monitor for cfg with the given logger and extra options.
func newMonitor(cfg *config.Config, logger *slog.Logger, extra ...pulsewatch.Option) (*pulsewatch.Monitor, error) {
	opts, err := config.BuildOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts, pulsewatch.WithLogger(logger))
	opts = append(opts, extra...)

	m, err := pulsewatch.New(cfg.URLs, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create monitor: %w", err)
	}
	return m, nil
}
