package config

import (
	"fmt"

	"github.com/jpalmerr/pulsewatch"
)

// BuildOptions converts parsed configuration into SDK options.
//
// URLs are not included; pass cfg.URLs to [pulsewatch.New] directly.
// The logger is not included either, as it is built by the caller from
// cfg.Log.
func BuildOptions(cfg *Config) ([]pulsewatch.Option, error) {
	mode, err := pulsewatch.ParseRefreshMode(cfg.RefreshMode)
	if err != nil {
		return nil, fmt.Errorf("refresh_mode: %w", err)
	}

	opts := []pulsewatch.Option{
		pulsewatch.WithPort(cfg.Port),
		pulsewatch.WithTimeout(cfg.Timeout.Duration()),
		pulsewatch.WithInterval(cfg.Interval.Duration()),
		pulsewatch.WithConcurrency(cfg.Concurrency),
		pulsewatch.WithRefreshMode(mode),
	}

	if cfg.Title != "" {
		opts = append(opts, pulsewatch.WithTitle(cfg.Title))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, pulsewatch.WithUserAgent(cfg.UserAgent))
	}

	return opts, nil
}
