package pulsewatch

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// monitorConfig holds mutable state during Monitor construction.
type monitorConfig struct {
	title           string
	port            int
	timeout         time.Duration
	interval        time.Duration
	concurrency     int
	refreshMode     RefreshMode
	userAgent       string
	startPaused     bool
	logger          *slog.Logger
	statusCallbacks []func(Event)
}

// Option is a function that configures a [Monitor] during construction.
//
// Options return an error if validation fails, which [New] passes back to
// the caller.
type Option func(*monitorConfig) error

// WithTimeout bounds each probe. Defaults to 3 seconds.
//
// Returns an error if the duration is zero or negative.
func WithTimeout(d time.Duration) Option {
	return func(cfg *monitorConfig) error {
		if d <= 0 {
			return errors.New("timeout must be positive")
		}
		cfg.timeout = d
		return nil
	}
}

// WithInterval sets the pause between the end of one cycle and the start of
// the next. A slow cycle delays the next one; cycles never overlap.
// Defaults to 10 seconds.
//
// Returns an error if the duration is zero or negative.
func WithInterval(d time.Duration) Option {
	return func(cfg *monitorConfig) error {
		if d <= 0 {
			return errors.New("interval must be positive")
		}
		cfg.interval = d
		return nil
	}
}

// WithConcurrency sets how many probes may be in flight within one cycle.
// Defaults to 1, which probes URLs one after another in input order.
//
// Returns an error if the value is zero or negative.
func WithConcurrency(n int) Option {
	return func(cfg *monitorConfig) error {
		if n <= 0 {
			return errors.New("concurrency must be positive")
		}
		cfg.concurrency = n
		return nil
	}
}

// WithRefreshMode selects which URLs later cycles probe. Defaults to
// [RefreshFull].
func WithRefreshMode(mode RefreshMode) Option {
	return func(cfg *monitorConfig) error {
		if _, err := ParseRefreshMode(string(mode)); err != nil {
			return err
		}
		if mode == "" {
			mode = RefreshFull
		}
		cfg.refreshMode = mode
		return nil
	}
}

// WithUserAgent sets the User-Agent header sent with every probe.
// Defaults to "pulsewatch/<version>".
func WithUserAgent(ua string) Option {
	return func(cfg *monitorConfig) error {
		cfg.userAgent = ua
		return nil
	}
}

// WithPort sets the HTTP port used by [Monitor.Run]. Defaults to 8080.
//
// Returns an error if the port is outside the valid range (1-65535).
func WithPort(port int) Option {
	return func(cfg *monitorConfig) error {
		if port < 1 || port > 65535 {
			return fmt.Errorf("port must be between 1 and 65535, got %d", port)
		}
		cfg.port = port
		return nil
	}
}

// WithTitle sets the dashboard title. Defaults to "pulsewatch".
func WithTitle(title string) Option {
	return func(cfg *monitorConfig) error {
		cfg.title = title
		return nil
	}
}

// WithStartPaused makes [Monitor.Run] serve the dashboard without opening a
// session. Monitoring begins when Start is called, for example from the
// dashboard.
func WithStartPaused() Option {
	return func(cfg *monitorConfig) error {
		cfg.startPaused = true
		return nil
	}
}

// WithLogger sets a custom [slog.Logger]. If not specified, [slog.Default]
// is used.
//
// Returns an error if the logger is nil.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *monitorConfig) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithStatusCallback registers a function called for every status event.
//
// Callbacks run synchronously on the goroutine that made the transition,
// after the store has been updated, in registration order. Events for a URL
// therefore arrive in transition order.
//
// IMPORTANT: Callbacks must be fast and must not call [Monitor.Start],
// [Monitor.Stop] or [Monitor.Close]. Dispatch slow work to a separate
// goroutine.
//
// Panics within callbacks are recovered and logged. Nil callbacks are
// silently ignored.
//
// Example:
//
//	m, err := pulsewatch.New(urls,
//	    pulsewatch.WithStatusCallback(func(ev pulsewatch.Event) {
//	        if ev.Status.State == pulsewatch.StateResolved && !ev.Status.Healthy() {
//	            log.Printf("ALERT: %s is %s", ev.URL, ev.Status)
//	        }
//	    }),
//	)
func WithStatusCallback(cb func(Event)) Option {
	return func(cfg *monitorConfig) error {
		if cb == nil {
			return nil
		}
		cfg.statusCallbacks = append(cfg.statusCallbacks, cb)
		return nil
	}
}
