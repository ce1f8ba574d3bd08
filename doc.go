// Package pulsewatch monitors the reachability of a fixed list of URLs and
// reports per-URL status in real time.
//
// Each URL is probed with an HTTP HEAD request under a short timeout, and the
// result is classified as a success, an HTTP error, a timeout, a connection
// error, or some other error. Statuses are held in memory and published as
// events to subscribers, callbacks, a terminal view and an embedded web
// dashboard.
//
// # Quick Start
//
//	m, err := pulsewatch.New([]string{
//	    "https://example.com",
//	    "https://api.example.com/health",
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	m.Run(ctx) // blocks until ctx is cancelled
//
// # Sessions
//
// A [Monitor] is either Stopped or Running. Every [Monitor.Start] opens a new
// session: all statuses reset to Waiting and one cycle probes every URL
// immediately. The Monitor then waits the configured interval after each
// cycle completes before starting the next, so cycles never overlap.
// [Monitor.Stop] ends the session without waiting; results of probes still in
// flight are discarded and never reach subscribers.
//
// With [RefreshSkipHealthy], cycles after the first skip URLs whose last
// outcome was a success. The default, [RefreshFull], probes every URL on
// every cycle.
//
// # Configuration
//
// Monitors use the functional options pattern:
//
//	m, err := pulsewatch.New(urls,
//	    pulsewatch.WithTimeout(2*time.Second),
//	    pulsewatch.WithInterval(30*time.Second),
//	    pulsewatch.WithConcurrency(4),
//	    pulsewatch.WithPort(9090),
//	)
//
// The config package loads the same settings from YAML.
//
// # Architecture
//
// pulsewatch consists of several internal packages (under internal/):
//
//   - internal/poller: HEAD prober, cycle runner and session scheduler
//   - internal/store: In-memory status store with pub/sub for real-time updates
//   - internal/status: Status, outcome and event types
//   - internal/server: HTTP server with control API and Server-Sent Events
//   - internal/display: Terminal table renderer
//   - internal/logging: slog setup with optional file rotation
//   - dashboard: Embedded web UI assets
//
// The internal packages are not part of the public API and may change
// without notice.
package pulsewatch
