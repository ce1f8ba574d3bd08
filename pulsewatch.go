package pulsewatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jpalmerr/pulsewatch/dashboard"
	"github.com/jpalmerr/pulsewatch/internal/poller"
	"github.com/jpalmerr/pulsewatch/internal/server"
	"github.com/jpalmerr/pulsewatch/internal/store"
)

const (
	defaultPort        = 8080
	defaultConcurrency = 1
)

var (
	// ErrNoURLs is returned when there is nothing to monitor.
	ErrNoURLs = errors.New("no URLs to monitor")

	// ErrClosed is returned by operations on a closed [Monitor].
	ErrClosed = poller.ErrClosed

	// ErrRunning is returned by [Monitor.RunOnce] while a session or another
	// RunOnce is running.
	ErrRunning = poller.ErrRunning
)

// Monitor checks the reachability of a fixed, ordered list of URLs.
//
// A Monitor is either Stopped or Running. [Monitor.Start] opens a session:
// every status resets to Waiting, all URLs are probed immediately, and after
// each completed cycle the Monitor waits the configured interval before the
// next. [Monitor.Stop] ends the session; results still in flight are
// discarded.
//
// The typical lifecycle is:
//
//	m, err := pulsewatch.New(urls)
//	if err != nil {
//	    slog.Error("failed to create monitor", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	m.Run(ctx) // serves the dashboard and monitors until ctx is cancelled
//
// Start, Stop, Snapshot and Subscribe are safe for concurrent use.
type Monitor struct {
	urls        []string
	title       string
	port        int
	timeout     time.Duration
	interval    time.Duration
	concurrency int
	refreshMode RefreshMode
	startPaused bool
	logger      *slog.Logger

	store     *store.MemoryStore
	scheduler *poller.Scheduler
	closeOnce sync.Once
}

// New creates a stopped [Monitor] for urls.
//
// urls are monitored in the given order; duplicates are kept as separate
// entries. URLs are not validated here: a malformed URL resolves to an
// OtherError outcome when probed.
//
// Defaults:
//   - Timeout: 3 seconds
//   - Interval: 10 seconds
//   - Concurrency: 1 (sequential)
//   - Refresh mode: [RefreshFull]
//   - Port: 8080
//
// Returns [ErrNoURLs] if urls is empty, or the first option error.
//
// The Monitor holds idle connections and must be released with
// [Monitor.Close].
func New(urls []string, opts ...Option) (*Monitor, error) {
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}

	cfg := &monitorConfig{
		port:        defaultPort,
		timeout:     poller.DefaultTimeout,
		interval:    poller.DefaultInterval,
		concurrency: defaultConcurrency,
		refreshMode: RefreshFull,
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	userAgent := cfg.userAgent
	if userAgent == "" {
		userAgent = defaultUserAgent()
	}

	urls = append([]string(nil), urls...)

	st := store.NewMemoryStore()
	// seed Waiting rows so a paused dashboard lists every URL
	st.Reset("", urls)
	st.EndSession("")

	for _, cb := range cfg.statusCallbacks {
		cb := cb
		st.OnEvent(func(ev Event) {
			invokeCallbackSafe(cb, ev, logger)
		})
	}

	sched := poller.NewScheduler(urls, st, poller.NewClient(userAgent), poller.SchedulerConfig{
		Interval:    cfg.interval,
		Timeout:     cfg.timeout,
		Concurrency: cfg.concurrency,
		ForceAll:    cfg.refreshMode == RefreshFull,
	}, logger)

	return &Monitor{
		urls:        urls,
		title:       cfg.title,
		port:        cfg.port,
		timeout:     cfg.timeout,
		interval:    cfg.interval,
		concurrency: cfg.concurrency,
		refreshMode: cfg.refreshMode,
		startPaused: cfg.startPaused,
		logger:      logger,
		store:       st,
		scheduler:   sched,
	}, nil
}

// Start opens a new monitoring session and returns immediately.
//
// Start reports whether the Monitor transitioned from Stopped to Running;
// it is a no-op returning false if a session is already running or the
// Monitor is closed.
func (m *Monitor) Start() bool {
	return m.scheduler.Start()
}

// Stop ends the running session and returns immediately, without waiting
// for in-flight probes. Their results are discarded. Statuses keep their
// last values.
//
// Stop reports whether the Monitor transitioned from Running to Stopped.
func (m *Monitor) Stop() bool {
	return m.scheduler.Stop()
}

// Running reports whether a session is open.
func (m *Monitor) Running() bool {
	return m.scheduler.Running()
}

// Session returns information about the running session, if any.
func (m *Monitor) Session() (SessionInfo, bool) {
	return m.scheduler.Session()
}

// Snapshot returns the current status of every URL in input order.
// The returned slice is a copy.
func (m *Monitor) Snapshot() []Entry {
	return m.store.Snapshot()
}

// Subscribe returns a channel of status events. Slow consumers miss events
// once the channel buffer is full. Call [Monitor.Unsubscribe] when done.
func (m *Monitor) Subscribe() <-chan Event {
	return m.store.Subscribe()
}

// Unsubscribe removes a subscription and closes its channel.
func (m *Monitor) Unsubscribe(ch <-chan Event) {
	m.store.Unsubscribe(ch)
}

// RunOnce probes every URL once, blocking until the cycle completes or ctx
// is cancelled, and returns the resulting snapshot.
//
// RunOnce is independent of Start and Stop; while it runs, Start returns
// false. It returns [ErrRunning] if a session or another RunOnce is in
// progress and [ErrClosed] after [Monitor.Close].
func (m *Monitor) RunOnce(ctx context.Context) ([]Entry, error) {
	if _, err := m.scheduler.RunOnce(ctx); err != nil {
		return nil, fmt.Errorf("run once: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return m.store.Snapshot(), fmt.Errorf("run once: %w", err)
	}
	return m.store.Snapshot(), nil
}

// Run serves the dashboard and control API and, unless [WithStartPaused]
// was given, starts monitoring.
//
// Run blocks until ctx is cancelled, then closes the Monitor. Returns nil on
// graceful shutdown, or an error if the HTTP server fails to start.
func (m *Monitor) Run(ctx context.Context) error {
	m.logger.Info("pulsewatch starting",
		"url_count", len(m.urls),
		"interval", m.interval.String(),
		"timeout", m.timeout.String(),
		"refresh_mode", m.refreshMode.String(),
	)

	if ctx.Err() != nil {
		m.Close()
		return nil
	}

	httpServer := server.NewServer(m, m.port, dashboard.Assets, m.title, m.logger)
	if err := httpServer.Start(ctx); err != nil {
		m.Close()
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	m.logger.Info("dashboard available", "url", fmt.Sprintf("http://localhost:%d", m.port))

	if !m.startPaused {
		m.Start()
	}

	<-ctx.Done()
	m.Close()
	m.logger.Info("pulsewatch stopped")
	return nil
}

// Close stops any running session, waits for the scheduler goroutine to
// exit and releases idle connections. Close is idempotent.
func (m *Monitor) Close() {
	m.closeOnce.Do(m.scheduler.Close)
}

// URLs returns a copy of the monitored URLs in input order.
func (m *Monitor) URLs() []string {
	return append([]string(nil), m.urls...)
}

// Port returns the configured HTTP port.
func (m *Monitor) Port() int {
	return m.port
}

// Timeout returns the per-probe timeout.
func (m *Monitor) Timeout() time.Duration {
	return m.timeout
}

// Interval returns the pause between cycles.
func (m *Monitor) Interval() time.Duration {
	return m.interval
}

// Concurrency returns the number of probes allowed in flight per cycle.
func (m *Monitor) Concurrency() int {
	return m.concurrency
}

// RefreshMode returns the configured refresh mode.
func (m *Monitor) RefreshMode() RefreshMode {
	return m.refreshMode
}

// Title returns the dashboard title.
func (m *Monitor) Title() string {
	return m.title
}

// invokeCallbackSafe calls a status callback with panic recovery.
// Panics are logged but do not propagate.
func invokeCallbackSafe(cb func(Event), ev Event, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("status callback panicked",
				"panic", r,
				"url", ev.URL,
				"index", ev.Index,
			)
		}
	}()
	cb(ev)
}
