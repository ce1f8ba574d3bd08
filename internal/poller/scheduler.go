package poller

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultInterval is the pause between the end of one cycle and the start of
// the next.
const DefaultInterval = 10 * time.Second

var (
	// ErrClosed is returned by operations on a closed [Scheduler].
	ErrClosed = errors.New("scheduler closed")

	// ErrRunning is returned by [Scheduler.RunOnce] while a session or another
	// RunOnce is running.
	ErrRunning = errors.New("scheduler already running")
)

// Scheduler drives the [Runner] in repeated cycles over a fixed URL list.
//
// A Scheduler is either Stopped or Running. Each Start opens a new [Session]:
// statuses are reset to Waiting, one cycle runs immediately with every URL
// forced, and afterwards the scheduler waits the interval after each cycle
// completes before starting the next. Cycles never overlap.
//
// Start, Stop and Close are safe for concurrent use.
type Scheduler struct {
	urls     []string
	rec      Recorder
	runner   *Runner
	prober   Prober
	interval time.Duration
	forceAll bool
	logger   *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// mu serialises lifecycle transitions, including the store reset and
	// session end they perform. It is not held while a cycle runs.
	mu          sync.Mutex
	closed      bool
	runningOnce bool
	current     atomic.Pointer[Session]
	closeOnce   sync.Once
}

// SchedulerConfig holds the timing and refresh policy of a [Scheduler].
type SchedulerConfig struct {
	// Interval between the end of a cycle and the start of the next.
	// Zero means [DefaultInterval].
	Interval time.Duration

	// Timeout per probe. Zero means [DefaultTimeout].
	Timeout time.Duration

	// Concurrency is the number of probes in flight within a cycle.
	// Values below 1 mean sequential.
	Concurrency int

	// ForceAll applies to cycles after the first of each session. When false,
	// URLs already Resolved(Success) are skipped.
	ForceAll bool
}

// NewScheduler creates a stopped [Scheduler] for urls.
//
// The scheduler must eventually be released with [Scheduler.Close], which
// stops any running session and waits for its goroutine to exit.
func NewScheduler(urls []string, rec Recorder, prober Prober, cfg SchedulerConfig, logger *slog.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		urls:     append([]string(nil), urls...),
		rec:      rec,
		prober:   prober,
		runner:   NewRunner(prober, cfg.Timeout, cfg.Concurrency, logger),
		interval: cfg.Interval,
		forceAll: cfg.ForceAll,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start opens a new session and begins cycling in a background goroutine.
//
// Start returns false without side effects if a session or a
// [Scheduler.RunOnce] cycle is already running, or the scheduler is closed.
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.runningOnce || s.current.Load() != nil {
		return false
	}

	sess := newSession(s.ctx, s.urls)
	s.current.Store(sess)
	s.rec.Reset(sess.ID, sess.URLs)

	s.wg.Add(1)
	go s.loop(sess)

	s.logger.Info("monitoring session started",
		"session_id", sess.ID,
		"url_count", len(sess.URLs),
		"interval", s.interval.String(),
	)
	return true
}

// Stop ends the running session.
//
// The pending wait is cancelled, in-flight probes are aborted and any result
// that still arrives is discarded. Stop does not wait for the session's
// goroutine to exit. It returns false if no session was running.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess := s.current.Load()
	if sess == nil {
		return false
	}

	sess.deactivate()
	s.current.Store(nil)
	s.rec.EndSession(sess.ID)

	s.logger.Info("monitoring session stopped",
		"session_id", sess.ID,
		"cycles", sess.Cycles(),
	)
	return true
}

// Running reports whether a session is in progress.
func (s *Scheduler) Running() bool {
	return s.current.Load() != nil
}

// Session returns the running session's info, or false when stopped.
func (s *Scheduler) Session() (SessionInfo, bool) {
	sess := s.current.Load()
	if sess == nil {
		return SessionInfo{}, false
	}
	return sess.Info(), true
}

// RunOnce runs a single forced cycle outside the start/stop lifecycle and
// blocks until it finishes or ctx is cancelled.
//
// It returns [ErrRunning] if a session or another RunOnce is in progress and
// [ErrClosed] after [Scheduler.Close]. While it runs, Start returns false and
// Stop has nothing to stop; neither blocks on the cycle.
func (s *Scheduler) RunOnce(ctx context.Context) (CycleStats, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return CycleStats{}, ErrClosed
	}
	if s.runningOnce || s.current.Load() != nil {
		s.mu.Unlock()
		return CycleStats{}, ErrRunning
	}

	sess := newSession(ctx, s.urls)
	s.runningOnce = true
	s.rec.Reset(sess.ID, sess.URLs)
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	stopOnClose := context.AfterFunc(s.ctx, func() { sess.deactivate() })
	stats := s.runner.RunCycle(sess.ctx, sess, s.rec, true)
	stopOnClose()
	sess.deactivate()

	s.mu.Lock()
	s.rec.EndSession(sess.ID)
	s.runningOnce = false
	s.mu.Unlock()
	close(sess.done)

	s.logCycle(sess, stats)
	return stats, nil
}

// Close stops any running session, waits for background goroutines and
// releases idle connections. Start and RunOnce fail after Close.
// Close is idempotent.
func (s *Scheduler) Close() {
	s.closeOnce.Do(func() {
		// cancel aborts an in-progress RunOnce; wg.Wait below waits for it
		s.cancel()
		s.Stop()

		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()

		s.wg.Wait()

		if c, ok := s.prober.(interface{ Close() }); ok {
			c.Close()
		}
	})
}

// loop runs cycles for sess until it is stopped.
//
// The next cycle is scheduled only after the current one has completed, so a
// slow cycle delays the next rather than overlapping it.
func (s *Scheduler) loop(sess *Session) {
	defer s.wg.Done()
	defer close(sess.done)

	forceAll := true
	for {
		stats := s.runner.RunCycle(sess.ctx, sess, s.rec, forceAll)
		if stats.Aborted || !sess.Active() {
			s.logger.Debug("cycle aborted", "session_id", sess.ID)
			return
		}
		sess.cycles.Add(1)
		s.logCycle(sess, stats)

		forceAll = s.forceAll

		timer := time.NewTimer(s.interval)
		select {
		case <-sess.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *Scheduler) logCycle(sess *Session, stats CycleStats) {
	s.logger.Info("cycle completed",
		"session_id", sess.ID,
		"probed", stats.Probed,
		"skipped", stats.Skipped,
		"aborted", stats.Aborted,
		"duration", stats.Duration.String(),
	)
}
