package poller

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jpalmerr/pulsewatch/internal/status"
)

// Recorder is the status sink a cycle writes to.
//
// Update must reject writes for a session that is not current or has ended,
// returning false.
type Recorder interface {
	Reset(sessionID string, urls []string)
	Status(index int) status.Status
	Update(sessionID string, index int, s status.Status) bool
	EndSession(sessionID string)
}

// CycleStats summarises one pass over the URL list.
type CycleStats struct {
	Probed   int
	Skipped  int
	Aborted  bool
	Duration time.Duration
}

// Runner probes every URL of a session once per cycle.
//
// With concurrency 1 URLs are probed strictly in input order. With a higher
// limit probes overlap, but statuses stay index-addressed so display order is
// unaffected.
type Runner struct {
	prober      Prober
	timeout     time.Duration
	concurrency int
	logger      *slog.Logger
}

// NewRunner creates a [Runner]. A timeout <= 0 means [DefaultTimeout];
// concurrency < 1 means sequential.
func NewRunner(prober Prober, timeout time.Duration, concurrency int, logger *slog.Logger) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		prober:      prober,
		timeout:     timeout,
		concurrency: concurrency,
		logger:      logger,
	}
}

// RunCycle runs one cycle over sess.URLs.
//
// Before each URL the session is checked; once it is inactive the rest of the
// cycle is abandoned. When forceAll is false, URLs currently Resolved(Success)
// are skipped without a probe or an event. Each probed URL moves to Checking
// and then to Resolved, the latter only if the session is still active when
// the probe returns.
func (r *Runner) RunCycle(ctx context.Context, sess *Session, rec Recorder, forceAll bool) CycleStats {
	start := time.Now()
	var stats CycleStats

	if r.concurrency == 1 {
		for i, u := range sess.URLs {
			if !sess.Active() || ctx.Err() != nil {
				stats.Aborted = true
				break
			}
			if !forceAll && rec.Status(i).Healthy() {
				stats.Skipped++
				continue
			}
			if r.check(ctx, sess, rec, i, u) {
				stats.Probed++
			}
		}
		stats.Duration = time.Since(start)
		return stats
	}

	g := new(errgroup.Group)
	g.SetLimit(r.concurrency)
	var probed, skipped atomic.Int64

	for i, u := range sess.URLs {
		if !sess.Active() || ctx.Err() != nil {
			stats.Aborted = true
			break
		}
		if !forceAll && rec.Status(i).Healthy() {
			skipped.Add(1)
			continue
		}
		i, u := i, u
		g.Go(func() error {
			if r.check(ctx, sess, rec, i, u) {
				probed.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	stats.Probed = int(probed.Load())
	stats.Skipped = int(skipped.Load())
	stats.Duration = time.Since(start)
	return stats
}

// check drives one URL through Checking to Resolved. It reports false,
// without probing, when the recorder rejects the Checking update.
func (r *Runner) check(ctx context.Context, sess *Session, rec Recorder, index int, rawURL string) bool {
	if !rec.Update(sess.ID, index, status.Checking()) {
		return false
	}

	start := time.Now()
	outcome := r.safeProbe(ctx, rawURL)
	latency := time.Since(start)

	if !sess.Active() {
		r.logger.Debug("discarding probe result for stopped session",
			"session_id", sess.ID,
			"index", index,
			"url", rawURL,
		)
		return true
	}
	if !rec.Update(sess.ID, index, status.Resolved(outcome)) {
		return true
	}

	logAttrs := []any{
		"index", index,
		"url", rawURL,
		"outcome", string(outcome.Kind),
		"latency_ms", latency.Milliseconds(),
	}
	if outcome.Code != 0 {
		logAttrs = append(logAttrs, "code", outcome.Code)
	}
	if outcome.Kind == status.KindSuccess {
		r.logger.Debug("probe completed", logAttrs...)
	} else {
		if outcome.Message != "" {
			logAttrs = append(logAttrs, "error", outcome.Message)
		}
		r.logger.Warn("probe completed with failure", logAttrs...)
	}
	return true
}

// safeProbe calls the prober with panic recovery.
// A panic is logged with a correlation ID and surfaces as OtherError.
func (r *Runner) safeProbe(ctx context.Context, rawURL string) (outcome status.Outcome) {
	defer func() {
		if p := recover(); p != nil {
			correlationID := uuid.NewString()

			r.logger.Error("probe panic",
				"correlation_id", correlationID,
				"url", rawURL,
				"panic", fmt.Sprintf("%v", p),
				"stack", string(debug.Stack()),
			)

			outcome = status.OtherError(fmt.Sprintf("probe panic (correlation_id: %s)", correlationID))
		}
	}()
	return r.prober.Probe(ctx, rawURL, r.timeout)
}
