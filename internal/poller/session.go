package poller

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Session is one monitoring run, from Start to Stop.
//
// The [Scheduler] owns the session exclusively; the [Runner] only observes it
// through [Session.Active] and [Session.Context]. A stopped session never
// becomes active again.
type Session struct {
	// ID identifies the session in events and store writes.
	ID string

	// URLs is the fixed, ordered list monitored by this session.
	URLs []string

	// StartedAt is when the session was created.
	StartedAt time.Time

	ctx    context.Context
	cancel context.CancelFunc
	active atomic.Bool
	cycles atomic.Int64
	done   chan struct{}
}

// SessionInfo is a read-only view of a [Session].
type SessionInfo struct {
	ID        string    `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Cycles    int64     `json:"cycles"`
	URLCount  int       `json:"url_count"`
}

func newSession(parent context.Context, urls []string) *Session {
	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		ID:        uuid.NewString(),
		URLs:      urls,
		StartedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	s.active.Store(true)
	return s
}

// Active reports whether results for this session may still be recorded.
func (s *Session) Active() bool {
	return s.active.Load() && s.ctx.Err() == nil
}

// Context is cancelled when the session is stopped.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Done is closed once the session's cycle loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Cycles returns the number of completed cycles.
func (s *Session) Cycles() int64 {
	return s.cycles.Load()
}

// Info returns a snapshot of the session's identity and progress.
func (s *Session) Info() SessionInfo {
	return SessionInfo{
		ID:        s.ID,
		StartedAt: s.StartedAt,
		Cycles:    s.cycles.Load(),
		URLCount:  len(s.URLs),
	}
}

// deactivate marks the session inactive and cancels in-flight probes.
// Returns false if the session was already inactive.
func (s *Session) deactivate() bool {
	if !s.active.CompareAndSwap(true, false) {
		return false
	}
	s.cancel()
	return true
}
