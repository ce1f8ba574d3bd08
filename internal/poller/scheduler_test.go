package poller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jpalmerr/pulsewatch/internal/status"
	"github.com/jpalmerr/pulsewatch/internal/store"
)

// waitFor polls cond until it returns true or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func allResolved(rec *store.MemoryStore) bool {
	for _, e := range rec.Snapshot() {
		if e.Status.State != status.StateResolved {
			return false
		}
	}
	return true
}

func newTestScheduler(t *testing.T, prober Prober, cfg SchedulerConfig, urls ...string) (*Scheduler, *store.MemoryStore) {
	t.Helper()
	rec := store.NewMemoryStore()
	s := NewScheduler(urls, rec, prober, cfg, testLogger())
	t.Cleanup(s.Close)
	return s, rec
}

// TestScheduler_StopBeforeStart verifies that calling Stop() on a scheduler
// that was never started is a no-op.
func TestScheduler_StopBeforeStart(t *testing.T) {
	s, _ := newTestScheduler(t, &fakeProber{}, SchedulerConfig{Interval: time.Hour}, "http://a")

	if s.Stop() {
		t.Error("Stop() while stopped = true, want false")
	}
	if s.Running() {
		t.Error("Running() = true, want false")
	}
}

// TestScheduler_StartTwice verifies that a second Start() while running is a
// no-op and does not open a second session.
func TestScheduler_StartTwice(t *testing.T) {
	s, _ := newTestScheduler(t, &fakeProber{}, SchedulerConfig{Interval: time.Hour}, "http://a")

	if !s.Start() {
		t.Fatal("Start() = false, want true")
	}
	first, _ := s.Session()

	if s.Start() {
		t.Error("second Start() = true, want false")
	}
	second, ok := s.Session()
	if !ok || second.ID != first.ID {
		t.Errorf("session changed on second Start(): %q -> %q", first.ID, second.ID)
	}
}

// TestScheduler_StopTwice verifies that Stop() is idempotent.
func TestScheduler_StopTwice(t *testing.T) {
	s, _ := newTestScheduler(t, &fakeProber{}, SchedulerConfig{Interval: time.Hour}, "http://a")
	s.Start()

	if !s.Stop() {
		t.Error("first Stop() = false, want true")
	}
	if s.Stop() {
		t.Error("second Stop() = true, want false")
	}
	if _, ok := s.Session(); ok {
		t.Error("Session() ok after Stop(), want false")
	}
}

// TestScheduler_ImmediateForcedCycle verifies that Start runs a full cycle
// at once, even for a long interval.
func TestScheduler_ImmediateForcedCycle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	s, rec := newTestScheduler(t, NewClient(""), SchedulerConfig{Interval: time.Hour}, server.URL, server.URL+"/x")
	s.Start()

	waitFor(t, 2*time.Second, func() bool { return allResolved(rec) })

	for i, e := range rec.Snapshot() {
		if e.Status != status.Resolved(status.Success(200)) {
			t.Errorf("entry %d = %v, want Resolved(Success(200))", i, e.Status)
		}
	}
}

// TestScheduler_IntervalMeasuredFromCycleEnd verifies that the wait starts
// after the cycle completes, so a slow cycle pushes the next one back.
func TestScheduler_IntervalMeasuredFromCycleEnd(t *testing.T) {
	const (
		probeTime = 60 * time.Millisecond
		interval  = 40 * time.Millisecond
	)

	var mu sync.Mutex
	var starts []time.Time
	prober := &fakeProber{fn: func(context.Context, string) status.Outcome {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		time.Sleep(probeTime)
		return status.Success(200)
	}}

	s, _ := newTestScheduler(t, prober, SchedulerConfig{Interval: interval, ForceAll: true}, "http://a")
	s.Start()

	waitFor(t, 3*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(starts) >= 3
	})
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(starts); i++ {
		gap := starts[i].Sub(starts[i-1])
		if gap < probeTime+interval {
			t.Errorf("gap between cycle %d and %d = %v, want >= %v", i-1, i, gap, probeTime+interval)
		}
	}
}

// TestScheduler_CyclesNeverOverlap verifies that at most one probe is in
// flight for a single-URL session even with a tiny interval.
func TestScheduler_CyclesNeverOverlap(t *testing.T) {
	var inFlight, maxInFlight, total atomic.Int64
	prober := &fakeProber{fn: func(context.Context, string) status.Outcome {
		n := inFlight.Add(1)
		for {
			m := maxInFlight.Load()
			if n <= m || maxInFlight.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		total.Add(1)
		return status.Success(200)
	}}

	s, _ := newTestScheduler(t, prober, SchedulerConfig{Interval: time.Millisecond, ForceAll: true}, "http://a")
	s.Start()

	waitFor(t, 3*time.Second, func() bool { return total.Load() >= 5 })
	s.Stop()

	if got := maxInFlight.Load(); got != 1 {
		t.Errorf("max probes in flight = %d, want 1", got)
	}
}

// TestScheduler_SkipHealthyRefresh verifies that with ForceAll off, later
// cycles skip healthy URLs but keep probing failing ones.
func TestScheduler_SkipHealthyRefresh(t *testing.T) {
	prober := &fakeProber{fn: func(_ context.Context, u string) status.Outcome {
		if u == "http://down" {
			return status.HTTPError(503)
		}
		return status.Success(200)
	}}

	s, _ := newTestScheduler(t, prober, SchedulerConfig{Interval: 5 * time.Millisecond, ForceAll: false}, "http://up", "http://down")
	s.Start()

	waitFor(t, 3*time.Second, func() bool { return prober.CallCount("http://down") >= 3 })
	s.Stop()

	if got := prober.CallCount("http://up"); got != 1 {
		t.Errorf("healthy URL probed %d times, want 1", got)
	}
}

// TestScheduler_FullRefresh verifies that with ForceAll on, healthy URLs are
// probed every cycle.
func TestScheduler_FullRefresh(t *testing.T) {
	prober := &fakeProber{}

	s, _ := newTestScheduler(t, prober, SchedulerConfig{Interval: 5 * time.Millisecond, ForceAll: true}, "http://up")
	s.Start()

	waitFor(t, 3*time.Second, func() bool { return prober.CallCount("http://up") >= 3 })
	s.Stop()
}

// TestScheduler_StopDuringFirstCycle verifies that stopping before the first
// cycle finishes discards the in-flight result and starts no further cycle.
func TestScheduler_StopDuringFirstCycle(t *testing.T) {
	entered := make(chan struct{}, 1)
	prober := &fakeProber{fn: func(ctx context.Context, _ string) status.Outcome {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return status.OtherError(ctx.Err().Error())
	}}

	s, rec := newTestScheduler(t, prober, SchedulerConfig{Interval: time.Millisecond, ForceAll: true}, "http://a", "http://b")
	s.Start()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("probe never started")
	}
	s.Stop()

	// give any straggler a chance to misbehave
	time.Sleep(50 * time.Millisecond)

	snap := rec.Snapshot()
	if snap[0].Status != status.Checking() {
		t.Errorf("entry 0 = %v, want Checking (in-flight result discarded)", snap[0].Status)
	}
	if snap[1].Status != status.Waiting() {
		t.Errorf("entry 1 = %v, want Waiting", snap[1].Status)
	}
	if got := len(prober.Calls()); got != 1 {
		t.Errorf("probe calls = %d, want 1", got)
	}
}

// TestScheduler_RestartResetsToWaiting verifies that Start after Stop opens a
// new session whose first events reset every URL to Waiting.
func TestScheduler_RestartResetsToWaiting(t *testing.T) {
	s, rec := newTestScheduler(t, &fakeProber{}, SchedulerConfig{Interval: time.Hour}, "http://a", "http://b")
	s.Start()
	waitFor(t, 2*time.Second, func() bool { return allResolved(rec) })
	first, _ := s.Session()
	s.Stop()

	ch := rec.Subscribe()
	defer rec.Unsubscribe(ch)

	s.Start()
	second, _ := s.Session()
	if second.ID == first.ID {
		t.Fatal("restart reused the previous session ID")
	}

	for i := 0; i < 2; i++ {
		select {
		case ev := <-ch:
			if ev.SessionID != second.ID || ev.Index != i || ev.Status != status.Waiting() {
				t.Errorf("event %d = %+v, want Waiting for index %d in new session", i, ev, i)
			}
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for reset event %d", i)
		}
	}

	waitFor(t, 2*time.Second, func() bool { return allResolved(rec) })
}

// TestScheduler_StaleSessionCannotWrite verifies that a probe from a stopped
// session that returns after a restart is not recorded.
func TestScheduler_StaleSessionCannotWrite(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int64
	prober := &fakeProber{fn: func(context.Context, string) status.Outcome {
		if calls.Add(1) == 1 {
			// ignores cancellation to simulate a probe that outlives Stop
			<-release
			return status.HTTPError(500)
		}
		return status.Success(200)
	}}

	s, rec := newTestScheduler(t, prober, SchedulerConfig{Interval: time.Hour}, "http://a")
	s.Start()
	waitFor(t, time.Second, func() bool { return calls.Load() == 1 })
	s.Stop()
	s.Start()

	waitFor(t, 2*time.Second, func() bool { return allResolved(rec) })
	close(release)
	time.Sleep(50 * time.Millisecond)

	if got := rec.Status(0); got != status.Resolved(status.Success(200)) {
		t.Errorf("Status(0) = %v, want Resolved(Success(200)) from the new session", got)
	}
}

// TestScheduler_SessionInfo verifies session metadata and the cycle counter.
func TestScheduler_SessionInfo(t *testing.T) {
	s, _ := newTestScheduler(t, &fakeProber{}, SchedulerConfig{Interval: 5 * time.Millisecond}, "http://a", "http://b")
	s.Start()

	waitFor(t, 2*time.Second, func() bool {
		info, ok := s.Session()
		return ok && info.Cycles >= 2
	})

	info, _ := s.Session()
	if info.URLCount != 2 {
		t.Errorf("URLCount = %d, want 2", info.URLCount)
	}
	if info.ID == "" || info.StartedAt.IsZero() {
		t.Errorf("info = %+v, want ID and StartedAt set", info)
	}
}

// TestScheduler_Close verifies that Close stops the session, releases the
// prober and disables further starts.
func TestScheduler_Close(t *testing.T) {
	prober := &fakeProber{}
	rec := store.NewMemoryStore()
	s := NewScheduler([]string{"http://a"}, rec, prober, SchedulerConfig{Interval: time.Millisecond}, testLogger())
	s.Start()

	done := make(chan struct{})
	go func() {
		s.Close()
		s.Close() // idempotent
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close() did not return")
	}

	if s.Running() {
		t.Error("Running() after Close = true, want false")
	}
	if s.Start() {
		t.Error("Start() after Close = true, want false")
	}
	if _, err := s.RunOnce(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("RunOnce() after Close error = %v, want ErrClosed", err)
	}
	prober.mu.Lock()
	closed := prober.closed
	prober.mu.Unlock()
	if closed != 1 {
		t.Errorf("prober closed %d times, want 1", closed)
	}
}

// TestScheduler_RunOnce verifies a single synchronous forced cycle.
func TestScheduler_RunOnce(t *testing.T) {
	prober := &fakeProber{}
	s, rec := newTestScheduler(t, prober, SchedulerConfig{Interval: time.Hour}, "http://a", "http://b")

	stats, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce() error = %v", err)
	}
	if stats.Probed != 2 {
		t.Errorf("Probed = %d, want 2", stats.Probed)
	}
	if !allResolved(rec) {
		t.Errorf("Snapshot() = %+v, want all resolved", rec.Snapshot())
	}
	if s.Running() {
		t.Error("Running() after RunOnce = true, want false")
	}
}

func TestScheduler_RunOnceWhileRunning(t *testing.T) {
	s, _ := newTestScheduler(t, &fakeProber{}, SchedulerConfig{Interval: time.Hour}, "http://a")
	s.Start()

	if _, err := s.RunOnce(context.Background()); !errors.Is(err, ErrRunning) {
		t.Errorf("RunOnce() error = %v, want ErrRunning", err)
	}
}

// TestScheduler_RunOnceDoesNotBlockLifecycle verifies that Start and Stop
// answer promptly while a RunOnce cycle is in flight, and that Start works
// again once it finishes.
func TestScheduler_RunOnceDoesNotBlockLifecycle(t *testing.T) {
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	prober := &fakeProber{fn: func(ctx context.Context, _ string) status.Outcome {
		select {
		case entered <- struct{}{}:
		default:
		}
		select {
		case <-release:
			return status.Success(200)
		case <-ctx.Done():
			return status.OtherError(ctx.Err().Error())
		}
	}}
	s, rec := newTestScheduler(t, prober, SchedulerConfig{Interval: time.Hour}, "http://a")

	type result struct {
		stats CycleStats
		err   error
	}
	done := make(chan result, 1)
	go func() {
		stats, err := s.RunOnce(context.Background())
		done <- result{stats, err}
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("probe never started")
	}

	lifecycle := make(chan [2]bool, 1)
	go func() { lifecycle <- [2]bool{s.Start(), s.Stop()} }()
	select {
	case got := <-lifecycle:
		if got[0] || got[1] {
			t.Errorf("Start(), Stop() during RunOnce = %v, %v, want false, false", got[0], got[1])
		}
	case <-time.After(time.Second):
		t.Fatal("Start/Stop blocked behind RunOnce")
	}
	if _, err := s.RunOnce(context.Background()); !errors.Is(err, ErrRunning) {
		t.Errorf("second RunOnce() error = %v, want ErrRunning", err)
	}

	close(release)
	var res result
	select {
	case res = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunOnce did not return")
	}
	if res.err != nil || res.stats.Probed != 1 {
		t.Fatalf("RunOnce() = %+v, %v, want 1 probed", res.stats, res.err)
	}
	if !allResolved(rec) {
		t.Errorf("Snapshot() = %+v, want all resolved", rec.Snapshot())
	}

	if !s.Start() {
		t.Error("Start() after RunOnce = false, want true")
	}
	s.Stop()
}

// TestScheduler_CloseDuringRunOnce verifies that Close aborts an in-flight
// RunOnce.
func TestScheduler_CloseDuringRunOnce(t *testing.T) {
	entered := make(chan struct{}, 1)
	prober := &fakeProber{fn: func(ctx context.Context, _ string) status.Outcome {
		select {
		case entered <- struct{}{}:
		default:
		}
		<-ctx.Done()
		return status.OtherError(ctx.Err().Error())
	}}
	s, _ := newTestScheduler(t, prober, SchedulerConfig{Interval: time.Hour}, "http://a", "http://b")

	done := make(chan CycleStats, 1)
	go func() {
		stats, _ := s.RunOnce(context.Background())
		done <- stats
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("probe never started")
	}

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return")
	}

	var stats CycleStats
	select {
	case stats = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunOnce did not return after Close")
	}
	if !stats.Aborted {
		t.Errorf("stats = %+v, want aborted", stats)
	}
	if got := len(prober.Calls()); got != 1 {
		t.Errorf("probe calls = %d, want 1", got)
	}
}

// TestScheduler_ConcurrentStartStop verifies that calling Start() and Stop()
// concurrently does not cause a race condition or panic.
// Run with: go test -race ./internal/poller/...
func TestScheduler_ConcurrentStartStop(t *testing.T) {
	for i := 0; i < 50; i++ {
		rec := store.NewMemoryStore()
		s := NewScheduler([]string{"http://a", "http://b"}, rec, &fakeProber{}, SchedulerConfig{Interval: time.Millisecond}, testLogger())

		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				s.Start()
			}()
			go func() {
				defer wg.Done()
				s.Stop()
			}()
		}
		wg.Wait()

		s.Close()
	}
}
