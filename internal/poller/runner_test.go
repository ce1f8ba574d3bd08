package poller

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jpalmerr/pulsewatch/internal/status"
	"github.com/jpalmerr/pulsewatch/internal/store"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeProber records calls and answers with fn, or Success(200) when fn is nil.
type fakeProber struct {
	mu     sync.Mutex
	calls  []string
	closed int
	fn     func(ctx context.Context, rawURL string) status.Outcome
}

func (f *fakeProber) Probe(ctx context.Context, rawURL string, _ time.Duration) status.Outcome {
	f.mu.Lock()
	f.calls = append(f.calls, rawURL)
	fn := f.fn
	f.mu.Unlock()

	if fn == nil {
		return status.Success(200)
	}
	return fn(ctx, rawURL)
}

func (f *fakeProber) Close() {
	f.mu.Lock()
	f.closed++
	f.mu.Unlock()
}

func (f *fakeProber) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeProber) CallCount(rawURL string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == rawURL {
			n++
		}
	}
	return n
}

func newTestSession(t *testing.T, rec *store.MemoryStore, urls ...string) *Session {
	t.Helper()
	sess := newSession(context.Background(), urls)
	t.Cleanup(func() { sess.deactivate() })
	rec.Reset(sess.ID, urls)
	return sess
}

// TestRunner_SequentialInputOrder verifies that a sequential cycle probes in
// input order and leaves every URL resolved.
func TestRunner_SequentialInputOrder(t *testing.T) {
	urls := []string{"http://c", "http://a", "http://b", "http://a"}
	prober := &fakeProber{}
	rec := store.NewMemoryStore()
	sess := newTestSession(t, rec, urls...)

	stats := NewRunner(prober, time.Second, 1, testLogger()).RunCycle(context.Background(), sess, rec, true)

	if stats.Probed != 4 || stats.Skipped != 0 || stats.Aborted {
		t.Errorf("stats = %+v, want 4 probed", stats)
	}
	calls := prober.Calls()
	for i, u := range urls {
		if calls[i] != u {
			t.Errorf("call[%d] = %q, want %q", i, calls[i], u)
		}
	}
	for i, e := range rec.Snapshot() {
		if e.Status != status.Resolved(status.Success(200)) {
			t.Errorf("entry %d = %v, want Resolved(Success(200))", i, e.Status)
		}
	}
}

// TestRunner_EmitsCheckingThenResolved verifies the per-URL transition order.
func TestRunner_EmitsCheckingThenResolved(t *testing.T) {
	prober := &fakeProber{fn: func(context.Context, string) status.Outcome { return status.HTTPError(500) }}
	rec := store.NewMemoryStore()

	var mu sync.Mutex
	var events []status.Event
	rec.OnEvent(func(ev status.Event) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})

	sess := newTestSession(t, rec, "http://a")
	NewRunner(prober, time.Second, 1, testLogger()).RunCycle(context.Background(), sess, rec, true)

	mu.Lock()
	defer mu.Unlock()
	want := []status.Status{status.Waiting(), status.Checking(), status.Resolved(status.HTTPError(500))}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, w := range want {
		if events[i].Status != w {
			t.Errorf("event[%d] = %v, want %v", i, events[i].Status, w)
		}
	}
}

// TestRunner_SkipHealthy verifies the skip-on-success policy: N cycles without
// forceAll against a healthy URL make a single network call.
func TestRunner_SkipHealthy(t *testing.T) {
	prober := &fakeProber{}
	rec := store.NewMemoryStore()
	sess := newTestSession(t, rec, "http://up")
	runner := NewRunner(prober, time.Second, 1, testLogger())

	runner.RunCycle(context.Background(), sess, rec, true)

	const n = 5
	for i := 1; i < n; i++ {
		stats := runner.RunCycle(context.Background(), sess, rec, false)
		if stats.Skipped != 1 || stats.Probed != 0 {
			t.Errorf("cycle %d stats = %+v, want 1 skipped", i, stats)
		}
	}

	if got := prober.CallCount("http://up"); got != 1 {
		t.Errorf("probe calls = %d, want 1", got)
	}
}

// TestRunner_SkipHealthyReprobesFailures verifies that only Resolved(Success)
// is skipped; failures and never-probed URLs are probed again.
func TestRunner_SkipHealthyReprobesFailures(t *testing.T) {
	prober := &fakeProber{fn: func(_ context.Context, u string) status.Outcome {
		if u == "http://down" {
			return status.ConnectionError()
		}
		return status.Success(200)
	}}
	rec := store.NewMemoryStore()
	sess := newTestSession(t, rec, "http://up", "http://down", "http://new")

	// only resolve the first two
	rec.Update(sess.ID, 0, status.Resolved(status.Success(200)))
	rec.Update(sess.ID, 1, status.Resolved(status.ConnectionError()))

	stats := NewRunner(prober, time.Second, 1, testLogger()).RunCycle(context.Background(), sess, rec, false)

	if stats.Probed != 2 || stats.Skipped != 1 {
		t.Errorf("stats = %+v, want 2 probed 1 skipped", stats)
	}
	if prober.CallCount("http://up") != 0 {
		t.Error("healthy URL was probed")
	}
	if prober.CallCount("http://down") != 1 || prober.CallCount("http://new") != 1 {
		t.Errorf("calls = %v, want down and new probed once", prober.Calls())
	}
}

// TestRunner_ForceAllReprobesHealthy verifies forceAll ignores prior success.
func TestRunner_ForceAllReprobesHealthy(t *testing.T) {
	prober := &fakeProber{}
	rec := store.NewMemoryStore()
	sess := newTestSession(t, rec, "http://up")
	runner := NewRunner(prober, time.Second, 1, testLogger())

	for i := 0; i < 3; i++ {
		runner.RunCycle(context.Background(), sess, rec, true)
	}

	if got := prober.CallCount("http://up"); got != 3 {
		t.Errorf("probe calls = %d, want 3", got)
	}
}

// TestRunner_ConcurrentKeepsInputOrder verifies that completion order does
// not affect snapshot order when probes overlap.
func TestRunner_ConcurrentKeepsInputOrder(t *testing.T) {
	urls := []string{"http://0", "http://1", "http://2", "http://3"}
	delays := map[string]time.Duration{
		"http://0": 80 * time.Millisecond,
		"http://1": 60 * time.Millisecond,
		"http://2": 40 * time.Millisecond,
		"http://3": 0,
	}
	codes := map[string]int{"http://0": 200, "http://1": 201, "http://2": 404, "http://3": 500}

	prober := &fakeProber{fn: func(_ context.Context, u string) status.Outcome {
		time.Sleep(delays[u])
		if codes[u] >= 400 {
			return status.HTTPError(codes[u])
		}
		return status.Success(codes[u])
	}}
	rec := store.NewMemoryStore()
	sess := newTestSession(t, rec, urls...)

	start := time.Now()
	stats := NewRunner(prober, time.Second, 4, testLogger()).RunCycle(context.Background(), sess, rec, true)

	if stats.Probed != 4 {
		t.Errorf("Probed = %d, want 4", stats.Probed)
	}
	if time.Since(start) > 170*time.Millisecond {
		t.Errorf("concurrent cycle took %v, probes did not overlap", time.Since(start))
	}

	want := []status.Outcome{status.Success(200), status.Success(201), status.HTTPError(404), status.HTTPError(500)}
	snap := rec.Snapshot()
	for i, e := range snap {
		if e.URL != urls[i] {
			t.Errorf("entry %d URL = %q, want %q", i, e.URL, urls[i])
		}
		if e.Status != status.Resolved(want[i]) {
			t.Errorf("entry %d = %v, want %v", i, e.Status, status.Resolved(want[i]))
		}
	}
}

// TestRunner_StopMidCycle verifies that stopping the session during a probe
// discards that probe's result and leaves later URLs untouched.
func TestRunner_StopMidCycle(t *testing.T) {
	rec := store.NewMemoryStore()
	var sess *Session
	prober := &fakeProber{fn: func(_ context.Context, u string) status.Outcome {
		if u == "http://1" {
			sess.deactivate()
		}
		return status.Success(200)
	}}
	sess = newTestSession(t, rec, "http://0", "http://1", "http://2")

	stats := NewRunner(prober, time.Second, 1, testLogger()).RunCycle(context.Background(), sess, rec, true)

	if !stats.Aborted {
		t.Error("Aborted = false, want true")
	}
	snap := rec.Snapshot()
	if snap[0].Status != status.Resolved(status.Success(200)) {
		t.Errorf("entry 0 = %v, want Resolved(Success(200))", snap[0].Status)
	}
	if snap[1].Status != status.Checking() {
		t.Errorf("entry 1 = %v, want Checking (result discarded)", snap[1].Status)
	}
	if snap[2].Status != status.Waiting() {
		t.Errorf("entry 2 = %v, want Waiting (never reached)", snap[2].Status)
	}
	if prober.CallCount("http://2") != 0 {
		t.Error("URL after stop was probed")
	}
}

// TestRunner_InactiveSessionDoesNothing verifies that an already-stopped
// session produces no probes.
func TestRunner_InactiveSessionDoesNothing(t *testing.T) {
	prober := &fakeProber{}
	rec := store.NewMemoryStore()
	sess := newTestSession(t, rec, "http://a", "http://b")
	sess.deactivate()

	for _, concurrency := range []int{1, 3} {
		stats := NewRunner(prober, time.Second, concurrency, testLogger()).RunCycle(context.Background(), sess, rec, true)
		if !stats.Aborted || stats.Probed != 0 {
			t.Errorf("concurrency %d: stats = %+v, want aborted with 0 probed", concurrency, stats)
		}
	}
	if len(prober.Calls()) != 0 {
		t.Errorf("calls = %v, want none", prober.Calls())
	}
}

// TestRunner_RejectedWritesNotCounted verifies that a URL whose Checking
// write is rejected by the recorder is neither probed nor counted.
func TestRunner_RejectedWritesNotCounted(t *testing.T) {
	tests := []struct {
		name   string
		detach func(rec *store.MemoryStore, sess *Session)
	}{
		{"session ended", func(rec *store.MemoryStore, sess *Session) { rec.EndSession(sess.ID) }},
		{"store rebound", func(rec *store.MemoryStore, sess *Session) { rec.Reset("other", sess.URLs) }},
	}

	for _, tt := range tests {
		for _, concurrency := range []int{1, 3} {
			prober := &fakeProber{}
			rec := store.NewMemoryStore()
			sess := newTestSession(t, rec, "http://a", "http://b")
			tt.detach(rec, sess)

			stats := NewRunner(prober, time.Second, concurrency, testLogger()).RunCycle(context.Background(), sess, rec, true)
			if stats.Probed != 0 || stats.Aborted {
				t.Errorf("%s, concurrency %d: stats = %+v, want 0 probed, not aborted", tt.name, concurrency, stats)
			}
			if calls := prober.Calls(); len(calls) != 0 {
				t.Errorf("%s, concurrency %d: calls = %v, want none", tt.name, concurrency, calls)
			}
		}
	}
}

// TestRunner_ProbePanicRecovery verifies that a panicking prober does not
// crash the cycle. The URL resolves to OtherError carrying a correlation ID.
func TestRunner_ProbePanicRecovery(t *testing.T) {
	prober := &fakeProber{fn: func(_ context.Context, u string) status.Outcome {
		if u == "http://boom" {
			panic("simulated failure")
		}
		return status.Success(200)
	}}
	rec := store.NewMemoryStore()
	sess := newTestSession(t, rec, "http://boom", "http://ok")

	NewRunner(prober, time.Second, 1, testLogger()).RunCycle(context.Background(), sess, rec, true)

	got := rec.Status(0)
	if got.State != status.StateResolved || got.Outcome.Kind != status.KindOtherError {
		t.Fatalf("Status(0) = %v, want Resolved(OtherError)", got)
	}
	if !strings.Contains(got.Outcome.Message, "correlation_id") {
		t.Errorf("Message = %q, want to contain correlation_id", got.Outcome.Message)
	}
	if rec.Status(1) != status.Resolved(status.Success(200)) {
		t.Errorf("Status(1) = %v, want Resolved(Success(200))", rec.Status(1))
	}
}

func TestNewRunner_Defaults(t *testing.T) {
	r := NewRunner(&fakeProber{}, 0, 0, nil)
	if r.timeout != DefaultTimeout {
		t.Errorf("timeout = %v, want %v", r.timeout, DefaultTimeout)
	}
	if r.concurrency != 1 {
		t.Errorf("concurrency = %d, want 1", r.concurrency)
	}
	if r.logger == nil {
		t.Error("logger = nil, want default")
	}
}
