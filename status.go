package pulsewatch

import (
	"fmt"

	"github.com/jpalmerr/pulsewatch/internal/poller"
	"github.com/jpalmerr/pulsewatch/internal/status"
)

// Status is the observed state of one monitored URL: Waiting, Checking, or
// Resolved with an [Outcome].
type Status = status.Status

// Outcome is the classified result of a single probe.
type Outcome = status.Outcome

// Kind identifies the class of an [Outcome].
type Kind = status.Kind

// State is the phase of a [Status].
type State = status.State

// Tone is the display colour class of a [Status].
type Tone = status.Tone

// Entry is the current status of the URL at Index.
type Entry = status.Entry

// Event is emitted on every status transition. Events for one URL arrive in
// the order the transitions happened.
type Event = status.Event

// SessionInfo describes a running monitoring session.
type SessionInfo = poller.SessionInfo

const (
	KindSuccess         = status.KindSuccess
	KindHTTPError       = status.KindHTTPError
	KindTimeout         = status.KindTimeout
	KindConnectionError = status.KindConnectionError
	KindOtherError      = status.KindOtherError
)

const (
	StateWaiting  = status.StateWaiting
	StateChecking = status.StateChecking
	StateResolved = status.StateResolved
)

// RefreshMode selects which URLs are probed on cycles after the first of a
// session. The first cycle always probes every URL.
type RefreshMode string

const (
	// RefreshFull probes every URL on every cycle.
	RefreshFull RefreshMode = "full"

	// RefreshSkipHealthy skips URLs whose last outcome was a success.
	// Skipped URLs keep their status and emit no events.
	RefreshSkipHealthy RefreshMode = "skip-healthy"
)

// String returns the string representation of the mode.
func (m RefreshMode) String() string {
	return string(m)
}

// ParseRefreshMode parses "full" or "skip-healthy". The empty string is
// [RefreshFull].
func ParseRefreshMode(s string) (RefreshMode, error) {
	switch RefreshMode(s) {
	case "", RefreshFull:
		return RefreshFull, nil
	case RefreshSkipHealthy:
		return RefreshSkipHealthy, nil
	default:
		return "", fmt.Errorf("unknown refresh mode %q (want %q or %q)", s, RefreshFull, RefreshSkipHealthy)
	}
}
