// Package status defines the value types shared by the probing engine, the
// store and every display surface.
//
// A monitored URL moves through a small state machine:
//
//	Waiting -> Checking -> Resolved(outcome)
//	Resolved(outcome) -> Checking -> Resolved(outcome')
//
// All types here are plain values and safe to copy across goroutines.
package status

import (
	"fmt"
	"time"
)

// Kind classifies the outcome of a single probe.
type Kind string

const (
	// KindSuccess means a response arrived with a status code below 400.
	KindSuccess Kind = "success"

	// KindHTTPError means a response arrived with a status code of 400 or above.
	KindHTTPError Kind = "http_error"

	// KindTimeout means no response arrived within the probe timeout.
	KindTimeout Kind = "timeout"

	// KindConnectionError means the transport failed before any response:
	// DNS failure, refused or reset connection, TLS failure.
	KindConnectionError Kind = "connection_error"

	// KindOtherError covers everything else, such as a malformed URL.
	KindOtherError Kind = "other_error"
)

// maxMessageRunes bounds OtherError messages so a pathological error string
// cannot flood the display.
const maxMessageRunes = 200

// Outcome is the classified result of one probe.
//
// Code is set for [KindSuccess] and [KindHTTPError]; Message is set for
// [KindOtherError]. The zero Outcome has an empty Kind and is never produced
// by a probe.
type Outcome struct {
	Kind    Kind   `json:"kind"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// Success returns a [KindSuccess] outcome carrying the HTTP status code.
func Success(code int) Outcome { return Outcome{Kind: KindSuccess, Code: code} }

// HTTPError returns a [KindHTTPError] outcome carrying the HTTP status code.
func HTTPError(code int) Outcome { return Outcome{Kind: KindHTTPError, Code: code} }

// Timeout returns a [KindTimeout] outcome.
func Timeout() Outcome { return Outcome{Kind: KindTimeout} }

// ConnectionError returns a [KindConnectionError] outcome.
func ConnectionError() Outcome { return Outcome{Kind: KindConnectionError} }

// OtherError returns a [KindOtherError] outcome. Long messages are truncated.
func OtherError(message string) Outcome {
	r := []rune(message)
	if len(r) > maxMessageRunes {
		message = string(r[:maxMessageRunes]) + "..."
	}
	return Outcome{Kind: KindOtherError, Message: message}
}

// IsZero reports whether o is the zero Outcome.
func (o Outcome) IsZero() bool {
	return o.Kind == ""
}

// String returns the human-readable display text for the outcome.
func (o Outcome) String() string {
	switch o.Kind {
	case KindSuccess:
		return fmt.Sprintf("OK (%d)", o.Code)
	case KindHTTPError:
		return fmt.Sprintf("HTTP error (%d)", o.Code)
	case KindTimeout:
		return "Timeout"
	case KindConnectionError:
		return "Connection error"
	case KindOtherError:
		return "Error: " + o.Message
	default:
		return ""
	}
}

// State is the lifecycle position of a monitored URL within a session.
type State string

const (
	// StateWaiting is the initial state after a session starts.
	StateWaiting State = "waiting"

	// StateChecking means a probe for the URL is in flight.
	StateChecking State = "checking"

	// StateResolved means the most recent probe finished; see Status.Outcome.
	StateResolved State = "resolved"
)

// Status is the current status of one monitored URL.
//
// Outcome is only meaningful when State is [StateResolved] and is omitted from
// JSON otherwise.
type Status struct {
	State   State   `json:"state"`
	Outcome Outcome `json:"outcome,omitzero"`
}

// Waiting returns the initial status.
func Waiting() Status { return Status{State: StateWaiting} }

// Checking returns the in-flight status.
func Checking() Status { return Status{State: StateChecking} }

// Resolved returns a finished status carrying o.
func Resolved(o Outcome) Status { return Status{State: StateResolved, Outcome: o} }

// Healthy reports whether s is Resolved(Success).
func (s Status) Healthy() bool {
	return s.State == StateResolved && s.Outcome.Kind == KindSuccess
}

// String returns the display text for s.
func (s Status) String() string {
	switch s.State {
	case StateWaiting:
		return "Waiting"
	case StateChecking:
		return "Checking..."
	case StateResolved:
		return s.Outcome.String()
	default:
		return string(s.State)
	}
}

// Tone is the colour class a display should use for a status.
type Tone string

const (
	ToneNeutral  Tone = "neutral"
	TonePending  Tone = "pending"
	TonePositive Tone = "positive"
	ToneNegative Tone = "negative"
)

// Tone maps s to its display colour class.
func (s Status) Tone() Tone {
	switch {
	case s.State == StateChecking:
		return TonePending
	case s.Healthy():
		return TonePositive
	case s.State == StateResolved:
		return ToneNegative
	default:
		return ToneNeutral
	}
}

// Entry is one row of a store snapshot, in input order.
type Entry struct {
	Index     int       `json:"index"`
	URL       string    `json:"url"`
	Status    Status    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Event is emitted for every status transition of a monitored URL.
type Event struct {
	SessionID string    `json:"session_id"`
	Index     int       `json:"index"`
	URL       string    `json:"url"`
	Status    Status    `json:"status"`
	At        time.Time `json:"at"`
}

// Entry converts the event into the snapshot row it produced.
func (e Event) Entry() Entry {
	return Entry{Index: e.Index, URL: e.URL, Status: e.Status, UpdatedAt: e.At}
}
