package store

import "github.com/jpalmerr/pulsewatch/internal/status"

// Store defines the interface for holding per-URL status and publishing
// status events.
//
// Store implementations must be safe for concurrent access. Writes are
// scoped to a session: only the session bound by the latest Reset may write,
// and only until EndSession is called for it.
type Store interface {
	// Reset binds sessionID, sets every URL to Waiting and emits one event per URL.
	Reset(sessionID string, urls []string)

	// Status returns the current status at index, or Waiting if out of range.
	Status(index int) status.Status

	// Update writes the status at index and emits an event.
	// Returns false, without writing, if sessionID is not the bound, live session.
	Update(sessionID string, index int, s status.Status) bool

	// EndSession stops accepting writes for sessionID.
	EndSession(sessionID string)

	// Snapshot returns all entries in input order.
	// The returned slice is a copy; modifications do not affect the store.
	Snapshot() []status.Entry

	// Subscribe returns a channel that receives status events.
	// The returned channel has a buffer; slow consumers may miss events.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan status.Event

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan status.Event)
}
