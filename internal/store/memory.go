package store

import (
	"sync"
	"time"

	"github.com/jpalmerr/pulsewatch/internal/status"
)

// subscriberBuffer is the channel capacity given to each subscriber.
const subscriberBuffer = 256

// MemoryStore is an in-memory implementation of [Store].
//
// Entries are addressed by index, so duplicate URLs are independent rows and
// snapshot order always equals input order.
//
// Writes and their notifications are serialised: listeners observe events in
// exactly the order the writes were applied. Subscribers receive events via
// buffered channels; if a subscriber's buffer is full, the event is dropped
// for that subscriber to prevent blocking the entire system.
type MemoryStore struct {
	// writeMu orders write+notify pairs; mu guards the data itself.
	writeMu   sync.Mutex
	mu        sync.RWMutex
	sessionID string
	ended     bool
	entries   []status.Entry

	listenerMu sync.RWMutex
	listeners  []func(status.Event)

	subMu       sync.RWMutex
	subscribers map[chan status.Event]struct{}

	now func() time.Time
}

// NewMemoryStore creates a new in-memory [Store] implementation.
//
// The store starts empty and unbound; every Update is rejected until Reset.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subscribers: make(map[chan status.Event]struct{}),
		now:         time.Now,
	}
}

// OnEvent registers fn to be called synchronously for every event, in write
// order, on the writing goroutine.
//
// fn must be fast and must not write to the store.
func (m *MemoryStore) OnEvent(fn func(status.Event)) {
	if fn == nil {
		return
	}
	m.listenerMu.Lock()
	m.listeners = append(m.listeners, fn)
	m.listenerMu.Unlock()
}

// Reset binds sessionID and sets every URL to Waiting.
func (m *MemoryStore) Reset(sessionID string, urls []string) {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	now := m.now()
	entries := make([]status.Entry, len(urls))
	for i, u := range urls {
		entries[i] = status.Entry{Index: i, URL: u, Status: status.Waiting(), UpdatedAt: now}
	}

	m.mu.Lock()
	m.sessionID = sessionID
	m.ended = false
	m.entries = entries
	m.mu.Unlock()

	for _, e := range entries {
		m.notify(status.Event{
			SessionID: sessionID,
			Index:     e.Index,
			URL:       e.URL,
			Status:    e.Status,
			At:        now,
		})
	}
}

// Status returns the current status at index.
func (m *MemoryStore) Status(index int) status.Status {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if index < 0 || index >= len(m.entries) {
		return status.Waiting()
	}
	return m.entries[index].Status
}

// Update writes s at index for sessionID and notifies listeners and
// subscribers.
//
// Writes from a session other than the bound one, or from the bound session
// after [MemoryStore.EndSession], are rejected.
func (m *MemoryStore) Update(sessionID string, index int, s status.Status) bool {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.Lock()
	if sessionID != m.sessionID || m.ended || index < 0 || index >= len(m.entries) {
		m.mu.Unlock()
		return false
	}
	now := m.now()
	m.entries[index].Status = s
	m.entries[index].UpdatedAt = now
	url := m.entries[index].URL
	m.mu.Unlock()

	m.notify(status.Event{
		SessionID: sessionID,
		Index:     index,
		URL:       url,
		Status:    s,
		At:        now,
	})
	return true
}

// EndSession stops accepting writes for sessionID. Statuses are kept so the
// last known state remains visible. Unknown session IDs are ignored.
func (m *MemoryStore) EndSession(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.sessionID == sessionID {
		m.ended = true
	}
}

// Snapshot returns a copy of all entries in input order.
func (m *MemoryStore) Snapshot() []status.Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]status.Entry, len(m.entries))
	copy(out, m.entries)
	return out
}

// Subscribe creates a new subscription and returns a channel for receiving events.
//
// The returned channel has a buffer of 256 events. If the buffer fills
// (slow consumer), new events are dropped for this subscriber.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore) Subscribe() <-chan status.Event {
	ch := make(chan status.Event, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// After calling Unsubscribe, the channel will be closed and no further
// events will be sent. Safe to call multiple times or with an unknown channel.
func (m *MemoryStore) Unsubscribe(ch <-chan status.Event) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notify delivers ev to listeners, then to subscribers without blocking.
// Callers hold writeMu.
func (m *MemoryStore) notify(ev status.Event) {
	m.listenerMu.RLock()
	for _, fn := range m.listeners {
		fn(ev)
	}
	m.listenerMu.RUnlock()

	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- ev:
		default:
			// subscriber is slow, drop the event
		}
	}
}
