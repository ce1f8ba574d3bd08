// Package store holds the current status of every monitored URL and publishes
// status events.
//
// This package is internal to pulsewatch. It is the single source of truth
// for display surfaces: the dashboard, the terminal table and SDK callbacks
// all read from it.
//
// The main components are:
//
//   - [Store]: Interface defining session-scoped writes and subscriptions
//   - [MemoryStore]: In-memory implementation of Store with pub/sub
//
// Subscribers receive events via channels with non-blocking sends (slow
// subscribers will miss events rather than block probing). Listeners
// registered with [MemoryStore.OnEvent] receive every event synchronously.
package store
