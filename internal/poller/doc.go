// Package poller provides the probing engine for pulsewatch.
//
// This package is internal to pulsewatch and handles the periodic probing of
// a fixed list of URLs. The main components are:
//
//   - [Client]: HEAD-only prober with per-request timeout and error classification
//   - [Runner]: runs one cycle over the URL list, sequentially or bounded-parallel
//   - [Scheduler]: start/stop lifecycle, waits the interval after each cycle
//   - [Session]: one monitoring run; late results from a stopped session are dropped
//
// Users of the pulsewatch library should not need to interact with this
// package directly. Configuration is done through the main pulsewatch package.
package poller
