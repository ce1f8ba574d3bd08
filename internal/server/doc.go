// Package server provides the HTTP server for the pulsewatch dashboard,
// control API and event stream.
//
// This package is internal to pulsewatch and handles all HTTP concerns:
//
//   - Dashboard serving: Serves the embedded HTML dashboard at "/"
//   - REST API: "/api/status" snapshot, "/api/start" and "/api/stop" control
//   - Server-Sent Events: Real-time status events at "/api/events"
//
// Routing uses chi with permissive CORS so the API can back other frontends.
// The server supports graceful shutdown via context cancellation, with a
// 5-second timeout for in-flight requests.
package server
