// Package server provides the HTTP API for observing running poll chains.
//
// This package is internal to pollkit and handles all HTTP concerns:
//
//   - REST API: JSON snapshots at "/api/polls" and "/api/polls/{id}"
//   - Server-Sent Events: Real-time poll events at "/api/sse"
//   - Metrics: Prometheus exposition at "/metrics"
//
// Routing uses chi. The server supports graceful shutdown via context
// cancellation, with a 5-second timeout for in-flight requests.
//
// The pollkit command wires this package to an event store fed by poll
// listeners; library users do not need it.
package server
