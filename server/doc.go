// Package server provides the flowgen HTTP server: a Gin engine behind an
// h2c handler, wrapped in a net/http middleware chain so every route,
// including long-lived event streams, shares recovery, request IDs and
// request logging.
//
// # Middleware
//
// Built-in middleware (server/middleware):
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: request ID generation and propagation
//   - CORS: cross-origin resource sharing
//   - BodySizeLimit: request body size limit
//   - RequestLogger: request logging with duration tracking
//
// # Endpoints
//
// Built-in endpoints (server/endpoint):
//
//   - /health: component health aggregation
//   - /alive: liveness probe
package server
