// Package component manages the lifecycle of long-lived flowgen parts:
// the SSE hub, the Redis ledger mirror and the HTTP server.
//
// Components start in registration order and stop in reverse order.
package component
