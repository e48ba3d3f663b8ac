// Package api exposes the graph, the scheduler and the task ledger over
// HTTP, plus a server-sent event stream of their changes.
package api
