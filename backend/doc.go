// Package backend defines the three generation backend calls and their HTTP
// implementations. Each call is a provider.RequestResponse so logging,
// tracing, metrics and resilience are layered on as middleware.
package backend
