// Package endpoint provides the built-in probe handlers.
package endpoint
