// Package middleware provides net/http middleware applied in front of the
// Gin engine.
package middleware
