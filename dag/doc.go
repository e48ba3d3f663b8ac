// Package dag orders a requested subset of graph nodes so every dependency
// runs before its dependents.
//
// Resolve is Kahn's algorithm restricted to edges whose endpoints are both
// requested, with ready nodes taken in request order. When no complete order
// exists the request order is returned unchanged and Resolved is false.
package dag
