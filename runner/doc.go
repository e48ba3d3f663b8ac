// Package runner executes a single graph node: it resolves the node's inputs
// from upstream nodes, merges its settings over the variant defaults,
// dispatches one backend call and applies the result to the node.
//
// Each (node type, model variant) pair is one Strategy. Adding a model
// variant means registering one more Strategy.
package runner
