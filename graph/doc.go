// Package graph holds the generation-node graph: nodes, typed edges, per
// variant settings with their defaults, and the mutex-owned Store that every
// mutation goes through.
//
// Connection rules live in IsValidEdge. Settings persisted on a node are
// merged over the variant's defaults by ResolveSettings.
package graph
