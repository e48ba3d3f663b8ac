// Package scheduler runs single nodes and dependency-ordered batches.
//
// RunSingleNode takes the node's guard slot, records a ledger task and
// dispatches the executor on its own goroutine. RunBatch resolves the
// requested ids once and then walks the order for every pass, waiting for
// each run to finish before starting the next. A node failure never stops
// the batch.
package scheduler
