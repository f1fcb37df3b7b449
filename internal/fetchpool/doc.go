// Package fetchpool fans a batch of identifiers out across a bounded set
// of workers, in ordered chunks with a pause between them. The two-level
// throttle (bounded concurrency inside a chunk, fixed pause between
// chunks) is the politeness contract with the remote service; per-item
// failures are recorded, never fatal to the batch.
package fetchpool
