package decisionflow

import "context"

// CheckpointStore is keyed persistence for paused-thread snapshots, addressed
// by an opaque thread identifier. The reference deployment may back it with
// memory, but the contract must hold for any persistent implementation: a
// checkpoint written by one process must be resumable by another process
// sharing the same store.
type CheckpointStore interface {
	// Get returns the current record for a thread, or (nil, nil) if absent.
	// Returned records are copies; callers may not observe later writes
	// through them.
	Get(ctx context.Context, threadID string) (*CheckpointRecord, error)

	// Put unconditionally creates or overwrites the record for a thread.
	Put(ctx context.Context, threadID string, record *CheckpointRecord) error

	// Update loads the record, rejects with ConcurrentModificationError if
	// its version does not equal expectedVersion, and otherwise persists the
	// mutator's output with version+1, atomically with respect to concurrent
	// updates for the same key. A missing record yields ThreadNotFoundError.
	Update(ctx context.Context, threadID string, expectedVersion int64, mutator func(*CheckpointRecord)) error

	// Delete removes the record. Deleting an absent thread is not an error.
	Delete(ctx context.Context, threadID string) error
}
