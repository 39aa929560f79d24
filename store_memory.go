package decisionflow

import (
	"context"
	"sync"
	"time"
)

// MemoryCheckpointStore is an in-memory CheckpointStore. It is safe for
// concurrent use and suitable for tests and single-process deployments;
// checkpoints do not survive a restart.
type MemoryCheckpointStore struct {
	mutex   sync.Mutex
	records map[string]*CheckpointRecord
}

// NewMemoryCheckpointStore creates an empty in-memory store.
func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{records: map[string]*CheckpointRecord{}}
}

func (s *MemoryCheckpointStore) Get(ctx context.Context, threadID string) (*CheckpointRecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	record, ok := s.records[threadID]
	if !ok {
		return nil, nil
	}
	return record.Clone(), nil
}

func (s *MemoryCheckpointStore) Put(ctx context.Context, threadID string, record *CheckpointRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	stored := record.Clone()
	stored.ThreadID = threadID
	now := time.Now()
	if existing, ok := s.records[threadID]; ok {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.records[threadID] = stored
	return nil
}

func (s *MemoryCheckpointStore) Update(ctx context.Context, threadID string, expectedVersion int64, mutator func(*CheckpointRecord)) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	existing, ok := s.records[threadID]
	if !ok {
		return &ThreadNotFoundError{ThreadID: threadID}
	}
	if existing.Version != expectedVersion {
		return &ConcurrentModificationError{
			ThreadID: threadID,
			Expected: expectedVersion,
			Actual:   existing.Version,
		}
	}

	updated := existing.Clone()
	mutator(updated)
	updated.ThreadID = threadID
	updated.Version = expectedVersion + 1
	updated.UpdatedAt = time.Now()
	s.records[threadID] = updated
	return nil
}

func (s *MemoryCheckpointStore) Delete(ctx context.Context, threadID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.records, threadID)
	return nil
}
