package decisionflow

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileCheckpointStore persists checkpoints to disk, one JSON file per thread.
// Checkpoints survive process restarts, so a thread paused by one invocation
// can be resumed by a later one. The optimistic version check is enforced
// under a process-local lock; deployments with multiple concurrent writer
// processes should use PostgresCheckpointStore instead.
type FileCheckpointStore struct {
	dataDir string
	mutex   sync.Mutex
}

// NewFileCheckpointStore creates a file-based store rooted at dataDir. An
// empty dataDir defaults to ~/.psyai/decisionflow/threads.
func NewFileCheckpointStore(dataDir string) (*FileCheckpointStore, error) {
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		dataDir = filepath.Join(homeDir, ".psyai", "decisionflow", "threads")
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}
	return &FileCheckpointStore{dataDir: dataDir}, nil
}

func (s *FileCheckpointStore) recordPath(threadID string) string {
	return filepath.Join(s.dataDir, fmt.Sprintf("%s.json", threadID))
}

func (s *FileCheckpointStore) Get(ctx context.Context, threadID string) (*CheckpointRecord, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return s.read(threadID)
}

func (s *FileCheckpointStore) read(threadID string) (*CheckpointRecord, error) {
	data, err := os.ReadFile(s.recordPath(threadID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}
	var record CheckpointRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &record, nil
}

func (s *FileCheckpointStore) write(threadID string, record *CheckpointRecord) error {
	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	// Write-then-rename so a crash mid-write cannot corrupt the record.
	path := s.recordPath(threadID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}
	return nil
}

func (s *FileCheckpointStore) Put(ctx context.Context, threadID string, record *CheckpointRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	stored := record.Clone()
	stored.ThreadID = threadID
	now := time.Now()
	if existing, err := s.read(threadID); err == nil && existing != nil {
		stored.CreatedAt = existing.CreatedAt
	} else {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	return s.write(threadID, stored)
}

func (s *FileCheckpointStore) Update(ctx context.Context, threadID string, expectedVersion int64, mutator func(*CheckpointRecord)) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	existing, err := s.read(threadID)
	if err != nil {
		return err
	}
	if existing == nil {
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
	return s.write(threadID, updated)
}

func (s *FileCheckpointStore) Delete(ctx context.Context, threadID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if err := os.Remove(s.recordPath(threadID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint file: %w", err)
	}
	return nil
}

// ListThreads returns the ids of all threads with a stored checkpoint,
// useful for external sweeps of stale records.
func (s *FileCheckpointStore) ListThreads(ctx context.Context) ([]string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read data directory: %w", err)
	}
	var ids []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != ".json" {
			continue
		}
		ids = append(ids, name[:len(name)-len(".json")])
	}
	return ids, nil
}
