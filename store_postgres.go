package decisionflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

const checkpointsSchema = `
CREATE TABLE IF NOT EXISTS decisionflow_checkpoints (
	thread_id   TEXT PRIMARY KEY,
	version     BIGINT NOT NULL,
	paused      BOOLEAN NOT NULL,
	node_cursor TEXT NOT NULL,
	state       JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
)`

// PostgresCheckpointStore backs the CheckpointStore contract with Postgres.
// The version guard runs inside a transaction that locks the row, so the
// optimistic concurrency check holds across processes, not just goroutines.
type PostgresCheckpointStore struct {
	db *sql.DB
}

// NewPostgresCheckpointStore opens a store against the given DSN and creates
// the checkpoints table if it does not exist.
func NewPostgresCheckpointStore(ctx context.Context, dsn string) (*PostgresCheckpointStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	store := &PostgresCheckpointStore{db: db}
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewPostgresCheckpointStoreFromDB wraps an existing connection pool without
// touching the schema.
func NewPostgresCheckpointStoreFromDB(db *sql.DB) *PostgresCheckpointStore {
	return &PostgresCheckpointStore{db: db}
}

// EnsureSchema creates the checkpoints table if needed.
func (s *PostgresCheckpointStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, checkpointsSchema); err != nil {
		return fmt.Errorf("failed to create checkpoints table: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *PostgresCheckpointStore) Close() error {
	return s.db.Close()
}

func (s *PostgresCheckpointStore) Get(ctx context.Context, threadID string) (*CheckpointRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT thread_id, version, paused, node_cursor, state, created_at, updated_at
		 FROM decisionflow_checkpoints WHERE thread_id = $1`, threadID)
	record, err := scanCheckpoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return record, err
}

func (s *PostgresCheckpointStore) Put(ctx context.Context, threadID string, record *CheckpointRecord) error {
	stateJSON, err := json.Marshal(record.State)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO decisionflow_checkpoints
			(thread_id, version, paused, node_cursor, state, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $6)
		 ON CONFLICT (thread_id) DO UPDATE SET
			version = EXCLUDED.version,
			paused = EXCLUDED.paused,
			node_cursor = EXCLUDED.node_cursor,
			state = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at`,
		threadID, record.Version, record.Paused, record.NodeCursor, stateJSON, now)
	if err != nil {
		return fmt.Errorf("failed to put checkpoint: %w", err)
	}
	return nil
}

func (s *PostgresCheckpointStore) Update(ctx context.Context, threadID string, expectedVersion int64, mutator func(*CheckpointRecord)) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT thread_id, version, paused, node_cursor, state, created_at, updated_at
		 FROM decisionflow_checkpoints WHERE thread_id = $1 FOR UPDATE`, threadID)
	record, err := scanCheckpoint(row)
	if errors.Is(err, sql.ErrNoRows) {
		return &ThreadNotFoundError{ThreadID: threadID}
	}
	if err != nil {
		return err
	}
	if record.Version != expectedVersion {
		return &ConcurrentModificationError{
			ThreadID: threadID,
			Expected: expectedVersion,
			Actual:   record.Version,
		}
	}

	mutator(record)
	record.ThreadID = threadID
	record.Version = expectedVersion + 1

	stateJSON, err := json.Marshal(record.State)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE decisionflow_checkpoints
		 SET version = $2, paused = $3, node_cursor = $4, state = $5, updated_at = $6
		 WHERE thread_id = $1 AND version = $7`,
		threadID, record.Version, record.Paused, record.NodeCursor, stateJSON,
		time.Now(), expectedVersion); err != nil {
		return fmt.Errorf("failed to update checkpoint: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit checkpoint update: %w", err)
	}
	return nil
}

func (s *PostgresCheckpointStore) Delete(ctx context.Context, threadID string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM decisionflow_checkpoints WHERE thread_id = $1`, threadID); err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCheckpoint(row rowScanner) (*CheckpointRecord, error) {
	var record CheckpointRecord
	var stateJSON []byte
	if err := row.Scan(&record.ThreadID, &record.Version, &record.Paused,
		&record.NodeCursor, &stateJSON, &record.CreatedAt, &record.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan checkpoint: %w", err)
	}
	if err := json.Unmarshal(stateJSON, &record.State); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &record, nil
}
