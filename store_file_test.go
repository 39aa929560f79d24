package decisionflow

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileCheckpointStore(t *testing.T) {
	store, err := NewFileCheckpointStore(t.TempDir())
	require.NoError(t, err)
	testCheckpointStoreContract(t, store)
}

func TestFileCheckpointStoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dataDir := t.TempDir()

	store, err := NewFileCheckpointStore(dataDir)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, "thread-1", sampleRecord("thread-1")))

	// A different store instance over the same directory sees the record,
	// which is what lets one process resume a thread another process paused.
	reopened, err := NewFileCheckpointStore(dataDir)
	require.NoError(t, err)
	record, err := reopened.Get(ctx, "thread-1")
	require.NoError(t, err)
	require.NotNil(t, record)
	require.Equal(t, "Q1", record.State.Prediction)

	require.NoError(t, reopened.Update(ctx, "thread-1", 1, func(r *CheckpointRecord) {
		r.Paused = false
	}))
	record, err = store.Get(ctx, "thread-1")
	require.NoError(t, err)
	require.Equal(t, int64(2), record.Version)
}

func TestFileCheckpointStoreListThreads(t *testing.T) {
	ctx := context.Background()
	store, err := NewFileCheckpointStore(t.TempDir())
	require.NoError(t, err)

	ids, err := store.ListThreads(ctx)
	require.NoError(t, err)
	require.Empty(t, ids)

	require.NoError(t, store.Put(ctx, "thread-a", sampleRecord("thread-a")))
	require.NoError(t, store.Put(ctx, "thread-b", sampleRecord("thread-b")))

	ids, err = store.ListThreads(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"thread-a", "thread-b"}, ids)
}
