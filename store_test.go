package decisionflow

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleRecord(threadID string) *CheckpointRecord {
	state := NewDecisionState("Launch Q1 or Q2?", []string{"Q1", "Q2"})
	state.Status = StatusAwaitingReview
	state.Prediction = "Q1"
	state.Confidence = 0.82
	return &CheckpointRecord{
		ThreadID:   threadID,
		Version:    1,
		Paused:     true,
		NodeCursor: NodeFinalizeDecision,
		State:      state,
	}
}

// testCheckpointStoreContract exercises the behavior every CheckpointStore
// implementation must provide.
func testCheckpointStoreContract(t *testing.T, store CheckpointStore) {
	ctx := context.Background()

	t.Run("get absent thread returns nil", func(t *testing.T) {
		record, err := store.Get(ctx, "thread-absent")
		require.NoError(t, err)
		require.Nil(t, record)
	})

	t.Run("put then get round-trips", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "thread-1", sampleRecord("thread-1")))

		record, err := store.Get(ctx, "thread-1")
		require.NoError(t, err)
		require.NotNil(t, record)
		require.Equal(t, int64(1), record.Version)
		require.True(t, record.Paused)
		require.Equal(t, NodeFinalizeDecision, record.NodeCursor)
		require.Equal(t, "Q1", record.State.Prediction)
	})

	t.Run("get is read-only", func(t *testing.T) {
		first, err := store.Get(ctx, "thread-1")
		require.NoError(t, err)
		first.State.Options[0] = "mutated"
		first.Version = 99

		second, err := store.Get(ctx, "thread-1")
		require.NoError(t, err)
		require.Equal(t, "Q1", second.State.Options[0])
		require.Equal(t, int64(1), second.Version)
	})

	t.Run("update applies mutator and bumps version", func(t *testing.T) {
		err := store.Update(ctx, "thread-1", 1, func(r *CheckpointRecord) {
			r.Paused = false
			r.State.Status = StatusCompleted
		})
		require.NoError(t, err)

		record, err := store.Get(ctx, "thread-1")
		require.NoError(t, err)
		require.Equal(t, int64(2), record.Version)
		require.False(t, record.Paused)
		require.Equal(t, StatusCompleted, record.State.Status)
	})

	t.Run("update with stale version fails", func(t *testing.T) {
		err := store.Update(ctx, "thread-1", 1, func(r *CheckpointRecord) {
			r.Paused = true
		})
		var conflict *ConcurrentModificationError
		require.ErrorAs(t, err, &conflict)
		require.Equal(t, int64(1), conflict.Expected)
		require.Equal(t, int64(2), conflict.Actual)

		// The losing update must not be applied
		record, getErr := store.Get(ctx, "thread-1")
		require.NoError(t, getErr)
		require.False(t, record.Paused)
	})

	t.Run("update absent thread fails", func(t *testing.T) {
		err := store.Update(ctx, "thread-absent", 1, func(r *CheckpointRecord) {})
		var notFound *ThreadNotFoundError
		require.ErrorAs(t, err, &notFound)
		require.Equal(t, "thread-absent", notFound.ThreadID)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "thread-1"))
		require.NoError(t, store.Delete(ctx, "thread-1"))

		record, err := store.Get(ctx, "thread-1")
		require.NoError(t, err)
		require.Nil(t, record)
	})

	t.Run("racing updates have exactly one winner", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "thread-race", sampleRecord("thread-race")))

		var wg sync.WaitGroup
		errs := make([]error, 2)
		for i := range errs {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				errs[i] = store.Update(ctx, "thread-race", 1, func(r *CheckpointRecord) {
					r.Paused = false
				})
			}(i)
		}
		wg.Wait()

		var conflicts int
		for _, err := range errs {
			if err != nil {
				var conflict *ConcurrentModificationError
				require.ErrorAs(t, err, &conflict)
				conflicts++
			}
		}
		require.Equal(t, 1, conflicts)

		record, err := store.Get(ctx, "thread-race")
		require.NoError(t, err)
		require.Equal(t, int64(2), record.Version)
		require.NoError(t, store.Delete(ctx, "thread-race"))
	})
}

func TestMemoryCheckpointStore(t *testing.T) {
	testCheckpointStoreContract(t, NewMemoryCheckpointStore())
}
