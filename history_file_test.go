package decisionflow

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFileDecisionLog(t *testing.T) {
	ctx := context.Background()
	log := NewFileDecisionLog(t.TempDir())

	first := &DecisionRecord{
		ThreadID:  "thread-1",
		GraphName: "decision-review",
		Node:      NodeCollectScenario,
		Scenario:  "Launch Q1 or Q2?",
		Status:    StatusScenarioCollected,
		StartTime: time.Now().UTC(),
		Duration:  0.001,
	}
	require.NoError(t, log.LogDecision(ctx, first))
	require.NoError(t, log.LogDecision(ctx, &DecisionRecord{
		ThreadID:      "thread-1",
		GraphName:     "decision-review",
		Node:          NodeFinalizeDecision,
		Scenario:      "Launch Q1 or Q2?",
		Prediction:    "Q1",
		Confidence:    0.82,
		HumanDecision: "Q1",
		HumanApproved: true,
		Status:        StatusCompleted,
		StartTime:     time.Now().UTC(),
		Duration:      0.002,
	}))

	records, err := log.GetDecisionHistory(ctx, "thread-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, NodeCollectScenario, records[0].Node)
	require.Equal(t, StatusScenarioCollected, records[0].Status)
	require.Equal(t, "Q1", records[1].HumanDecision)
	require.True(t, records[1].HumanApproved)
}

func TestFileDecisionLogSeparatesThreads(t *testing.T) {
	ctx := context.Background()
	log := NewFileDecisionLog(t.TempDir())

	require.NoError(t, log.LogDecision(ctx, &DecisionRecord{ThreadID: "thread-a", Node: "n1"}))
	require.NoError(t, log.LogDecision(ctx, &DecisionRecord{ThreadID: "thread-b", Node: "n2"}))

	records, err := log.GetDecisionHistory(ctx, "thread-a")
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "n1", records[0].Node)
}

func TestFileDecisionLogMissingThread(t *testing.T) {
	log := NewFileDecisionLog(t.TempDir())
	_, err := log.GetDecisionHistory(context.Background(), "thread-missing")
	require.Error(t, err)
}
