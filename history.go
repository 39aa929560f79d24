package decisionflow

import (
	"context"
	"time"
)

// DecisionRecord is a single decision-log entry. One entry is written after
// every node execution and a final entry when a thread completes.
type DecisionRecord struct {
	ThreadID      string    `json:"thread_id"`
	GraphName     string    `json:"graph_name"`
	Node          string    `json:"node"`
	Scenario      string    `json:"scenario"`
	Prediction    string    `json:"prediction,omitempty"`
	Confidence    float64   `json:"confidence"`
	HumanDecision string    `json:"human_decision,omitempty"`
	HumanApproved bool      `json:"human_approved"`
	Status        Status    `json:"status"`
	Error         string    `json:"error,omitempty"`
	StartTime     time.Time `json:"start_time"`
	Duration      float64   `json:"duration"`
}

// DecisionLog records the history of decision runs.
type DecisionLog interface {
	// LogDecision appends a record to the decision history
	LogDecision(ctx context.Context, record *DecisionRecord) error

	// GetDecisionHistory retrieves the recorded history for a thread
	GetDecisionHistory(ctx context.Context, threadID string) ([]*DecisionRecord, error)
}
