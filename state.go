package decisionflow

import (
	"fmt"
	"time"
)

// Status tracks how far a decision thread has progressed.
type Status string

const (
	StatusInitialized       Status = "initialized"
	StatusScenarioCollected Status = "scenario_collected"
	StatusPredictionMade    Status = "prediction_made"
	StatusPredictionError   Status = "prediction_error"
	StatusAwaitingReview    Status = "awaiting_human_review"
	StatusCompleted         Status = "completed"
)

// PredictionUnavailable is the sentinel stored in DecisionState.Prediction
// when the prediction collaborator failed or returned an unusable answer.
const PredictionUnavailable = "unavailable"

// DecisionState is the value that flows through a decision workflow. Nodes
// receive a copy and return a new value; the engine never shares a state
// between a node and the checkpoint store.
type DecisionState struct {
	Scenario      string    `json:"scenario" yaml:"scenario"`
	Options       []string  `json:"options" yaml:"options"`
	Prediction    string    `json:"prediction,omitempty" yaml:"prediction,omitempty"`
	Confidence    float64   `json:"confidence" yaml:"confidence"`
	HumanDecision string    `json:"human_decision,omitempty" yaml:"human_decision,omitempty"`
	HumanApproved bool      `json:"human_approved" yaml:"human_approved"`
	Timestamp     time.Time `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	Status        Status    `json:"status" yaml:"status"`
}

// NewDecisionState creates an initialized state for a scenario and its
// candidate options. The options slice is copied.
func NewDecisionState(scenario string, options []string) DecisionState {
	return DecisionState{
		Scenario: scenario,
		Options:  append([]string(nil), options...),
		Status:   StatusInitialized,
	}
}

// Clone returns a deep copy of the state.
func (s DecisionState) Clone() DecisionState {
	out := s
	out.Options = append([]string(nil), s.Options...)
	return out
}

// HasOption reports whether the given option is one of the candidates.
func (s DecisionState) HasOption(option string) bool {
	for _, candidate := range s.Options {
		if candidate == option {
			return true
		}
	}
	return false
}

// Validate checks that the state describes a decidable scenario.
func (s DecisionState) Validate() error {
	if s.Scenario == "" {
		return fmt.Errorf("scenario is required")
	}
	if len(s.Options) < 2 {
		return fmt.Errorf("at least 2 options are required, got %d", len(s.Options))
	}
	return nil
}

// ReviewPatch carries a human judgment into a paused thread. Approved adopts
// the recommendation; otherwise Decision holds the override.
type ReviewPatch struct {
	Approved bool   `json:"human_approved" yaml:"human_approved"`
	Decision string `json:"human_decision,omitempty" yaml:"human_decision,omitempty"`
}

// Apply merges the patch into a copy of the state. Only the two review
// fields are touched; everything recorded before the pause is preserved.
func (p ReviewPatch) Apply(state DecisionState) DecisionState {
	out := state.Clone()
	out.HumanApproved = p.Approved
	out.HumanDecision = p.Decision
	return out
}
