package decisionflow

import (
	"context"
	"time"
)

// Node names of the reference decision workflow.
const (
	NodeCollectScenario  = "collect_scenario"
	NodeScoreScenario    = "score_scenario"
	NodeAwaitHumanReview = "await_human_review"
	NodeFinalizeDecision = "finalize_decision"
)

// NewDecisionGraph builds the validated four-node reference workflow:
// collect_scenario -> score_scenario -> await_human_review (interrupt) ->
// finalize_decision. Every run pauses after await_human_review and completes
// only once a human judgment is supplied via Resume.
func NewDecisionGraph(predictor Predictor) (*Graph, error) {
	g := NewGraph("decision-review")
	if err := g.AddNode(NodeCollectScenario, CollectScenario); err != nil {
		return nil, err
	}
	if err := g.AddNode(NodeScoreScenario, ScoreScenario(predictor)); err != nil {
		return nil, err
	}
	if err := g.AddNode(NodeAwaitHumanReview, AwaitHumanReview); err != nil {
		return nil, err
	}
	if err := g.AddNode(NodeFinalizeDecision, FinalizeDecision); err != nil {
		return nil, err
	}
	if err := g.AddEdge(NodeCollectScenario, NodeScoreScenario); err != nil {
		return nil, err
	}
	if err := g.AddEdge(NodeScoreScenario, NodeAwaitHumanReview); err != nil {
		return nil, err
	}
	if err := g.AddEdge(NodeAwaitHumanReview, NodeFinalizeDecision); err != nil {
		return nil, err
	}
	if err := g.SetEntryPoint(NodeCollectScenario); err != nil {
		return nil, err
	}
	if err := g.InterruptAfter(NodeAwaitHumanReview); err != nil {
		return nil, err
	}
	if err := g.SetTerminal(NodeFinalizeDecision); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// CollectScenario is the entry node. It stamps a timestamp and marks the
// scenario collected. It never fails.
func CollectScenario(ctx context.Context, state DecisionState) (DecisionState, error) {
	out := state.Clone()
	out.Timestamp = time.Now()
	out.Status = StatusScenarioCollected
	return out, nil
}

// ScoreScenario returns the node that calls the prediction collaborator.
// Provider failures and unusable responses do not fail the node; they fold
// into the prediction_error status so the run still reaches human review and
// a person can decide manually.
func ScoreScenario(predictor Predictor) NodeFunction {
	return func(ctx context.Context, state DecisionState) (DecisionState, error) {
		out := state.Clone()

		if len(out.Options) == 0 {
			return foldPredictionError(ctx, out, "no options to score"), nil
		}

		prediction, err := predictor.Predict(ctx, out.Scenario, out.Options)
		switch {
		case err != nil:
			return foldPredictionError(ctx, out, err.Error()), nil
		case prediction.Option == "":
			return foldPredictionError(ctx, out, "empty prediction"), nil
		case !out.HasOption(prediction.Option):
			return foldPredictionError(ctx, out, "prediction is not a candidate option"), nil
		case prediction.Confidence < 0 || prediction.Confidence > 1:
			return foldPredictionError(ctx, out, "confidence out of range"), nil
		}

		out.Prediction = prediction.Option
		out.Confidence = prediction.Confidence
		out.Status = StatusPredictionMade
		return out, nil
	}
}

func foldPredictionError(ctx context.Context, state DecisionState, reason string) DecisionState {
	if logger, ok := GetLoggerFromContext(ctx); ok {
		logger.Warn("prediction unavailable", "reason", reason)
	}
	state.Prediction = PredictionUnavailable
	state.Confidence = 0.0
	state.Status = StatusPredictionError
	return state
}

// AwaitHumanReview marks the state as awaiting review. It is the
// interrupt-after node: the engine always pauses here.
func AwaitHumanReview(ctx context.Context, state DecisionState) (DecisionState, error) {
	out := state.Clone()
	out.Status = StatusAwaitingReview
	return out, nil
}

// FinalizeDecision is the terminal node. An approved prediction becomes the
// human decision; otherwise the override supplied during resume is kept
// verbatim.
func FinalizeDecision(ctx context.Context, state DecisionState) (DecisionState, error) {
	out := state.Clone()
	if out.HumanApproved {
		out.HumanDecision = out.Prediction
	}
	out.Status = StatusCompleted
	return out, nil
}
