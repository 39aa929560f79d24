package decisionflow

import "context"

// Prediction is the scorer's recommendation: the best option and a
// confidence in [0,1].
type Prediction struct {
	Option     string  `json:"option"`
	Confidence float64 `json:"confidence"`
}

// Predictor is the external prediction collaborator: a black-box scorer that
// maps a scenario and its candidate options to a recommendation. The engine
// never propagates predictor failures as errors; they fold into the
// prediction_error status so the run still reaches human review.
type Predictor interface {
	Predict(ctx context.Context, scenario string, options []string) (Prediction, error)
}

// PredictorFunc adapts a function to the Predictor interface.
type PredictorFunc func(ctx context.Context, scenario string, options []string) (Prediction, error)

func (f PredictorFunc) Predict(ctx context.Context, scenario string, options []string) (Prediction, error) {
	return f(ctx, scenario, options)
}
