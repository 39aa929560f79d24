package decisionflow

import "context"

// NullDecisionLog is a no-op implementation of DecisionLog.
type NullDecisionLog struct{}

func NewNullDecisionLog() *NullDecisionLog {
	return &NullDecisionLog{}
}

func (l *NullDecisionLog) LogDecision(ctx context.Context, record *DecisionRecord) error {
	return nil
}

func (l *NullDecisionLog) GetDecisionHistory(ctx context.Context, threadID string) ([]*DecisionRecord, error) {
	return nil, nil
}
