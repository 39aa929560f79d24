package decisionflow

import "time"

// CheckpointRecord is a persisted snapshot of a paused thread: the state at
// the pause point and the cursor naming the node execution resumes at.
// Version increases by one on every update and backs the store's optimistic
// concurrency check.
type CheckpointRecord struct {
	ThreadID   string        `json:"thread_id"`
	Version    int64         `json:"version"`
	Paused     bool          `json:"paused"`
	NodeCursor string        `json:"node_cursor"`
	State      DecisionState `json:"state"`
	CreatedAt  time.Time     `json:"created_at,omitzero"`
	UpdatedAt  time.Time     `json:"updated_at,omitzero"`
}

// Clone returns a deep copy of the record.
func (r *CheckpointRecord) Clone() *CheckpointRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.State = r.State.Clone()
	return &out
}
