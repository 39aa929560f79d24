package decisionflow

import (
	"errors"
	"fmt"
	"strings"
)

// DuplicateNodeError indicates a node name was registered twice.
type DuplicateNodeError struct {
	Node string
}

func (e *DuplicateNodeError) Error() string {
	return fmt.Sprintf("duplicate node: %q", e.Node)
}

// UnknownNodeError indicates a reference to a node that was never registered.
type UnknownNodeError struct {
	Node string
}

func (e *UnknownNodeError) Error() string {
	return fmt.Sprintf("unknown node: %q", e.Node)
}

// UnreachableNodeError indicates registered nodes that cannot be reached by
// walking edges from the entry point.
type UnreachableNodeError struct {
	Nodes []string
}

func (e *UnreachableNodeError) Error() string {
	return fmt.Sprintf("unreachable nodes: %s", strings.Join(e.Nodes, ", "))
}

// NoEntryPointError indicates Validate was called before an entry point was set.
type NoEntryPointError struct{}

func (e *NoEntryPointError) Error() string {
	return "no entry point set"
}

// IsGraphDefinitionError reports whether an error was raised at graph
// construction or validation time. These are fatal and must be fixed before
// any run.
func IsGraphDefinitionError(err error) bool {
	var dup *DuplicateNodeError
	var unknown *UnknownNodeError
	var unreachable *UnreachableNodeError
	var noEntry *NoEntryPointError
	return errors.As(err, &dup) ||
		errors.As(err, &unknown) ||
		errors.As(err, &unreachable) ||
		errors.As(err, &noEntry)
}

// ThreadNotFoundError indicates a resume or update against a thread id with
// no checkpoint, either because the thread never paused or because its
// checkpoint was already cleared.
type ThreadNotFoundError struct {
	ThreadID string
}

func (e *ThreadNotFoundError) Error() string {
	return fmt.Sprintf("thread not found: %q", e.ThreadID)
}

// InvalidStateError indicates a resume against a thread that exists but is
// not currently paused.
type InvalidStateError struct {
	ThreadID string
	Reason   string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("thread %q is not resumable: %s", e.ThreadID, e.Reason)
}

// ConcurrentModificationError indicates a version mismatch during a
// checkpoint update. The caller should reload the record and decide whether
// to retry.
type ConcurrentModificationError struct {
	ThreadID string
	Expected int64
	Actual   int64
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("concurrent modification of thread %q: expected version %d, found %d",
		e.ThreadID, e.Expected, e.Actual)
}

// NodeError wraps a failure raised inside a node function. It carries the
// failing node's name and the state at the moment of failure. The checkpoint
// store is left in its last valid state, so retrying after resolving the
// cause is safe.
type NodeError struct {
	Node  string
	State DecisionState
	Err   error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %q failed: %v", e.Node, e.Err)
}

func (e *NodeError) Unwrap() error {
	return e.Err
}
