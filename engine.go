package decisionflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/psyai/decisionflow/script"
	"go.jetify.com/typeid"
)

// NewThreadID returns a new unique thread identifier.
func NewThreadID() string {
	id, err := typeid.WithPrefix("thread")
	if err != nil {
		panic(err)
	}
	return id.String()
}

// DefaultMaxSteps bounds the number of node executions in a single run or
// resume, guarding against accidental cycles in branching graphs.
const DefaultMaxSteps = 100

// Options configures an Engine.
type Options struct {
	Store          CheckpointStore
	Logger         *slog.Logger
	Callbacks      EngineCallbacks
	DecisionLog    DecisionLog
	ScriptCompiler script.Compiler
	MaxSteps       int
}

// Engine runs a validated graph against a state, advancing node by node,
// pausing and persisting at interrupt nodes, and resuming paused threads when
// a human judgment arrives. It runs nodes sequentially within a single
// invocation; the concurrency that matters is temporal: a pause written by
// one process may be resumed much later by another process sharing the store.
type Engine struct {
	store       CheckpointStore
	logger      *slog.Logger
	callbacks   EngineCallbacks
	decisionLog DecisionLog
	compiler    script.Compiler
	maxSteps    int
}

// NewEngine creates an engine. The checkpoint store is required; everything
// else defaults to a quiet no-op implementation.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("checkpoint store is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Callbacks == nil {
		opts.Callbacks = &BaseEngineCallbacks{}
	}
	if opts.DecisionLog == nil {
		opts.DecisionLog = NewNullDecisionLog()
	}
	if opts.ScriptCompiler == nil {
		opts.ScriptCompiler = script.NewRisorScriptingEngine(script.DefaultConditionGlobals())
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}
	return &Engine{
		store:       opts.Store,
		logger:      opts.Logger,
		callbacks:   opts.Callbacks,
		decisionLog: opts.DecisionLog,
		compiler:    opts.ScriptCompiler,
		maxSteps:    opts.MaxSteps,
	}, nil
}

// Run executes the graph against the initial state, starting at the entry
// point. It returns either the final state (terminal reached, checkpoint
// cleared) or the state at the first interrupt (checkpoint persisted, thread
// paused awaiting Resume).
func (e *Engine) Run(ctx context.Context, graph *Graph, initial DecisionState, threadID string) (DecisionState, error) {
	if threadID == "" {
		return initial, fmt.Errorf("thread id is required")
	}
	if err := graph.Validate(); err != nil {
		return initial, err
	}

	logger := e.logger.With("thread_id", threadID, "graph", graph.Name())
	logger.Info("starting run", "entry_point", graph.EntryPoint())

	startTime := time.Now()
	e.callbacks.BeforeRun(ctx, &RunEvent{
		ThreadID:  threadID,
		GraphName: graph.Name(),
		StartTime: startTime,
		State:     initial.Clone(),
	})

	final, paused, err := e.execute(ctx, graph, logger, initial, threadID, graph.EntryPoint())

	endTime := time.Now()
	e.callbacks.AfterRun(ctx, &RunEvent{
		ThreadID:  threadID,
		GraphName: graph.Name(),
		StartTime: startTime,
		EndTime:   endTime,
		Duration:  endTime.Sub(startTime),
		State:     final.Clone(),
		Paused:    paused,
		Error:     err,
	})
	return final, err
}

// Resume continues a paused thread. The patch carries exactly the human's
// decision; it is merged into the checkpointed state and execution continues
// at the node cursor. The claim on the checkpoint uses the store's
// expected-version guard, so of two racing resumes exactly one proceeds and
// the other fails with ConcurrentModificationError.
func (e *Engine) Resume(ctx context.Context, graph *Graph, threadID string, patch ReviewPatch) (DecisionState, error) {
	var zero DecisionState
	if threadID == "" {
		return zero, fmt.Errorf("thread id is required")
	}
	if err := graph.Validate(); err != nil {
		return zero, err
	}

	logger := e.logger.With("thread_id", threadID, "graph", graph.Name())

	record, err := e.store.Get(ctx, threadID)
	if err != nil {
		return zero, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	if record == nil {
		return zero, &ThreadNotFoundError{ThreadID: threadID}
	}
	if !record.Paused {
		return record.State, &InvalidStateError{ThreadID: threadID, Reason: "thread is not paused"}
	}

	patched := patch.Apply(record.State)

	// Claim the thread under the version guard before running anything, so a
	// second concurrent resume fails here instead of double-applying.
	if err := e.store.Update(ctx, threadID, record.Version, func(r *CheckpointRecord) {
		r.Paused = false
		r.State = patched.Clone()
	}); err != nil {
		return zero, err
	}
	claimedVersion := record.Version + 1

	logger.Info("resuming thread",
		"node_cursor", record.NodeCursor,
		"human_approved", patch.Approved,
		"version", claimedVersion)
	e.callbacks.OnResume(ctx, &PauseEvent{
		ThreadID:   threadID,
		GraphName:  graph.Name(),
		NodeCursor: record.NodeCursor,
		Version:    claimedVersion,
		State:      patched.Clone(),
	})

	startTime := time.Now()
	e.callbacks.BeforeRun(ctx, &RunEvent{
		ThreadID:  threadID,
		GraphName: graph.Name(),
		StartTime: startTime,
		State:     patched.Clone(),
		Resumed:   true,
	})

	final, paused, err := e.execute(ctx, graph, logger, patched, threadID, record.NodeCursor)
	if err != nil {
		// Re-mark the thread paused so the caller can retry the resume after
		// resolving the cause. The state and cursor of the pause are kept.
		if restoreErr := e.store.Update(ctx, threadID, claimedVersion, func(r *CheckpointRecord) {
			r.Paused = true
			r.NodeCursor = record.NodeCursor
			r.State = record.State.Clone()
		}); restoreErr != nil {
			logger.Error("failed to restore paused checkpoint", "error", restoreErr)
		}
	}

	endTime := time.Now()
	e.callbacks.AfterRun(ctx, &RunEvent{
		ThreadID:  threadID,
		GraphName: graph.Name(),
		StartTime: startTime,
		EndTime:   endTime,
		Duration:  endTime.Sub(startTime),
		State:     final.Clone(),
		Paused:    paused,
		Resumed:   true,
		Error:     err,
	})
	return final, err
}

// execute advances node by node from startNode. It returns the resulting
// state and whether the run stopped at an interrupt.
func (e *Engine) execute(ctx context.Context, graph *Graph, logger *slog.Logger, state DecisionState, threadID, startNode string) (DecisionState, bool, error) {
	ctx = WithLogger(ctx, logger)

	current := startNode
	for steps := 0; ; steps++ {
		if steps >= e.maxSteps {
			return state, false, fmt.Errorf("graph %q exceeded %d steps without reaching a terminal node", graph.Name(), e.maxSteps)
		}
		fn, ok := graph.Node(current)
		if !ok {
			return state, false, &UnknownNodeError{Node: current}
		}

		next, err := e.executeNode(ctx, graph, logger, fn, current, threadID, &state)
		if err != nil {
			return state, false, err
		}

		if graph.IsInterrupt(current) {
			if err := e.pause(ctx, graph, logger, state, threadID, current, next); err != nil {
				return state, false, err
			}
			return state, true, nil
		}

		if graph.IsTerminal(current) {
			if err := e.store.Delete(ctx, threadID); err != nil {
				return state, false, fmt.Errorf("failed to clear checkpoint: %w", err)
			}
			logger.Info("run completed",
				"terminal_node", current,
				"status", state.Status,
				"human_decision", state.HumanDecision)
			return state, false, nil
		}

		current = next
	}
}

// executeNode runs one node function, handling callbacks, decision logging,
// and panic recovery. On success it updates *state and returns the successor
// node name (empty for terminal nodes).
func (e *Engine) executeNode(ctx context.Context, graph *Graph, logger *slog.Logger, fn NodeFunction, node, threadID string, state *DecisionState) (string, error) {
	startTime := time.Now()
	e.callbacks.BeforeNode(ctx, &NodeEvent{
		ThreadID:  threadID,
		GraphName: graph.Name(),
		Node:      node,
		StartTime: startTime,
		State:     state.Clone(),
	})

	newState, err := runNodeFunction(ctx, fn, state.Clone())
	endTime := time.Now()
	duration := endTime.Sub(startTime)

	event := &NodeEvent{
		ThreadID:  threadID,
		GraphName: graph.Name(),
		Node:      node,
		StartTime: startTime,
		EndTime:   endTime,
		Duration:  duration,
		State:     newState.Clone(),
		Error:     err,
	}
	e.callbacks.AfterNode(ctx, event)

	record := &DecisionRecord{
		ThreadID:      threadID,
		GraphName:     graph.Name(),
		Node:          node,
		Scenario:      newState.Scenario,
		Prediction:    newState.Prediction,
		Confidence:    newState.Confidence,
		HumanDecision: newState.HumanDecision,
		HumanApproved: newState.HumanApproved,
		Status:        newState.Status,
		StartTime:     startTime,
		Duration:      duration.Seconds(),
	}
	if err != nil {
		record.Error = err.Error()
	}
	if logErr := e.decisionLog.LogDecision(ctx, record); logErr != nil {
		logger.Error("failed to log decision", "node", node, "error", logErr)
	}

	if err != nil {
		logger.Error("node failed", "node", node, "error", err)
		return "", &NodeError{Node: node, State: state.Clone(), Err: err}
	}

	logger.Debug("node executed", "node", node, "status", newState.Status, "duration", duration)
	*state = newState

	if graph.IsTerminal(node) && !graph.IsInterrupt(node) {
		return "", nil
	}
	next, err := e.nextNode(ctx, graph, node, newState)
	if err != nil {
		return "", err
	}
	return next, nil
}

// runNodeFunction invokes a node function, converting panics into errors so a
// misbehaving node cannot take down the engine or corrupt the store.
func runNodeFunction(ctx context.Context, fn NodeFunction, state DecisionState) (out DecisionState, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = state
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx, state)
}

// pause persists a checkpoint for the thread. The first pause creates the
// record at version 1; later pauses go through the version guard.
func (e *Engine) pause(ctx context.Context, graph *Graph, logger *slog.Logger, state DecisionState, threadID, node, cursor string) error {
	existing, err := e.store.Get(ctx, threadID)
	if err != nil {
		return fmt.Errorf("failed to load checkpoint: %w", err)
	}

	var version int64
	if existing == nil {
		version = 1
		record := &CheckpointRecord{
			ThreadID:   threadID,
			Version:    version,
			Paused:     true,
			NodeCursor: cursor,
			State:      state.Clone(),
		}
		if err := e.store.Put(ctx, threadID, record); err != nil {
			return fmt.Errorf("failed to persist checkpoint: %w", err)
		}
	} else {
		version = existing.Version + 1
		if err := e.store.Update(ctx, threadID, existing.Version, func(r *CheckpointRecord) {
			r.Paused = true
			r.NodeCursor = cursor
			r.State = state.Clone()
		}); err != nil {
			return err
		}
	}

	logger.Info("thread paused",
		"interrupt_node", node,
		"node_cursor", cursor,
		"status", state.Status,
		"version", version)
	e.callbacks.OnPause(ctx, &PauseEvent{
		ThreadID:   threadID,
		GraphName:  graph.Name(),
		Node:       node,
		NodeCursor: cursor,
		Version:    version,
		State:      state.Clone(),
	})
	return nil
}

// nextNode selects the successor of a node. Conditional edges are evaluated
// in registration order against the state; the first truthy condition wins,
// then the first unconditional edge acts as the default.
func (e *Engine) nextNode(ctx context.Context, graph *Graph, node string, state DecisionState) (string, error) {
	edges := graph.EdgesFrom(node)
	var fallback string
	for _, edge := range edges {
		if edge.Condition == "" {
			if fallback == "" {
				fallback = edge.To
			}
			continue
		}
		matched, err := e.evaluateCondition(ctx, edge.Condition, state)
		if err != nil {
			return "", fmt.Errorf("failed to evaluate condition on edge %s -> %s: %w", node, edge.To, err)
		}
		if matched {
			return edge.To, nil
		}
	}
	if fallback == "" {
		return "", fmt.Errorf("no edge matched from node %q", node)
	}
	return fallback, nil
}

func (e *Engine) evaluateCondition(ctx context.Context, condition string, state DecisionState) (bool, error) {
	compiled, err := e.compiler.Compile(ctx, condition)
	if err != nil {
		return false, err
	}
	options := make([]any, len(state.Options))
	for i, opt := range state.Options {
		options[i] = opt
	}
	value, err := compiled.Evaluate(ctx, map[string]any{
		"scenario":       state.Scenario,
		"options":        options,
		"prediction":     state.Prediction,
		"confidence":     state.Confidence,
		"human_decision": state.HumanDecision,
		"human_approved": state.HumanApproved,
		"status":         string(state.Status),
	})
	if err != nil {
		return false, err
	}
	return value.IsTruthy(), nil
}
