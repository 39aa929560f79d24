package decisionflow

import (
	"context"
	"time"
)

// EngineCallbacks defines the callback interface for engine lifecycle events.
type EngineCallbacks interface {
	// Run-level callbacks
	BeforeRun(ctx context.Context, event *RunEvent)
	AfterRun(ctx context.Context, event *RunEvent)

	// Node-level callbacks
	BeforeNode(ctx context.Context, event *NodeEvent)
	AfterNode(ctx context.Context, event *NodeEvent)

	// Pause/resume callbacks
	OnPause(ctx context.Context, event *PauseEvent)
	OnResume(ctx context.Context, event *PauseEvent)
}

// RunEvent provides context for run-level events. For AfterRun, Paused
// reports whether the run stopped at an interrupt rather than the terminal.
type RunEvent struct {
	ThreadID  string
	GraphName string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	State     DecisionState
	Paused    bool
	Resumed   bool
	Error     error
}

// NodeEvent provides context for node execution events.
type NodeEvent struct {
	ThreadID  string
	GraphName string
	Node      string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	State     DecisionState
	Error     error
}

// PauseEvent provides context for checkpoint pause and resume events.
type PauseEvent struct {
	ThreadID   string
	GraphName  string
	Node       string
	NodeCursor string
	Version    int64
	State      DecisionState
}

// BaseEngineCallbacks provides a default implementation that does nothing.
// Embed it to implement only the callbacks you care about.
type BaseEngineCallbacks struct{}

func (c *BaseEngineCallbacks) BeforeRun(ctx context.Context, event *RunEvent) {}

func (c *BaseEngineCallbacks) AfterRun(ctx context.Context, event *RunEvent) {}

func (c *BaseEngineCallbacks) BeforeNode(ctx context.Context, event *NodeEvent) {}

func (c *BaseEngineCallbacks) AfterNode(ctx context.Context, event *NodeEvent) {}

func (c *BaseEngineCallbacks) OnPause(ctx context.Context, event *PauseEvent) {}

func (c *BaseEngineCallbacks) OnResume(ctx context.Context, event *PauseEvent) {}

// CallbackChain fans events out to multiple callback implementations.
type CallbackChain struct {
	callbacks []EngineCallbacks
}

// NewCallbackChain creates a new callback chain.
func NewCallbackChain(callbacks ...EngineCallbacks) *CallbackChain {
	return &CallbackChain{callbacks: callbacks}
}

// Add adds a callback to the chain.
func (c *CallbackChain) Add(callback EngineCallbacks) {
	c.callbacks = append(c.callbacks, callback)
}

func (c *CallbackChain) BeforeRun(ctx context.Context, event *RunEvent) {
	for _, callback := range c.callbacks {
		callback.BeforeRun(ctx, event)
	}
}

func (c *CallbackChain) AfterRun(ctx context.Context, event *RunEvent) {
	for _, callback := range c.callbacks {
		callback.AfterRun(ctx, event)
	}
}

func (c *CallbackChain) BeforeNode(ctx context.Context, event *NodeEvent) {
	for _, callback := range c.callbacks {
		callback.BeforeNode(ctx, event)
	}
}

func (c *CallbackChain) AfterNode(ctx context.Context, event *NodeEvent) {
	for _, callback := range c.callbacks {
		callback.AfterNode(ctx, event)
	}
}

func (c *CallbackChain) OnPause(ctx context.Context, event *PauseEvent) {
	for _, callback := range c.callbacks {
		callback.OnPause(ctx, event)
	}
}

func (c *CallbackChain) OnResume(ctx context.Context, event *PauseEvent) {
	for _, callback := range c.callbacks {
		callback.OnResume(ctx, event)
	}
}
