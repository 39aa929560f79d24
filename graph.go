package decisionflow

import (
	"context"
	"fmt"
	"sort"
)

// NodeFunction is one step of a workflow graph. It consumes a state value and
// produces a new state value, and may signal failure.
type NodeFunction func(ctx context.Context, state DecisionState) (DecisionState, error)

// Edge connects a node to a possible successor. An empty Condition makes the
// edge unconditional; otherwise the condition is a script expression
// evaluated against the state when the engine selects the next node.
type Edge struct {
	To        string `json:"to" yaml:"to"`
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
}

// Graph is an immutable workflow definition: named nodes, directed edges, one
// entry point, a set of interrupt-after nodes, and terminal markers. Build it
// with the Add/Set methods, then call Validate. Once validated, the graph
// rejects further mutation.
type Graph struct {
	name       string
	nodes      map[string]NodeFunction
	edges      map[string][]*Edge
	entryPoint string
	interrupts map[string]struct{}
	terminals  map[string]struct{}
	validated  bool
}

// NewGraph creates an empty graph with the given name.
func NewGraph(name string) *Graph {
	return &Graph{
		name:       name,
		nodes:      map[string]NodeFunction{},
		edges:      map[string][]*Edge{},
		interrupts: map[string]struct{}{},
		terminals:  map[string]struct{}{},
	}
}

// Name returns the graph name.
func (g *Graph) Name() string {
	return g.name
}

// AddNode registers a named node function.
func (g *Graph) AddNode(name string, fn NodeFunction) error {
	if g.validated {
		return fmt.Errorf("graph %q is immutable after validation", g.name)
	}
	if name == "" {
		return fmt.Errorf("node name required")
	}
	if fn == nil {
		return fmt.Errorf("node function required for %q", name)
	}
	if _, exists := g.nodes[name]; exists {
		return &DuplicateNodeError{Node: name}
	}
	g.nodes[name] = fn
	return nil
}

// AddEdge adds an unconditional edge between two registered nodes.
func (g *Graph) AddEdge(from, to string) error {
	return g.addEdge(from, &Edge{To: to})
}

// AddConditionalEdge adds an edge that is only followed when the condition
// expression evaluates truthy against the current state. Conditional edges
// are evaluated in registration order, before any unconditional edge.
func (g *Graph) AddConditionalEdge(from, to, condition string) error {
	return g.addEdge(from, &Edge{To: to, Condition: condition})
}

func (g *Graph) addEdge(from string, edge *Edge) error {
	if g.validated {
		return fmt.Errorf("graph %q is immutable after validation", g.name)
	}
	if _, ok := g.nodes[from]; !ok {
		return &UnknownNodeError{Node: from}
	}
	if _, ok := g.nodes[edge.To]; !ok {
		return &UnknownNodeError{Node: edge.To}
	}
	g.edges[from] = append(g.edges[from], edge)
	return nil
}

// SetEntryPoint designates the node where execution begins.
func (g *Graph) SetEntryPoint(name string) error {
	if g.validated {
		return fmt.Errorf("graph %q is immutable after validation", g.name)
	}
	if _, ok := g.nodes[name]; !ok {
		return &UnknownNodeError{Node: name}
	}
	g.entryPoint = name
	return nil
}

// InterruptAfter marks nodes after which the engine always pauses and
// persists a checkpoint, awaiting external input before continuing.
func (g *Graph) InterruptAfter(names ...string) error {
	if g.validated {
		return fmt.Errorf("graph %q is immutable after validation", g.name)
	}
	for _, name := range names {
		if _, ok := g.nodes[name]; !ok {
			return &UnknownNodeError{Node: name}
		}
		g.interrupts[name] = struct{}{}
	}
	return nil
}

// SetTerminal marks a node as terminal. Execution halts after a terminal
// node runs. A node with no outgoing edges is implicitly terminal.
func (g *Graph) SetTerminal(name string) error {
	if g.validated {
		return fmt.Errorf("graph %q is immutable after validation", g.name)
	}
	if _, ok := g.nodes[name]; !ok {
		return &UnknownNodeError{Node: name}
	}
	g.terminals[name] = struct{}{}
	return nil
}

// EntryPoint returns the entry node name.
func (g *Graph) EntryPoint() string {
	return g.entryPoint
}

// NodeNames returns the names of all registered nodes, sorted.
func (g *Graph) NodeNames() []string {
	names := make([]string, 0, len(g.nodes))
	for name := range g.nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Node returns the function registered under the given name.
func (g *Graph) Node(name string) (NodeFunction, bool) {
	fn, ok := g.nodes[name]
	return fn, ok
}

// EdgesFrom returns the outgoing edges of a node in registration order.
func (g *Graph) EdgesFrom(name string) []*Edge {
	return g.edges[name]
}

// IsInterrupt reports whether the engine pauses after the given node.
func (g *Graph) IsInterrupt(name string) bool {
	_, ok := g.interrupts[name]
	return ok
}

// IsTerminal reports whether execution halts after the given node.
func (g *Graph) IsTerminal(name string) bool {
	if _, ok := g.terminals[name]; ok {
		return true
	}
	return len(g.edges[name]) == 0
}

// Validate checks the graph structure and freezes the definition. It fails
// with NoEntryPointError if no entry point was set and with
// UnreachableNodeError if any registered node cannot be reached from the
// entry point. Interrupt nodes must have a successor to resume into.
func (g *Graph) Validate() error {
	if g.validated {
		return nil
	}
	if g.entryPoint == "" {
		return &NoEntryPointError{}
	}

	reachable := map[string]bool{}
	queue := []string{g.entryPoint}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if reachable[name] {
			continue
		}
		reachable[name] = true
		for _, edge := range g.edges[name] {
			queue = append(queue, edge.To)
		}
	}

	var unreachable []string
	for name := range g.nodes {
		if !reachable[name] {
			unreachable = append(unreachable, name)
		}
	}
	if len(unreachable) > 0 {
		sort.Strings(unreachable)
		return &UnreachableNodeError{Nodes: unreachable}
	}

	for name := range g.interrupts {
		if len(g.edges[name]) == 0 {
			return fmt.Errorf("interrupt node %q has no successor to resume into", name)
		}
	}

	g.validated = true
	return nil
}
