package decisionflow

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// NodeDefinition declares one node of a YAML graph definition. The node's
// function is resolved by name against a NodeRegistry.
type NodeDefinition struct {
	Name      string  `json:"name" yaml:"name"`
	Next      []*Edge `json:"next,omitempty" yaml:"next,omitempty"`
	Interrupt bool    `json:"interrupt,omitempty" yaml:"interrupt,omitempty"`
	Terminal  bool    `json:"terminal,omitempty" yaml:"terminal,omitempty"`
}

// GraphDefinition is the serializable form of a workflow graph.
type GraphDefinition struct {
	Name       string            `json:"name" yaml:"name"`
	EntryPoint string            `json:"entry_point,omitempty" yaml:"entry_point,omitempty"`
	Nodes      []*NodeDefinition `json:"nodes" yaml:"nodes"`
}

// NodeRegistry maps node names to their functions when building a graph from
// a definition.
type NodeRegistry map[string]NodeFunction

// BuildGraph constructs and validates a Graph from a definition. Every node
// named in the definition must be present in the registry. When the
// definition omits an entry point, the first node is used, matching the
// order-sensitive reading of the node list.
func BuildGraph(def *GraphDefinition, registry NodeRegistry) (*Graph, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("graph name required")
	}
	if len(def.Nodes) == 0 {
		return nil, fmt.Errorf("nodes required")
	}

	g := NewGraph(def.Name)
	for _, node := range def.Nodes {
		fn, ok := registry[node.Name]
		if !ok {
			return nil, fmt.Errorf("no function registered for node %q", node.Name)
		}
		if err := g.AddNode(node.Name, fn); err != nil {
			return nil, err
		}
	}
	for _, node := range def.Nodes {
		for _, edge := range node.Next {
			if err := g.addEdge(node.Name, &Edge{To: edge.To, Condition: edge.Condition}); err != nil {
				return nil, err
			}
		}
		if node.Interrupt {
			if err := g.InterruptAfter(node.Name); err != nil {
				return nil, err
			}
		}
		if node.Terminal {
			if err := g.SetTerminal(node.Name); err != nil {
				return nil, err
			}
		}
	}

	entry := def.EntryPoint
	if entry == "" {
		entry = def.Nodes[0].Name
	}
	if err := g.SetEntryPoint(entry); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// LoadGraphFile loads a graph definition from a YAML file and builds it
// against the registry.
func LoadGraphFile(path string, registry NodeRegistry) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read graph file: %w", err)
	}
	return LoadGraphString(string(data), registry)
}

// LoadGraphString loads a graph definition from a YAML string and builds it
// against the registry.
func LoadGraphString(data string, registry NodeRegistry) (*Graph, error) {
	var def GraphDefinition
	if err := yaml.Unmarshal([]byte(data), &def); err != nil {
		return nil, fmt.Errorf("failed to unmarshal graph definition: %w", err)
	}
	return BuildGraph(&def, registry)
}
