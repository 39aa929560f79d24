package decisionflow

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const decisionGraphYAML = `
name: decision-review
entry_point: collect_scenario
nodes:
  - name: collect_scenario
    next:
      - to: score_scenario
  - name: score_scenario
    next:
      - to: await_human_review
  - name: await_human_review
    interrupt: true
    next:
      - to: finalize_decision
  - name: finalize_decision
    terminal: true
`

func decisionNodeRegistry() NodeRegistry {
	return NodeRegistry{
		NodeCollectScenario:  CollectScenario,
		NodeScoreScenario:    ScoreScenario(staticPredictor("Q1", 0.82)),
		NodeAwaitHumanReview: AwaitHumanReview,
		NodeFinalizeDecision: FinalizeDecision,
	}
}

func TestLoadGraphString(t *testing.T) {
	graph, err := LoadGraphString(decisionGraphYAML, decisionNodeRegistry())
	require.NoError(t, err)

	require.Equal(t, "decision-review", graph.Name())
	require.Equal(t, NodeCollectScenario, graph.EntryPoint())
	require.True(t, graph.IsInterrupt(NodeAwaitHumanReview))
	require.True(t, graph.IsTerminal(NodeFinalizeDecision))

	edges := graph.EdgesFrom(NodeCollectScenario)
	require.Len(t, edges, 1)
	require.Equal(t, NodeScoreScenario, edges[0].To)
}

func TestLoadGraphStringConditionalEdges(t *testing.T) {
	graph, err := LoadGraphString(`
name: routed
nodes:
  - name: score
    next:
      - to: high
        condition: confidence >= 0.5
      - to: low
  - name: high
  - name: low
`, NodeRegistry{
		"score": passthroughNode,
		"high":  passthroughNode,
		"low":   passthroughNode,
	})
	require.NoError(t, err)

	// Entry point defaults to the first node in the list
	require.Equal(t, "score", graph.EntryPoint())

	edges := graph.EdgesFrom("score")
	require.Len(t, edges, 2)
	require.Equal(t, "confidence >= 0.5", edges[0].Condition)
	require.Empty(t, edges[1].Condition)
}

func TestBuildGraphErrors(t *testing.T) {
	t.Run("missing name", func(t *testing.T) {
		_, err := BuildGraph(&GraphDefinition{
			Nodes: []*NodeDefinition{{Name: "a"}},
		}, NodeRegistry{"a": passthroughNode})
		require.Error(t, err)
		require.Contains(t, err.Error(), "graph name required")
	})

	t.Run("no nodes", func(t *testing.T) {
		_, err := BuildGraph(&GraphDefinition{Name: "empty"}, NodeRegistry{})
		require.Error(t, err)
		require.Contains(t, err.Error(), "nodes required")
	})

	t.Run("unregistered node", func(t *testing.T) {
		_, err := BuildGraph(&GraphDefinition{
			Name:  "missing-fn",
			Nodes: []*NodeDefinition{{Name: "a"}},
		}, NodeRegistry{})
		require.Error(t, err)
		require.Contains(t, err.Error(), `no function registered for node "a"`)
	})

	t.Run("edge to unknown node", func(t *testing.T) {
		_, err := BuildGraph(&GraphDefinition{
			Name: "bad-edge",
			Nodes: []*NodeDefinition{
				{Name: "a", Next: []*Edge{{To: "ghost"}}},
			},
		}, NodeRegistry{"a": passthroughNode})
		var unknown *UnknownNodeError
		require.ErrorAs(t, err, &unknown)
		require.Equal(t, "ghost", unknown.Node)
	})
}

func TestLoadGraphFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "graph.yaml")
	require.NoError(t, os.WriteFile(path, []byte(decisionGraphYAML), 0644))

	graph, err := LoadGraphFile(path, decisionNodeRegistry())
	require.NoError(t, err)
	require.Equal(t, "decision-review", graph.Name())

	_, err = LoadGraphFile(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to read graph file")
}

func TestLoadGraphStringMalformedYAML(t *testing.T) {
	_, err := LoadGraphString("nodes: [", nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to unmarshal graph definition")
}
