package dag

import (
	"testing"
)

func TestGraph_AddNodeAndEdge(t *testing.T) {
	g := NewGraph()

	g.AddNode("V2", `V2 = read("V2", data_type="frame");`)
	g.AddNode("V1", "V1 = rbind(V2, V2);")
	g.AddNode("V0", "V0 = nrow(V1);")

	if g.NodeCount() != 3 {
		t.Errorf("expected 3 nodes, got %d", g.NodeCount())
	}

	if err := g.AddEdge("V2", "V1"); err != nil {
		t.Errorf("failed to add edge: %v", err)
	}
	if err := g.AddEdge("V1", "V0"); err != nil {
		t.Errorf("failed to add edge: %v", err)
	}

	if g.EdgeCount() != 2 {
		t.Errorf("expected 2 edges, got %d", g.EdgeCount())
	}

	n, ok := g.GetNode("V0")
	if !ok || n.Data != "V0 = nrow(V1);" {
		t.Errorf("unexpected node V0: %+v", n)
	}
}

func TestGraph_AddNode_ReplacesData(t *testing.T) {
	g := NewGraph()
	g.AddNode("V0", "old")
	g.AddNode("V0", "new")

	if g.NodeCount() != 1 {
		t.Fatalf("expected 1 node, got %d", g.NodeCount())
	}
	n, _ := g.GetNode("V0")
	if n.Data != "new" {
		t.Errorf("expected data to be replaced, got %q", n.Data)
	}
}

func TestGraph_AddEdge_InvalidNodes(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", "")

	if err := g.AddEdge("a", "nonexistent"); err == nil {
		t.Error("expected error for nonexistent consumer")
	}
	if err := g.AddEdge("nonexistent", "a"); err == nil {
		t.Error("expected error for nonexistent producer")
	}
}

func TestGraph_AddEdge_SelfLoop(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", "")

	if err := g.AddEdge("a", "a"); err == nil {
		t.Error("expected error for self-loop")
	}
}

func TestGraph_HasCycle(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", "")
	g.AddNode("b", "")
	g.AddNode("c", "")
	_ = g.AddEdge("a", "b")
	_ = g.AddEdge("b", "c")

	if hasCycle, path := g.HasCycle(); hasCycle {
		t.Errorf("expected no cycle, but found: %v", path)
	}

	_ = g.AddEdge("c", "a")
	hasCycle, path := g.HasCycle()
	if !hasCycle {
		t.Error("expected cycle to be detected")
	}
	if len(path) == 0 {
		t.Error("expected cycle path to be non-empty")
	}
	if _, err := g.TopologicalSort(); err == nil {
		t.Error("expected error for cyclic graph")
	}
}

func TestGraph_TopologicalSort_Diamond(t *testing.T) {
	// x feeds a and b, c reads both
	g := NewGraph()
	g.AddNode("c", "")
	g.AddNode("a", "")
	g.AddNode("x", "")
	g.AddNode("b", "")

	_ = g.AddEdge("x", "a")
	_ = g.AddEdge("x", "b")
	_ = g.AddEdge("a", "c")
	_ = g.AddEdge("b", "c")

	sorted, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("failed to sort: %v", err)
	}

	positions := make(map[string]int)
	for i, node := range sorted {
		positions[node.ID] = i
	}

	if positions["x"] != 0 {
		t.Error("x should be first")
	}
	if positions["c"] != 3 {
		t.Error("c should be last")
	}
}

func TestGraph_TopologicalSort_KeepsInsertionOrderForTies(t *testing.T) {
	g := NewGraph()
	for _, id := range []string{"V3", "V10", "V1"} {
		g.AddNode(id, "")
	}

	sorted, err := g.TopologicalSort()
	if err != nil {
		t.Fatalf("failed to sort: %v", err)
	}
	got := []string{sorted[0].ID, sorted[1].ID, sorted[2].ID}
	want := []string{"V3", "V10", "V1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestGraph_GetExecutionLevels(t *testing.T) {
	g := NewGraph()
	g.AddNode("in1", "")
	g.AddNode("in2", "")
	g.AddNode("bind", "")
	g.AddNode("count", "")
	g.AddNode("sum", "")

	_ = g.AddEdge("in1", "bind")
	_ = g.AddEdge("in2", "bind")
	_ = g.AddEdge("bind", "count")
	_ = g.AddEdge("in1", "sum")

	levels, err := g.GetExecutionLevels()
	if err != nil {
		t.Fatalf("failed to get levels: %v", err)
	}

	if len(levels) != 3 {
		t.Fatalf("expected 3 levels, got %d: %v", len(levels), levels)
	}
	if len(levels[0]) != 2 {
		t.Errorf("expected 2 nodes at level 0, got %v", levels[0])
	}
	if len(levels[1]) != 2 {
		t.Errorf("expected bind and sum at level 1, got %v", levels[1])
	}
	if len(levels[2]) != 1 || levels[2][0] != "count" {
		t.Errorf("expected [count] at level 2, got %v", levels[2])
	}
}

func TestGraph_GetUpstreamNodes(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", "")
	g.AddNode("b", "")
	g.AddNode("c", "")
	g.AddNode("d", "")
	g.AddNode("e", "")

	_ = g.AddEdge("a", "c")
	_ = g.AddEdge("b", "c")
	_ = g.AddEdge("c", "d")

	upstream := g.GetUpstreamNodes("d")
	if len(upstream) != 3 {
		t.Errorf("expected 3 upstream nodes, got %d: %v", len(upstream), upstream)
	}
	if upstream[0] != "a" || upstream[2] != "c" {
		t.Errorf("expected insertion order, got %v", upstream)
	}
}

func TestGraph_DuplicateEdges(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", "")
	g.AddNode("b", "")

	_ = g.AddEdge("a", "b")
	_ = g.AddEdge("a", "b")

	if g.EdgeCount() != 1 {
		t.Errorf("expected 1 edge (no duplicates), got %d", g.EdgeCount())
	}
}
