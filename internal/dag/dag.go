// Package dag provides the statement dependency graph of a generated script.
// It supports cycle detection, topological ordering and execution levels.
package dag

import (
	"fmt"
	"slices"
)

// Node is a statement in the graph.
type Node struct {
	// ID is the variable name the statement assigns
	ID string
	// Data holds the rendered statement
	Data string
}

// Graph is a directed acyclic graph of statements. Edges point from a
// statement to the statements that read its result.
type Graph struct {
	nodes   map[string]*Node
	order   []string            // insertion order
	edges   map[string][]string // producer -> consumers
	parents map[string][]string // consumer -> producers
}

// NewGraph creates a new empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]*Node),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a statement to the graph. Adding an existing ID replaces
// its data and keeps its position.
func (g *Graph) AddNode(id, data string) {
	if n, exists := g.nodes[id]; exists {
		n.Data = data
		return
	}
	g.nodes[id] = &Node{ID: id, Data: data}
	g.order = append(g.order, id)
}

// AddEdge records that consumer reads the result of producer.
func (g *Graph) AddEdge(producer, consumer string) error {
	if _, exists := g.nodes[producer]; !exists {
		return fmt.Errorf("producer %q does not exist", producer)
	}
	if _, exists := g.nodes[consumer]; !exists {
		return fmt.Errorf("consumer %q does not exist", consumer)
	}
	if producer == consumer {
		return fmt.Errorf("self-loop detected: %s", producer)
	}

	if !slices.Contains(g.edges[producer], consumer) {
		g.edges[producer] = append(g.edges[producer], consumer)
	}
	if !slices.Contains(g.parents[consumer], producer) {
		g.parents[consumer] = append(g.parents[consumer], producer)
	}
	return nil
}

// GetNode returns a statement by ID.
func (g *Graph) GetNode(id string) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// NodeCount returns the number of statements.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// HasCycle returns true if the graph contains a cycle, along with the cycle path.
func (g *Graph) HasCycle() (bool, []string) {
	visited := make(map[string]bool)
	recStack := make(map[string]bool)
	path := make(map[string]string)

	var cyclePath []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		recStack[id] = true

		for _, childID := range g.edges[id] {
			if !visited[childID] {
				path[childID] = id
				if dfs(childID) {
					return true
				}
			} else if recStack[childID] {
				cyclePath = []string{childID}
				for curr := id; curr != childID; curr = path[curr] {
					cyclePath = append([]string{curr}, cyclePath...)
				}
				cyclePath = append([]string{childID}, cyclePath...)
				return true
			}
		}

		recStack[id] = false
		return false
	}

	for _, id := range g.order {
		if !visited[id] && dfs(id) {
			return true, cyclePath
		}
	}
	return false, nil
}

// TopologicalSort returns statements with producers before consumers.
// Ties keep insertion order.
func (g *Graph) TopologicalSort() ([]*Node, error) {
	if hasCycle, cyclePath := g.HasCycle(); hasCycle {
		return nil, fmt.Errorf("cycle detected: %v", cyclePath)
	}

	visited := make(map[string]bool)
	result := make([]*Node, 0, len(g.nodes))

	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		for _, parentID := range g.parents[id] {
			visit(parentID)
		}
		result = append(result, g.nodes[id])
	}

	for _, id := range g.order {
		visit(id)
	}
	return result, nil
}

// GetExecutionLevels groups statements by level. Statements at level N only
// read results of levels below N; level 0 reads only bound inputs and constants.
func (g *Graph) GetExecutionLevels() ([][]string, error) {
	sorted, err := g.TopologicalSort()
	if err != nil {
		return nil, err
	}

	level := make(map[string]int, len(sorted))
	var levels [][]string
	for _, n := range sorted {
		l := 0
		for _, parentID := range g.parents[n.ID] {
			if level[parentID]+1 > l {
				l = level[parentID] + 1
			}
		}
		level[n.ID] = l
		for len(levels) <= l {
			levels = append(levels, nil)
		}
		levels[l] = append(levels[l], n.ID)
	}
	return levels, nil
}

// GetUpstreamNodes returns every statement id transitively reads from,
// in insertion order.
func (g *Graph) GetUpstreamNodes(id string) []string {
	upstream := make(map[string]bool)

	var markUpstream func(nodeID string)
	markUpstream = func(nodeID string) {
		for _, parentID := range g.parents[nodeID] {
			if !upstream[parentID] {
				upstream[parentID] = true
				markUpstream(parentID)
			}
		}
	}
	markUpstream(id)

	var result []string
	for _, nodeID := range g.order {
		if upstream[nodeID] {
			result = append(result, nodeID)
		}
	}
	return result
}
