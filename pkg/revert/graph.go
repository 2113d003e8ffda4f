// Package revert reconstructs which edits undo which earlier edits and keeps
// the result as a directed graph of reverter -> reverted editors.
package revert

import (
	"math"
	"slices"
	"time"
)

// EdgeID identifies an edge independently of its contents. IDs are assigned
// in detection order starting at 1.
type EdgeID uint64

// Edge records that Reverter's edit at Time undid an edit by Reverted.
type Edge struct {
	Time              time.Time `json:"time"               yaml:"time"`
	RevertedTime      time.Time `json:"reverted_time"      yaml:"reverted_time"`
	Reverter          string    `json:"reverter"           yaml:"reverter"`
	Reverted          string    `json:"reverted"           yaml:"reverted"`
	SeniorityReverter float64   `json:"seniority_reverter" yaml:"seniority_reverter"`
	SeniorityReverted float64   `json:"seniority_reverted" yaml:"seniority_reverted"`
	ID                EdgeID    `json:"id"                 yaml:"id"`
}

// SeniorityGap is the absolute difference between the two editors' seniority.
func (e Edge) SeniorityGap() float64 {
	return math.Abs(e.SeniorityReverter - e.SeniorityReverted)
}

// Graph maps each reverter to its edges. Reverters and their edges iterate in
// insertion order. Edges are never removed.
type Graph struct {
	edges  map[string][]Edge
	keys   []string
	nextID EdgeID
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{edges: make(map[string][]Edge)}
}

// Add assigns e the next ID, appends it under e.Reverter and returns it.
func (g *Graph) Add(e Edge) Edge {
	g.nextID++
	e.ID = g.nextID

	if _, ok := g.edges[e.Reverter]; !ok {
		g.keys = append(g.keys, e.Reverter)
	}

	g.edges[e.Reverter] = append(g.edges[e.Reverter], e)

	return e
}

// Reverters returns the reverter keys in insertion order.
func (g *Graph) Reverters() []string {
	return slices.Clone(g.keys)
}

// Edges returns the edges made by reverter, oldest detection first.
// The slice is shared with the graph and must not be modified.
func (g *Graph) Edges(reverter string) []Edge {
	return g.edges[reverter]
}

// HasReverter reports whether name has reverted anyone.
func (g *Graph) HasReverter(name string) bool {
	_, ok := g.edges[name]

	return ok
}

// All returns every edge, grouped by reverter in key order.
func (g *Graph) All() []Edge {
	all := make([]Edge, 0, g.EdgeCount())

	for _, k := range g.keys {
		all = append(all, g.edges[k]...)
	}

	return all
}

// Nodes returns the distinct reverter and reverted names in first-seen order.
func (g *Graph) Nodes() []string {
	seen := make(map[string]struct{})

	var nodes []string

	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}

		seen[name] = struct{}{}
		nodes = append(nodes, name)
	}

	for _, k := range g.keys {
		add(k)

		for _, e := range g.edges[k] {
			add(e.Reverted)
		}
	}

	return nodes
}

// NodeCount returns len(Nodes()).
func (g *Graph) NodeCount() int {
	return len(g.Nodes())
}

// EdgeCount returns the total number of edges.
func (g *Graph) EdgeCount() int {
	total := 0

	for _, es := range g.edges {
		total += len(es)
	}

	return total
}

// Len returns the number of reverters.
func (g *Graph) Len() int {
	return len(g.keys)
}
