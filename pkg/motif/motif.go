// Package motif pairs reverts into AB-BA sequences: A reverts B, then B
// reverts A back within a bounded window.
package motif

import (
	"time"

	"github.com/Sumatoshi-tech/revertfang/pkg/revert"
)

// DefaultWindow is the maximum delay between the two reverts of a pair.
const DefaultWindow = 24 * time.Hour

// ConsumedSet holds the IDs of edges already claimed by a pair.
type ConsumedSet map[revert.EdgeID]struct{}

// Has reports whether id has been consumed.
func (s ConsumedSet) Has(id revert.EdgeID) bool {
	_, ok := s[id]

	return ok
}

// Add marks id consumed.
func (s ConsumedSet) Add(id revert.EdgeID) {
	s[id] = struct{}{}
}

// Len returns the number of consumed edges.
func (s ConsumedSet) Len() int {
	return len(s)
}

// Pair is one AB-BA motif. Forward is A's revert of B; Backward is B's revert of A.
type Pair struct {
	Forward  revert.Edge   `json:"forward"  yaml:"forward"`
	Backward revert.Edge   `json:"backward" yaml:"backward"`
	Delta    time.Duration `json:"delta"    yaml:"delta"`
}

// Result is the outcome of matching a graph.
type Result struct {
	Consumed ConsumedSet
	Pairs    []Pair
	// ABBA holds the absolute seniority difference of each pair's forward edge,
	// in pairing order.
	ABBA []float64
}

// Matcher finds AB-BA pairs.
type Matcher struct {
	Window time.Duration
}

// NewMatcher returns a matcher with the given window; zero means DefaultWindow.
func NewMatcher(window time.Duration) *Matcher {
	if window <= 0 {
		window = DefaultWindow
	}

	return &Matcher{Window: window}
}

// Match walks reverters and their edges in insertion order. An edge E of
// reverter R pairs with the first unconsumed edge F of E.Reverted that reverts
// R back with 0 <= F.Time-E.Time <= Window. Each edge joins at most one pair.
func (m *Matcher) Match(g *revert.Graph) Result {
	res := Result{Consumed: make(ConsumedSet)}

	for _, reverter := range g.Reverters() {
		for _, forward := range g.Edges(reverter) {
			if !g.HasReverter(forward.Reverted) {
				continue
			}

			for _, backward := range g.Edges(forward.Reverted) {
				if !m.pairs(reverter, forward, backward, res.Consumed) {
					continue
				}

				res.Consumed.Add(forward.ID)
				res.Consumed.Add(backward.ID)
				res.Pairs = append(res.Pairs, Pair{
					Forward:  forward,
					Backward: backward,
					Delta:    backward.Time.Sub(forward.Time),
				})
				res.ABBA = append(res.ABBA, forward.SeniorityGap())
			}
		}
	}

	return res
}

func (m *Matcher) pairs(reverter string, forward, backward revert.Edge, consumed ConsumedSet) bool {
	delta := backward.Time.Sub(forward.Time)

	return forward.ID != backward.ID &&
		delta >= 0 && delta <= m.Window &&
		backward.Reverted == reverter &&
		!consumed.Has(forward.ID) &&
		!consumed.Has(backward.ID)
}
