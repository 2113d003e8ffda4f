// Package report assembles the outcome of an analysis run and writes it as
// a terminal summary, JSON or YAML.
package report

import (
	"time"

	"github.com/google/uuid"

	"github.com/Sumatoshi-tech/revertfang/pkg/differential"
	"github.com/Sumatoshi-tech/revertfang/pkg/revert"
)

// MaxFirstEdges is how many edges of the first reverter the network summary keeps.
const MaxFirstEdges = 5

// NetworkSummary describes the revert graph.
type NetworkSummary struct {
	FirstReverter string        `json:"first_reverter" yaml:"first_reverter"`
	FirstEdges    []revert.Edge `json:"first_edges"    yaml:"first_edges"`
	Nodes         int           `json:"nodes"          yaml:"nodes"`
	Edges         int           `json:"edges"          yaml:"edges"`
}

// Network summarizes g: node and edge counts plus up to MaxFirstEdges edges
// of the first reverter in insertion order.
func Network(g *revert.Graph) NetworkSummary {
	ns := NetworkSummary{
		Nodes:      g.NodeCount(),
		Edges:      g.EdgeCount(),
		FirstEdges: []revert.Edge{},
	}

	reverters := g.Reverters()
	if len(reverters) == 0 {
		return ns
	}

	ns.FirstReverter = reverters[0]

	edges := g.Edges(ns.FirstReverter)
	ns.FirstEdges = append(ns.FirstEdges, edges[:min(len(edges), MaxFirstEdges)]...)

	return ns
}

// Meta identifies a run and the parameters it used.
type Meta struct {
	GeneratedAt    time.Time `json:"generated_at"     yaml:"generated_at"`
	RunID          string    `json:"run_id"           yaml:"run_id"`
	Version        string    `json:"version"          yaml:"version"`
	Source         string    `json:"source"           yaml:"source"`
	Candidates     string    `json:"candidates"       yaml:"candidates"`
	Window         string    `json:"window"           yaml:"window"`
	MaxNumVersions int       `json:"max_num_versions" yaml:"max_num_versions"`
	Records        int       `json:"records"          yaml:"records"`
	Editors        int       `json:"editors"          yaml:"editors"`
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// Report is the serializable result of one analysis run.
type Report struct {
	Meta          Meta                       `json:"meta"          yaml:"meta"`
	Network       NetworkSummary             `json:"network"       yaml:"network"`
	Differentials differential.Differentials `json:"differentials" yaml:"differentials"`
	Summary       differential.Summary       `json:"summary"       yaml:"summary"`
	Pairs         int                        `json:"pairs"         yaml:"pairs"`
}

// New builds a Report. Nil difference lists are replaced with empty ones so
// the encoded form always carries arrays.
func New(meta Meta, g *revert.Graph, pairs int, d differential.Differentials, sum differential.Summary) Report {
	if meta.RunID == "" {
		meta.RunID = NewRunID()
	}

	if meta.GeneratedAt.IsZero() {
		meta.GeneratedAt = time.Now().UTC()
	}

	if d.ABBA == nil {
		d.ABBA = []float64{}
	}

	if d.NonABBA == nil {
		d.NonABBA = []float64{}
	}

	return Report{
		Meta:          meta,
		Network:       Network(g),
		Pairs:         pairs,
		Differentials: d,
		Summary:       sum,
	}
}
