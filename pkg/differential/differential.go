// Package differential collects seniority differences for AB-BA and
// non-AB-BA reverts.
package differential

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/Sumatoshi-tech/revertfang/pkg/motif"
	"github.com/Sumatoshi-tech/revertfang/pkg/revert"
)

// ErrInvariant is returned when paired and unpaired counts do not add up to the graph's edges.
var ErrInvariant = errors.New("differential counts do not cover the revert graph")

// Percentile thresholds used in summaries.
const (
	percentileMedian = 0.5
	percentileP95    = 0.95
)

// Differentials are the two flat lists handed to the renderer.
type Differentials struct {
	ABBA    []float64 `json:"ab_ba"     yaml:"ab_ba"`
	NonABBA []float64 `json:"non_ab_ba" yaml:"non_ab_ba"`
}

// Aggregate builds the AB-BA and non-AB-BA lists. An edge is non-AB-BA when
// its ID is not in res.Consumed; those are listed in graph order.
func Aggregate(g *revert.Graph, res motif.Result) (Differentials, error) {
	out := Differentials{ABBA: slices.Clone(res.ABBA)}
	if out.ABBA == nil {
		out.ABBA = []float64{}
	}

	out.NonABBA = make([]float64, 0, max(g.EdgeCount()-res.Consumed.Len(), 0))

	for _, e := range g.All() {
		if res.Consumed.Has(e.ID) {
			continue
		}

		out.NonABBA = append(out.NonABBA, e.SeniorityGap())
	}

	if got, want := 2*len(out.ABBA)+len(out.NonABBA), g.EdgeCount(); got != want {
		return Differentials{}, fmt.Errorf("%w: 2*%d+%d != %d", ErrInvariant, len(out.ABBA), len(out.NonABBA), want)
	}

	return out, nil
}

// Stats describes one list of differences.
type Stats struct {
	Count  int     `json:"count"  yaml:"count"`
	Mean   float64 `json:"mean"   yaml:"mean"`
	Median float64 `json:"median" yaml:"median"`
	P95    float64 `json:"p95"    yaml:"p95"`
	Max    float64 `json:"max"    yaml:"max"`
}

// Summary holds descriptive statistics for both lists.
type Summary struct {
	ABBA    Stats `json:"ab_ba"     yaml:"ab_ba"`
	NonABBA Stats `json:"non_ab_ba" yaml:"non_ab_ba"`
}

// Summarize computes Stats for both lists concurrently.
func Summarize(ctx context.Context, d Differentials) (Summary, error) {
	var sum Summary

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		s, err := describe(egCtx, d.ABBA)
		sum.ABBA = s

		return err
	})

	eg.Go(func() error {
		s, err := describe(egCtx, d.NonABBA)
		sum.NonABBA = s

		return err
	})

	err := eg.Wait()
	if err != nil {
		return Summary{}, fmt.Errorf("summarize differentials: %w", err)
	}

	return sum, nil
}

func describe(ctx context.Context, values []float64) (Stats, error) {
	err := ctx.Err()
	if err != nil {
		return Stats{}, err
	}

	if len(values) == 0 {
		return Stats{}, nil
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	var total float64
	for _, v := range sorted {
		total += v
	}

	return Stats{
		Count:  len(sorted),
		Mean:   total / float64(len(sorted)),
		Median: percentile(sorted, percentileMedian),
		P95:    percentile(sorted, percentileP95),
		Max:    sorted[len(sorted)-1],
	}, nil
}

// percentile interpolates linearly between the closest ranks of sorted.
func percentile(sorted []float64, p float64) float64 {
	idx := p * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := int(math.Ceil(idx))

	if lower == upper {
		return sorted[lower]
	}

	frac := idx - float64(lower)

	return sorted[lower]*(1-frac) + sorted[upper]*frac
}
