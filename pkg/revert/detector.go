package revert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/revertfang/pkg/editlog"
	"github.com/Sumatoshi-tech/revertfang/pkg/seniority"
)

// Detection failures.
var (
	// ErrUnknownCandidate is returned for a candidate that is not part of the scanned log.
	ErrUnknownCandidate = errors.New("candidate is not in the edit log")
	// ErrDuplicateLine is returned when two records share a Line, which makes
	// candidate positions ambiguous.
	ErrDuplicateLine = errors.New("duplicate record line")
)

// Detector finds reverts among candidate edits.
type Detector struct {
	Seniority *seniority.Tracker
	Logger    *slog.Logger
	// MaxNumVersions bounds the forward search: a candidate at position i with
	// version v is matched against positions i+1 up to, not including,
	// i+(MaxNumVersions-v).
	MaxNumVersions int
}

// NewDetector creates a detector backed by tr.
func NewDetector(tr *seniority.Tracker, maxNumVersions int) *Detector {
	return &Detector{Seniority: tr, MaxNumVersions: maxNumVersions}
}

// Detect scans records, which must be time-sorted, for reverts among candidates.
//
// For a candidate C the first later record D with C's version is located; the
// record just before D is the reverted edit. If that edit is C's own editor's,
// the candidate is not a revert. Missing seniority for either edit is fatal.
func (d *Detector) Detect(ctx context.Context, records, candidates []editlog.EditRecord) (*Graph, error) {
	logger := d.logger()

	positions, err := linePositions(records)
	if err != nil {
		return nil, err
	}

	g := NewGraph()

	for _, cand := range candidates {
		pos, ok := positions[cand.Line]
		if !ok {
			return nil, fmt.Errorf("%w: line %d", ErrUnknownCandidate, cand.Line)
		}

		reverted, found := d.findReverted(records, pos)
		if !found {
			logger.DebugContext(ctx, "no version recurrence", "line", cand.Line, "version", cand.Version)

			continue
		}

		if reverted.Editor == cand.Editor {
			logger.DebugContext(ctx, "same editor re-edit", "line", cand.Line, "editor", cand.Editor)

			continue
		}

		edge, err := d.buildEdge(cand, reverted)
		if err != nil {
			return nil, err
		}

		g.Add(edge)
	}

	return g, nil
}

// linePositions maps each record's Line to its index in records.
func linePositions(records []editlog.EditRecord) (map[int]int, error) {
	positions := make(map[int]int, len(records))

	for i, rec := range records {
		if prev, dup := positions[rec.Line]; dup {
			return nil, fmt.Errorf("%w: line %d at positions %d and %d", ErrDuplicateLine, rec.Line, prev, i)
		}

		positions[rec.Line] = i
	}

	return positions, nil
}

// findReverted returns the record preceding the first recurrence of the
// candidate's version within the search bound.
func (d *Detector) findReverted(records []editlog.EditRecord, pos int) (editlog.EditRecord, bool) {
	cand := records[pos]
	limit := min(pos+(d.MaxNumVersions-cand.Version), len(records))

	for j := pos + 1; j < limit; j++ {
		if records[j].Version == cand.Version {
			return records[j-1], true
		}
	}

	return editlog.EditRecord{}, false
}

func (d *Detector) buildEdge(reverter, reverted editlog.EditRecord) (Edge, error) {
	rp, err := d.Seniority.Lookup(reverter.Editor, reverter.Time)
	if err != nil {
		return Edge{}, fmt.Errorf("reverter at line %d: %w", reverter.Line, err)
	}

	dp, err := d.Seniority.Lookup(reverted.Editor, reverted.Time)
	if err != nil {
		return Edge{}, fmt.Errorf("reverted at line %d: %w", reverted.Line, err)
	}

	return Edge{
		Reverter:          reverter.Editor,
		Reverted:          reverted.Editor,
		Time:              reverter.Time,
		RevertedTime:      reverted.Time,
		SeniorityReverter: rp.Score,
		SeniorityReverted: dp.Score,
	}, nil
}

func (d *Detector) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}

	return slog.Default()
}
