// Package seniority tracks how experienced each editor is at every edit they make.
//
// Seniority is log10 of the editor's cumulative edit count, counting the edit
// itself, so an editor's first edit scores 0. Records must be observed in
// non-decreasing time order; the tracker rejects anything else rather than
// silently producing wrong counts.
package seniority

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/Sumatoshi-tech/revertfang/pkg/editlog"
)

var (
	// ErrUnsorted is returned when a record is older than one already observed.
	ErrUnsorted = errors.New("edit records are not in time order")
	// ErrNoSeniority is the sentinel matched by every LookupError.
	ErrNoSeniority = errors.New("no seniority point")
)

// Point is the seniority of one editor at one of their edits.
type Point struct {
	Time  time.Time `json:"time"  yaml:"time"`
	Score float64   `json:"score" yaml:"score"`
}

// Series is an editor's seniority over time, one point per edit, oldest first.
type Series []Point

// LookupError reports a timestamp with no matching seniority point.
type LookupError struct {
	Time   time.Time
	Editor string
}

// Error implements error.
func (e *LookupError) Error() string {
	return fmt.Sprintf("%v for editor %q at %s", ErrNoSeniority, e.Editor, e.Time.Format(editlog.TimestampLayout))
}

// Is makes errors.Is(err, ErrNoSeniority) match.
func (e *LookupError) Is(target error) bool {
	return target == ErrNoSeniority
}

// Tracker accumulates per-editor edit counts and seniority series.
type Tracker struct {
	last    time.Time
	counts  map[string]int
	series  map[string]Series
	editors []string
	seen    bool
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		counts: make(map[string]int),
		series: make(map[string]Series),
	}
}

// Build feeds every record into a fresh tracker.
func Build(records []editlog.EditRecord) (*Tracker, error) {
	tr := NewTracker()

	for _, rec := range records {
		_, err := tr.Observe(rec)
		if err != nil {
			return nil, err
		}
	}

	return tr, nil
}

// Observe counts rec and appends the editor's new seniority point.
func (tr *Tracker) Observe(rec editlog.EditRecord) (Point, error) {
	if tr.seen && rec.Time.Before(tr.last) {
		return Point{}, fmt.Errorf("%w: line %d at %s precedes %s",
			ErrUnsorted, rec.Line, rec.Time.Format(editlog.TimestampLayout), tr.last.Format(editlog.TimestampLayout))
	}

	tr.seen = true
	tr.last = rec.Time

	if _, ok := tr.counts[rec.Editor]; !ok {
		tr.editors = append(tr.editors, rec.Editor)
	}

	tr.counts[rec.Editor]++

	point := Point{Time: rec.Time, Score: math.Log10(float64(tr.counts[rec.Editor]))}
	tr.series[rec.Editor] = append(tr.series[rec.Editor], point)

	return point, nil
}

// Count returns how many edits editor has made so far.
func (tr *Tracker) Count(editor string) int {
	return tr.counts[editor]
}

// Series returns a copy of editor's seniority series.
func (tr *Tracker) Series(editor string) Series {
	return slices.Clone(tr.series[editor])
}

// Editors returns editor names in order of first appearance.
func (tr *Tracker) Editors() []string {
	return slices.Clone(tr.editors)
}

// Lookup returns editor's seniority at exactly t. When several of the editor's
// edits share t, the earliest one (first in the series) wins.
func (tr *Tracker) Lookup(editor string, t time.Time) (Point, error) {
	s := tr.series[editor]

	idx := sort.Search(len(s), func(i int) bool {
		return !s[i].Time.Before(t)
	})

	if idx == len(s) || !s[idx].Time.Equal(t) {
		return Point{}, &LookupError{Editor: editor, Time: t}
	}

	return s[idx], nil
}
