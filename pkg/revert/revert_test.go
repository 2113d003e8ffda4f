package revert_test

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/revertfang/pkg/editlog"
	"github.com/Sumatoshi-tech/revertfang/pkg/revert"
	"github.com/Sumatoshi-tech/revertfang/pkg/seniority"
)

var t0 = time.Date(2012, 3, 5, 8, 0, 0, 0, time.UTC)

type step struct {
	editor  string
	version int
	minutes int
}

// buildLog turns steps into time-sorted records with line numbers starting at 2.
func buildLog(steps ...step) []editlog.EditRecord {
	records := make([]editlog.EditRecord, len(steps))

	for i, s := range steps {
		records[i] = editlog.EditRecord{
			Time:    t0.Add(time.Duration(s.minutes) * time.Minute),
			Version: s.version,
			Editor:  s.editor,
			Line:    i + 2,
		}
	}

	return records
}

func detect(t *testing.T, maxVersions int, records, candidates []editlog.EditRecord) *revert.Graph {
	t.Helper()

	tr, err := seniority.Build(records)
	require.NoError(t, err)

	g, err := revert.NewDetector(tr, maxVersions).Detect(context.Background(), records, candidates)
	require.NoError(t, err)

	return g
}

func TestDetect_ReverterAndRevertedFromPredecessor(t *testing.T) {
	t.Parallel()

	records := buildLog(
		step{"B", 1, 0},
		step{"B", 3, 5},
		step{"A", 2, 10},
		step{"X", 1, 30},
	)

	g := detect(t, 10, records, records[:1])
	require.Equal(t, 1, g.EdgeCount())

	e := g.Edges("B")[0]
	assert.Equal(t, "B", e.Reverter)
	assert.Equal(t, "A", e.Reverted)
	assert.Equal(t, records[0].Time, e.Time)
	assert.Equal(t, records[2].Time, e.RevertedTime)
	assert.InDelta(t, 0, e.SeniorityReverter, 1e-12)
	assert.InDelta(t, 0, e.SeniorityReverted, 1e-12)
	assert.Equal(t, revert.EdgeID(1), e.ID)
}

func TestDetect_SearchBoundIsExclusive(t *testing.T) {
	t.Parallel()

	records := buildLog(
		step{"B", 1, 0},
		step{"A", 2, 10},
		step{"X", 1, 20},
	)

	// limit = 0 + (3-1) = 2, so only position 1 is inspected.
	assert.Equal(t, 0, detect(t, 3, records, records[:1]).EdgeCount())

	// limit = 0 + (4-1) = 3 reaches the recurrence at position 2.
	g := detect(t, 4, records, records[:1])
	require.Equal(t, 1, g.EdgeCount())
	assert.Equal(t, "A", g.Edges("B")[0].Reverted)
}

func TestDetect_BoundClampedToLogLength(t *testing.T) {
	t.Parallel()

	records := buildLog(
		step{"B", 1, 0},
		step{"A", 2, 10},
	)

	assert.Equal(t, 0, detect(t, 1000, records, records).EdgeCount())
}

func TestDetect_SameEditorGuard(t *testing.T) {
	t.Parallel()

	records := buildLog(
		step{"A", 1, 0},
		step{"A", 2, 10},
		step{"B", 1, 20},
	)

	assert.Equal(t, 0, detect(t, 10, records, records[:1]).EdgeCount())
}

func TestDetect_StopsAtFirstRecurrence(t *testing.T) {
	t.Parallel()

	records := buildLog(
		step{"B", 1, 0},
		step{"B", 2, 10},
		step{"C", 1, 20},
		step{"A", 9, 30},
		step{"Z", 1, 40},
	)

	// The first recurrence is preceded by B's own edit; the later one is ignored.
	assert.Equal(t, 0, detect(t, 10, records, records[:1]).EdgeCount())
}

func TestDetect_SeniorityFromRunningCounts(t *testing.T) {
	t.Parallel()

	records := buildLog(
		step{"A", 7, 0},
		step{"A", 8, 1},
		step{"A", 9, 2},
		step{"B", 1, 3},
		step{"A", 3, 4},
		step{"B", 1, 5},
	)

	g := detect(t, 10, records, records[3:4])
	require.Equal(t, 1, g.EdgeCount())

	e := g.Edges("B")[0]
	assert.Equal(t, "A", e.Reverted)
	assert.InDelta(t, 0, e.SeniorityReverter, 1e-12)
	assert.InDelta(t, math.Log10(4), e.SeniorityReverted, 1e-12)
}

func TestDetect_UnknownCandidate(t *testing.T) {
	t.Parallel()

	records := buildLog(step{"A", 1, 0})

	tr, err := seniority.Build(records)
	require.NoError(t, err)

	stranger := editlog.EditRecord{Line: 999, Editor: "A", Version: 1}

	_, err = revert.NewDetector(tr, 10).Detect(context.Background(), records, []editlog.EditRecord{stranger})
	require.ErrorIs(t, err, revert.ErrUnknownCandidate)
}

func TestDetect_DuplicateLineRejected(t *testing.T) {
	t.Parallel()

	records := buildLog(
		step{"B", 1, 0},
		step{"A", 2, 60},
		step{"X", 1, 120},
	)

	for i := range records {
		records[i].Line = 0
	}

	tr, err := seniority.Build(records)
	require.NoError(t, err)

	_, err = revert.NewDetector(tr, 10).Detect(context.Background(), records, records)
	require.ErrorIs(t, err, revert.ErrDuplicateLine)
}

func TestSelectCandidates(t *testing.T) {
	t.Parallel()

	unflagged := buildLog(
		step{"B", 1, 0},
		step{"A", 2, 60},
		step{"X", 1, 120},
	)

	flagged := buildLog(
		step{"B", 1, 0},
		step{"A", 2, 60},
		step{"X", 1, 120},
	)
	flagged[2].Revert = true

	tests := []struct {
		name      string
		mode      string
		records   []editlog.EditRecord
		wantLines []int
		wantMode  string
	}{
		{name: "auto_with_flags", mode: revert.CandidatesAuto, records: flagged, wantLines: []int{4}, wantMode: revert.CandidatesFlagged},
		{name: "auto_without_flags", mode: revert.CandidatesAuto, records: unflagged, wantLines: []int{2, 3, 4}, wantMode: revert.CandidatesAll},
		{name: "flagged_without_flags", mode: revert.CandidatesFlagged, records: unflagged, wantMode: revert.CandidatesFlagged},
		{name: "recurring", mode: revert.CandidatesRecurring, records: unflagged, wantLines: []int{4}, wantMode: revert.CandidatesRecurring},
		{name: "all", mode: revert.CandidatesAll, records: flagged, wantLines: []int{2, 3, 4}, wantMode: revert.CandidatesAll},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.wantMode, revert.ResolveCandidateMode(tt.mode, tt.records))

			got, err := revert.SelectCandidates(tt.mode, tt.records)
			require.NoError(t, err)

			lines := make([]int, 0, len(got))
			for _, rec := range got {
				lines = append(lines, rec.Line)
			}

			assert.Equal(t, tt.wantLines, nilIfEmpty(lines))
		})
	}
}

func TestSelectCandidates_UnknownMode(t *testing.T) {
	t.Parallel()

	_, err := revert.SelectCandidates("bogus", nil)
	require.ErrorIs(t, err, revert.ErrUnknownCandidateMode)
}

func nilIfEmpty(lines []int) []int {
	if len(lines) == 0 {
		return nil
	}

	return lines
}

func TestDetect_MissingSeniorityIsFatal(t *testing.T) {
	t.Parallel()

	records := buildLog(
		step{"B", 1, 0},
		step{"A", 2, 10},
		step{"X", 1, 20},
	)

	_, err := revert.NewDetector(seniority.NewTracker(), 10).Detect(context.Background(), records, records[:1])
	require.ErrorIs(t, err, seniority.ErrNoSeniority)
	assert.Contains(t, err.Error(), "line 2")
}

func TestDetect_Properties(t *testing.T) {
	t.Parallel()

	editors := []string{"A", "B", "C", "D"}
	steps := make([]step, 0, 200)
	seed := uint32(7)

	for i := range 200 {
		seed = seed*1664525 + 1013904223
		steps = append(steps, step{
			editor:  editors[(seed>>16)%uint32(len(editors))],
			version: int((seed >> 8) % 12),
			minutes: i * 7,
		})
	}

	records := buildLog(steps...)
	g := detect(t, 40, records, revert.AllCandidates(records))
	require.Positive(t, g.EdgeCount())

	byEditorTime := make(map[string]map[time.Time]bool)
	for _, rec := range records {
		if byEditorTime[rec.Editor] == nil {
			byEditorTime[rec.Editor] = make(map[time.Time]bool)
		}

		byEditorTime[rec.Editor][rec.Time] = true
	}

	ids := make(map[revert.EdgeID]bool)

	for _, e := range g.All() {
		assert.NotEqual(t, e.Reverter, e.Reverted, "self revert")
		assert.True(t, byEditorTime[e.Reverter][e.Time], fmt.Sprintf("edge %d time not an edit by %s", e.ID, e.Reverter))
		assert.False(t, ids[e.ID], "duplicate id")

		ids[e.ID] = true
	}
}
