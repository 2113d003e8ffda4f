package pipeline_test

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/revertfang/pkg/editlog"
	"github.com/Sumatoshi-tech/revertfang/pkg/observability"
	"github.com/Sumatoshi-tech/revertfang/pkg/pipeline"
	"github.com/Sumatoshi-tech/revertfang/pkg/revert"
)

// sampleLog has one AB-BA pair (R and Y revert each other two hours apart)
// and one unpaired revert of R by Z.
const sampleLog = `id date time revert version editor
1 2012-03-05 08:00:00 1 1 R
2 2012-03-05 09:00:00 0 2 Y
3 2012-03-05 10:00:00 1 1 Y
4 2012-03-05 11:00:00 0 2 R
5 2012-03-05 12:00:00 0 1 Z
6 2012-03-05 13:00:00 1 3 Z
7 2012-03-05 14:00:00 0 4 R
8 2012-03-05 15:00:00 0 3 Y
`

func writeLog(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "edits.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestRunFile_EndToEnd(t *testing.T) {
	t.Parallel()

	res, err := pipeline.RunFile(context.Background(), writeLog(t, sampleLog), pipeline.Options{})
	require.NoError(t, err)

	assert.Len(t, res.Records, 8)
	assert.Len(t, res.Candidates, 3)
	assert.Equal(t, 3, res.Graph.EdgeCount())
	assert.Equal(t, []string{"R", "Y", "Z"}, res.Graph.Nodes())

	require.Len(t, res.Motifs.Pairs, 1)
	assert.Equal(t, "R", res.Motifs.Pairs[0].Forward.Reverter)
	assert.Equal(t, "Y", res.Motifs.Pairs[0].Backward.Reverter)
	assert.Equal(t, 2*time.Hour, res.Motifs.Pairs[0].Delta)

	assert.Equal(t, []float64{0}, res.Differentials.ABBA)
	require.Len(t, res.Differentials.NonABBA, 1)
	assert.InDelta(t, math.Log10(3)-math.Log10(2), res.Differentials.NonABBA[0], 1e-12)

	assert.Equal(t, 1, res.Summary.ABBA.Count)
	assert.Equal(t, 1, res.Summary.NonABBA.Count)
}

func TestRunFile_NarrowWindowLeavesEverythingUnpaired(t *testing.T) {
	t.Parallel()

	res, err := pipeline.RunFile(context.Background(), writeLog(t, sampleLog), pipeline.Options{Window: time.Hour})
	require.NoError(t, err)

	assert.Empty(t, res.Motifs.Pairs)
	assert.Empty(t, res.Differentials.ABBA)
	assert.Len(t, res.Differentials.NonABBA, 3)
}

// unflaggedLog omits the revert-flag column. B's version 1 is restored by X
// after A's edit, so scanning every record finds one revert of A by B.
const unflaggedLog = `id date time version editor
1 2012-03-05 08:00:00 1 B
2 2012-03-05 09:00:00 2 A
3 2012-03-05 10:00:00 1 X
`

func TestRunFile_UnflaggedLogScansEveryRecord(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer

	res, err := pipeline.RunFile(context.Background(), writeLog(t, unflaggedLog), pipeline.Options{
		Logger: slog.New(slog.NewTextHandler(&logs, nil)),
	})
	require.NoError(t, err)

	assert.Equal(t, revert.CandidatesAll, res.CandidateMode)
	assert.Len(t, res.Candidates, 3)
	require.Equal(t, 1, res.Graph.EdgeCount())
	assert.Equal(t, "B", res.Graph.All()[0].Reverter)
	assert.Equal(t, "A", res.Graph.All()[0].Reverted)
	assert.Contains(t, logs.String(), "no revert flags in log")
}

func TestRunFile_ExplicitFlaggedModeWarnsOnUnflaggedLog(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer

	res, err := pipeline.RunFile(context.Background(), writeLog(t, unflaggedLog), pipeline.Options{
		Candidates: revert.CandidatesFlagged,
		Logger:     slog.New(slog.NewTextHandler(&logs, nil)),
	})
	require.NoError(t, err)

	assert.Empty(t, res.Candidates)
	assert.Zero(t, res.Graph.EdgeCount())
	assert.Contains(t, logs.String(), "level=WARN")
	assert.Contains(t, logs.String(), "0 candidates selected")
}

func TestRunFile_FlaggedLogResolvesToFlagged(t *testing.T) {
	t.Parallel()

	res, err := pipeline.RunFile(context.Background(), writeLog(t, sampleLog), pipeline.Options{})
	require.NoError(t, err)

	assert.Equal(t, revert.CandidatesFlagged, res.CandidateMode)
}

func TestRun_NumbersRecordsWithoutLines(t *testing.T) {
	t.Parallel()

	base := time.Date(2012, 3, 5, 8, 0, 0, 0, time.UTC)
	records := []editlog.EditRecord{
		{Time: base, Version: 1, Editor: "B"},
		{Time: base.Add(time.Hour), Version: 2, Editor: "A"},
		{Time: base.Add(2 * time.Hour), Version: 1, Editor: "X"},
	}

	res, err := pipeline.Run(context.Background(), records, pipeline.Options{Candidates: revert.CandidatesAll})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Graph.EdgeCount())
	assert.Equal(t, []int{1, 2, 3}, []int{res.Records[0].Line, res.Records[1].Line, res.Records[2].Line})
	assert.Zero(t, records[0].Line, "input slice must not be modified")
}

func TestRun_DuplicateLinesRejected(t *testing.T) {
	t.Parallel()

	base := time.Date(2012, 3, 5, 8, 0, 0, 0, time.UTC)
	records := []editlog.EditRecord{
		{Time: base, Version: 1, Editor: "B", Line: 2},
		{Time: base.Add(time.Hour), Version: 2, Editor: "A", Line: 2},
		{Time: base.Add(2 * time.Hour), Version: 1, Editor: "X", Line: 3},
	}

	_, err := pipeline.Run(context.Background(), records, pipeline.Options{Candidates: revert.CandidatesAll})
	require.ErrorIs(t, err, revert.ErrDuplicateLine)
}

func TestRunFile_ParseErrorPropagates(t *testing.T) {
	t.Parallel()

	_, err := pipeline.RunFile(context.Background(), writeLog(t, "header\n1 2012-03-05 08:00 1 R\n"), pipeline.Options{})

	var perr *editlog.ParseError

	require.ErrorAs(t, err, &perr)
}

func TestRun_SortsRecords(t *testing.T) {
	t.Parallel()

	records, err := editlog.ParseFile(writeLog(t, sampleLog))
	require.NoError(t, err)

	reversed := make([]editlog.EditRecord, len(records))
	for i, rec := range records {
		reversed[len(records)-1-i] = rec
	}

	res, err := pipeline.Run(context.Background(), reversed, pipeline.Options{})
	require.NoError(t, err)

	assert.True(t, editlog.IsSorted(res.Records))
	assert.Equal(t, 3, res.Graph.EdgeCount())
	assert.Equal(t, 2, res.Records[0].Line)
}

func TestRun_Errors(t *testing.T) {
	t.Parallel()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context //nolint:containedctx // table input.
		opts pipeline.Options
		want error
	}{
		{name: "unknown_mode", ctx: context.Background(), opts: pipeline.Options{Candidates: "bogus"}, want: revert.ErrUnknownCandidateMode},
		{name: "negative_max", ctx: context.Background(), opts: pipeline.Options{MaxNumVersions: -1}, want: pipeline.ErrInvalidMaxVersions},
		{name: "cancelled", ctx: cancelled, want: context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := pipeline.Run(tt.ctx, nil, tt.opts)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRun_EmptyLog(t *testing.T) {
	t.Parallel()

	res, err := pipeline.Run(context.Background(), nil, pipeline.Options{Candidates: revert.CandidatesAll})
	require.NoError(t, err)
	assert.Zero(t, res.Graph.EdgeCount())
	assert.Empty(t, res.Differentials.ABBA)
}

func TestRunFile_RecordsSpansAndMetrics(t *testing.T) {
	t.Parallel()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	pm, err := observability.NewPipelineMetrics(mp.Meter("test"))
	require.NoError(t, err)

	_, err = pipeline.RunFile(context.Background(), writeLog(t, sampleLog), pipeline.Options{
		Tracer:  tp.Tracer("test"),
		Metrics: pm,
	})
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, span := range recorder.Ended() {
		names[span.Name()] = true
	}

	for _, want := range []string{
		"revertfang.parse", "revertfang.analysis", "revertfang.seniority",
		"revertfang.detect", "revertfang.motif", "revertfang.aggregate",
	} {
		assert.True(t, names[want], "missing span %s", want)
	}

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := make(map[string]bool)

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			found[m.Name] = true
		}
	}

	assert.True(t, found["revertfang.records.parsed"])
	assert.True(t, found["revertfang.edges.detected"])
	assert.True(t, found["revertfang.motif.pairs"])
	assert.True(t, found["revertfang.stage.duration.seconds"])
}
