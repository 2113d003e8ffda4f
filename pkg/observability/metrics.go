package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRecordsParsed     = "revertfang.records.parsed"
	metricCandidates        = "revertfang.candidates.selected"
	metricEdgesDetected     = "revertfang.edges.detected"
	metricEdgesSkipped      = "revertfang.edges.skipped"
	metricMotifPairs        = "revertfang.motif.pairs"
	metricStageDuration     = "revertfang.stage.duration.seconds"
	metricDifferentialValue = "revertfang.differential.value"

	attrStage  = "stage"
	attrMotif  = "motif"
	attrReason = "reason"

	motifABBA    = "ab_ba"
	motifNonABBA = "non_ab_ba"
)

// Pipeline stage names used as the stage attribute.
const (
	StageParse     = "parse"
	StageSeniority = "seniority"
	StageDetect    = "detect"
	StageMotif     = "motif"
	StageAggregate = "aggregate"
)

// stageBucketBoundaries covers 1ms to 120s; the parse stage dominates on
// multi-million line logs.
var stageBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// differentialBucketBoundaries spans the seniority gap range, which is a
// difference of log10 edit counts.
var differentialBucketBoundaries = []float64{0.1, 0.25, 0.5, 0.75, 1, 1.5, 2, 3, 4, 5, 6}

// PipelineMetrics holds the instruments recorded by an analysis run.
type PipelineMetrics struct {
	recordsParsed metric.Int64Counter
	candidates    metric.Int64Counter
	edgesDetected metric.Int64Counter
	edgesSkipped  metric.Int64Counter
	motifPairs    metric.Int64Counter
	stageDuration metric.Float64Histogram
	differential  metric.Float64Histogram
}

// NewPipelineMetrics creates the analysis instruments from the given meter.
func NewPipelineMetrics(mt metric.Meter) (*PipelineMetrics, error) {
	recordsParsed, err := mt.Int64Counter(metricRecordsParsed,
		metric.WithDescription("Edit records read from the log"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRecordsParsed, err)
	}

	candidates, err := mt.Int64Counter(metricCandidates,
		metric.WithDescription("Records scanned as revert candidates"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCandidates, err)
	}

	edgesDetected, err := mt.Int64Counter(metricEdgesDetected,
		metric.WithDescription("Revert edges added to the graph"),
		metric.WithUnit("{edge}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricEdgesDetected, err)
	}

	edgesSkipped, err := mt.Int64Counter(metricEdgesSkipped,
		metric.WithDescription("Candidates that produced no edge"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricEdgesSkipped, err)
	}

	motifPairs, err := mt.Int64Counter(metricMotifPairs,
		metric.WithDescription("AB-BA pairs matched"),
		metric.WithUnit("{pair}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricMotifPairs, err)
	}

	stageDuration, err := mt.Float64Histogram(metricStageDuration,
		metric.WithDescription("Pipeline stage duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stageBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricStageDuration, err)
	}

	differential, err := mt.Float64Histogram(metricDifferentialValue,
		metric.WithDescription("Seniority differences by motif class"),
		metric.WithExplicitBucketBoundaries(differentialBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricDifferentialValue, err)
	}

	return &PipelineMetrics{
		recordsParsed: recordsParsed,
		candidates:    candidates,
		edgesDetected: edgesDetected,
		edgesSkipped:  edgesSkipped,
		motifPairs:    motifPairs,
		stageDuration: stageDuration,
		differential:  differential,
	}, nil
}

// RecordParsed adds n parsed records.
func (pm *PipelineMetrics) RecordParsed(ctx context.Context, n int) {
	pm.recordsParsed.Add(ctx, int64(n))
}

// RecordDetection records the outcome of the detect stage.
func (pm *PipelineMetrics) RecordDetection(ctx context.Context, candidates, edges int) {
	pm.candidates.Add(ctx, int64(candidates))
	pm.edgesDetected.Add(ctx, int64(edges))
	pm.edgesSkipped.Add(ctx, int64(max(candidates-edges, 0)),
		metric.WithAttributes(attribute.String(attrReason, "no_predecessor_or_self")))
}

// RecordPairs adds n matched AB-BA pairs.
func (pm *PipelineMetrics) RecordPairs(ctx context.Context, n int) {
	pm.motifPairs.Add(ctx, int64(n))
}

// RecordDifferentials records every value of both lists.
func (pm *PipelineMetrics) RecordDifferentials(ctx context.Context, abba, nonABBA []float64) {
	abbaAttrs := metric.WithAttributes(attribute.String(attrMotif, motifABBA))
	for _, v := range abba {
		pm.differential.Record(ctx, v, abbaAttrs)
	}

	otherAttrs := metric.WithAttributes(attribute.String(attrMotif, motifNonABBA))
	for _, v := range nonABBA {
		pm.differential.Record(ctx, v, otherAttrs)
	}
}

// TrackStage returns a function that records the elapsed time of stage when called.
func (pm *PipelineMetrics) TrackStage(ctx context.Context, stage string) func() {
	start := time.Now()

	return func() {
		pm.stageDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String(attrStage, stage)))
	}
}
