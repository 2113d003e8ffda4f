// Package pipeline runs the revert analysis end to end: parse, sort,
// seniority, revert detection, AB-BA matching and aggregation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/revertfang/pkg/differential"
	"github.com/Sumatoshi-tech/revertfang/pkg/editlog"
	"github.com/Sumatoshi-tech/revertfang/pkg/motif"
	"github.com/Sumatoshi-tech/revertfang/pkg/observability"
	"github.com/Sumatoshi-tech/revertfang/pkg/revert"
	"github.com/Sumatoshi-tech/revertfang/pkg/seniority"
)

const tracerName = "revertfang"

// Defaults applied to zero Options fields.
const (
	DefaultMaxNumVersions = 1000
	DefaultCandidates     = revert.CandidatesAuto
)

// ErrInvalidMaxVersions is returned for a negative MaxNumVersions.
var ErrInvalidMaxVersions = errors.New("max num versions must be positive")

// Options configure a run. Zero values select the defaults.
type Options struct {
	// Candidates is one of revert.CandidateModes().
	Candidates string
	// Window is the AB-BA pairing window.
	Window time.Duration
	// MaxNumVersions bounds the forward revert search.
	MaxNumVersions int

	// Tracer defaults to the global tracer provider.
	Tracer trace.Tracer
	// Metrics is optional.
	Metrics *observability.PipelineMetrics
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (o Options) withDefaults() (Options, error) {
	if o.Candidates == "" {
		o.Candidates = DefaultCandidates
	}

	if o.Window == 0 {
		o.Window = motif.DefaultWindow
	}

	if o.MaxNumVersions == 0 {
		o.MaxNumVersions = DefaultMaxNumVersions
	}

	if o.MaxNumVersions < 0 {
		return o, fmt.Errorf("%w: %d", ErrInvalidMaxVersions, o.MaxNumVersions)
	}

	if o.Tracer == nil {
		o.Tracer = otel.Tracer(tracerName)
	}

	if o.Logger == nil {
		o.Logger = slog.Default()
	}

	return o, nil
}

// Result carries every intermediate product of a run.
type Result struct {
	Records       []editlog.EditRecord
	Seniority     *seniority.Tracker
	// CandidateMode is the concrete selection mode, with auto resolved.
	CandidateMode string
	Candidates    []editlog.EditRecord
	Graph         *revert.Graph
	Motifs        motif.Result
	Differentials differential.Differentials
	Summary       differential.Summary
}

// RunFile parses the log at path (plain or .lz4) and runs the analysis on it.
func RunFile(ctx context.Context, path string, opts Options) (*Result, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	var records []editlog.EditRecord

	err = stage(ctx, opts, observability.StageParse, func(context.Context, trace.Span) error {
		var parseErr error

		records, parseErr = editlog.ParseFile(path)
		if parseErr != nil {
			return parseErr
		}

		if opts.Metrics != nil {
			opts.Metrics.RecordParsed(ctx, len(records))
		}

		opts.Logger.InfoContext(ctx, "edit log parsed", "path", path, "records", len(records))

		return nil
	})
	if err != nil {
		return nil, err
	}

	return Run(ctx, records, opts)
}

// Run analyzes already parsed records. Records are sorted by time first when
// they are not already. Records built in memory without line numbers (every
// Line zero) are numbered by their input position starting at 1; any other
// repeated Line fails the detect stage with revert.ErrDuplicateLine.
func Run(ctx context.Context, records []editlog.EditRecord, opts Options) (*Result, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}

	ctx, span := opts.Tracer.Start(ctx, "revertfang.analysis",
		trace.WithAttributes(
			attribute.Int("analysis.records", len(records)),
			attribute.String("analysis.candidates", opts.Candidates),
			attribute.Int("analysis.max_num_versions", opts.MaxNumVersions),
			attribute.String("analysis.window", opts.Window.String()),
		))
	defer span.End()

	records = numberLines(records)

	res := &Result{Records: records}
	if !editlog.IsSorted(records) {
		res.Records = editlog.SortByTime(records)
	}

	err = runStages(ctx, opts, res)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	span.SetAttributes(
		attribute.Int("analysis.edges", res.Graph.EdgeCount()),
		attribute.Int("analysis.pairs", len(res.Motifs.Pairs)),
	)

	return res, nil
}

func numberLines(records []editlog.EditRecord) []editlog.EditRecord {
	for _, rec := range records {
		if rec.Line != 0 {
			return records
		}
	}

	numbered := make([]editlog.EditRecord, len(records))
	for i, rec := range records {
		rec.Line = i + 1
		numbered[i] = rec
	}

	return numbered
}

func runStages(ctx context.Context, opts Options, res *Result) error {
	logger := opts.Logger

	err := stage(ctx, opts, observability.StageSeniority, func(context.Context, trace.Span) error {
		tr, buildErr := seniority.Build(res.Records)
		if buildErr != nil {
			return fmt.Errorf("build seniority: %w", buildErr)
		}

		res.Seniority = tr
		logger.InfoContext(ctx, "seniority built", "editors", len(tr.Editors()))

		return nil
	})
	if err != nil {
		return err
	}

	err = stage(ctx, opts, observability.StageDetect, func(stageCtx context.Context, span trace.Span) error {
		mode := revert.ResolveCandidateMode(opts.Candidates, res.Records)

		candidates, selErr := revert.SelectCandidates(mode, res.Records)
		if selErr != nil {
			return selErr
		}

		switch {
		case opts.Candidates == revert.CandidatesAuto && mode == revert.CandidatesAll && len(res.Records) > 0:
			logger.InfoContext(stageCtx, "no revert flags in log, scanning every record", "mode", mode)
		case mode == revert.CandidatesFlagged && len(candidates) == 0 && len(res.Records) > 0:
			logger.WarnContext(stageCtx, "no revert flags in log, 0 candidates selected",
				"records", len(res.Records))
		}

		detector := revert.NewDetector(res.Seniority, opts.MaxNumVersions)
		detector.Logger = logger

		g, detectErr := detector.Detect(stageCtx, res.Records, candidates)
		if detectErr != nil {
			return fmt.Errorf("detect reverts: %w", detectErr)
		}

		res.CandidateMode, res.Candidates, res.Graph = mode, candidates, g

		span.SetAttributes(
			attribute.String("detect.mode", mode),
			attribute.Int("detect.candidates", len(candidates)),
			attribute.Int("detect.edges", g.EdgeCount()),
		)

		if opts.Metrics != nil {
			opts.Metrics.RecordDetection(stageCtx, len(candidates), g.EdgeCount())
		}

		logger.InfoContext(stageCtx, "reverts detected",
			"candidates", len(candidates), "edges", g.EdgeCount(), "nodes", g.NodeCount())

		return nil
	})
	if err != nil {
		return err
	}

	err = stage(ctx, opts, observability.StageMotif, func(stageCtx context.Context, span trace.Span) error {
		res.Motifs = motif.NewMatcher(opts.Window).Match(res.Graph)

		span.SetAttributes(attribute.Int("motif.pairs", len(res.Motifs.Pairs)))

		if opts.Metrics != nil {
			opts.Metrics.RecordPairs(stageCtx, len(res.Motifs.Pairs))
		}

		logger.InfoContext(stageCtx, "ab-ba motifs matched", "pairs", len(res.Motifs.Pairs))

		return nil
	})
	if err != nil {
		return err
	}

	return stage(ctx, opts, observability.StageAggregate, func(stageCtx context.Context, _ trace.Span) error {
		d, aggErr := differential.Aggregate(res.Graph, res.Motifs)
		if aggErr != nil {
			return aggErr
		}

		sum, sumErr := differential.Summarize(stageCtx, d)
		if sumErr != nil {
			return sumErr
		}

		res.Differentials, res.Summary = d, sum

		if opts.Metrics != nil {
			opts.Metrics.RecordDifferentials(stageCtx, d.ABBA, d.NonABBA)
		}

		return nil
	})
}

// stage runs fn in its own span and records its duration. A cancelled
// context stops the run before the stage starts.
func stage(ctx context.Context, opts Options, name string, fn func(context.Context, trace.Span) error) error {
	err := ctx.Err()
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	stageCtx, span := opts.Tracer.Start(ctx, "revertfang."+name)
	defer span.End()

	if opts.Metrics != nil {
		defer opts.Metrics.TrackStage(stageCtx, name)()
	}

	err = fn(stageCtx, span)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return err
	}

	return nil
}
