// Package commands implements CLI command handlers for revertfang.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/revertfang/pkg/config"
	"github.com/Sumatoshi-tech/revertfang/pkg/observability"
	"github.com/Sumatoshi-tech/revertfang/pkg/pipeline"
	"github.com/Sumatoshi-tech/revertfang/pkg/plot"
	"github.com/Sumatoshi-tech/revertfang/pkg/report"
	"github.com/Sumatoshi-tech/revertfang/pkg/version"
)

const (
	analyzeCmdUse   = "analyze <edit-log>"
	analyzeCmdShort = "Detect reverts and AB-BA motifs in an edit log"
	outputFileMode  = 0o644
)

// ErrNoLogPath is returned when analyze is run without an edit log.
var ErrNoLogPath = errors.New("edit log path is required")

type observabilityInit func(observability.Config) (observability.Providers, error)

// AnalyzeCommand holds flags and dependencies for the analyze command.
type AnalyzeCommand struct {
	configPath  string
	format      string
	output      string
	candidates  string
	title       string
	metricsFile string
	window      time.Duration
	maxVersions int
	silent      bool
	noColor     bool

	initObs observabilityInit
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	return newAnalyzeCommandWithDeps(observability.Init)
}

func newAnalyzeCommandWithDeps(initObs observabilityInit) *cobra.Command {
	ac := &AnalyzeCommand{initObs: initObs}

	cmd := &cobra.Command{
		Use:   analyzeCmdUse,
		Short: analyzeCmdShort,
		Long: `Parse an edit log, detect which edits revert earlier ones, match
reciprocal AB-BA reverts inside the pairing window and report the seniority
differences of paired and unpaired reverts.

Examples:
  revertfang analyze edits.txt
  revertfang analyze --format plot -o reverts.html edits.txt.lz4
  revertfang analyze --candidates recurring --window 12h --format json edits.txt`,
		Args: cobra.ExactArgs(1),
		RunE: ac.run,
	}

	cmd.Flags().StringVar(&ac.configPath, "config", "", "Config file (default: ./revertfang.yaml)")
	cmd.Flags().StringVar(&ac.format, "format", config.DefaultFormat, "Output format: text, json, yaml, plot")
	cmd.Flags().StringVarP(&ac.output, "output", "o", "", "Write output to file instead of stdout")
	cmd.Flags().StringVar(&ac.candidates, "candidates", config.DefaultCandidates,
		"Candidate selection: auto, flagged, recurring, all")
	cmd.Flags().IntVar(&ac.maxVersions, "max-versions", config.DefaultMaxNumVersions, "Bound of the forward revert search")
	cmd.Flags().DurationVar(&ac.window, "window", config.DefaultWindow, "AB-BA pairing window")
	cmd.Flags().StringVar(&ac.title, "title", config.DefaultTitle, "Histogram title for --format plot")
	cmd.Flags().StringVar(&ac.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")
	cmd.Flags().BoolVar(&ac.silent, "silent", false, "Only log warnings and errors")
	cmd.Flags().BoolVar(&ac.noColor, "no-color", false, "Disable colored text output")

	return cmd
}

func (ac *AnalyzeCommand) run(cmd *cobra.Command, args []string) error {
	if args[0] == "" {
		return ErrNoLogPath
	}

	cfg, err := ac.loadConfig(cmd)
	if err != nil {
		return err
	}

	providers, err := ac.initObs(ac.observabilityConfig(cfg, cmd.ErrOrStderr()))
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	ctx := cmd.Context()

	defer func() {
		shutdownErr := providers.Shutdown(context.WithoutCancel(ctx))
		if shutdownErr != nil {
			providers.Logger.WarnContext(ctx, "telemetry shutdown failed", "error", shutdownErr)
		}
	}()

	runID := report.NewRunID()
	logger := observability.WithRunID(providers.Logger, runID)

	metrics, err := observability.NewPipelineMetrics(providers.Meter)
	if err != nil {
		return err
	}

	res, err := pipeline.RunFile(ctx, args[0], pipeline.Options{
		Candidates:     cfg.Analysis.Candidates,
		Window:         cfg.Analysis.Window,
		MaxNumVersions: cfg.Analysis.MaxNumVersions,
		Tracer:         providers.Tracer,
		Metrics:        metrics,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	rep := report.New(report.Meta{
		RunID:          runID,
		Version:        version.Version,
		Source:         args[0],
		Candidates:     res.CandidateMode,
		Window:         cfg.Analysis.Window.String(),
		MaxNumVersions: cfg.Analysis.MaxNumVersions,
		Records:        len(res.Records),
		Editors:        len(res.Seniority.Editors()),
	}, res.Graph, len(res.Motifs.Pairs), res.Differentials, res.Summary)

	err = ac.writeOutput(cmd.OutOrStdout(), cfg, rep)
	if err != nil {
		return err
	}

	if cfg.Telemetry.MetricsFile != "" {
		err = providers.WriteMetrics(cfg.Telemetry.MetricsFile)
		if err != nil {
			return err
		}
	}

	logger.InfoContext(ctx, "analysis complete",
		"edges", rep.Network.Edges, "pairs", rep.Pairs, "format", cfg.Output.Format)

	return nil
}

// loadConfig reads file and environment configuration, then applies the
// flags the user set explicitly.
func (ac *AnalyzeCommand) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	err := config.LoadDotEnv()
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadConfig(ac.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()

	if flags.Changed("format") {
		cfg.Output.Format = ac.format
	}

	if flags.Changed("candidates") {
		cfg.Analysis.Candidates = ac.candidates
	}

	if flags.Changed("max-versions") {
		cfg.Analysis.MaxNumVersions = ac.maxVersions
	}

	if flags.Changed("window") {
		cfg.Analysis.Window = ac.window
	}

	if flags.Changed("title") {
		cfg.Output.Title = ac.title
	}

	if flags.Changed("metrics-file") {
		cfg.Telemetry.MetricsFile = ac.metricsFile
	}

	err = config.Validate(cfg)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (ac *AnalyzeCommand) observabilityConfig(cfg *config.Config, logOut io.Writer) observability.Config {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Environment = cfg.Telemetry.Environment
	obsCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Telemetry.OTLPInsecure
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"))
	obsCfg.LogJSON = cfg.Logging.JSON()
	obsCfg.LogWriter = logOut

	// Validate has already rejected unparseable levels.
	obsCfg.LogLevel, _ = cfg.Logging.SlogLevel()

	if ac.silent {
		obsCfg.LogLevel = max(obsCfg.LogLevel, slog.LevelWarn)
	}

	return obsCfg
}

func (ac *AnalyzeCommand) writeOutput(stdout io.Writer, cfg *config.Config, rep report.Report) (err error) {
	w := stdout

	if ac.output != "" {
		f, createErr := os.OpenFile(ac.output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, outputFileMode)
		if createErr != nil {
			return fmt.Errorf("create output: %w", createErr)
		}

		defer func() {
			err = errors.Join(err, f.Close())
		}()

		w = f
	}

	switch cfg.Output.Format {
	case config.FormatText:
		return report.WriteText(w, rep, report.TextOptions{Color: !ac.noColor && ac.output == "" && isTerminal(stdout)})
	case config.FormatPlot:
		labels := plot.DefaultLabels()
		labels.Title = cfg.Output.Title
		labels.Subtitle = fmt.Sprintf("%d reverts, %d AB-BA pairs", rep.Network.Edges, rep.Pairs)

		bar := plot.Histogram(rep.Differentials.ABBA, rep.Differentials.NonABBA, labels,
			plot.WithBins(cfg.Output.Bins),
			plot.WithYRange(cfg.Output.YMin, cfg.Output.YMax),
		)

		return plot.WriteHTML(w, bar)
	default:
		codec, codecErr := report.CodecFor(cfg.Output.Format)
		if codecErr != nil {
			return codecErr
		}

		return codec.Encode(w, rep)
	}
}
