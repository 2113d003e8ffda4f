package commands

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/revertfang/pkg/report"
)

const stdinPath = "-"

// ErrReportInvalid is returned when validate finds problems in a report.
var ErrReportInvalid = errors.New("report failed validation")

type palette struct {
	ok, bad, muted *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		ok:    color.New(color.FgGreen),
		bad:   color.New(color.FgRed),
		muted: color.New(color.FgYellow),
	}

	for _, c := range []*color.Color{p.ok, p.bad, p.muted} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return p
}

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	var colorize, noColor bool

	cmd := &cobra.Command{
		Use:   "validate <report.json|->",
		Short: "Validate a JSON report against the report schema",
		Long: `Validate a JSON report produced by "revertfang analyze --format json"
against the embedded report schema and check that its counts are consistent.

Examples:
  revertfang validate report.json
  revertfang validate - < report.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enabled := colorize || (!noColor && isTerminal(cmd.OutOrStdout()))

			return runValidate(cmd.InOrStdin(), cmd.OutOrStdout(), args[0], newPalette(enabled))
		},
	}

	cmd.Flags().BoolVar(&colorize, "color", false, "Force colored output")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}

func runValidate(stdin io.Reader, out io.Writer, path string, p palette) error {
	data, label, err := readInput(stdin, path)
	if err != nil {
		return err
	}

	err = report.ValidateJSON(data)

	var verr *report.ValidationError

	switch {
	case err == nil:
	case errors.As(err, &verr):
		p.bad.Fprintf(out, "Report is invalid (%s)\n", label)

		for _, problem := range verr.Problems {
			p.bad.Fprintf(out, "  - %s\n", problem)
		}

		return fmt.Errorf("%w: %d problems", ErrReportInvalid, len(verr.Problems))
	default:
		return fmt.Errorf("%s: %w", label, err)
	}

	var rep report.Report

	err = report.NewJSONCodec().Decode(bytes.NewReader(data), &rep)
	if err != nil {
		return err
	}

	p.ok.Fprintf(out, "Report is valid (%s)\n", label)
	p.muted.Fprintf(out, "  Run:    %s\n", rep.Meta.RunID)
	fmt.Fprintf(out, "  Edges:  %s\n", humanize.Comma(int64(rep.Network.Edges)))
	fmt.Fprintf(out, "  Pairs:  %s\n", humanize.Comma(int64(rep.Pairs)))

	return nil
}

func readInput(stdin io.Reader, path string) ([]byte, string, error) {
	if path == stdinPath {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, "", fmt.Errorf("read stdin: %w", err)
		}

		return data, "stdin", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read report: %w", err)
	}

	return data, path, nil
}

// isTerminal reports whether w is the process stdout and color output is
// possible there.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && f == os.Stdout && !color.NoColor
}
