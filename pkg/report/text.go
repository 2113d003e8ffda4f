package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Sumatoshi-tech/revertfang/pkg/differential"
)

const (
	textIndent     = "  "
	textTimeLayout = "2006-01-02 15:04:05"
	floatPrecision = 3
)

// TextOptions control WriteText.
type TextOptions struct {
	// Color enables ANSI headings.
	Color bool
}

// WriteText writes the network summary and differential statistics as a
// human-readable report.
func WriteText(w io.Writer, rep Report, opts TextOptions) error {
	heading := color.New(color.FgCyan, color.Bold)
	if opts.Color {
		heading.EnableColor()
	} else {
		heading.DisableColor()
	}

	ns := rep.Network

	fmt.Fprintln(w, heading.Sprint("Revert network"))
	fmt.Fprintf(w, "%s%-14s %s\n", textIndent, "Nodes", humanize.Comma(int64(ns.Nodes)))
	fmt.Fprintf(w, "%s%-14s %s\n", textIndent, "Edges", humanize.Comma(int64(ns.Edges)))
	fmt.Fprintf(w, "%s%-14s %s\n", textIndent, "AB-BA pairs", humanize.Comma(int64(rep.Pairs)))

	if ns.FirstReverter != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, heading.Sprintf("First reverter: %s", ns.FirstReverter))
		fmt.Fprintln(w, edgeTable(ns))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, heading.Sprint("Seniority differences"))
	fmt.Fprintln(w, statsTable(rep.Summary))

	return nil
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.DrawBorder = false
	tbl.Style().Options.SeparateColumns = false
	tbl.Style().Options.SeparateRows = false

	return tbl
}

func edgeTable(ns NetworkSummary) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"#", "Time", "Reverted", "Seniority", "Reverted seniority", "Gap"})

	for i, e := range ns.FirstEdges {
		tbl.AppendRow(table.Row{
			i + 1,
			e.Time.Format(textTimeLayout),
			e.Reverted,
			formatFloat(e.SeniorityReverter),
			formatFloat(e.SeniorityReverted),
			formatFloat(e.SeniorityGap()),
		})
	}

	return tbl.Render()
}

func statsTable(sum differential.Summary) string {
	tbl := newTable()
	tbl.AppendHeader(table.Row{"Class", "Count", "Mean", "Median", "P95", "Max"})

	row := func(name string, s differential.Stats) table.Row {
		return table.Row{
			name,
			humanize.Comma(int64(s.Count)),
			formatFloat(s.Mean),
			formatFloat(s.Median),
			formatFloat(s.P95),
			formatFloat(s.Max),
		}
	}

	tbl.AppendRow(row("AB-BA", sum.ABBA))
	tbl.AppendRow(row("Other reverts", sum.NonABBA))

	return tbl.Render()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', floatPrecision, 64)
}
