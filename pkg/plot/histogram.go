// Package plot renders seniority-difference histograms with go-echarts.
package plot

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Histogram defaults.
const (
	DefaultBins  = 50
	DefaultYMin  = 1.0
	DefaultYMax  = 1000.0
	DefaultTitle = "Reversion Behavior"

	labelPrecision = 2
	barOpacity     = 0.65

	// emptyValue is how echarts marks a missing data point; log axes cannot show zero.
	emptyValue = "-"
)

// ErrNoChart is returned by WriteHTML when given a nil chart.
var ErrNoChart = errors.New("no chart to render")

// Labels names the chart and its parts.
type Labels struct {
	Title    string
	Subtitle string
	XAxis    string
	YAxis    string
	Other    string
	ABBA     string
}

// DefaultLabels returns the standard labels for a reversion chart.
func DefaultLabels() Labels {
	return Labels{
		Title: DefaultTitle,
		XAxis: "Difference in seniority",
		YAxis: "Number of reverts",
		Other: "All Other Reverts",
		ABBA:  "AB-BA Sequences",
	}
}

type options struct {
	theme Theme
	bins  int
	yMin  float64
	yMax  float64
}

// Option customizes Histogram.
type Option func(*options)

// WithBins sets the number of shared bins. Non-positive values are ignored.
func WithBins(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.bins = n
		}
	}
}

// WithYRange clamps the logarithmic count axis to [minY, maxY].
func WithYRange(minY, maxY float64) Option {
	return func(o *options) {
		if minY > 0 && minY < maxY {
			o.yMin, o.yMax = minY, maxY
		}
	}
}

// WithTheme selects the color theme.
func WithTheme(theme Theme) Option {
	return func(o *options) {
		o.theme = theme
	}
}

// Bins holds shared bin edges and per-series counts. Edges has one more
// element than each count slice.
type Bins struct {
	Edges []float64
	Other []int
	ABBA  []int
}

// Labels returns the lower edge of each bin formatted for the x-axis.
func (b Bins) Labels() []string {
	if len(b.Edges) == 0 {
		return nil
	}

	labels := make([]string, len(b.Edges)-1)
	for i := range labels {
		labels[i] = strconv.FormatFloat(b.Edges[i], 'f', labelPrecision, 64)
	}

	return labels
}

// Bin splits the combined range of both lists into n equal-width bins and
// counts each list separately. The last bin is closed on the right. A zero
// width range is widened to [v-0.5, v+0.5].
func Bin(other, abba []float64, n int) Bins {
	if n <= 0 {
		n = DefaultBins
	}

	lo, hi := math.Inf(1), math.Inf(-1)

	for _, series := range [][]float64{other, abba} {
		for _, v := range series {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}

	if math.IsInf(lo, 1) {
		lo, hi = 0, 1
	}

	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}

	width := (hi - lo) / float64(n)

	b := Bins{
		Edges: make([]float64, n+1),
		Other: make([]int, n),
		ABBA:  make([]int, n),
	}

	for i := range b.Edges {
		b.Edges[i] = lo + float64(i)*width
	}

	b.Edges[n] = hi

	index := func(v float64) int {
		return min(int((v-lo)/width), n-1)
	}

	for _, v := range other {
		b.Other[index(v)]++
	}

	for _, v := range abba {
		b.ABBA[index(v)]++
	}

	return b
}

// Histogram builds a bar chart of both lists over shared bins, with the
// count axis on a log scale. Empty bins are left blank.
// Series are drawn other-first so AB-BA bars sit on top.
func Histogram(abba, other []float64, labels Labels, opt ...Option) *charts.Bar {
	o := options{theme: ThemeLight, bins: DefaultBins, yMin: DefaultYMin, yMax: DefaultYMax}
	for _, apply := range opt {
		apply(&o)
	}

	if labels == (Labels{}) {
		labels = DefaultLabels()
	}

	bins := Bin(other, abba, o.bins)
	theme := GetThemeConfig(o.theme)
	cOpts := NewChartOpts(o.theme)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(cOpts.Init(labels.Title)),
		charts.WithTitleOpts(cOpts.Title(labels.Title, labels.Subtitle)),
		charts.WithTooltipOpts(cOpts.Tooltip()),
		charts.WithLegendOpts(cOpts.Legend()),
		charts.WithGridOpts(cOpts.Grid()),
		charts.WithXAxisOpts(cOpts.XAxis(labels.XAxis)),
		charts.WithYAxisOpts(cOpts.LogYAxis(labels.YAxis, o.yMin, o.yMax)),
	)

	bar.SetXAxis(bins.Labels())

	bar.AddSeries(labels.Other, barData(bins.Other), seriesStyle(theme.OtherSeries)...)
	bar.AddSeries(labels.ABBA, barData(bins.ABBA), seriesStyle(theme.ABBASeries)...)

	// Overlay both series in the same slot instead of side by side.
	bar.SetSeriesOptions(charts.WithBarChartOpts(opts.BarChart{BarGap: "-100%", BarCategoryGap: "0%"}))

	return bar
}

func barData(counts []int) []opts.BarData {
	data := make([]opts.BarData, len(counts))

	for i, c := range counts {
		if c == 0 {
			data[i] = opts.BarData{Value: emptyValue}

			continue
		}

		data[i] = opts.BarData{Value: c}
	}

	return data
}

func seriesStyle(color string) []charts.SeriesOpts {
	return []charts.SeriesOpts{
		charts.WithItemStyleOpts(opts.ItemStyle{
			Color:       color,
			Opacity:     opts.Float(barOpacity),
			BorderColor: "#000000",
			BorderWidth: 1,
		}),
	}
}

// WriteHTML renders bar as a standalone HTML page.
func WriteHTML(w io.Writer, bar *charts.Bar) error {
	if bar == nil {
		return ErrNoChart
	}

	err := bar.Render(w)
	if err != nil {
		return fmt.Errorf("render histogram: %w", err)
	}

	return nil
}
