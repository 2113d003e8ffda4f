package plot_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/revertfang/pkg/plot"
)

func sum(counts []int) int {
	total := 0
	for _, c := range counts {
		total += c
	}

	return total
}

func TestBin_SharedRange(t *testing.T) {
	t.Parallel()

	b := plot.Bin([]float64{0, 1, 2, 4}, []float64{0.5, 4}, 4)

	require.Len(t, b.Edges, 5)
	assert.InDelta(t, 0.0, b.Edges[0], 1e-12)
	assert.InDelta(t, 4.0, b.Edges[4], 1e-12)

	assert.Equal(t, []int{1, 1, 1, 1}, b.Other)
	assert.Equal(t, []int{1, 0, 0, 1}, b.ABBA)
}

func TestBin_PreservesCounts(t *testing.T) {
	t.Parallel()

	other := []float64{0.1, 0.2, 1.7, 2.9, 3.3, 3.3, 0}
	abba := []float64{0.4, 3.3}

	b := plot.Bin(other, abba, plot.DefaultBins)

	assert.Len(t, b.Other, plot.DefaultBins)
	assert.Equal(t, len(other), sum(b.Other))
	assert.Equal(t, len(abba), sum(b.ABBA))
}

func TestBin_DegenerateInputs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		other []float64
		abba  []float64
		lo    float64
		hi    float64
	}{
		{name: "empty", lo: 0, hi: 1},
		{name: "single_value", other: []float64{2, 2}, abba: []float64{2}, lo: 1.5, hi: 2.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := plot.Bin(tt.other, tt.abba, 10)

			assert.InDelta(t, tt.lo, b.Edges[0], 1e-12)
			assert.InDelta(t, tt.hi, b.Edges[10], 1e-12)
			assert.Equal(t, len(tt.other), sum(b.Other))
			assert.Equal(t, len(tt.abba), sum(b.ABBA))
		})
	}
}

func TestBins_Labels(t *testing.T) {
	t.Parallel()

	b := plot.Bin([]float64{0, 1}, nil, 2)
	assert.Equal(t, []string{"0.00", "0.50"}, b.Labels())
}

func TestHistogram_RendersHTML(t *testing.T) {
	t.Parallel()

	bar := plot.Histogram([]float64{0.75}, []float64{1, 0}, plot.Labels{},
		plot.WithBins(5), plot.WithYRange(1, 100), plot.WithTheme(plot.ThemeDark))

	var buf bytes.Buffer

	require.NoError(t, plot.WriteHTML(&buf, bar))

	html := buf.String()
	assert.Contains(t, html, "Reversion Behavior")
	assert.Contains(t, html, "All Other Reverts")
	assert.Contains(t, html, "AB-BA Sequences")
	assert.Contains(t, html, "Difference in seniority")
	assert.Contains(t, html, `"log"`)
}

func TestHistogram_CustomLabels(t *testing.T) {
	t.Parallel()

	labels := plot.DefaultLabels()
	labels.Title = "Reversion Behavior on Romanian Wikipedia"

	var buf bytes.Buffer

	require.NoError(t, plot.WriteHTML(&buf, plot.Histogram(nil, nil, labels)))
	assert.Contains(t, buf.String(), "Romanian Wikipedia")
}

func TestWriteHTML_NilChart(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, plot.WriteHTML(&bytes.Buffer{}, nil), plot.ErrNoChart)
}
