package chart

import (
	"fmt"
	"html"
	"math"
	"strconv"

	"github.com/vanderheijden86/modviz/pkg/model"
	"github.com/vanderheijden86/modviz/pkg/table"
)

// DefaultListCutoff is the largest bin population whose gene names are listed
// in a histogram tooltip.
const DefaultListCutoff = 50

// HistogramColors colors the histogram series in order; the first is for
// unregulated genes.
var HistogramColors = []string{
	"#9c9c9c", "#2085e3", "#15c70c", "#e33d3d", "#3de3e0",
	"#e3983d", "#d13ce8", "#4600a8", "#167500", "#0d21ff",
}

// HistogramOptions configures BuildHistogram.
type HistogramOptions struct {
	ListCutoff int
	Colors     []string
}

// BuildHistogram assembles a gene weight histogram. Row 0 holds bin centers,
// row 1 the two thresholds and the series count, then one row of counts per
// series followed by one row of gene lists per series.
func BuildHistogram(m *table.Matrix, opts HistogramOptions) (*model.Histogram, error) {
	if opts.ListCutoff <= 0 {
		opts.ListCutoff = DefaultListCutoff
	}
	if len(opts.Colors) == 0 {
		opts.Colors = HistogramColors
	}
	if m.Len() < 2 {
		return nil, fmt.Errorf("histogram: %w", table.ErrEmpty)
	}

	raw := make([]float64, 0, m.Width(0))
	for col := 1; col < m.Width(0); col++ {
		f, ok := m.At(0, col).Float()
		if !ok {
			return nil, table.Malformedf("histogram: bin center %q at column %d is not numeric", m.At(0, col), col)
		}
		raw = append(raw, f)
	}
	if len(raw) < 2 {
		return nil, table.Malformedf("histogram: need at least two bin centers, got %d", len(raw))
	}

	h := &model.Histogram{Kind: model.KindHistogram, Centers: make([]float64, len(raw))}
	for i, c := range raw {
		h.Centers[i] = round3(c)
	}
	h.BinWidth = h.Centers[1] - h.Centers[0]

	for i := range h.Thresholds {
		f, ok := m.At(1, i+1).Float()
		if !ok {
			return nil, table.Malformedf("histogram: threshold %d %q is not numeric", i+1, m.At(1, i+1))
		}
		h.Thresholds[i] = f
	}
	n, ok := m.At(1, 3).Int()
	if !ok || n < 0 {
		return nil, table.Malformedf("histogram: series count %q is not a non-negative integer", m.At(1, 3))
	}
	if m.Len() < 2+2*n {
		return nil, table.Malformedf("histogram: %d series need %d rows, table has %d", n, 2+2*n, m.Len())
	}

	for i := 0; i < n; i++ {
		countRow, geneRow := 2+i, 2+n+i
		name := m.At(countRow, 0).String()
		s := model.HistogramSeries{
			Name:     name,
			Label:    histogramLabel(name),
			Color:    opts.Colors[i%len(opts.Colors)],
			Counts:   make([]int, len(raw)),
			Tooltips: make([]string, len(raw)),
		}
		for j := range raw {
			if f, ok := m.At(countRow, j+1).Float(); ok {
				s.Counts[j] = int(math.Round(f))
			}

			lo := raw[j] - h.BinWidth/2
			hi := lo + h.BinWidth
			tip := fmt.Sprintf(`<span style="font-size: 8px">%s: %s</span><br><span style="color:%s">●</span>`,
				strconv.FormatFloat(lo, 'f', 3, 64), strconv.FormatFloat(hi, 'f', 3, 64), s.Color)

			genes := m.At(geneRow, j+1)
			switch {
			case isEmptyGeneList(genes):
				tip += "Unregulated: " + strconv.Itoa(s.Counts[j])
			case s.Counts[j] > opts.ListCutoff:
				tip += "Regulated by " + html.EscapeString(name) + ": " + strconv.Itoa(s.Counts[j])
			default:
				tip += html.EscapeString(cleanGeneList(genes))
			}
			s.Tooltips[j] = tip
		}
		h.Series = append(h.Series, s)
	}
	if h.Series == nil {
		h.Series = []model.HistogramSeries{}
	}
	return h, nil
}

func histogramLabel(name string) string {
	if name == "unreg" {
		return "Unregulated"
	}
	return "Regulated by " + name
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
