package chart

import (
	"cmp"
	"fmt"
	"html"
	"net/url"
	"slices"
	"strconv"

	"gonum.org/v1/gonum/floats"

	"github.com/vanderheijden86/modviz/pkg/model"
	"github.com/vanderheijden86/modviz/pkg/table"
)

// NoCategory is the category of genes without a functional annotation.
const NoCategory = "No COG category"

// GeneScatterOptions configures BuildGeneScatter.
type GeneScatterOptions struct {
	Organism string
	Dataset  string
}

// BuildGeneScatter assembles the gene weight scatter of one iModulon. Row 1
// holds the x-axis type and the weight threshold; each later row is one gene:
// locus, name, x, y, category, color, link.
func BuildGeneScatter(m *table.Matrix, opts GeneScatterOptions) (*model.GeneScatter, error) {
	if m.Len() < 2 {
		return nil, fmt.Errorf("gene scatter: %w", table.ErrEmpty)
	}

	gs := &model.GeneScatter{Kind: model.KindGeneScatter, Points: []model.GenePoint{}}
	switch xType := m.At(1, 1).String(); xType {
	case "start":
		gs.XLabel = "Gene Start"
	case "gene number":
		gs.XLabel = "Arbitrary Gene Number"
	default:
		gs.XLabel = capFirst(xType)
	}
	thresh, ok := m.At(1, 2).Float()
	if !ok {
		return nil, table.Malformedf("gene scatter: threshold %q is not numeric", m.At(1, 2))
	}
	gs.Threshold = thresh

	xs := []float64{100}
	for row := 2; row < m.Len(); row++ {
		if m.IsBlankRow(row) {
			continue
		}
		x, okX := m.At(row, 2).Float()
		y, okY := m.At(row, 3).Float()
		if !okX || !okY {
			return nil, table.Malformedf("gene scatter: row %d coordinates (%q, %q) are not numeric", row, m.At(row, 2), m.At(row, 3))
		}
		p := model.GenePoint{
			Locus:    m.At(row, 0).String(),
			Name:     m.At(row, 1).String(),
			X:        x,
			Y:        y,
			Category: m.At(row, 4).String(),
			Color:    m.At(row, 5).String(),
			Link:     geneLink(opts, m.At(row, 0).String()),
		}
		p.Tooltip = geneTooltip(p, gs.XLabel, gs.XDecimals)
		gs.Points = append(gs.Points, p)
		xs = append(xs, x)
	}
	gs.XMin = floats.Min(xs)

	// Unannotated genes go first so annotated ones are drawn on top.
	slices.SortStableFunc(gs.Points, func(a, b model.GenePoint) int {
		return cmp.Compare(categoryRank(a), categoryRank(b))
	})
	return gs, nil
}

func categoryRank(p model.GenePoint) int {
	if p.Category == NoCategory {
		return 0
	}
	return 1
}

func geneTooltip(p model.GenePoint, xLabel string, decimals int) string {
	var tip string
	if p.Name == "" || p.Name == p.Locus {
		tip = "<b>" + html.EscapeString(p.Locus) + "</b>"
	} else {
		tip = html.EscapeString(p.Locus) + ": <b>" + html.EscapeString(p.Name) + "</b>"
	}
	tip += "<br>Category: " + html.EscapeString(p.Category)
	tip += "<br>" + xLabel + ": " + strconv.FormatFloat(p.X, 'f', decimals, 64)
	tip += "<br>iModulon Weight: " + strconv.FormatFloat(p.Y, 'f', 3, 64)
	return tip
}

func geneLink(opts GeneScatterOptions, locus string) string {
	return "gene.html?organism=" + url.QueryEscape(opts.Organism) +
		"&dataset=" + url.QueryEscape(opts.Dataset) +
		"&gene_id=" + url.QueryEscape(locus)
}
