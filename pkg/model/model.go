// Package model defines the renderer-facing visual model produced by the chart
// assemblers. Every type here is plain data that serializes to JSON for an
// external charting library; nothing in this package knows how to draw.
package model

import (
	"github.com/vanderheijden86/modviz/pkg/table"
)

// ChartKind names the chart types the assemblers produce.
type ChartKind string

const (
	KindActivityBar     ChartKind = "activity_bar"
	KindGeneActivityBar ChartKind = "gene_activity_bar"
	KindHistogram       ChartKind = "histogram"
	KindGeneScatter     ChartKind = "gene_scatter"
	KindRegulonScatter  ChartKind = "regulon_scatter"
	KindVenn            ChartKind = "venn"
)

// ScatterPoint is one replicate drawn over its condition's bar.
type ScatterPoint struct {
	X      int        `json:"x"`      // zero-based condition position
	Y      table.Cell `json:"y"`      // raw replicate value
	Sample int        `json:"sample"` // zero-based metadata sample index
}

// Segment is a run of consecutive conditions sharing one project.
type Segment struct {
	From  float64 `json:"from"`
	To    float64 `json:"to"`
	Label string  `json:"label"`
}

// LegendEntry maps one categorical value to its color.
type LegendEntry struct {
	Value string `json:"value"`
	Color string `json:"color"`
}

// SeriesKind distinguishes the two series of a bar chart.
type SeriesKind string

const (
	SeriesBars   SeriesKind = "bars"
	SeriesPoints SeriesKind = "points"
)

// PointRef identifies a rendered point for tooltip lookup.
type PointRef struct {
	Series SeriesKind `json:"series"`
	Index  int        `json:"index"`
}

// BarChart is the visual model of an activity (or expression) bar chart: one
// bar per condition, replicate points on top, and project segmentation below.
type BarChart struct {
	Kind       ChartKind `json:"kind"`
	SeriesName string    `json:"series_name"`
	YAxisTitle string    `json:"y_axis_title"`

	Categories []string       `json:"categories"`
	Bars       []table.Cell   `json:"bars"`
	Points     []ScatterPoint `json:"points"`

	Segments   []Segment `json:"segments"`
	Separators []float64 `json:"separators"`

	UniformColor string        `json:"uniform_color"`
	ColorColumn  int           `json:"color_column"`
	BarColors    []string      `json:"bar_colors,omitempty"`
	Legend       []LegendEntry `json:"legend,omitempty"`

	// Links holds one click-through URL per bar; empty when unavailable.
	Links []string `json:"links,omitempty"`

	BarTooltips   []string `json:"bar_tooltips"`
	PointTooltips []string `json:"point_tooltips"`

	ZoomThreshold int `json:"zoom_threshold"`
}

// ColorByPoint reports whether bars carry individual colors.
func (c *BarChart) ColorByPoint() bool {
	return len(c.BarColors) > 0
}

// LabelsVisible reports whether condition labels should be shown for a
// visible axis span; when they are, project bands are hidden.
func (c *BarChart) LabelsVisible(min, max float64) bool {
	return max-min < float64(c.ZoomThreshold)
}

// BarColor returns the fill of bar i.
func (c *BarChart) BarColor(i int) string {
	if i >= 0 && i < len(c.BarColors) {
		return c.BarColors[i]
	}
	return c.UniformColor
}

// Chart is implemented by every visual model.
type Chart interface {
	ChartKind() ChartKind
}

func (c *BarChart) ChartKind() ChartKind { return c.Kind }
