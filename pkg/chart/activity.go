package chart

import (
	"fmt"

	"github.com/vanderheijden86/modviz/pkg/debug"
	"github.com/vanderheijden86/modviz/pkg/model"
	"github.com/vanderheijden86/modviz/pkg/palette"
	"github.com/vanderheijden86/modviz/pkg/schema"
	"github.com/vanderheijden86/modviz/pkg/series"
	"github.com/vanderheijden86/modviz/pkg/tooltip"
)

// DefaultZoomThreshold is the visible condition span below which condition
// labels replace project bands.
const DefaultZoomThreshold = 40

// BarOptions configures an activity bar chart.
type BarOptions struct {
	Kind          model.ChartKind
	SeriesName    string
	YAxisTitle    string
	UniformColor  string
	ZoomThreshold int
}

// ActivityOptions returns the options of an iModulon activity chart.
func ActivityOptions() BarOptions {
	return BarOptions{
		Kind:          model.KindActivityBar,
		SeriesName:    "A",
		YAxisTitle:    "iModulon Activity",
		UniformColor:  palette.UniformColor,
		ZoomThreshold: DefaultZoomThreshold,
	}
}

// GeneExpressionOptions returns the options of a gene expression chart.
func GeneExpressionOptions() BarOptions {
	return BarOptions{
		Kind:          model.KindGeneActivityBar,
		SeriesName:    "X",
		YAxisTitle:    "Log TPM Gene Expression",
		UniformColor:  palette.UniformColor,
		ZoomThreshold: DefaultZoomThreshold,
	}
}

func (o BarOptions) withDefaults() BarOptions {
	def := ActivityOptions()
	if o.Kind == "" {
		o.Kind = def.Kind
	}
	if o.SeriesName == "" {
		o.SeriesName = def.SeriesName
	}
	if o.YAxisTitle == "" {
		o.YAxisTitle = def.YAxisTitle
	}
	if o.UniformColor == "" {
		o.UniformColor = def.UniformColor
	}
	if o.ZoomThreshold <= 0 {
		o.ZoomThreshold = def.ZoomThreshold
	}
	return o
}

// ActivityBar is a built bar chart together with what it needs to answer
// tooltip requests later.
type ActivityBar struct {
	Model *model.BarChart

	conds  []series.Condition
	points []model.ScatterPoint
	meta   *schema.Metadata
	state  *State
	label  string
}

// BuildActivityBar runs the full pipeline: series, segments, colors and
// tooltips, in that order. Every call allocates a fresh model, so rebuilding
// after a state change carries nothing over from the previous build.
func BuildActivityBar(mt *series.MeasurementTable, meta *schema.Metadata, st *State, opts BarOptions) (*ActivityBar, error) {
	defer debug.LogEnterExit("chart.BuildActivityBar")()
	opts = opts.withDefaults()

	s, err := series.Build(mt, meta)
	if err != nil {
		return nil, fmt.Errorf("building series: %w", err)
	}
	segs, err := series.Segment(mt.Conditions, meta)
	if err != nil {
		return nil, fmt.Errorf("segmenting projects: %w", err)
	}

	c := &model.BarChart{
		Kind:          opts.Kind,
		SeriesName:    opts.SeriesName,
		YAxisTitle:    opts.YAxisTitle,
		Categories:    s.Names,
		Bars:          s.Bars,
		Points:        s.Points,
		Segments:      segs,
		Separators:    series.Separators(segs),
		UniformColor:  opts.UniformColor,
		ColorColumn:   st.ColorColumn(),
		ZoomThreshold: opts.ZoomThreshold,
	}
	if c.Segments == nil {
		c.Segments = []model.Segment{}
	}

	if col := st.ColorColumn(); col != schema.NotFound {
		a, err := st.Mapper().Assign(col, mt.Conditions, meta)
		if err != nil {
			return nil, fmt.Errorf("assigning colors: %w", err)
		}
		c.BarColors = a.Colors
		c.Legend = a.Legend
	}

	if meta.LinkCol != schema.NotFound {
		c.Links = make([]string, len(mt.Conditions))
		for i, cond := range mt.Conditions {
			c.Links[i], _ = meta.Link(cond.Sample)
		}
	}

	ab := &ActivityBar{
		Model:  c,
		conds:  mt.Conditions,
		points: s.Points,
		meta:   meta,
		state:  st,
		label:  opts.SeriesName,
	}

	columns, colorCol := st.Columns(), st.ColorColumn()
	c.BarTooltips = make([]string, len(mt.Conditions))
	for i := range mt.Conditions {
		c.BarTooltips[i] = tooltip.Resolve(tooltip.ForCondition(&mt.Conditions[i], ab.label), meta, columns, colorCol).HTML()
	}
	c.PointTooltips = make([]string, len(s.Points))
	for i, p := range s.Points {
		c.PointTooltips[i] = tooltip.Resolve(tooltip.ForPoint(p, ab.label), meta, columns, colorCol).HTML()
	}

	debug.Log("chart.BuildActivityBar: %d bars, %d points, %d segments", len(c.Bars), len(c.Points), len(c.Segments))
	return ab, nil
}

// Tooltip resolves the tooltip of a rendered point from the chart's current
// state, so it reflects selection changes made after the build.
func (a *ActivityBar) Tooltip(ref model.PointRef) (model.Tooltip, error) {
	var ctx tooltip.Context
	switch ref.Series {
	case model.SeriesBars:
		if ref.Index < 0 || ref.Index >= len(a.conds) {
			return model.Tooltip{}, fmt.Errorf("bar %d out of range [0, %d)", ref.Index, len(a.conds))
		}
		ctx = tooltip.ForCondition(&a.conds[ref.Index], a.label)
	case model.SeriesPoints:
		if ref.Index < 0 || ref.Index >= len(a.points) {
			return model.Tooltip{}, fmt.Errorf("point %d out of range [0, %d)", ref.Index, len(a.points))
		}
		ctx = tooltip.ForPoint(a.points[ref.Index], a.label)
	default:
		return model.Tooltip{}, fmt.Errorf("unknown series %q", ref.Series)
	}
	return tooltip.Resolve(ctx, a.meta, a.state.Columns(), a.state.ColorColumn()), nil
}

// Conditions returns the conditions behind the bars.
func (a *ActivityBar) Conditions() []series.Condition {
	return a.conds
}

// Metadata returns the metadata table the chart was built from.
func (a *ActivityBar) Metadata() *schema.Metadata {
	return a.meta
}
