package model

// HistogramSeries is one regulatory cluster's gene-weight distribution.
type HistogramSeries struct {
	Name     string   `json:"name"`
	Label    string   `json:"label"` // legend text
	Color    string   `json:"color"`
	Counts   []int    `json:"counts"`
	Tooltips []string `json:"tooltips"`
}

// Histogram bins gene weights per regulatory cluster.
type Histogram struct {
	Kind       ChartKind         `json:"kind"`
	Centers    []float64         `json:"centers"`
	BinWidth   float64           `json:"bin_width"`
	Thresholds [2]float64        `json:"thresholds"`
	Series     []HistogramSeries `json:"series"`
}

// GenePoint is one gene in a gene-weight scatter plot.
type GenePoint struct {
	Locus    string  `json:"locus"`
	Name     string  `json:"name,omitempty"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Category string  `json:"category"`
	Color    string  `json:"color,omitempty"`
	Link     string  `json:"link,omitempty"`
	Tooltip  string  `json:"tooltip"`
}

// GeneScatter places the genes of one iModulon along the genome.
type GeneScatter struct {
	Kind      ChartKind   `json:"kind"`
	XLabel    string      `json:"x_label"`
	XDecimals int         `json:"x_decimals"`
	XMin      float64     `json:"x_min"`
	Threshold float64     `json:"threshold"`
	Points    []GenePoint `json:"points"`
}

// NamedPoint is a labelled sample in a regulon scatter plot.
type NamedPoint struct {
	Name    string  `json:"name"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Tooltip string  `json:"tooltip"`
}

// RegulonScatter compares regulator expression against iModulon activity,
// with a fitted line that may have one breakpoint.
type RegulonScatter struct {
	Kind      ChartKind    `json:"kind"`
	Regulator string       `json:"regulator"`
	XTitle    string       `json:"x_title"`
	R2        string       `json:"r2"`
	XMin      float64      `json:"x_min"`
	XMax      float64      `json:"x_max"`
	Points    []NamedPoint `json:"points"`
	Line      [][2]float64 `json:"line"`
}

// VennRegion is one set or intersection of a Venn diagram.
type VennRegion struct {
	Sets    []string `json:"sets"`
	Name    string   `json:"name"`
	Value   float64  `json:"value"`
	Color   string   `json:"color"`
	Opacity float64  `json:"opacity"`
	Genes   string   `json:"genes"`
	Tooltip string   `json:"tooltip"`
}

// Venn compares a regulon with an iModulon.
type Venn struct {
	Kind    ChartKind    `json:"kind"`
	Regions []VennRegion `json:"regions"`
}

func (h *Histogram) ChartKind() ChartKind      { return h.Kind }
func (g *GeneScatter) ChartKind() ChartKind    { return g.Kind }
func (r *RegulonScatter) ChartKind() ChartKind { return r.Kind }
func (v *Venn) ChartKind() ChartKind           { return v.Kind }
