package export

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/mattn/go-runewidth"
	"golang.org/x/image/font/basicfont"
	"gonum.org/v1/gonum/floats"

	"github.com/vanderheijden86/modviz/pkg/metrics"
	"github.com/vanderheijden86/modviz/pkg/model"
	"github.com/vanderheijden86/modviz/pkg/palette"
)

// ErrNoSnapshot is returned for chart kinds without a static rendering.
var ErrNoSnapshot = errors.New("chart kind has no static snapshot")

// SnapshotOptions controls static snapshot export.
type SnapshotOptions struct {
	Path   string // Output path; format inferred from extension when Format empty
	Format string // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Title  string // Optional title drawn above the plot
	Width  int    // Canvas width in pixels (default 1200)
	Height int    // Canvas height in pixels (default 480)
}

func (o SnapshotOptions) resolve() (SnapshotOptions, error) {
	if o.Width <= 0 {
		o.Width = 1200
	}
	if o.Height <= 0 {
		o.Height = 480
	}
	format := strings.ToLower(strings.TrimPrefix(o.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(o.Path)) {
		case ".png":
			format = "png"
		default:
			format = "svg"
			if o.Path != "" && filepath.Ext(o.Path) == "" {
				o.Path += ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return o, fmt.Errorf("%w: %q (want svg or png)", ErrUnknownFormat, format)
	}
	o.Format = format
	return o, nil
}

// SaveSnapshot renders a static preview of c to opts.Path.
func SaveSnapshot(c model.Chart, opts SnapshotOptions) error {
	defer metrics.Timer(metrics.SnapshotRender)()

	opts, err := opts.resolve()
	if err != nil {
		return err
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}
	p, err := buildPlot(c, opts)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	if opts.Format == "png" {
		return renderPNG(p).SavePNG(opts.Path)
	}
	f, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	renderSVG(f, p)
	return f.Close()
}

// WriteSVG renders an SVG preview of c to w.
func WriteSVG(w io.Writer, c model.Chart, opts SnapshotOptions) error {
	opts.Format = "svg"
	opts, err := opts.resolve()
	if err != nil {
		return err
	}
	p, err := buildPlot(c, opts)
	if err != nil {
		return err
	}
	renderSVG(w, p)
	return nil
}

// --- plot model --------------------------------------------------------------

type rect struct {
	x0, x1, y0, y1 float64
	color          string
}

type dot struct {
	x, y  float64
	color string
}

type band struct {
	from, to float64
	label    string
}

// plot is a chart reduced to primitives in data coordinates.
type plot struct {
	title, xTitle, yTitle string
	width, height         int

	x0, x1, y0, y1 float64

	rects    []rect
	dots     []dot
	polyline [][2]float64
	vlines   []float64
	hlines   []float64
	bands    []band
	ticks    []string // category labels at integer x positions
	legend   []model.LegendEntry
}

const (
	marginLeft   = 80.0
	marginRight  = 200.0
	marginTop    = 50.0
	marginBottom = 80.0
	charWidth    = 7.0
)

func (p *plot) px(x float64) float64 {
	w := float64(p.width) - marginLeft - marginRight
	return marginLeft + (x-p.x0)/(p.x1-p.x0)*w
}

func (p *plot) py(y float64) float64 {
	h := float64(p.height) - marginTop - marginBottom
	return marginTop + (p.y1-y)/(p.y1-p.y0)*h
}

func buildPlot(c model.Chart, opts SnapshotOptions) (*plot, error) {
	p := &plot{title: opts.Title, width: opts.Width, height: opts.Height}
	switch v := c.(type) {
	case *model.BarChart:
		barPlot(p, v)
	case *model.Histogram:
		histogramPlot(p, v)
	case *model.GeneScatter:
		geneScatterPlot(p, v)
	case *model.RegulonScatter:
		regulonPlot(p, v)
	default:
		return nil, fmt.Errorf("%w: %s", ErrNoSnapshot, c.ChartKind())
	}
	return p, nil
}

func barPlot(p *plot, c *model.BarChart) {
	n := len(c.Bars)
	p.yTitle = c.YAxisTitle
	p.x0, p.x1 = -0.5, float64(n)-0.5
	if n == 0 {
		p.x1 = 0.5
	}

	ys := []float64{0}
	for i, b := range c.Bars {
		v, ok := b.Float()
		if !ok {
			continue
		}
		ys = append(ys, v)
		p.rects = append(p.rects, rect{x0: float64(i) - 0.4, x1: float64(i) + 0.4, y0: 0, y1: v, color: c.BarColor(i)})
	}
	for _, pt := range c.Points {
		v, ok := pt.Y.Float()
		if !ok {
			continue
		}
		ys = append(ys, v)
		p.dots = append(p.dots, dot{x: float64(pt.X), y: v, color: "#000000"})
	}
	p.y0, p.y1 = extent(ys)

	p.vlines = c.Separators
	if c.LabelsVisible(p.x0, p.x1) {
		p.ticks = c.Categories
	} else {
		for _, s := range c.Segments {
			p.bands = append(p.bands, band{from: s.From, to: s.To, label: s.Label})
		}
	}
	p.legend = c.Legend
}

func histogramPlot(p *plot, h *model.Histogram) {
	p.xTitle, p.yTitle = "iModulon Weight", "Number of Genes"
	if len(h.Centers) > 0 {
		p.x0 = h.Centers[0] - h.BinWidth/2
		p.x1 = h.Centers[len(h.Centers)-1] + h.BinWidth/2
	}
	ys := []float64{0}
	for _, s := range h.Series {
		for j, n := range s.Counts {
			if n == 0 || j >= len(h.Centers) {
				continue
			}
			ys = append(ys, float64(n))
			p.rects = append(p.rects, rect{
				x0: h.Centers[j] - h.BinWidth/2, x1: h.Centers[j] + h.BinWidth/2,
				y0: 0, y1: float64(n), color: s.Color,
			})
		}
		p.legend = append(p.legend, model.LegendEntry{Value: s.Label, Color: s.Color})
	}
	p.y0, p.y1 = extent(ys)
	p.vlines = h.Thresholds[:]
	if p.x1 <= p.x0 {
		p.x0, p.x1 = extent(append([]float64{}, h.Thresholds[:]...))
	}
}

func geneScatterPlot(p *plot, g *model.GeneScatter) {
	p.xTitle, p.yTitle = g.XLabel, "iModulon Weight"
	xs := []float64{g.XMin}
	ys := []float64{g.Threshold, -g.Threshold}
	for _, pt := range g.Points {
		xs = append(xs, pt.X)
		ys = append(ys, pt.Y)
		c := pt.Color
		if c == "" {
			c = palette.UniformColor
		}
		p.dots = append(p.dots, dot{x: pt.X, y: pt.Y, color: c})
	}
	p.x0, p.x1 = g.XMin, floats.Max(xs)
	if p.x1 <= p.x0 {
		p.x1 = p.x0 + 1
	}
	p.y0, p.y1 = extent(ys)
	p.hlines = []float64{g.Threshold, -g.Threshold}
}

func regulonPlot(p *plot, r *model.RegulonScatter) {
	p.xTitle, p.yTitle = r.XTitle, "iModulon Activity"
	p.x0, p.x1 = r.XMin, r.XMax
	if p.x1 <= p.x0 {
		p.x1 = p.x0 + 1
	}
	ys := make([]float64, 0, len(r.Points)+len(r.Line))
	for _, pt := range r.Points {
		ys = append(ys, pt.Y)
		p.dots = append(p.dots, dot{x: pt.X, y: pt.Y, color: palette.UniformColor})
	}
	for _, l := range r.Line {
		ys = append(ys, l[1])
	}
	p.y0, p.y1 = extent(ys)
	p.polyline = r.Line
	p.legend = []model.LegendEntry{{Value: "R² = " + r.R2, Color: "#000000"}}
}

// extent returns a padded [lo, hi] covering vals.
func extent(vals []float64) (float64, float64) {
	if len(vals) == 0 {
		return 0, 1
	}
	lo, hi := floats.Min(vals), floats.Max(vals)
	if lo == hi {
		return lo - 1, hi + 1
	}
	pad := (hi - lo) * 0.05
	return lo - pad, hi + pad
}

// --- rendering ---------------------------------------------------------------

var (
	colorText     = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorSubtle   = color.RGBA{0x66, 0x66, 0x66, 0xff}
	colorAxis     = color.RGBA{0x22, 0x22, 0x22, 0xff}
	colorGrid     = color.RGBA{0x80, 0x80, 0x80, 0xff}
	colorBackdrop = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorLegendBG = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
)

func renderSVG(w io.Writer, p *plot) {
	canvas := svg.New(w)
	canvas.Start(p.width, p.height)
	canvas.Rect(0, 0, p.width, p.height, fmt.Sprintf("fill:%s", css(colorBackdrop)))

	if p.title != "" {
		canvas.Text(int(marginLeft), 28, p.title, fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(colorText)))
	}

	for _, r := range p.rects {
		x, y := p.px(r.x0), p.py(max(r.y0, r.y1))
		w, h := p.px(r.x1)-x, p.py(min(r.y0, r.y1))-y
		canvas.Rect(int(x), int(y), max(int(w), 1), max(int(h), 1), fmt.Sprintf("fill:%s;fill-opacity:0.85", hexColor(r.color)))
	}
	for _, v := range p.vlines {
		x := int(p.px(v))
		canvas.Line(x, int(marginTop), x, int(p.py(p.y0)), fmt.Sprintf("stroke:%s;stroke-width:1", css(colorGrid)))
	}
	for _, v := range p.hlines {
		y := int(p.py(v))
		canvas.Line(int(marginLeft), y, int(p.px(p.x1)), y, fmt.Sprintf("stroke:%s;stroke-width:1", css(colorAxis)))
	}
	if len(p.polyline) > 1 {
		xs := make([]int, len(p.polyline))
		ys := make([]int, len(p.polyline))
		for i, pt := range p.polyline {
			xs[i], ys[i] = int(p.px(pt[0])), int(p.py(pt[1]))
		}
		canvas.Polyline(xs, ys, fmt.Sprintf("fill:none;stroke:%s;stroke-width:2", css(colorAxis)))
	}
	for _, d := range p.dots {
		canvas.Circle(int(p.px(d.x)), int(p.py(d.y)), 3, fmt.Sprintf("fill:%s", hexColor(d.color)))
	}

	// axes
	bottom := int(p.py(p.y0))
	canvas.Line(int(marginLeft), int(marginTop), int(marginLeft), bottom, fmt.Sprintf("stroke:%s", css(colorAxis)))
	canvas.Line(int(marginLeft), bottom, int(p.px(p.x1)), bottom, fmt.Sprintf("stroke:%s", css(colorAxis)))
	small := fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace", css(colorSubtle))
	canvas.Text(8, int(marginTop)+12, fmt.Sprintf("%.2f", p.y1), small)
	canvas.Text(8, bottom, fmt.Sprintf("%.2f", p.y0), small)
	if p.yTitle != "" {
		canvas.Text(8, int(marginTop)-10, p.yTitle, small)
	}
	if p.xTitle != "" {
		canvas.Text(int(marginLeft), p.height-12, p.xTitle, small)
	}

	for i, label := range p.ticks {
		x := int(p.px(float64(i)))
		canvas.Text(x, bottom+16, fitLabel(label, p.px(1)-p.px(0)), small+";text-anchor:middle")
	}
	for _, b := range p.bands {
		x := int((p.px(b.from) + p.px(b.to)) / 2)
		canvas.Text(x, bottom+16, fitLabel(b.label, p.px(b.to)-p.px(b.from)), small+";text-anchor:middle")
	}

	if len(p.legend) > 0 {
		x := p.width - int(marginRight) + 16
		y := int(marginTop)
		canvas.Roundrect(x, y, int(marginRight)-32, 16*len(p.legend)+12, 6, 6, fmt.Sprintf("fill:%s", css(colorLegendBG)))
		for i, e := range p.legend {
			ry := y + 10 + 16*i
			canvas.Rect(x+8, ry, 10, 10, fmt.Sprintf("fill:%s", hexColor(e.Color)))
			canvas.Text(x+24, ry+9, fitLabel(e.Value, marginRight-64), small)
		}
	}

	canvas.End()
}

func renderPNG(p *plot) *gg.Context {
	dc := gg.NewContext(p.width, p.height)
	dc.SetColor(colorBackdrop)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	if p.title != "" {
		dc.SetColor(colorText)
		dc.DrawStringAnchored(p.title, marginLeft, 24, 0, 0.5)
	}

	for _, r := range p.rects {
		x, y := p.px(r.x0), p.py(max(r.y0, r.y1))
		dc.SetColor(parseColor(r.color))
		dc.DrawRectangle(x, y, max(p.px(r.x1)-x, 1), max(p.py(min(r.y0, r.y1))-y, 1))
		dc.Fill()
	}
	dc.SetLineWidth(1)
	dc.SetColor(colorGrid)
	for _, v := range p.vlines {
		dc.DrawLine(p.px(v), marginTop, p.px(v), p.py(p.y0))
		dc.Stroke()
	}
	dc.SetColor(colorAxis)
	for _, v := range p.hlines {
		dc.DrawLine(marginLeft, p.py(v), p.px(p.x1), p.py(v))
		dc.Stroke()
	}
	if len(p.polyline) > 1 {
		dc.SetLineWidth(2)
		dc.MoveTo(p.px(p.polyline[0][0]), p.py(p.polyline[0][1]))
		for _, pt := range p.polyline[1:] {
			dc.LineTo(p.px(pt[0]), p.py(pt[1]))
		}
		dc.Stroke()
		dc.SetLineWidth(1)
	}
	for _, d := range p.dots {
		dc.SetColor(parseColor(d.color))
		dc.DrawCircle(p.px(d.x), p.py(d.y), 3)
		dc.Fill()
	}

	bottom := p.py(p.y0)
	dc.SetColor(colorAxis)
	dc.DrawLine(marginLeft, marginTop, marginLeft, bottom)
	dc.DrawLine(marginLeft, bottom, p.px(p.x1), bottom)
	dc.Stroke()

	dc.SetColor(colorSubtle)
	dc.DrawStringAnchored(fmt.Sprintf("%.2f", p.y1), 8, marginTop+6, 0, 0.5)
	dc.DrawStringAnchored(fmt.Sprintf("%.2f", p.y0), 8, bottom, 0, 0.5)
	if p.yTitle != "" {
		dc.DrawStringAnchored(p.yTitle, 8, marginTop-14, 0, 0.5)
	}
	if p.xTitle != "" {
		dc.DrawStringAnchored(p.xTitle, marginLeft, float64(p.height)-14, 0, 0.5)
	}
	for i, label := range p.ticks {
		dc.DrawStringAnchored(fitLabel(label, p.px(1)-p.px(0)), p.px(float64(i)), bottom+14, 0.5, 0.5)
	}
	for _, b := range p.bands {
		dc.DrawStringAnchored(fitLabel(b.label, p.px(b.to)-p.px(b.from)), (p.px(b.from)+p.px(b.to))/2, bottom+14, 0.5, 0.5)
	}

	if len(p.legend) > 0 {
		x := float64(p.width) - marginRight + 16
		dc.SetColor(colorLegendBG)
		dc.DrawRoundedRectangle(x, marginTop, marginRight-32, float64(16*len(p.legend)+12), 6)
		dc.Fill()
		for i, e := range p.legend {
			ry := marginTop + 10 + 16*float64(i)
			dc.SetColor(parseColor(e.Color))
			dc.DrawRectangle(x+8, ry, 10, 10)
			dc.Fill()
			dc.SetColor(colorSubtle)
			dc.DrawStringAnchored(fitLabel(e.Value, marginRight-64), x+24, ry+5, 0, 0.5)
		}
	}
	return dc
}

// --- helpers ---------------------------------------------------------------

// fitLabel truncates s to the display width available in px pixels.
func fitLabel(s string, px float64) string {
	cells := int(px / charWidth)
	if cells <= 0 {
		return ""
	}
	return runewidth.Truncate(s, cells, "…")
}

func parseColor(hex string) color.Color {
	c, err := colorful.Hex(hex)
	if err != nil {
		return colorSubtle
	}
	return c
}

func hexColor(hex string) string {
	c, err := colorful.Hex(hex)
	if err != nil {
		return css(colorSubtle)
	}
	return c.Hex()
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
