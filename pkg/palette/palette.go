// Package palette assigns stable categorical colors to metadata values.
package palette

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/vanderheijden86/modviz/pkg/debug"
	"github.com/vanderheijden86/modviz/pkg/metrics"
	"github.com/vanderheijden86/modviz/pkg/model"
	"github.com/vanderheijden86/modviz/pkg/schema"
	"github.com/vanderheijden86/modviz/pkg/series"
	"github.com/vanderheijden86/modviz/pkg/table"
)

// UniformColor is the single series color used when no coloring column is
// active.
const UniformColor = "#2085e3"

// DefaultPalette holds the ten categorical colors handed out to the first
// distinct values of a column.
var DefaultPalette = []string{
	"#1f77b4", "#ff7f0e", "#2ca02c", "#d62728", "#9467bd",
	"#8c564b", "#e377c2", "#7f7f7f", "#bcbd22", "#17becf",
}

type key struct {
	col   int
	value table.Cell
}

// Mapper remembers every color it has handed out, so a (column, value) pair
// keeps its color for the lifetime of the Mapper. A Mapper belongs to one
// chart instance and is not safe for concurrent use.
type Mapper struct {
	palette  []string
	rng      *rand.Rand
	assigned map[key]string
	distinct map[int]int // distinct values seen per column
}

// NewMapper returns a Mapper over palette (DefaultPalette when empty). Colors
// past the palette are random; seed 0 seeds from the clock.
func NewMapper(palette []string, seed uint64) *Mapper {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return &Mapper{
		palette:  append([]string(nil), palette...),
		rng:      rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		assigned: make(map[key]string),
		distinct: make(map[int]int),
	}
}

// Assignment is the result of coloring one column.
type Assignment struct {
	Column int
	Colors []string            // one per condition
	Legend []model.LegendEntry // distinct values in first-seen order
}

// Assign colors each condition by its representative sample's value in col.
func (m *Mapper) Assign(col int, conds []series.Condition, meta *schema.Metadata) (Assignment, error) {
	defer metrics.Timer(metrics.ColorAssign)()

	if col < 0 || col >= len(meta.Header()) {
		return Assignment{}, fmt.Errorf("color column %d outside metadata header of %d columns", col, len(meta.Header()))
	}

	a := Assignment{Column: col, Colors: make([]string, len(conds))}
	inLegend := make(map[table.Cell]bool)
	for i, c := range conds {
		if err := meta.Check(c.Sample); err != nil {
			return Assignment{}, fmt.Errorf("coloring condition %q: %w", c.Name, err)
		}
		v := meta.Value(c.Sample, col)
		color := m.Color(col, v)
		a.Colors[i] = color

		if !inLegend[v] {
			inLegend[v] = true
			a.Legend = append(a.Legend, model.LegendEntry{Value: legendLabel(v), Color: color})
		}
	}
	debug.Log("palette.Assign: column %d, %d distinct values", col, len(a.Legend))
	return a, nil
}

// Color returns the color of value in col, assigning one on first sight.
func (m *Mapper) Color(col int, value table.Cell) string {
	k := key{col: col, value: value}
	if c, ok := m.assigned[k]; ok {
		return c
	}

	n := m.distinct[col]
	var c string
	if n < len(m.palette) {
		c = m.palette[n]
	} else {
		c = m.random()
	}
	m.distinct[col] = n + 1
	m.assigned[k] = c
	return c
}

func (m *Mapper) random() string {
	h := m.rng.Float64() * 360
	s := 0.45 + 0.45*m.rng.Float64()
	v := 0.55 + 0.4*m.rng.Float64()
	return colorful.Hsv(h, s, v).Hex()
}

func legendLabel(v table.Cell) string {
	if v.IsNull() {
		return table.Placeholder
	}
	return v.String()
}
