// Package series turns a per-condition measurement table into bar heights,
// replicate scatter points and project segments.
package series

import (
	"gonum.org/v1/gonum/stat"

	"github.com/vanderheijden86/modviz/pkg/table"
)

// Fixed leading columns of a measurement table row. Replicates follow as
// (sample-index, raw-value) pairs starting at ColFirstSample; the first
// pair's sample index doubles as the condition's representative sample.
const (
	ColID          = 0
	ColName        = 1
	ColMean        = 2
	ColStd         = 3
	ColCount       = 4
	ColFirstSample = 5
)

// Replicate is one sample measured under a condition.
type Replicate struct {
	Sample int
	Value  table.Cell
}

// Condition is one aggregated row of a measurement table.
type Condition struct {
	Position int // zero-based position on the condition axis
	Row      int // row in the source matrix

	ID   table.Cell
	Name string
	Mean table.Cell
	Std  table.Cell

	// Sample is the representative metadata sample of the condition.
	Sample     int
	Replicates []Replicate
}

// Count returns the replicate count.
func (c Condition) Count() int {
	return len(c.Replicates)
}

// Summary computes mean and sample standard deviation over the numeric
// replicate values. ok is false with fewer than two numeric values.
func (c Condition) Summary() (mean, std float64, ok bool) {
	xs := make([]float64, 0, len(c.Replicates))
	for _, r := range c.Replicates {
		if f, isNum := r.Value.Float(); isNum {
			xs = append(xs, f)
		}
	}
	if len(xs) < 2 {
		return 0, 0, false
	}
	mean, std = stat.MeanStdDev(xs, nil)
	return mean, std, true
}

// Spread returns the standard deviation shown in tooltips: the table's own
// value when present, otherwise one computed from the replicates.
func (c Condition) Spread() table.Cell {
	if c.Std.IsNumber() {
		return c.Std
	}
	if _, std, ok := c.Summary(); ok {
		return table.Num(std)
	}
	return c.Std
}

// MeasurementTable is a validated measurement matrix.
type MeasurementTable struct {
	Header     []string
	Conditions []Condition
}

// NewMeasurementTable validates m and extracts its conditions. The header row
// is always skipped. The last row is skipped only when it is blank: table.Parse
// appends that sentinel for newline-terminated input, and a table without a
// terminating newline keeps its final condition.
func NewMeasurementTable(m *table.Matrix) (*MeasurementTable, error) {
	if m.Len() == 0 {
		return nil, table.ErrEmpty
	}
	last := m.Len()
	if last > 1 && m.IsBlankRow(last-1) {
		last--
	}

	mt := &MeasurementTable{Header: m.Header()}
	for row := 1; row < last; row++ {
		c, err := parseCondition(m, row, row-1)
		if err != nil {
			return nil, err
		}
		mt.Conditions = append(mt.Conditions, c)
	}
	return mt, nil
}

func parseCondition(m *table.Matrix, row, pos int) (Condition, error) {
	count, ok := m.At(row, ColCount).Int()
	if !ok || count < 0 {
		return Condition{}, table.Malformedf("row %d: replicate count %q is not a non-negative integer", row, m.At(row, ColCount))
	}
	sample, ok := m.At(row, ColFirstSample).Int()
	if !ok {
		return Condition{}, table.Malformedf("row %d: sample reference %q is not an integer", row, m.At(row, ColFirstSample))
	}

	c := Condition{
		Position:   pos,
		Row:        row,
		ID:         m.At(row, ColID),
		Name:       m.At(row, ColName).String(),
		Mean:       m.At(row, ColMean),
		Std:        m.At(row, ColStd),
		Sample:     sample,
		Replicates: make([]Replicate, 0, count),
	}

	width := m.Width(row)
	for j := 0; j < count; j++ {
		idxCol := ColFirstSample + 2*j
		valCol := idxCol + 1
		if valCol >= width {
			return Condition{}, table.Malformedf("row %d: %d replicates declared but only %d pairs present", row, count, j)
		}
		s, ok := m.At(row, idxCol).Int()
		if !ok {
			return Condition{}, table.Malformedf("row %d col %d: sample reference %q is not an integer", row, idxCol, m.At(row, idxCol))
		}
		c.Replicates = append(c.Replicates, Replicate{Sample: s, Value: m.At(row, valCol)})
	}
	return c, nil
}
