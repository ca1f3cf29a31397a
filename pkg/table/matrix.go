package table

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformed marks input whose structure cannot be interpreted, such as a
	// back-reference past the end of the metadata table.
	ErrMalformed = errors.New("malformed input")
	// ErrEmpty is returned when a table has no rows at all.
	ErrEmpty = errors.New("empty table")
)

// Malformedf wraps ErrMalformed with positional context.
func Malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// Matrix is an immutable, ordered sequence of rows of cells.
type Matrix struct {
	rows [][]Cell
}

// NewMatrix wraps rows. The caller must not modify rows afterwards.
func NewMatrix(rows [][]Cell) *Matrix {
	return &Matrix{rows: rows}
}

// Len returns the number of rows, header and sentinel rows included.
func (m *Matrix) Len() int {
	if m == nil {
		return 0
	}
	return len(m.rows)
}

// Row returns row i, or nil when i is out of range.
func (m *Matrix) Row(i int) []Cell {
	if m == nil || i < 0 || i >= len(m.rows) {
		return nil
	}
	return m.rows[i]
}

// Width returns the number of cells in row i.
func (m *Matrix) Width(i int) int {
	return len(m.Row(i))
}

// At returns the cell at (row, col), or Null when either index is out of
// range. Short rows are common in delimited input and are not an error.
func (m *Matrix) At(row, col int) Cell {
	r := m.Row(row)
	if col < 0 || col >= len(r) {
		return Null
	}
	return r[col]
}

// Header returns row 0 rendered as strings.
func (m *Matrix) Header() []string {
	r := m.Row(0)
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = c.String()
	}
	return out
}

// IsBlankRow reports whether row i holds no values. Delimited text that ends
// with a line terminator yields one such sentinel row at the end.
func (m *Matrix) IsBlankRow(i int) bool {
	r := m.Row(i)
	for _, c := range r {
		if !c.IsNull() && !(c.Kind() == Text && c.String() == "") {
			return false
		}
	}
	return true
}

// Source is a parsed table together with the raw text it came from. The raw
// text is kept so it can be handed back to users as a download.
type Source struct {
	Name   string
	Raw    []byte
	Matrix *Matrix
}
