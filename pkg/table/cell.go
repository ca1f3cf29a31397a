// Package table holds the typed matrix model shared by every chart assembler.
//
// Cells are tagged values: a number, a piece of text, or absent. Missing
// metadata is therefore an explicit, checkable state rather than an implicit
// zero value.
package table

import (
	"math"
	"strconv"

	json "github.com/goccy/go-json"
)

// Placeholder is shown wherever a numeric rendering is requested for a cell
// that does not hold a number.
const Placeholder = "n/a"

// Kind identifies which variant a Cell holds.
type Kind uint8

const (
	Absent Kind = iota
	Number
	Text
)

func (k Kind) String() string {
	switch k {
	case Number:
		return "number"
	case Text:
		return "text"
	default:
		return "absent"
	}
}

// Cell is a single typed matrix value. The zero value is Null.
// Cells are comparable and may be used as map keys.
type Cell struct {
	kind Kind
	num  float64
	text string
}

// Null is the absent cell.
var Null = Cell{}

// Num returns a numeric cell. NaN is stored as Null so that cells stay
// usable as map keys.
func Num(f float64) Cell {
	if math.IsNaN(f) {
		return Null
	}
	return Cell{kind: Number, num: f}
}

// Str returns a text cell.
func Str(s string) Cell {
	return Cell{kind: Text, text: s}
}

// Kind reports the variant held by c.
func (c Cell) Kind() Kind { return c.kind }

// IsNull reports whether c is absent.
func (c Cell) IsNull() bool { return c.kind == Absent }

// IsNumber reports whether c holds a number.
func (c Cell) IsNumber() bool { return c.kind == Number }

// Float returns the numeric value of c.
func (c Cell) Float() (float64, bool) {
	if c.kind != Number {
		return 0, false
	}
	return c.num, true
}

// Int returns the value of c when it is an integral number.
func (c Cell) Int() (int, bool) {
	if c.kind != Number || c.num != math.Trunc(c.num) || math.IsInf(c.num, 0) {
		return 0, false
	}
	return int(c.num), true
}

// String renders c the way the portal prints raw cell values. Numbers use
// the shortest representation, text is returned verbatim and absent cells
// render as the empty string.
func (c Cell) String() string {
	switch c.kind {
	case Number:
		return formatNumber(c.num)
	case Text:
		return c.text
	default:
		return ""
	}
}

// Fixed renders a numeric cell with the given number of decimals. Non-numeric
// cells render as Placeholder.
func (c Cell) Fixed(decimals int) string {
	if c.kind != Number {
		return Placeholder
	}
	return strconv.FormatFloat(c.num, 'f', decimals, 64)
}

// MarshalJSON encodes numbers as JSON numbers, text as strings and absent
// cells as null, which is what charting libraries expect in data arrays.
func (c Cell) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case Number:
		if math.IsInf(c.num, 0) {
			return []byte("null"), nil
		}
		return []byte(strconv.FormatFloat(c.num, 'g', -1, 64)), nil
	case Text:
		return json.Marshal(c.text)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*c = Null
	case float64:
		*c = Num(t)
	case string:
		*c = Str(t)
	default:
		*c = Str(string(data))
	}
	return nil
}

func formatNumber(f float64) string {
	abs := math.Abs(f)
	if abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
