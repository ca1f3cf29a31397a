package chart

import (
	"fmt"
	"html"

	"github.com/vanderheijden86/modviz/pkg/model"
	"github.com/vanderheijden86/modviz/pkg/table"
)

// Fixed summary rows of a regulon scatter table. Sample rows follow.
const (
	regRowName = 0
	regRowR2   = 1
	regRowXMin = 2
	regRowXMid = 3
	regRowXMax = 4
	regRowData = 5
)

// BuildRegulonScatter plots regulator expression against iModulon activity
// for regulator i, whose values sit in column 2+i. The fitted line runs from
// xmin to xmax and bends at xmid when that row is present.
func BuildRegulonScatter(m *table.Matrix, regulator int) (*model.RegulonScatter, error) {
	col := 2 + regulator
	if regulator < 0 || col >= m.Width(regRowName) {
		return nil, table.Malformedf("regulon scatter: regulator %d outside table of %d columns", regulator, m.Width(regRowName))
	}
	if m.Len() < regRowData+2 {
		return nil, table.Malformedf("regulon scatter: need at least %d rows, got %d", regRowData+2, m.Len())
	}

	name := capFirst(m.At(regRowName, col).String())
	rs := &model.RegulonScatter{
		Kind:      model.KindRegulonScatter,
		Regulator: name,
		XTitle:    name + " Expression",
		R2:        m.At(regRowR2, col).Fixed(4),
		Points:    []model.NamedPoint{},
	}

	var err error
	if rs.XMin, err = number(m, regRowXMin, col, "xmin"); err != nil {
		return nil, err
	}
	if rs.XMax, err = number(m, regRowXMax, col, "xmax"); err != nil {
		return nil, err
	}
	yLeft, err := number(m, regRowData, col, "line start")
	if err != nil {
		return nil, err
	}
	yRight, err := number(m, regRowData+1, col, "line end")
	if err != nil {
		return nil, err
	}

	rs.Line = [][2]float64{{rs.XMin, yLeft}}
	if xmid, ok := m.At(regRowXMid, col).Float(); ok {
		rs.Line = append(rs.Line, [2]float64{xmid, yLeft})
	}
	rs.Line = append(rs.Line, [2]float64{rs.XMax, yRight})

	for row := regRowData; row < m.Len(); row++ {
		if m.IsBlankRow(row) {
			continue
		}
		x, okX := m.At(row, col).Float()
		y, okY := m.At(row, 1).Float()
		if !okX || !okY {
			continue
		}
		p := model.NamedPoint{Name: m.At(row, 0).String(), X: x, Y: y}
		p.Tooltip = fmt.Sprintf("<b>%s</b><br>%s: %.3f<br>iModulon Activity: %.3f",
			html.EscapeString(p.Name), html.EscapeString(rs.XTitle), x, y)
		rs.Points = append(rs.Points, p)
	}
	return rs, nil
}

func number(m *table.Matrix, row, col int, what string) (float64, error) {
	f, ok := m.At(row, col).Float()
	if !ok {
		return 0, table.Malformedf("regulon scatter: %s %q at row %d is not numeric", what, m.At(row, col), row)
	}
	return f, nil
}
