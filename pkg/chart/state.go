// Package chart assembles the visual models of each chart type from parsed
// tables. Mutable interaction state lives in State, one per chart instance.
package chart

import (
	"slices"

	"github.com/vanderheijden86/modviz/pkg/palette"
	"github.com/vanderheijden86/modviz/pkg/schema"
)

// State is the user-controlled selection of one chart instance: the metadata
// columns shown in tooltips and the optional coloring column.
type State struct {
	columns     []int
	colorColumn int
	mapper      *palette.Mapper
}

// NewState returns the initial state for a metadata header: columns chosen
// by sel and no coloring column.
func NewState(header []string, sel schema.Selector, mapper *palette.Mapper) *State {
	if mapper == nil {
		mapper = palette.NewMapper(nil, 0)
	}
	return &State{
		columns:     sel.Select(header),
		colorColumn: schema.NotFound,
		mapper:      mapper,
	}
}

// Columns returns a copy of the selected tooltip columns.
func (s *State) Columns() []int {
	return slices.Clone(s.columns)
}

// SetColumns replaces the tooltip columns.
func (s *State) SetColumns(cols []int) {
	s.columns = slices.Clone(cols)
	if s.columns == nil {
		s.columns = []int{}
	}
}

// ToggleColumn adds col to the tooltip columns or removes it, and reports
// whether col is now selected.
func (s *State) ToggleColumn(col int) bool {
	if i := slices.Index(s.columns, col); i >= 0 {
		s.columns = slices.Delete(s.columns, i, i+1)
		return false
	}
	s.columns = append(s.columns, col)
	return true
}

// ColorColumn returns the active coloring column, or schema.NotFound.
func (s *State) ColorColumn() int {
	return s.colorColumn
}

// SetColorColumn makes col the coloring column. Selecting the active column
// again clears coloring. A newly colored column is also shown in tooltips.
func (s *State) SetColorColumn(col int) {
	if col == s.colorColumn || col == schema.NotFound {
		s.ClearColor()
		return
	}
	s.colorColumn = col
	if !slices.Contains(s.columns, col) {
		s.columns = append(s.columns, col)
	}
}

// ClearColor turns categorical coloring off.
func (s *State) ClearColor() {
	s.colorColumn = schema.NotFound
}

// Mapper returns the color mapper that keeps colors stable for this chart.
func (s *State) Mapper() *palette.Mapper {
	return s.mapper
}
