package ui

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/huh"

	"github.com/vanderheijden86/modviz/pkg/chart"
	"github.com/vanderheijden86/modviz/pkg/schema"
)

// Modal lets the user pick tooltip columns and the coloring column of one
// chart. Submitting writes the choices back into the chart's state.
type Modal struct {
	header []string
	state  *chart.State

	columns []int
	color   int
}

// NewModal prepares a modal over the metadata header, preselecting the
// state's current columns and coloring column.
func NewModal(header []string, st *chart.State) *Modal {
	return &Modal{
		header:  header,
		state:   st,
		columns: st.Columns(),
		color:   st.ColorColumn(),
	}
}

func (m *Modal) label(col int) string {
	if col < len(m.header) && m.header[col] != "" {
		return m.header[col]
	}
	return fmt.Sprintf("column %d", col)
}

func (m *Modal) columnOptions() []huh.Option[int] {
	opts := make([]huh.Option[int], len(m.header))
	for i := range m.header {
		opts[i] = huh.NewOption(m.label(i), i).Selected(slices.Contains(m.columns, i))
	}
	return opts
}

func (m *Modal) colorOptions() []huh.Option[int] {
	opts := make([]huh.Option[int], 0, len(m.header)+1)
	opts = append(opts, huh.NewOption("None (uniform color)", schema.NotFound))
	for i := range m.header {
		opts = append(opts, huh.NewOption(m.label(i), i))
	}
	return opts
}

// Form builds the huh form. Outside a terminal it runs in accessible mode.
func (m *Modal) Form() *huh.Form {
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewMultiSelect[int]().
				Title("Tooltip columns").
				Description("Metadata shown when hovering a bar or point").
				Options(m.columnOptions()...).
				Value(&m.columns),
			huh.NewSelect[int]().
				Title("Color by").
				Options(m.colorOptions()...).
				Value(&m.color),
		),
	).WithTheme(huh.ThemeDracula())
	if !IsTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// Run shows the form and applies the result.
func (m *Modal) Run() error {
	if err := m.Form().Run(); err != nil {
		return err
	}
	m.Apply()
	return nil
}

// Apply writes the modal's selections into the chart state. Choosing the
// already active coloring column leaves it active.
func (m *Modal) Apply() {
	m.state.SetColumns(m.columns)
	switch {
	case m.color == schema.NotFound:
		m.state.ClearColor()
	case m.color != m.state.ColorColumn():
		m.state.SetColorColumn(m.color)
	}
}

// Select sets the pending selections without showing the form.
func (m *Modal) Select(columns []int, color int) {
	m.columns = slices.Clone(columns)
	m.color = color
}
