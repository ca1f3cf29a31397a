package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/modviz/pkg/model"
)

// RenderTooltip draws tip as a bordered box no wider than width cells. Lines
// longer than the box are truncated; the coloring column is highlighted.
func RenderTooltip(tip model.Tooltip, width int) string {
	inner := width - 4 // border + padding
	if inner < 8 {
		inner = 8
	}

	lines := make([]string, 0, len(tip.Lines)+2)
	lines = append(lines, tooltipHeaderStyle.Render(truncate(tip.Header, inner)))
	lines = append(lines, tooltipValueStyle.Render(truncate(tip.Value, inner)))
	for _, l := range tip.Lines {
		text := truncate(l.Label+": "+l.Value, inner)
		if l.Emphasized {
			lines = append(lines, tooltipEmphStyle.Render(text))
		} else {
			lines = append(lines, tooltipLineStyle.Render(text))
		}
	}
	return tooltipBoxStyle.Render(strings.Join(lines, "\n"))
}

// RenderLegend lists the color assignments of the active coloring column.
func RenderLegend(title string, entries []model.LegendEntry, width int) string {
	if len(entries) == 0 {
		return ""
	}
	var sb strings.Builder
	if title != "" {
		sb.WriteString(legendTitleStyle.Render(truncate(title, width)))
		sb.WriteString("\n")
	}
	for i, e := range entries {
		swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(e.Color)).Render("■")
		sb.WriteString(swatch)
		sb.WriteString(" ")
		sb.WriteString(legendTextStyle.Render(truncate(e.Value, width-2)))
		if i < len(entries)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// RenderSummary renders a Markdown chart summary for the terminal.
func RenderSummary(md string, width int) (string, error) {
	if width <= 0 {
		width = 80
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("markdown renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return out, nil
}
