// Package ui is the terminal surface of modviz: the column/color modal,
// tooltip and legend rendering, Markdown summaries and clipboard access.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Adaptive colors for light and dark terminals.
var (
	ColorText     = lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"}
	ColorSubtext  = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#BFBFBF"}
	ColorMuted    = lipgloss.AdaptiveColor{Light: "#666666", Dark: "#6272A4"}
	ColorPrimary  = lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}
	ColorBgSubtle = lipgloss.AdaptiveColor{Light: "#E8E8E8", Dark: "#363949"}
)

var (
	tooltipBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorMuted).
			Padding(0, 1)

	tooltipHeaderStyle = lipgloss.NewStyle().Foreground(ColorSubtext)
	tooltipValueStyle  = lipgloss.NewStyle().Foreground(ColorText)
	tooltipLineStyle   = lipgloss.NewStyle().Foreground(ColorSubtext)
	tooltipEmphStyle   = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)

	legendTitleStyle = lipgloss.NewStyle().Foreground(ColorMuted).Bold(true)
	legendTextStyle  = lipgloss.NewStyle().Foreground(ColorText)
)

// IsTerminal reports whether stdin is connected to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// truncate shortens s to at most width display cells, marking the cut with
// an ellipsis.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}
