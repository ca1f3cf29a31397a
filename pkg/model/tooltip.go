package model

import (
	"html"
	"strings"
)

// TooltipLine is one "<label>: <value>" metadata line.
type TooltipLine struct {
	Label      string `json:"label"`
	Value      string `json:"value"`
	Emphasized bool   `json:"emphasized,omitempty"`
}

// Tooltip is the structured text shown when hovering a point.
type Tooltip struct {
	Header string        `json:"header"`
	Value  string        `json:"value"`
	Lines  []TooltipLine `json:"lines,omitempty"`
}

// HTML renders the tooltip in the markup the portal's charting library
// accepts: a small header span, <br> separators and <b> for the coloring
// column.
func (t Tooltip) HTML() string {
	var sb strings.Builder
	sb.WriteString(`<span style="font-size: 10px">`)
	sb.WriteString(html.EscapeString(t.Header))
	sb.WriteString(`</span><br>`)
	sb.WriteString(html.EscapeString(t.Value))
	for _, l := range t.Lines {
		sb.WriteString("<br>")
		if l.Emphasized {
			sb.WriteString("<b>")
		}
		sb.WriteString(html.EscapeString(l.Label))
		sb.WriteString(": ")
		sb.WriteString(html.EscapeString(l.Value))
		if l.Emphasized {
			sb.WriteString("</b>")
		}
	}
	return sb.String()
}

// Text renders the tooltip as plain newline-separated lines.
func (t Tooltip) Text() string {
	lines := make([]string, 0, 2+len(t.Lines))
	lines = append(lines, t.Header, t.Value)
	for _, l := range t.Lines {
		lines = append(lines, l.Label+": "+l.Value)
	}
	return strings.Join(lines, "\n")
}
