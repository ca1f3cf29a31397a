package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/vanderheijden86/modviz/pkg/model"
)

// markdownCell escapes text for use inside a Markdown table cell.
func markdownCell(s string) string {
	r := strings.NewReplacer("|", "\\|", "\n", " ", "\r", "")
	s = strings.TrimSpace(r.Replace(s))
	if s == "" {
		return "-"
	}
	return s
}

// Markdown summarizes a chart document as a Markdown report.
func Markdown(doc Document, title string) (string, error) {
	var sb strings.Builder

	if title == "" {
		title = string(doc.Kind)
	}
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	sb.WriteString(fmt.Sprintf("*Generated: %s*", doc.GeneratedAt.Format(time.RFC1123)))
	if len(doc.Sources) > 0 {
		sb.WriteString(fmt.Sprintf(" from `%s`", strings.Join(doc.Sources, "`, `")))
	}
	sb.WriteString("\n\n")

	switch c := doc.Chart.(type) {
	case *model.BarChart:
		writeBarSummary(&sb, c)
	case *model.Histogram:
		writeHistogramSummary(&sb, c)
	case *model.GeneScatter:
		writeGeneScatterSummary(&sb, c)
	case *model.RegulonScatter:
		writeRegulonSummary(&sb, c)
	case *model.Venn:
		writeVennSummary(&sb, c)
	default:
		return "", fmt.Errorf("%w: no markdown summary for %T", ErrUnknownFormat, doc.Chart)
	}
	return sb.String(), nil
}

func writeBarSummary(sb *strings.Builder, c *model.BarChart) {
	numeric := 0
	for _, b := range c.Bars {
		if b.IsNumber() {
			numeric++
		}
	}

	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Series | %s |\n", markdownCell(c.SeriesName)))
	sb.WriteString(fmt.Sprintf("| Axis | %s |\n", markdownCell(c.YAxisTitle)))
	sb.WriteString(fmt.Sprintf("| Conditions | %d |\n", len(c.Categories)))
	sb.WriteString(fmt.Sprintf("| Numeric bars | %d |\n", numeric))
	sb.WriteString(fmt.Sprintf("| Replicate points | %d |\n", len(c.Points)))
	sb.WriteString(fmt.Sprintf("| Projects | %d |\n\n", len(c.Segments)))

	if len(c.Segments) > 0 {
		sb.WriteString("## Projects\n\n")
		sb.WriteString("| Project | Conditions | Range |\n|---------|------------|-------|\n")
		for _, s := range c.Segments {
			n := int(s.To - s.From)
			sb.WriteString(fmt.Sprintf("| %s | %d | %g – %g |\n", markdownCell(s.Label), n, s.From, s.To))
		}
		sb.WriteString("\n")
	}

	if len(c.Legend) > 0 {
		sb.WriteString("## Legend\n\n")
		sb.WriteString("| Value | Color |\n|-------|-------|\n")
		for _, e := range c.Legend {
			sb.WriteString(fmt.Sprintf("| %s | `%s` |\n", markdownCell(e.Value), e.Color))
		}
		sb.WriteString("\n")
	}
}

func writeHistogramSummary(sb *strings.Builder, h *model.Histogram) {
	sb.WriteString(fmt.Sprintf("Bins: %d (width %g). Thresholds: %g, %g.\n\n", len(h.Centers), h.BinWidth, h.Thresholds[0], h.Thresholds[1]))
	sb.WriteString("| Series | Genes |\n|--------|-------|\n")
	for _, s := range h.Series {
		total := 0
		for _, n := range s.Counts {
			total += n
		}
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", markdownCell(s.Label), total))
	}
	sb.WriteString("\n")
}

func writeGeneScatterSummary(sb *strings.Builder, g *model.GeneScatter) {
	var order []string
	counts := make(map[string]int)
	above := 0
	for _, p := range g.Points {
		if _, seen := counts[p.Category]; !seen {
			order = append(order, p.Category)
		}
		counts[p.Category]++
		if p.Y > g.Threshold || p.Y < -g.Threshold {
			above++
		}
	}
	sb.WriteString(fmt.Sprintf("Genes: %d (%d beyond threshold %g). X axis: %s.\n\n", len(g.Points), above, g.Threshold, g.XLabel))
	sb.WriteString("| Category | Genes |\n|----------|-------|\n")
	for _, cat := range order {
		sb.WriteString(fmt.Sprintf("| %s | %d |\n", markdownCell(cat), counts[cat]))
	}
	sb.WriteString("\n")
}

func writeRegulonSummary(sb *strings.Builder, r *model.RegulonScatter) {
	sb.WriteString("| Metric | Value |\n|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Regulator | %s |\n", markdownCell(r.Regulator)))
	sb.WriteString(fmt.Sprintf("| R² | %s |\n", markdownCell(r.R2)))
	sb.WriteString(fmt.Sprintf("| Samples | %d |\n", len(r.Points)))
	sb.WriteString(fmt.Sprintf("| Breakpoint | %t |\n\n", len(r.Line) > 2))
}

func writeVennSummary(sb *strings.Builder, v *model.Venn) {
	sb.WriteString("| Region | Genes |\n|--------|-------|\n")
	for _, reg := range v.Regions {
		sb.WriteString(fmt.Sprintf("| %s | %g |\n", markdownCell(reg.Name), reg.Value))
	}
	sb.WriteString("\n")
}
