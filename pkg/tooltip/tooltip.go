// Package tooltip composes the hover text of bar chart points from the
// current column selection.
package tooltip

import (
	"fmt"

	"github.com/vanderheijden86/modviz/pkg/metrics"
	"github.com/vanderheijden86/modviz/pkg/model"
	"github.com/vanderheijden86/modviz/pkg/schema"
	"github.com/vanderheijden86/modviz/pkg/series"
	"github.com/vanderheijden86/modviz/pkg/table"
)

// Context describes the point being hovered: either a condition's bar or a
// single replicate sample.
type Context struct {
	Label string // series label, e.g. "A"

	// Bar contexts.
	Condition *series.Condition

	// Sample contexts.
	Sample int
	Value  table.Cell
}

// ForCondition returns the context of a condition's bar.
func ForCondition(c *series.Condition, label string) Context {
	return Context{Label: label, Condition: c, Sample: c.Sample}
}

// ForPoint returns the context of one replicate point.
func ForPoint(p model.ScatterPoint, label string) Context {
	return Context{Label: label, Sample: p.Sample, Value: p.Y}
}

// IsBar reports whether ctx refers to a condition's bar.
func (ctx Context) IsBar() bool {
	return ctx.Condition != nil
}

// Resolve builds the tooltip for ctx. Metadata lines follow columns in order;
// unresolved columns and null values are skipped, and the line for
// colorColumn is emphasized.
func Resolve(ctx Context, meta *schema.Metadata, columns []int, colorColumn int) model.Tooltip {
	defer metrics.Timer(metrics.TooltipResolve)()

	var tip model.Tooltip
	if c := ctx.Condition; c != nil {
		n := c.Count()
		tip.Header = fmt.Sprintf("%s (%d)", c.Name, n)
		tip.Value = fmt.Sprintf("%s: %s", ctx.Label, c.Mean.Fixed(2))
		if n > 1 {
			tip.Value += " ± " + c.Spread().Fixed(2)
		}
	} else {
		tip.Header = meta.SampleName(ctx.Sample)
		tip.Value = fmt.Sprintf("%s: %s", ctx.Label, ctx.Value.Fixed(2))
	}

	for _, col := range columns {
		if col == schema.NotFound {
			continue
		}
		v := meta.Value(ctx.Sample, col)
		if v.IsNull() {
			continue
		}
		tip.Lines = append(tip.Lines, model.TooltipLine{
			Label:      meta.Label(col),
			Value:      v.String(),
			Emphasized: col == colorColumn,
		})
	}
	return tip
}
