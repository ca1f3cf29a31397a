package series

import (
	"fmt"

	"github.com/vanderheijden86/modviz/pkg/metrics"
	"github.com/vanderheijden86/modviz/pkg/model"
	"github.com/vanderheijden86/modviz/pkg/schema"
	"github.com/vanderheijden86/modviz/pkg/table"
)

// Segment partitions the condition axis into runs of equal project values.
//
// Conditions sit at integer positions, so boundaries fall halfway between
// them: a project change at position i closes the previous run at i-0.5, and
// the last run ends at lastIndex+0.5. Project values compare as cells, so a
// null project forms its own run.
func Segment(conds []Condition, meta *schema.Metadata) ([]model.Segment, error) {
	defer metrics.Timer(metrics.Segmentation)()

	if len(conds) == 0 {
		return nil, nil
	}

	var (
		segs    []model.Segment
		current table.Cell
	)
	for i, c := range conds {
		if err := meta.Check(c.Sample); err != nil {
			return nil, fmt.Errorf("segmenting condition %q: %w", c.Name, err)
		}
		project := meta.Project(c.Sample)

		switch {
		case i == 0:
			segs = append(segs, model.Segment{From: -0.5, Label: project.String()})
		case project != current:
			boundary := float64(i) - 0.5
			segs[len(segs)-1].To = boundary
			segs = append(segs, model.Segment{From: boundary, Label: project.String()})
		}
		current = project
	}
	segs[len(segs)-1].To = float64(len(conds)-1) + 0.5
	return segs, nil
}

// Separators returns the internal segment boundaries, where vertical
// separator lines are drawn.
func Separators(segs []model.Segment) []float64 {
	if len(segs) < 2 {
		return []float64{}
	}
	out := make([]float64, 0, len(segs)-1)
	for _, s := range segs[1:] {
		out = append(out, s.From)
	}
	return out
}
