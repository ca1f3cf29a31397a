package series

import (
	"fmt"

	"github.com/vanderheijden86/modviz/pkg/debug"
	"github.com/vanderheijden86/modviz/pkg/metrics"
	"github.com/vanderheijden86/modviz/pkg/model"
	"github.com/vanderheijden86/modviz/pkg/schema"
	"github.com/vanderheijden86/modviz/pkg/table"
)

// Series holds the parallel condition sequences of a bar chart.
type Series struct {
	Names  []string
	Bars   []table.Cell
	Points []model.ScatterPoint
}

// Build produces condition names, bar heights and one scatter point per
// replicate. Every sample reference is checked against meta; a reference past
// the end of the metadata table is malformed input.
func Build(mt *MeasurementTable, meta *schema.Metadata) (Series, error) {
	defer metrics.Timer(metrics.SeriesBuild)()

	s := Series{
		Names: make([]string, 0, len(mt.Conditions)),
		Bars:  make([]table.Cell, 0, len(mt.Conditions)),
	}
	for _, c := range mt.Conditions {
		if err := meta.Check(c.Sample); err != nil {
			return Series{}, fmt.Errorf("condition %q (row %d): %w", c.Name, c.Row, err)
		}
		s.Names = append(s.Names, c.Name)
		s.Bars = append(s.Bars, c.Mean)

		for _, r := range c.Replicates {
			if err := meta.Check(r.Sample); err != nil {
				return Series{}, fmt.Errorf("condition %q (row %d): %w", c.Name, c.Row, err)
			}
			s.Points = append(s.Points, model.ScatterPoint{X: c.Position, Y: r.Value, Sample: r.Sample})
		}
	}

	debug.Log("series.Build: %d conditions, %d points", len(s.Names), len(s.Points))
	return s, nil
}
