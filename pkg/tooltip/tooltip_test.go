package tooltip

import (
	"testing"

	"github.com/vanderheijden86/modviz/pkg/model"
	"github.com/vanderheijden86/modviz/pkg/schema"
	"github.com/vanderheijden86/modviz/pkg/series"
	"github.com/vanderheijden86/modviz/pkg/table"
	"github.com/vanderheijden86/modviz/pkg/testutil"
)

const metaCSV = `sample,project,media,supplement,phase,time_min
ctrl_1,P1,M9,,exp,30
ctrl_2,P1,LB,ace,stat,
`

func metadata(t *testing.T) *schema.Metadata {
	t.Helper()
	md, err := schema.NewMetadata(testutil.MustParse(t, metaCSV))
	if err != nil {
		t.Fatalf("NewMetadata: %v", err)
	}
	return md
}

func TestResolve_Bar(t *testing.T) {
	meta := metadata(t)
	cols := schema.SelectColumns(meta.Header())
	c := &series.Condition{
		Name:   "glucose",
		Mean:   table.Num(1.234),
		Std:    table.Num(0.456),
		Sample: 0,
		Replicates: []series.Replicate{
			{Sample: 0, Value: table.Num(1)},
			{Sample: 1, Value: table.Num(1.5)},
		},
	}

	tip := Resolve(ForCondition(c, "A"), meta, cols, 4)
	if tip.Header != "glucose (2)" {
		t.Errorf("header = %q", tip.Header)
	}
	if tip.Value != "A: 1.23 ± 0.46" {
		t.Errorf("value = %q", tip.Value)
	}
	// supplement is null for ctrl_1 and must be omitted.
	want := []model.TooltipLine{
		{Label: "media", Value: "M9"},
		{Label: "phase", Value: "exp", Emphasized: true},
		{Label: "time_min", Value: "30"},
	}
	if len(tip.Lines) != len(want) {
		t.Fatalf("lines = %+v", tip.Lines)
	}
	for i := range want {
		if tip.Lines[i] != want[i] {
			t.Errorf("line %d = %+v, want %+v", i, tip.Lines[i], want[i])
		}
	}
}

func TestResolve_SingleReplicateHasNoSpread(t *testing.T) {
	c := &series.Condition{
		Name:       "ace",
		Mean:       table.Num(-0.5),
		Std:        table.Num(0.1),
		Replicates: []series.Replicate{{Sample: 0, Value: table.Num(-0.5)}},
	}
	tip := Resolve(ForCondition(c, "X"), metadata(t), nil, schema.NotFound)
	if tip.Value != "X: -0.50" {
		t.Errorf("value = %q", tip.Value)
	}
	if len(tip.Lines) != 0 {
		t.Errorf("no columns selected, got %+v", tip.Lines)
	}
}

func TestResolve_Point(t *testing.T) {
	meta := metadata(t)
	p := model.ScatterPoint{X: 0, Y: table.Num(2.5), Sample: 1}
	tip := Resolve(ForPoint(p, "A"), meta, []int{2, 3, schema.NotFound}, schema.NotFound)

	if tip.Header != "ctrl_2" || tip.Value != "A: 2.50" {
		t.Errorf("tooltip = %+v", tip)
	}
	if len(tip.Lines) != 2 || tip.Lines[1].Value != "ace" {
		t.Errorf("lines = %+v", tip.Lines)
	}
	for _, l := range tip.Lines {
		if l.Emphasized {
			t.Errorf("no color column, but %q emphasized", l.Label)
		}
	}
}

func TestResolve_NonNumericShowsPlaceholder(t *testing.T) {
	p := model.ScatterPoint{Y: table.Str("NA"), Sample: 0}
	tip := Resolve(ForPoint(p, "A"), metadata(t), nil, schema.NotFound)
	if tip.Value != "A: "+table.Placeholder {
		t.Errorf("value = %q", tip.Value)
	}
}

func TestResolve_Pure(t *testing.T) {
	meta := metadata(t)
	ctx := ForPoint(model.ScatterPoint{Y: table.Num(1), Sample: 0}, "A")
	a := Resolve(ctx, meta, []int{2, 4}, 2)
	b := Resolve(ctx, meta, []int{2, 4}, 2)
	if a.HTML() != b.HTML() {
		t.Errorf("repeated resolve differs:\n%s\n%s", a.HTML(), b.HTML())
	}
	c := Resolve(ctx, meta, []int{2, 4}, 4)
	if a.HTML() == c.HTML() {
		t.Error("changing the color column should change emphasis")
	}
}
