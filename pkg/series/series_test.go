package series

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/vanderheijden86/modviz/pkg/model"
	"github.com/vanderheijden86/modviz/pkg/schema"
	"github.com/vanderheijden86/modviz/pkg/table"
	"github.com/vanderheijden86/modviz/pkg/testutil"
)

const threeSampleMeta = `sample,project,media
s0,A,LB
s1,A,M9
s2,B,LB
`

func load(t *testing.T, metaCSV, dataCSV string) (*MeasurementTable, *schema.Metadata) {
	t.Helper()
	meta, err := schema.NewMetadata(testutil.MustParse(t, metaCSV))
	if err != nil {
		t.Fatalf("NewMetadata: %v", err)
	}
	mt, err := NewMeasurementTable(testutil.MustParse(t, dataCSV))
	if err != nil {
		t.Fatalf("NewMeasurementTable: %v", err)
	}
	return mt, meta
}

func TestBuild_ThreeConditions(t *testing.T) {
	data := `id,name,mean,std,count
0,glc,1.5,0.5,2,0,1.0,1,2.0
1,ace,-0.4,,1,1,-0.4
2,fum,2.2,,1,2,2.2
`
	mt, meta := load(t, threeSampleMeta, data)
	s, err := Build(mt, meta)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if strings.Join(s.Names, ",") != "glc,ace,fum" {
		t.Errorf("names = %v", s.Names)
	}
	if len(s.Bars) != 3 || s.Bars[0] != table.Num(1.5) || s.Bars[1] != table.Num(-0.4) {
		t.Errorf("bars = %v", s.Bars)
	}
	want := []model.ScatterPoint{
		{X: 0, Y: table.Num(1), Sample: 0},
		{X: 0, Y: table.Num(2), Sample: 1},
		{X: 1, Y: table.Num(-0.4), Sample: 1},
		{X: 2, Y: table.Num(2.2), Sample: 2},
	}
	if len(s.Points) != len(want) {
		t.Fatalf("points = %v", s.Points)
	}
	for i := range want {
		if s.Points[i] != want[i] {
			t.Errorf("point %d = %+v, want %+v", i, s.Points[i], want[i])
		}
	}
}

func TestBuild_EmptyTable(t *testing.T) {
	mt, meta := load(t, threeSampleMeta, "id,name,mean,std,count\n")
	s, err := Build(mt, meta)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(s.Names) != 0 || len(s.Bars) != 0 || len(s.Points) != 0 {
		t.Errorf("expected empty series, got %+v", s)
	}
	segs, err := Segment(mt.Conditions, meta)
	if err != nil || len(segs) != 0 {
		t.Errorf("Segment on empty = %v, %v", segs, err)
	}
}

func TestNewMeasurementTable_TrailingRow(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []string
	}{
		{"sentinel skipped", "id,name,mean,std,count\n0,glc,1,,1,0,1\n1,ace,2,,1,1,2\n", []string{"glc", "ace"}},
		{"no terminating newline keeps last", "id,name,mean,std,count\n0,glc,1,,1,0,1\n1,ace,2,,1,1,2", []string{"glc", "ace"}},
		{"header only", "id,name,mean,std,count\n", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt, err := NewMeasurementTable(testutil.MustParse(t, tt.data))
			if err != nil {
				t.Fatalf("NewMeasurementTable: %v", err)
			}
			var got []string
			for _, c := range mt.Conditions {
				got = append(got, c.Name)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("conditions = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuild_ZeroReplicatesHasNoPoints(t *testing.T) {
	mt, meta := load(t, threeSampleMeta, "id,name,mean,std,count\n0,glc,1.0,,0,0\n")
	s, err := Build(mt, meta)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(s.Bars) != 1 || len(s.Points) != 0 {
		t.Errorf("bars=%d points=%d", len(s.Bars), len(s.Points))
	}
}

func TestBuild_NonNumericValuesKept(t *testing.T) {
	mt, meta := load(t, threeSampleMeta, "id,name,mean,std,count\n0,glc,NA,,1,0,NA\n")
	s, err := Build(mt, meta)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if s.Bars[0] != table.Str("NA") || s.Points[0].Y != table.Str("NA") {
		t.Errorf("expected raw text values, got %v / %v", s.Bars[0], s.Points[0].Y)
	}
}

func TestMalformedTables(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"count_not_integer", "id,name,mean,std,count\n0,glc,1,,x,0,1\n"},
		{"count_negative", "id,name,mean,std,count\n0,glc,1,,-1,0\n"},
		{"missing_pairs", "id,name,mean,std,count\n0,glc,1,,3,0,1.0,1\n"},
		{"sample_not_integer", "id,name,mean,std,count\n0,glc,1,,1,zero,1.0\n"},
		{"representative_missing", "id,name,mean,std,count\n0,glc,1,,0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewMeasurementTable(testutil.MustParse(t, tt.data))
			testutil.AssertMalformed(t, err)
		})
	}
}

func TestBuild_SampleOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"representative", "id,name,mean,std,count\n0,glc,1,,0,9\n"},
		{"replicate", "id,name,mean,std,count\n0,glc,1,,2,0,1.0,3,2.0\n"},
		{"negative", "id,name,mean,std,count\n0,glc,1,,1,-1,1.0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt, meta := load(t, threeSampleMeta, tt.data)
			_, err := Build(mt, meta)
			testutil.AssertMalformed(t, err)
		})
	}
}

func TestSegment_TwoProjects(t *testing.T) {
	// Conditions point at samples with projects [A, A, B].
	data := `id,name,mean,std,count
0,c0,1,,1,0,1
1,c1,1,,1,1,1
2,c2,1,,1,2,1
`
	mt, meta := load(t, threeSampleMeta, data)
	segs, err := Segment(mt.Conditions, meta)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	want := []model.Segment{
		{From: -0.5, To: 1.5, Label: "A"},
		{From: 1.5, To: 2.5, Label: "B"},
	}
	if len(segs) != len(want) {
		t.Fatalf("segments = %+v", segs)
	}
	for i := range want {
		if segs[i] != want[i] {
			t.Errorf("segment %d = %+v, want %+v", i, segs[i], want[i])
		}
	}
	if seps := Separators(segs); len(seps) != 1 || seps[0] != 1.5 {
		t.Errorf("separators = %v, want [1.5]", seps)
	}
}

func TestSegment_RepeatedProjectStartsNewRun(t *testing.T) {
	meta := "sample,project\ns0,A\ns1,B\ns2,A\n"
	data := "id,name,mean,std,count\n0,a,1,,0,0\n1,b,1,,0,1\n2,c,1,,0,2\n"
	mt, md := load(t, meta, data)
	segs, err := Segment(mt.Conditions, md)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(segs) != 3 {
		t.Fatalf("expected 3 runs for A,B,A; got %+v", segs)
	}
	testutil.AssertSegmentsCover(t, segs, 3)
}

func TestSegment_NoProjectColumn(t *testing.T) {
	meta := "sample,media\ns0,LB\ns1,M9\n"
	data := "id,name,mean,std,count\n0,a,1,,0,0\n1,b,1,,0,1\n"
	mt, md := load(t, meta, data)
	segs, err := Segment(mt.Conditions, md)
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if len(segs) != 1 || segs[0].Label != "" {
		t.Errorf("missing project column should give one unlabeled run, got %+v", segs)
	}
}

func TestSeparators_SingleSegment(t *testing.T) {
	seps := Separators([]model.Segment{{From: -0.5, To: 3.5, Label: "A"}})
	if seps == nil || len(seps) != 0 {
		t.Errorf("expected empty non-nil separators, got %#v", seps)
	}
}

func TestCondition_Summary(t *testing.T) {
	c := Condition{Replicates: []Replicate{
		{Value: table.Num(1)},
		{Value: table.Num(3)},
		{Value: table.Str("NA")},
	}}
	mean, std, ok := c.Summary()
	if !ok {
		t.Fatal("expected summary over two numeric values")
	}
	if mean != 2 || math.Abs(std-math.Sqrt2) > 1e-12 {
		t.Errorf("mean=%v std=%v", mean, std)
	}
	if got := c.Spread(); got != table.Num(std) {
		t.Errorf("Spread without std cell = %v", got)
	}

	c.Std = table.Num(0.25)
	if c.Spread() != table.Num(0.25) {
		t.Error("Spread should prefer the table's value")
	}

	single := Condition{Replicates: []Replicate{{Value: table.Num(1)}}}
	if _, _, ok := single.Summary(); ok {
		t.Error("one value has no spread")
	}
}

func TestGeneratedBundles(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		t.Run(fmt.Sprintf("seed_%d", seed), func(t *testing.T) {
			b := testutil.New(testutil.BundleConfig{Seed: seed, Conditions: 15}).Bundle()
			mt, meta := load(t, b.MetadataCSV, b.MeasurementCSV)

			s, err := Build(mt, meta)
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			testutil.AssertPointCounts(t, s.Points, b.Replicates)

			segs, err := Segment(mt.Conditions, meta)
			if err != nil {
				t.Fatalf("Segment: %v", err)
			}
			testutil.AssertSegmentsCover(t, segs, len(b.Replicates))
			if len(segs) != b.Runs {
				t.Errorf("segments = %d, want %d runs", len(segs), b.Runs)
			}
			if len(Separators(segs)) != len(segs)-1 {
				t.Errorf("separators = %d, want %d", len(Separators(segs)), len(segs)-1)
			}
		})
	}
}

func TestSegment_CoversAxisProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		projects := rapid.SliceOfN(rapid.SampledFrom([]string{"A", "B", "C"}), 1, 40).Draw(rt, "projects")

		var meta, data strings.Builder
		meta.WriteString("sample,project\n")
		data.WriteString("id,name,mean,std,count\n")
		runs := 0
		for i, p := range projects {
			fmt.Fprintf(&meta, "s%d,%s\n", i, p)
			fmt.Fprintf(&data, "%d,c%d,0,,0,%d\n", i, i, i)
			if i == 0 || projects[i-1] != p {
				runs++
			}
		}

		md, err := schema.NewMetadata(mustParse(rt, meta.String()))
		if err != nil {
			rt.Fatalf("NewMetadata: %v", err)
		}
		mt, err := NewMeasurementTable(mustParse(rt, data.String()))
		if err != nil {
			rt.Fatalf("NewMeasurementTable: %v", err)
		}
		segs, err := Segment(mt.Conditions, md)
		if err != nil {
			rt.Fatalf("Segment: %v", err)
		}

		if len(segs) != runs {
			rt.Fatalf("segments = %d, want %d", len(segs), runs)
		}
		if segs[0].From != -0.5 || segs[len(segs)-1].To != float64(len(projects))-0.5 {
			rt.Fatalf("segments do not span the axis: %+v", segs)
		}
		for i := 1; i < len(segs); i++ {
			if segs[i].From != segs[i-1].To {
				rt.Fatalf("gap at segment %d: %+v", i, segs)
			}
			if segs[i].Label == segs[i-1].Label {
				rt.Fatalf("adjacent segments share label: %+v", segs)
			}
		}
	})
}

func mustParse(rt *rapid.T, csv string) *table.Matrix {
	m, err := table.ParseBytes([]byte(csv), table.ParseOptions{})
	if err != nil {
		rt.Fatalf("parse: %v", err)
	}
	return m
}
