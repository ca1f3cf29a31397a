package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/modviz/pkg/chart"
	"github.com/vanderheijden86/modviz/pkg/model"
	"github.com/vanderheijden86/modviz/pkg/palette"
	"github.com/vanderheijden86/modviz/pkg/schema"
	"github.com/vanderheijden86/modviz/pkg/series"
	"github.com/vanderheijden86/modviz/pkg/table"
	"github.com/vanderheijden86/modviz/pkg/testutil"
)

const metaCSV = `sample,project,DOI,media,phase
s0,A,doi.org/1,M9,exp
s1,A,,LB,stat
s2,B,,M9,exp
`

const dataCSV = `id,name,mean,std,count
0,glc,1.5,0.5,2,0,1.0,1,2.0
1,ace,-0.4,,1,1,-0.4
2,fum,2.2,,1,2,2.2
`

func mustSource(t *testing.T, name, raw string) *table.Source {
	t.Helper()
	src, err := table.NewSource(name, []byte(raw), table.ParseOptions{})
	if err != nil {
		t.Fatalf("NewSource(%s): %v", name, err)
	}
	return src
}

func buildBar(t *testing.T, colorBy string) *model.BarChart {
	t.Helper()
	meta, err := schema.NewMetadata(testutil.MustParse(t, metaCSV))
	if err != nil {
		t.Fatalf("NewMetadata: %v", err)
	}
	mt, err := series.NewMeasurementTable(testutil.MustParse(t, dataCSV))
	if err != nil {
		t.Fatalf("NewMeasurementTable: %v", err)
	}
	st := chart.NewState(meta.Header(), schema.NewSelector(), palette.NewMapper(nil, 1))
	if colorBy != "" {
		st.SetColorColumn(schema.IndexOf(meta.Header(), colorBy))
	}
	bar, err := chart.BuildActivityBar(mt, meta, st, chart.ActivityOptions())
	if err != nil {
		t.Fatalf("BuildActivityBar: %v", err)
	}
	return bar.Model
}

func TestWriteJSON(t *testing.T) {
	bar := buildBar(t, "")
	var buf bytes.Buffer
	if err := WriteJSON(&buf, NewDocument(bar, "metadata.csv")); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"kind": "activity_bar"`, `"sources": [`, `"categories": [`, `<span style="font-size: 10px">`} {
		if !strings.Contains(out, want) {
			t.Errorf("JSON missing %q", want)
		}
	}
}

func TestSaveJSON_CreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "chart.json")
	if err := SaveJSON(path, NewDocument(buildBar(t, ""))); err != nil {
		t.Fatalf("SaveJSON: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected output file: %v", err)
	}
}

func TestWriteSVG(t *testing.T) {
	tests := []struct {
		name  string
		chart model.Chart
	}{
		{"bar", buildBar(t, "media")},
		{"histogram", &model.Histogram{
			Kind: model.KindHistogram, Centers: []float64{-0.1, 0, 0.1}, BinWidth: 0.1,
			Thresholds: [2]float64{-0.05, 0.05},
			Series:     []model.HistogramSeries{{Label: "Unregulated", Color: "#aaaaaa", Counts: []int{1, 0, 2}}},
		}},
		{"gene scatter", &model.GeneScatter{
			Kind: model.KindGeneScatter, XLabel: "Gene Start", XMin: 100, Threshold: 0.05,
			Points: []model.GenePoint{{Locus: "b0001", X: 190, Y: 0.08}, {Locus: "b0002", X: 337, Y: -0.01, Color: "#ff0000"}},
		}},
		{"regulon", &model.RegulonScatter{
			Kind: model.KindRegulonScatter, XTitle: "ArcA Expression", R2: "0.8123", XMin: 0, XMax: 10,
			Points: []model.NamedPoint{{Name: "s0", X: 1, Y: 2}},
			Line:   [][2]float64{{0, 1}, {10, 3}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := WriteSVG(&buf, tt.chart, SnapshotOptions{Title: "test"}); err != nil {
				t.Fatalf("WriteSVG: %v", err)
			}
			out := buf.String()
			if !strings.Contains(out, "<svg") || !strings.Contains(out, "</svg>") {
				t.Fatalf("not an SVG document:\n%s", out)
			}
			if !strings.Contains(out, "test") {
				t.Error("title missing")
			}
		})
	}
}

func TestWriteSVG_LongAxisHidesLabels(t *testing.T) {
	bar := buildBar(t, "")
	bar.ZoomThreshold = 2

	var buf bytes.Buffer
	if err := WriteSVG(&buf, bar, SnapshotOptions{}); err != nil {
		t.Fatalf("WriteSVG: %v", err)
	}
	if strings.Contains(buf.String(), ">glc<") {
		t.Error("condition labels should be hidden above the zoom threshold")
	}
	if !strings.Contains(buf.String(), ">A<") {
		t.Error("project band label missing")
	}
}

func TestSaveSnapshot_PNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bar.png")
	if err := SaveSnapshot(buildBar(t, "phase"), SnapshotOptions{Path: path, Width: 600, Height: 300}); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("output is not a PNG")
	}
}

func TestSaveSnapshot_Errors(t *testing.T) {
	dir := t.TempDir()

	err := SaveSnapshot(&model.Venn{Kind: model.KindVenn}, SnapshotOptions{Path: filepath.Join(dir, "v.svg")})
	if !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("venn: expected ErrNoSnapshot, got %v", err)
	}

	err = SaveSnapshot(buildBar(t, ""), SnapshotOptions{Path: filepath.Join(dir, "x"), Format: "gif"})
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("gif: expected ErrUnknownFormat, got %v", err)
	}

	if err := SaveSnapshot(buildBar(t, ""), SnapshotOptions{}); err == nil {
		t.Error("missing path should fail")
	}
}

func TestSnapshotOptions_Resolve(t *testing.T) {
	tests := []struct {
		in         SnapshotOptions
		wantFormat string
		wantPath   string
	}{
		{SnapshotOptions{Path: "a.png"}, "png", "a.png"},
		{SnapshotOptions{Path: "a.SVG"}, "svg", "a.SVG"},
		{SnapshotOptions{Path: "a"}, "svg", "a.svg"},
		{SnapshotOptions{Path: "a.out", Format: ".PNG"}, "png", "a.out"},
	}
	for _, tt := range tests {
		got, err := tt.in.resolve()
		if err != nil {
			t.Fatalf("resolve(%+v): %v", tt.in, err)
		}
		if got.Format != tt.wantFormat || got.Path != tt.wantPath {
			t.Errorf("resolve(%+v) = %s %s, want %s %s", tt.in, got.Format, got.Path, tt.wantFormat, tt.wantPath)
		}
		if got.Width != 1200 || got.Height != 480 {
			t.Errorf("default size = %dx%d", got.Width, got.Height)
		}
	}
}

func TestExtent(t *testing.T) {
	lo, hi := extent(nil)
	if lo != 0 || hi != 1 {
		t.Errorf("empty extent = %v, %v", lo, hi)
	}
	lo, hi = extent([]float64{2, 2})
	if lo != 1 || hi != 3 {
		t.Errorf("flat extent = %v, %v", lo, hi)
	}
	lo, hi = extent([]float64{0, 10})
	if lo != -0.5 || hi != 10.5 {
		t.Errorf("padded extent = %v, %v", lo, hi)
	}
}

func TestFitLabel(t *testing.T) {
	if got := fitLabel("glucose", 100); got != "glucose" {
		t.Errorf("fitLabel wide = %q", got)
	}
	if got := fitLabel("glucose", 35); got != "gluc…" {
		t.Errorf("fitLabel narrow = %q", got)
	}
	if got := fitLabel("glucose", 3); got != "" {
		t.Errorf("fitLabel tiny = %q", got)
	}
}

func TestMarkdown_Bar(t *testing.T) {
	md, err := Markdown(NewDocument(buildBar(t, "media"), "metadata.csv", "activity_data.csv"), "Fur activity")
	if err != nil {
		t.Fatalf("Markdown: %v", err)
	}
	for _, want := range []string{
		"# Fur activity",
		"`metadata.csv`, `activity_data.csv`",
		"| Conditions | 3 |",
		"| Replicate points | 4 |",
		"| A | 2 |",
		"| B | 1 |",
		"| M9 | `",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestMarkdown_Variants(t *testing.T) {
	tests := []struct {
		name  string
		chart model.Chart
		want  string
	}{
		{"histogram", &model.Histogram{Kind: model.KindHistogram, Series: []model.HistogramSeries{{Label: "Regulated by Fur", Counts: []int{1, 2, 3}}}}, "| Regulated by Fur | 6 |"},
		{"gene scatter", &model.GeneScatter{Kind: model.KindGeneScatter, Threshold: 0.05, Points: []model.GenePoint{{Category: "No COG category", Y: 0.1}, {Category: "Energy", Y: 0}}}, "Genes: 2 (1 beyond threshold 0.05)"},
		{"regulon", &model.RegulonScatter{Kind: model.KindRegulonScatter, Regulator: "fur", R2: "0.5000"}, "| R² | 0.5000 |"},
		{"venn", &model.Venn{Kind: model.KindVenn, Regions: []model.VennRegion{{Name: "Regulon", Value: 4}}}, "| Regulon | 4 |"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md, err := Markdown(NewDocument(tt.chart), "")
			if err != nil {
				t.Fatalf("Markdown: %v", err)
			}
			if !strings.Contains(md, tt.want) {
				t.Errorf("markdown missing %q:\n%s", tt.want, md)
			}
		})
	}
}

func TestMarkdownCell(t *testing.T) {
	if got := markdownCell(" a|b\nc "); got != `a\|b c` {
		t.Errorf("markdownCell = %q", got)
	}
	if got := markdownCell(""); got != "-" {
		t.Errorf("empty cell = %q", got)
	}
}

func TestDownload(t *testing.T) {
	meta := mustSource(t, "samples.tsv", metaCSV)
	data := mustSource(t, "fur.csv", dataCSV)

	files := Download(meta, data)
	if len(files) != 2 || files[0].Name != MetadataFile || files[1].Name != ActivityFile {
		t.Fatalf("Download names = %+v", files)
	}
	if string(files[1].Content) != dataCSV {
		t.Error("download content should be the raw source text")
	}
	if got := Download(nil, data); len(got) != 1 || got[0].Name != ActivityFile {
		t.Errorf("nil metadata should be skipped, got %+v", got)
	}

	dir := t.TempDir()
	paths, err := WriteDownloads(dir, files)
	if err != nil {
		t.Fatalf("WriteDownloads: %v", err)
	}
	got, err := os.ReadFile(paths[0])
	if err != nil || string(got) != metaCSV {
		t.Errorf("metadata download = %q, %v", got, err)
	}
}

func TestArchive(t *testing.T) {
	a, err := OpenArchive(filepath.Join(t.TempDir(), ArchiveFile))
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	defer a.Close()

	src := mustSource(t, "activity_data.csv", dataCSV)
	id1, err := a.AddSource(src)
	if err != nil {
		t.Fatalf("AddSource: %v", err)
	}
	id2, err := a.AddSource(src)
	if err != nil || id1 != id2 {
		t.Errorf("identical source should reuse id %d, got %d (%v)", id1, id2, err)
	}
	id3, err := a.AddSource(mustSource(t, "activity_data.csv", dataCSV+"3,x,1,,1,0,1\n"))
	if err != nil || id3 == id1 {
		t.Errorf("changed content should get a new row, got %d (%v)", id3, err)
	}

	if _, err := a.SaveChart(NewDocument(buildBar(t, "")), "fur"); err != nil {
		t.Fatalf("SaveChart: %v", err)
	}
	n, err := a.ChartCount()
	if err != nil || n != 1 {
		t.Errorf("ChartCount = %d, %v", n, err)
	}

	var kind, stored string
	if err := a.db.QueryRow(`SELECT kind, model FROM charts`).Scan(&kind, &stored); err != nil {
		t.Fatal(err)
	}
	if kind != string(model.KindActivityBar) || !strings.Contains(stored, `"categories":["glc","ace","fum"]`) {
		t.Errorf("stored chart = %s %s", kind, stored)
	}

	var version string
	if err := a.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&version); err != nil || version != fmt.Sprint(SchemaVersion) {
		t.Errorf("schema_version = %q, %v", version, err)
	}
}

func TestArchive_ReAddMarksNewest(t *testing.T) {
	a, err := OpenArchive(filepath.Join(t.TempDir(), ArchiveFile))
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	first := mustSource(t, "metadata.csv", "sample,project\nA,p\n")
	second := mustSource(t, "metadata.csv", "sample,project\nB,p\n")
	var ids []int64
	for _, src := range []*table.Source{first, second, first} {
		id, err := a.AddSource(src)
		if err != nil {
			t.Fatalf("AddSource: %v", err)
		}
		ids = append(ids, id)
	}
	if ids[0] != ids[2] {
		t.Errorf("re-adding content should reuse id %d, got %d", ids[0], ids[2])
	}

	var newest int64
	if err := a.db.QueryRow(`SELECT id FROM sources WHERE name = 'metadata.csv' ORDER BY seen DESC LIMIT 1`).Scan(&newest); err != nil {
		t.Fatal(err)
	}
	if newest != ids[0] {
		t.Errorf("newest source id = %d, want %d", newest, ids[0])
	}
}

func TestArchive_MigratesSeenColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), ArchiveFile)
	a, err := OpenArchive(path)
	if err != nil {
		t.Fatal(err)
	}
	// Rebuild sources without the seen column, as older archives stored it.
	for _, stmt := range []string{
		`DROP TABLE sources`,
		`CREATE TABLE sources (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, sha256 TEXT NOT NULL,
			row_count INTEGER NOT NULL, content TEXT NOT NULL, created_at TEXT NOT NULL, UNIQUE(name, sha256))`,
		`INSERT INTO sources (name, sha256, row_count, content, created_at) VALUES ('metadata.csv', 'x', 1, 'a', '')`,
	} {
		if _, err := a.db.Exec(stmt); err != nil {
			t.Fatalf("%s: %v", stmt, err)
		}
	}
	a.Close()

	a, err = OpenArchive(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer a.Close()
	var seen int64
	if err := a.db.QueryRow(`SELECT seen FROM sources WHERE sha256 = 'x'`).Scan(&seen); err != nil || seen != 1 {
		t.Errorf("migrated seen = %d, %v", seen, err)
	}
	if _, err := a.AddSource(mustSource(t, "metadata.csv", metaCSV)); err != nil {
		t.Errorf("AddSource after migration: %v", err)
	}
}

func TestFormatForPath(t *testing.T) {
	tests := map[string]string{
		"a.json": FormatJSON, "a.svg": FormatSVG, "a.PNG": FormatPNG,
		"a.md": FormatMarkdown, "a": FormatJSON,
	}
	for path, want := range tests {
		if got := FormatForPath(path); got != want {
			t.Errorf("FormatForPath(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestSave_UnknownFormat(t *testing.T) {
	err := Save(NewDocument(buildBar(t, "")), filepath.Join(t.TempDir(), "a.txt"), "txt", SnapshotOptions{})
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestRenderAll(t *testing.T) {
	dir := t.TempDir()
	archive, err := OpenArchive(filepath.Join(dir, ArchiveFile))
	if err != nil {
		t.Fatal(err)
	}
	defer archive.Close()

	var jobs []Job
	var want []int
	for i := 0; i < 6; i++ {
		cfg := testutil.DefaultConfig()
		cfg.Seed = int64(i + 1)
		cfg.Conditions = 4 + i
		b := testutil.New(cfg).Bundle()
		want = append(want, cfg.Conditions)

		format := []string{FormatJSON, FormatSVG, FormatMarkdown}[i%3]
		jobs = append(jobs, Job{
			Name:        fmt.Sprintf("bundle-%d", i),
			Meta:        mustSource(t, "metadata.csv", b.MetadataCSV),
			Data:        mustSource(t, "activity_data.csv", b.MeasurementCSV),
			Options:     chart.ActivityOptions(),
			Selector:    schema.NewSelector(),
			Seed:        uint64(i + 1),
			ColorColumn: "media",
			Path:        filepath.Join(dir, fmt.Sprintf("bundle-%d.%s", i, format)),
		})
	}
	// A job referencing a sample past the metadata fails alone.
	jobs = append(jobs, Job{
		Name: "broken",
		Meta: mustSource(t, "metadata.csv", metaCSV),
		Data: mustSource(t, "activity_data.csv", "id,name,mean,std,count\n0,x,1,,1,9,1\n"),
	})

	results, err := RenderAll(context.Background(), jobs, BatchOptions{Limit: 3, Archive: archive})
	if err != nil {
		t.Fatalf("RenderAll: %v", err)
	}
	if len(results) != len(jobs) {
		t.Fatalf("got %d results", len(results))
	}
	for i, r := range results[:len(want)] {
		if r.Err != nil {
			t.Errorf("%s: %v", r.Name, r.Err)
			continue
		}
		if len(r.Chart.Categories) != want[i] {
			t.Errorf("%s: %d categories, want %d", r.Name, len(r.Chart.Categories), want[i])
		}
		if len(r.Chart.BarColors) != want[i] {
			t.Errorf("%s: expected per-bar colors", r.Name)
		}
		if _, err := os.Stat(r.Path); err != nil {
			t.Errorf("%s: output missing: %v", r.Name, err)
		}
	}
	last := results[len(results)-1]
	if !errors.Is(last.Err, table.ErrMalformed) {
		t.Errorf("broken job: expected ErrMalformed, got %v", last.Err)
	}

	n, err := archive.ChartCount()
	if err != nil || n != len(want) {
		t.Errorf("archived %d charts, want %d (%v)", n, len(want), err)
	}
}

func TestRenderAll_SharedSources(t *testing.T) {
	dir := t.TempDir()
	archive, err := OpenArchive(filepath.Join(dir, ArchiveFile))
	if err != nil {
		t.Fatal(err)
	}
	defer archive.Close()

	meta := mustSource(t, "metadata.csv", metaCSV)
	data := mustSource(t, "activity_data.csv", dataCSV)
	jobs := make([]Job, 16)
	for i := range jobs {
		jobs[i] = Job{
			Name:     fmt.Sprintf("shared-%d", i),
			Meta:     meta,
			Data:     data,
			Options:  chart.ActivityOptions(),
			Selector: schema.NewSelector(),
			Seed:     1,
		}
	}

	for round := 0; round < 5; round++ {
		results, err := RenderAll(context.Background(), jobs, BatchOptions{Limit: 8, Archive: archive})
		if err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		for _, r := range results {
			if r.Err != nil {
				t.Errorf("round %d %s: %v", round, r.Name, r.Err)
			}
		}
	}

	var sources int
	if err := archive.db.QueryRow(`SELECT COUNT(*) FROM sources`).Scan(&sources); err != nil {
		t.Fatal(err)
	}
	if sources != 2 {
		t.Errorf("shared tables stored %d times, want 2 rows", sources)
	}
	if n, err := archive.ChartCount(); err != nil || n != 5*len(jobs) {
		t.Errorf("ChartCount = %d, %v", n, err)
	}
}

func TestRenderAll_UnknownColorColumn(t *testing.T) {
	jobs := []Job{{
		Name:        "typo",
		Meta:        mustSource(t, "metadata.csv", metaCSV),
		Data:        mustSource(t, "activity_data.csv", dataCSV),
		Options:     chart.ActivityOptions(),
		Selector:    schema.NewSelector(),
		ColorColumn: "medium",
	}}
	results, err := RenderAll(context.Background(), jobs, BatchOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Err == nil || !strings.Contains(results[0].Err.Error(), `"medium"`) {
		t.Errorf("expected unknown color column error, got %v", results[0].Err)
	}
}

func TestRenderAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := []Job{{Name: "a", Meta: mustSource(t, "m", metaCSV), Data: mustSource(t, "d", dataCSV)}}
	results, err := RenderAll(ctx, jobs, BatchOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if !errors.Is(results[0].Err, context.Canceled) {
		t.Errorf("job error = %v", results[0].Err)
	}
}
