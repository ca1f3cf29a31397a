package main

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/vanderheijden86/modviz/pkg/chart"
	"github.com/vanderheijden86/modviz/pkg/config"
	"github.com/vanderheijden86/modviz/pkg/model"
	"github.com/vanderheijden86/modviz/pkg/schema"
)

const metaCSV = `sample,project,DOI,media,supplement,phase,time_min
s0,A,doi.org/1,M9,,exp,30
s1,A,,LB,ace,stat,60
s2,B,,M9,glc,exp,30
`

const dataCSV = `id,name,mean,std,count
0,glc,1.5,0.5,2,0,1.0,1,2.0
1,ace,-0.4,,1,1,-0.4
2,fum,2.2,,1,2,2.2
`

// bundle writes a bundle directory and isolates the user config.
func bundle(t *testing.T) string {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("MODVIZ_DATA_DIR", "")
	dir := t.TempDir()
	for name, content := range map[string]string{"metadata.csv": metaCSV, "activity_data.csv": dataCSV} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runCLI(t, "-version")
	if code != 0 || !strings.HasPrefix(out, "modviz ") {
		t.Errorf("version: code=%d out=%q", code, out)
	}
}

func TestRun_ActivityJSON(t *testing.T) {
	dir := bundle(t)
	code, out, errOut := runCLI(t, "-dir", dir, "-color", "media")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	for _, want := range []string{`"kind": "activity_bar"`, `"bar_colors": [`, `"metadata.csv"`} {
		if !strings.Contains(out, want) {
			t.Errorf("stdout missing %q", want)
		}
	}
}

func TestRun_ExpressionSVG(t *testing.T) {
	dir := bundle(t)
	out := filepath.Join(t.TempDir(), "expr.svg")
	code, _, errOut := runCLI(t, "-dir", dir, "-chart", "expression", "-out", out, "-title", "fur")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Log TPM Gene Expression") {
		t.Error("expression axis title missing from snapshot")
	}
}

func TestRun_ArchiveDownloadTooltip(t *testing.T) {
	dir := bundle(t)
	work := t.TempDir()
	code, _, errOut := runCLI(t,
		"-dir", dir,
		"-out", filepath.Join(work, "chart.md"),
		"-archive", filepath.Join(work, "modviz.sqlite3"),
		"-download", filepath.Join(work, "dl"),
		"-color", "phase", "-legend",
		"-tooltip", "bars:0",
	)
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	for _, name := range []string{"chart.md", "modviz.sqlite3", "dl/metadata.csv", "dl/activity_data.csv"} {
		if _, err := os.Stat(filepath.Join(work, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}
	for _, want := range []string{"glc (2)", "A: 1.50 ± 0.50", "phase"} {
		if !strings.Contains(errOut, want) {
			t.Errorf("stderr missing %q:\n%s", want, errOut)
		}
	}
}

func TestRun_ExplicitTables(t *testing.T) {
	dir := bundle(t)
	code, out, errOut := runCLI(t,
		"-meta", filepath.Join(dir, "metadata.csv"),
		"-data", filepath.Join(dir, "activity_data.csv"),
		"-format", "md", "-title", "Fur")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "Fur") || !strings.Contains(out, "Conditions") {
		t.Errorf("markdown summary:\n%s", out)
	}
}

func TestRun_Errors(t *testing.T) {
	dir := bundle(t)
	tests := []struct {
		name string
		args []string
		code int
	}{
		{"copy without tooltip", []string{"-copy"}, 2},
		{"batch without out", []string{"-batch", dir}, 2},
		{"unknown chart", []string{"-dir", dir, "-chart", "pie"}, 1},
		{"table chart without table", []string{"-chart", "venn"}, 1},
		{"unknown color column", []string{"-dir", dir, "-color", "strain"}, 1},
		{"bad tooltip ref", []string{"-dir", dir, "-tooltip", "bars"}, 1},
		{"tooltip out of range", []string{"-dir", dir, "-tooltip", "points:99"}, 1},
		{"missing bundle", []string{"-dir", filepath.Join(dir, "nope")}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runCLI(t, tt.args...)
			if code != tt.code {
				t.Errorf("exit %d, want %d (%s)", code, tt.code, errOut)
			}
		})
	}
}

func TestRun_Batch(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	root := t.TempDir()
	for _, name := range []string{"fur", "arca", "crp"} {
		dir := filepath.Join(root, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		os.WriteFile(filepath.Join(dir, "metadata.csv"), []byte(metaCSV), 0o644)
		os.WriteFile(filepath.Join(dir, "activity_data.csv"), []byte(dataCSV), 0o644)
	}
	out := t.TempDir()

	code, stdout, errOut := runCLI(t, "-batch", root, "-out", out, "-format", "svg", "-color", "media", "-metrics")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if lines := strings.Count(stdout, "\n"); lines != 3 {
		t.Errorf("expected 3 rendered bundles, got:\n%s", stdout)
	}
	for _, name := range []string{"fur.svg", "arca.svg", "crp.svg"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("missing %s", name)
		}
	}
	if !strings.Contains(errOut, `"name": "series_build"`) {
		t.Errorf("-metrics output missing:\n%s", errOut)
	}
}

func TestApplySelection(t *testing.T) {
	header := []string{"sample", "project", "media", "phase"}
	st := chart.NewState(header, schema.NewSelector(), nil)

	if err := applySelection(st, header, "phase, media", "project"); err != nil {
		t.Fatal(err)
	}
	if got := st.Columns(); !slices.Equal(got, []int{3, 2, 1}) {
		t.Errorf("columns = %v", got)
	}
	if st.ColorColumn() != 1 {
		t.Errorf("color column = %d", st.ColorColumn())
	}
	if err := applySelection(st, header, "strain", ""); err == nil {
		t.Error("unknown column should fail")
	}
}

func TestApp_StateForReusesSelection(t *testing.T) {
	a := &app{
		opts:   &options{color: "media"},
		cfg:    config.DefaultConfig(),
		logger: log.New(io.Discard, "", 0),
	}
	header := []string{"sample", "project", "media", "phase"}

	prompts := 0
	configure := func(_ []string, st *chart.State) error {
		prompts++
		st.ToggleColumn(1)
		return nil
	}

	first, err := a.stateFor(header, configure)
	if err != nil {
		t.Fatal(err)
	}
	again, err := a.stateFor(slices.Clone(header), configure)
	if err != nil {
		t.Fatal(err)
	}
	if again != first {
		t.Error("unchanged header should reuse the state")
	}
	if prompts != 1 {
		t.Errorf("configured %d times, want 1", prompts)
	}
	// Re-applying -color on a reused state would toggle coloring off.
	if again.ColorColumn() != 2 {
		t.Errorf("color column = %d, want 2", again.ColorColumn())
	}

	changed, err := a.stateFor(append(header, "strain"), configure)
	if err != nil {
		t.Fatal(err)
	}
	if changed == first || prompts != 2 {
		t.Errorf("changed header should build a new state (prompts=%d)", prompts)
	}
}

func TestParsePointRef(t *testing.T) {
	tests := []struct {
		in      string
		want    model.PointRef
		wantErr bool
	}{
		{"bars:2", model.PointRef{Series: model.SeriesBars, Index: 2}, false},
		{"points:0", model.PointRef{Series: model.SeriesPoints, Index: 0}, false},
		{"bars", model.PointRef{}, true},
		{"bars:x", model.PointRef{}, true},
		{"lines:1", model.PointRef{}, true},
	}
	for _, tt := range tests {
		got, err := parsePointRef(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parsePointRef(%q) = %+v, %v", tt.in, got, err)
		}
	}
}
