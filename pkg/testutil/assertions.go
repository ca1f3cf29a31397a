package testutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/modviz/pkg/model"
	"github.com/vanderheijden86/modviz/pkg/table"
)

// MustParse parses CSV text into a matrix or fails the test.
func MustParse(t *testing.T, csv string) *table.Matrix {
	t.Helper()
	m, err := table.ParseBytes([]byte(csv), table.ParseOptions{})
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return m
}

// AssertMalformed verifies err reports malformed input.
func AssertMalformed(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected malformed-input error, got nil")
	}
	if !errors.Is(err, table.ErrMalformed) {
		t.Errorf("expected error wrapping ErrMalformed, got %v", err)
	}
}

// AssertSegmentsCover verifies that segments tile [-0.5, n-0.5] without gaps
// or overlaps and that neighbouring segments carry different labels.
func AssertSegmentsCover(t *testing.T, segs []model.Segment, n int) {
	t.Helper()
	if n == 0 {
		if len(segs) != 0 {
			t.Errorf("expected no segments for empty axis, got %d", len(segs))
		}
		return
	}
	if len(segs) == 0 {
		t.Fatalf("expected segments covering %d conditions, got none", n)
	}
	if segs[0].From != -0.5 {
		t.Errorf("first segment starts at %v, want -0.5", segs[0].From)
	}
	if last := segs[len(segs)-1].To; last != float64(n)-0.5 {
		t.Errorf("last segment ends at %v, want %v", last, float64(n)-0.5)
	}
	for i, s := range segs {
		if s.To <= s.From {
			t.Errorf("segment %d is empty: [%v, %v]", i, s.From, s.To)
		}
		if i == 0 {
			continue
		}
		if s.From != segs[i-1].To {
			t.Errorf("gap between segment %d and %d: %v != %v", i-1, i, segs[i-1].To, s.From)
		}
		if s.Label == segs[i-1].Label {
			t.Errorf("adjacent segments %d and %d share label %q", i-1, i, s.Label)
		}
	}
}

// AssertPointCounts verifies that condition i has exactly counts[i] points.
func AssertPointCounts(t *testing.T, points []model.ScatterPoint, counts []int) {
	t.Helper()
	got := make([]int, len(counts))
	for _, p := range points {
		if p.X < 0 || p.X >= len(counts) {
			t.Errorf("point at x=%d outside %d conditions", p.X, len(counts))
			continue
		}
		got[p.X]++
	}
	for i := range counts {
		if got[i] != counts[i] {
			t.Errorf("condition %d: %d points, want %d", i, got[i], counts[i])
		}
	}
}

// AssertJSONEqual compares two values after JSON encoding.
func AssertJSONEqual(t *testing.T, expected, actual any) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}
	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}
	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// GoldenFile handles golden file comparisons.
type GoldenFile struct {
	t      *testing.T
	dir    string
	name   string
	update bool
}

// NewGoldenFile creates a golden file helper.
// If GENERATE_GOLDEN env var is set, golden files will be updated.
func NewGoldenFile(t *testing.T, dir, name string) *GoldenFile {
	t.Helper()
	return &GoldenFile{
		t:      t,
		dir:    dir,
		name:   name,
		update: os.Getenv("GENERATE_GOLDEN") != "",
	}
}

// Path returns the full path to the golden file.
func (g *GoldenFile) Path() string {
	return filepath.Join(g.dir, g.name)
}

// Assert compares actual content against the golden file, or rewrites it
// when GENERATE_GOLDEN is set. A missing golden file skips the test.
func (g *GoldenFile) Assert(actual string) {
	g.t.Helper()

	path := g.Path()
	if g.update {
		if err := os.MkdirAll(g.dir, 0755); err != nil {
			g.t.Fatalf("failed to create golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0644); err != nil {
			g.t.Fatalf("failed to write golden file: %v", err)
		}
		g.t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			g.t.Skipf("golden file %s missing; run with GENERATE_GOLDEN=1 to create it", path)
		}
		g.t.Fatalf("failed to read golden file: %v", err)
	}

	if string(expected) == actual {
		return
	}
	expectedLines := strings.Split(string(expected), "\n")
	actualLines := strings.Split(actual, "\n")
	for i := 0; i < len(expectedLines) || i < len(actualLines); i++ {
		var expLine, actLine string
		if i < len(expectedLines) {
			expLine = expectedLines[i]
		}
		if i < len(actualLines) {
			actLine = actualLines[i]
		}
		if expLine != actLine {
			g.t.Errorf("golden file mismatch at line %d:\nexpected: %s\nactual:   %s", i+1, expLine, actLine)
			return
		}
	}
}

// WriteFile writes content under dir and returns its path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}
