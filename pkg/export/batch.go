package export

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/modviz/pkg/chart"
	"github.com/vanderheijden86/modviz/pkg/model"
	"github.com/vanderheijden86/modviz/pkg/palette"
	"github.com/vanderheijden86/modviz/pkg/schema"
	"github.com/vanderheijden86/modviz/pkg/series"
	"github.com/vanderheijden86/modviz/pkg/table"
)

// Output formats understood by Save.
const (
	FormatJSON     = "json"
	FormatSVG      = "svg"
	FormatPNG      = "png"
	FormatMarkdown = "md"
)

// FormatForPath infers an output format from a file extension, defaulting
// to JSON.
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".svg":
		return FormatSVG
	case ".png":
		return FormatPNG
	case ".md", ".markdown":
		return FormatMarkdown
	default:
		return FormatJSON
	}
}

// Save writes doc to path in format. Snapshot formats take their title and
// canvas size from snap.
func Save(doc Document, path, format string, snap SnapshotOptions) error {
	if format == "" {
		format = FormatForPath(path)
	}
	switch format {
	case FormatJSON:
		return SaveJSON(path, doc)
	case FormatSVG, FormatPNG:
		snap.Path = path
		snap.Format = format
		return SaveSnapshot(doc.Chart, snap)
	case FormatMarkdown:
		md, err := Markdown(doc, snap.Title)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("create parent dir: %w", err)
		}
		return os.WriteFile(path, []byte(md), 0o644)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Job is one activity bar chart to render in a batch.
type Job struct {
	Name string
	Meta *table.Source
	Data *table.Source

	Options  chart.BarOptions
	Selector schema.Selector
	Palette  []string
	Seed     uint64

	// ColorColumn names the metadata column to color by; empty for none.
	ColorColumn string

	Path     string
	Format   string
	Snapshot SnapshotOptions
}

// Result reports the outcome of one Job.
type Result struct {
	Name  string
	Path  string
	Chart *model.BarChart
	Err   error
}

// BatchOptions configures RenderAll.
type BatchOptions struct {
	Limit   int // max concurrent jobs; 0 means 8
	Logger  *log.Logger
	Archive *Archive
}

// RenderAll renders jobs concurrently. Every job gets its own chart state and
// color mapper. Individual failures are reported in the results; the
// returned error is reserved for cancellation of the whole batch.
func RenderAll(ctx context.Context, jobs []Job, opts BatchOptions) ([]Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 8
	}

	results := make([]Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, job := range jobs {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				results[i] = Result{Name: job.Name, Path: job.Path, Err: gctx.Err()}
				return nil
			default:
			}

			c, err := renderJob(job, opts.Archive)
			results[i] = Result{Name: job.Name, Path: job.Path, Chart: c, Err: err}
			if err != nil {
				logger.Printf("batch: %s failed: %v", job.Name, err)
			} else {
				logger.Printf("batch: rendered %s to %s", job.Name, job.Path)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	logger.Printf("batch: finished %d jobs", len(jobs))
	return results, ctx.Err()
}

func renderJob(job Job, archive *Archive) (*model.BarChart, error) {
	if job.Meta == nil || job.Data == nil {
		return nil, fmt.Errorf("%s: metadata and measurement tables are required", job.Name)
	}
	meta, err := schema.NewMetadata(job.Meta.Matrix)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", job.Name, err)
	}
	mt, err := series.NewMeasurementTable(job.Data.Matrix)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", job.Name, err)
	}

	st := chart.NewState(meta.Header(), job.Selector, palette.NewMapper(job.Palette, job.Seed))
	if job.ColorColumn != "" {
		col := schema.IndexOf(meta.Header(), job.ColorColumn)
		if col == schema.NotFound {
			return nil, fmt.Errorf("%s: unknown metadata column %q", job.Name, job.ColorColumn)
		}
		st.SetColorColumn(col)
	}

	bar, err := chart.BuildActivityBar(mt, meta, st, job.Options)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", job.Name, err)
	}

	doc := NewDocument(bar.Model, job.Meta.Name, job.Data.Name)
	if job.Path != "" {
		if err := Save(doc, job.Path, job.Format, job.Snapshot); err != nil {
			return bar.Model, fmt.Errorf("%s: %w", job.Name, err)
		}
	}
	if archive != nil {
		for _, src := range []*table.Source{job.Meta, job.Data} {
			if _, err := archive.AddSource(src); err != nil {
				return bar.Model, fmt.Errorf("%s: %w", job.Name, err)
			}
		}
		if _, err := archive.SaveChart(doc, job.Name); err != nil {
			return bar.Model, fmt.Errorf("%s: %w", job.Name, err)
		}
	}
	return bar.Model, nil
}
