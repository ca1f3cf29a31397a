package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"sort"
	"strconv"
	"strings"
	"syscall"

	"github.com/vanderheijden86/modviz/internal/datasource"
	"github.com/vanderheijden86/modviz/pkg/chart"
	"github.com/vanderheijden86/modviz/pkg/config"
	"github.com/vanderheijden86/modviz/pkg/debug"
	"github.com/vanderheijden86/modviz/pkg/export"
	"github.com/vanderheijden86/modviz/pkg/metrics"
	"github.com/vanderheijden86/modviz/pkg/model"
	"github.com/vanderheijden86/modviz/pkg/schema"
	"github.com/vanderheijden86/modviz/pkg/series"
	"github.com/vanderheijden86/modviz/pkg/table"
	"github.com/vanderheijden86/modviz/pkg/ui"
	"github.com/vanderheijden86/modviz/pkg/version"
	"github.com/vanderheijden86/modviz/pkg/watcher"
)

// Chart types accepted by -chart.
const (
	chartActivity   = "activity"
	chartExpression = "expression"
	chartHistogram  = "histogram"
	chartGenes      = "genes"
	chartRegulon    = "regulon"
	chartVenn       = "venn"
)

type options struct {
	dir        string
	metaPath   string
	dataPath   string
	tablePath  string
	chartType  string
	regulator  int
	out        string
	format     string
	title      string
	columns    string
	color      string
	tooltip    string
	legend     bool
	modal      bool
	watch      bool
	archive    string
	download   string
	copy       bool
	batch      string
	configPath string
	metrics    bool
	verbose    bool
	version    bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{}
	fs := flag.NewFlagSet("modviz", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&o.dir, "dir", "", "Bundle directory holding metadata.csv and activity_data.csv (default: $MODVIZ_DATA_DIR or cwd)")
	fs.StringVar(&o.metaPath, "meta", "", "Metadata table (overrides discovery)")
	fs.StringVar(&o.dataPath, "data", "", "Activity/expression table (overrides discovery)")
	fs.StringVar(&o.tablePath, "table", "", "Input table for histogram, genes, regulon and venn charts")
	fs.StringVar(&o.chartType, "chart", chartActivity, "Chart type: activity, expression, histogram, genes, regulon, venn")
	fs.IntVar(&o.regulator, "regulator", 0, "Regulator index for -chart regulon")
	fs.StringVar(&o.out, "out", "", "Output file (default: JSON on stdout); with -batch, the output directory")
	fs.StringVar(&o.format, "format", "", "Output format: json, svg, png, md (default: from -out extension)")
	fs.StringVar(&o.title, "title", "", "Title for snapshots and summaries")
	fs.StringVar(&o.columns, "columns", "", "Comma-separated metadata columns shown in tooltips")
	fs.StringVar(&o.color, "color", "", "Metadata column to color bars by")
	fs.StringVar(&o.tooltip, "tooltip", "", "Print the tooltip of a point: bars:N or points:N")
	fs.BoolVar(&o.legend, "legend", false, "Print the color legend")
	fs.BoolVar(&o.modal, "modal", false, "Choose tooltip columns and coloring interactively")
	fs.BoolVar(&o.watch, "watch", false, "Re-render when the input tables change")
	fs.StringVar(&o.archive, "archive", "", "Store sources and charts in this SQLite archive")
	fs.StringVar(&o.download, "download", "", "Write the raw input tables to this directory")
	fs.BoolVar(&o.copy, "copy", false, "Copy the -tooltip text to the clipboard")
	fs.StringVar(&o.batch, "batch", "", "Render every bundle subdirectory of this directory concurrently")
	fs.StringVar(&o.configPath, "config", "", "Config file (default: ~/.config/modviz/config.yaml)")
	fs.BoolVar(&o.metrics, "metrics", false, "Print pipeline timing metrics as JSON on stderr")
	fs.BoolVar(&o.verbose, "verbose", false, "Log progress to stderr")
	fs.BoolVar(&o.version, "version", false, "Show version")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if o.copy && o.tooltip == "" {
		return nil, errors.New("-copy requires -tooltip")
	}
	if o.batch != "" && o.out == "" {
		return nil, errors.New("-batch requires -out")
	}
	return o, nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if opts.version {
		fmt.Fprintf(stdout, "modviz %s\n", version.String())
		return 0
	}

	logger := log.New(io.Discard, "", 0)
	if opts.verbose {
		logger = log.New(stderr, "modviz: ", log.Ltime)
	}

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}

	app := &app{opts: opts, cfg: cfg, logger: logger, stdout: stdout, stderr: stderr}
	if opts.metrics {
		defer app.printMetrics()
	}

	if opts.batch != "" {
		err = app.runBatch()
	} else {
		err = app.runSingle()
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func loadConfig(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFrom(path)
	}
	return config.Load()
}

type app struct {
	opts   *options
	cfg    config.Config
	logger *log.Logger
	stdout io.Writer
	stderr io.Writer

	archive *export.Archive

	// state survives -watch re-renders while the metadata header is unchanged.
	state       *chart.State
	stateHeader []string
}

func (a *app) openArchive() error {
	if a.opts.archive == "" {
		return nil
	}
	ar, err := export.OpenArchive(a.opts.archive, export.WithArchiveLogger(a.logger))
	if err != nil {
		return err
	}
	a.archive = ar
	return nil
}

func (a *app) closeArchive() {
	if a.archive != nil {
		a.archive.Close()
	}
}

// runSingle renders one chart, then keeps re-rendering under -watch.
func (a *app) runSingle() error {
	if err := a.openArchive(); err != nil {
		return err
	}
	defer a.closeArchive()

	paths, err := a.renderOnce()
	if err != nil {
		return err
	}
	if !a.opts.watch {
		return nil
	}
	return a.watchLoop(paths)
}

func (a *app) watchLoop(paths []string) error {
	if len(paths) == 0 {
		return errors.New("-watch needs on-disk input tables")
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := watcher.New(paths,
		watcher.WithLogger(a.logger),
		watcher.WithOnError(func(err error) {
			fmt.Fprintf(a.stderr, "watch: %v\n", err)
		}),
	)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Stop()
	fmt.Fprintf(a.stderr, "Watching %d file(s); Ctrl-C to stop\n", len(paths))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.Changed():
			if _, err := a.renderOnce(); err != nil {
				fmt.Fprintf(a.stderr, "Error: %v\n", err)
			}
		}
	}
}

// renderOnce builds and writes the requested chart and returns the input
// files that -watch should follow.
func (a *app) renderOnce() ([]string, error) {
	debug.Section(a.opts.chartType)
	switch a.opts.chartType {
	case chartActivity, chartExpression:
		return a.renderBar()
	case chartHistogram, chartGenes, chartRegulon, chartVenn:
		return a.renderTable()
	default:
		return nil, fmt.Errorf("unknown chart type %q", a.opts.chartType)
	}
}

func (a *app) loadBundle() (*datasource.Bundle, []string, error) {
	if a.opts.metaPath != "" && a.opts.dataPath != "" {
		meta, err := table.ReadSource(a.opts.metaPath, table.OptionsForPath(a.opts.metaPath))
		if err != nil {
			return nil, nil, err
		}
		data, err := table.ReadSource(a.opts.dataPath, table.OptionsForPath(a.opts.dataPath))
		if err != nil {
			return nil, nil, err
		}
		return &datasource.Bundle{Meta: meta, Data: data}, []string{a.opts.metaPath, a.opts.dataPath}, nil
	}

	dir := a.opts.dir
	if dir == "" {
		dir = a.cfg.Data.Dir
	}
	b, err := datasource.LoadBundle(datasource.DiscoveryOptions{Dir: dir, Logger: a.logger})
	if err != nil {
		return nil, nil, err
	}
	return b, b.Paths(), nil
}

// stateFor returns the chart state for header. The first render, and any
// render after the header changed, builds a new state from the flags and
// asks configure (the modal) once; later renders reuse it so the selection
// and colors of the session stay put.
func (a *app) stateFor(header []string, configure func([]string, *chart.State) error) (*chart.State, error) {
	if a.state != nil && slices.Equal(a.stateHeader, header) {
		return a.state, nil
	}
	st := chart.NewState(header, a.cfg.Selector(), a.cfg.NewMapper())
	if err := applySelection(st, header, a.opts.columns, a.opts.color); err != nil {
		return nil, err
	}
	if configure != nil {
		if err := configure(header, st); err != nil {
			return nil, err
		}
	}
	if a.state != nil {
		a.logger.Printf("metadata header changed; selection reset")
	}
	a.state, a.stateHeader = st, slices.Clone(header)
	return st, nil
}

func (a *app) runModal(header []string, st *chart.State) error {
	if !a.opts.modal {
		return nil
	}
	if err := ui.NewModal(header, st).Run(); err != nil {
		return fmt.Errorf("modal: %w", err)
	}
	return nil
}

func (a *app) barOptions() chart.BarOptions {
	if a.opts.chartType == chartExpression {
		return a.cfg.BarOptions(chart.GeneExpressionOptions())
	}
	return a.cfg.BarOptions(chart.ActivityOptions())
}

func (a *app) renderBar() ([]string, error) {
	defer debug.LogEnterExit("modviz.renderBar")()

	b, paths, err := a.loadBundle()
	if err != nil {
		return nil, err
	}
	meta, err := schema.NewMetadata(b.Meta.Matrix)
	if err != nil {
		return paths, err
	}
	mt, err := series.NewMeasurementTable(b.Data.Matrix)
	if err != nil {
		return paths, err
	}

	st, err := a.stateFor(meta.Header(), a.runModal)
	if err != nil {
		return paths, err
	}

	bar, err := chart.BuildActivityBar(mt, meta, st, a.barOptions())
	if err != nil {
		return paths, err
	}

	doc := export.NewDocument(bar.Model, b.Meta.Name, b.Data.Name)
	if err := a.emit(doc); err != nil {
		return paths, err
	}
	if a.archive != nil {
		for _, src := range []*table.Source{b.Meta, b.Data} {
			if _, err := a.archive.AddSource(src); err != nil {
				return paths, err
			}
		}
	}
	if err := a.archiveChart(doc); err != nil {
		return paths, err
	}

	if a.opts.download != "" {
		written, err := export.WriteDownloads(a.opts.download, export.Download(b.Meta, b.Data))
		if err != nil {
			return paths, err
		}
		for _, p := range written {
			fmt.Fprintf(a.stderr, "Wrote %s\n", p)
		}
	}

	if a.opts.legend && len(bar.Model.Legend) > 0 {
		fmt.Fprintln(a.stderr, ui.RenderLegend(meta.Label(st.ColorColumn()), bar.Model.Legend, 40))
	}
	if a.opts.tooltip != "" {
		if err := a.showTooltip(bar); err != nil {
			return paths, err
		}
	}
	return paths, nil
}

func (a *app) renderTable() ([]string, error) {
	if a.opts.tablePath == "" {
		return nil, fmt.Errorf("-chart %s requires -table", a.opts.chartType)
	}
	src, err := table.ReadSource(a.opts.tablePath, table.OptionsForPath(a.opts.tablePath))
	if err != nil {
		return nil, err
	}
	paths := []string{a.opts.tablePath}

	var c model.Chart
	switch a.opts.chartType {
	case chartHistogram:
		c, err = chart.BuildHistogram(src.Matrix, a.cfg.HistogramOptions())
	case chartGenes:
		c, err = chart.BuildGeneScatter(src.Matrix, a.cfg.GeneScatterOptions())
	case chartRegulon:
		c, err = chart.BuildRegulonScatter(src.Matrix, a.opts.regulator)
	case chartVenn:
		c, err = chart.BuildVenn(src.Matrix, a.cfg.VennOptions())
	}
	if err != nil {
		return paths, err
	}

	doc := export.NewDocument(c, src.Name)
	if err := a.emit(doc); err != nil {
		return paths, err
	}
	if a.archive != nil {
		if _, err := a.archive.AddSource(src); err != nil {
			return paths, err
		}
	}
	return paths, a.archiveChart(doc)
}

func (a *app) archiveChart(doc export.Document) error {
	if a.archive == nil {
		return nil
	}
	_, err := a.archive.SaveChart(doc, a.opts.title)
	return err
}

// emit writes doc to -out, or to stdout when no output file is given.
func (a *app) emit(doc export.Document) error {
	snap := export.SnapshotOptions{Title: a.opts.title, Width: a.cfg.Render.Width, Height: a.cfg.Render.Height}
	if a.opts.out != "" {
		if err := export.Save(doc, a.opts.out, a.opts.format, snap); err != nil {
			return err
		}
		a.logger.Printf("wrote %s", a.opts.out)
		return nil
	}

	switch a.opts.format {
	case "", export.FormatJSON:
		return export.WriteJSON(a.stdout, doc)
	case export.FormatSVG:
		return export.WriteSVG(a.stdout, doc.Chart, snap)
	case export.FormatMarkdown:
		md, err := export.Markdown(doc, a.opts.title)
		if err != nil {
			return err
		}
		if ui.IsTerminal() {
			if rendered, err := ui.RenderSummary(md, 100); err == nil {
				md = rendered
			}
		}
		_, err = io.WriteString(a.stdout, md)
		return err
	default:
		return fmt.Errorf("%w: %q needs -out", export.ErrUnknownFormat, a.opts.format)
	}
}

func (a *app) showTooltip(bar *chart.ActivityBar) error {
	ref, err := parsePointRef(a.opts.tooltip)
	if err != nil {
		return err
	}
	tip, err := bar.Tooltip(ref)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stderr, ui.RenderTooltip(tip, 60))
	if a.opts.copy {
		if err := ui.CopyToClipboard(tip.Text()); err != nil {
			return fmt.Errorf("copy tooltip: %w", err)
		}
		fmt.Fprintln(a.stderr, "Tooltip copied to clipboard")
	}
	return nil
}

// runBatch renders every bundle directory below -batch into -out.
func (a *app) runBatch() error {
	if err := a.openArchive(); err != nil {
		return err
	}
	defer a.closeArchive()

	entries, err := os.ReadDir(a.opts.batch)
	if err != nil {
		return fmt.Errorf("read batch dir: %w", err)
	}
	format := a.opts.format
	if format == "" {
		format = export.FormatJSON
	}

	var jobs []export.Job
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := filepath.Join(a.opts.batch, e.Name())
		b, err := datasource.LoadBundle(datasource.DiscoveryOptions{Dir: dir, Logger: a.logger})
		if err != nil {
			fmt.Fprintf(a.stderr, "Skipping %s: %v\n", e.Name(), err)
			continue
		}
		jobs = append(jobs, export.Job{
			Name:        e.Name(),
			Meta:        b.Meta,
			Data:        b.Data,
			Options:     a.barOptions(),
			Selector:    a.cfg.Selector(),
			Palette:     a.cfg.Palette,
			Seed:        a.cfg.Seed,
			ColorColumn: a.opts.color,
			Path:        filepath.Join(a.opts.out, e.Name()+"."+format),
			Format:      format,
			Snapshot:    export.SnapshotOptions{Title: e.Name(), Width: a.cfg.Render.Width, Height: a.cfg.Render.Height},
		})
	}
	if len(jobs) == 0 {
		return fmt.Errorf("no bundles found in %s", a.opts.batch)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := export.RenderAll(ctx, jobs, export.BatchOptions{Logger: a.logger, Archive: a.archive})
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(a.stderr, "FAIL %s: %v\n", r.Name, r.Err)
			continue
		}
		fmt.Fprintf(a.stdout, "%s\t%s\n", r.Name, r.Path)
	}
	if err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d bundles failed", failed, len(results))
	}
	return nil
}

func (a *app) printMetrics() {
	stats := metrics.AllTimingStats()
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	_ = export.WriteJSON(a.stderr, stats)
}

// applySelection applies -columns and -color to st. Unknown column names are
// an error so typos do not silently drop tooltip lines.
func applySelection(st *chart.State, header []string, columns, color string) error {
	if columns != "" {
		var cols []int
		for _, name := range strings.Split(columns, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			idx := schema.IndexOf(header, name)
			if idx == schema.NotFound {
				return fmt.Errorf("unknown metadata column %q", name)
			}
			cols = append(cols, idx)
		}
		st.SetColumns(cols)
	}
	if color != "" {
		idx := schema.IndexOf(header, color)
		if idx == schema.NotFound {
			return fmt.Errorf("unknown metadata column %q", color)
		}
		st.SetColorColumn(idx)
	}
	return nil
}

// parsePointRef parses "bars:N" or "points:N".
func parsePointRef(s string) (model.PointRef, error) {
	kind, idx, ok := strings.Cut(s, ":")
	if !ok {
		return model.PointRef{}, fmt.Errorf("invalid tooltip reference %q (want bars:N or points:N)", s)
	}
	n, err := strconv.Atoi(idx)
	if err != nil {
		return model.PointRef{}, fmt.Errorf("invalid tooltip index %q: %w", idx, err)
	}
	switch model.SeriesKind(kind) {
	case model.SeriesBars, model.SeriesPoints:
		return model.PointRef{Series: model.SeriesKind(kind), Index: n}, nil
	default:
		return model.PointRef{}, fmt.Errorf("unknown tooltip series %q", kind)
	}
}
