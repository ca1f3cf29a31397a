// Package config handles loading and saving modviz configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/modviz/config.yaml
//   - State:   ~/.local/state/modviz/ (chart archives)
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/modviz/pkg/chart"
	"github.com/vanderheijden86/modviz/pkg/palette"
	"github.com/vanderheijden86/modviz/pkg/schema"
)

const appName = "modviz"

// HistogramConfig tunes histogram tooltips.
type HistogramConfig struct {
	ListCutoff int `yaml:"list_cutoff,omitempty"` // Largest bin whose genes are listed
}

// VennConfig tunes Venn member lists.
type VennConfig struct {
	ListBudget    int `yaml:"list_budget,omitempty"`    // Characters kept of the regulon list
	TooltipBudget int `yaml:"tooltip_budget,omitempty"` // Characters of members in a tooltip
}

// RenderConfig sizes static snapshots.
type RenderConfig struct {
	Width  int `yaml:"width,omitempty"`
	Height int `yaml:"height,omitempty"`
}

// DataConfig locates input bundles and names the dataset for gene links.
type DataConfig struct {
	Dir      string `yaml:"dir,omitempty"`
	Organism string `yaml:"organism,omitempty"`
	Dataset  string `yaml:"dataset,omitempty"`
}

// Config is the top-level configuration for modviz.
type Config struct {
	Palette       []string        `yaml:"palette,omitempty"`
	UniformColor  string          `yaml:"uniform_color,omitempty"`
	Seed          uint64          `yaml:"seed,omitempty"` // 0 = time-based random colors
	ZoomThreshold int             `yaml:"zoom_threshold,omitempty"`
	Histogram     HistogramConfig `yaml:"histogram,omitempty"`
	Venn          VennConfig      `yaml:"venn,omitempty"`
	Rules         []schema.Rule   `yaml:"rules,omitempty"` // Appended to the built-in organism rules
	Render        RenderConfig    `yaml:"render,omitempty"`
	Data          DataConfig      `yaml:"data,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Palette:       append([]string(nil), palette.DefaultPalette...),
		UniformColor:  palette.UniformColor,
		ZoomThreshold: chart.DefaultZoomThreshold,
		Histogram:     HistogramConfig{ListCutoff: chart.DefaultListCutoff},
		Venn: VennConfig{
			ListBudget:    chart.DefaultListBudget,
			TooltipBudget: chart.DefaultTooltipBudget,
		},
		Render: RenderConfig{Width: 1200, Height: 480},
	}
}

// ConfigDir returns the XDG config directory for modviz.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// StateDir returns the XDG state directory for modviz.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist. Fields left out of the
// file keep their defaults.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Data.Dir = expandHome(cfg.Data.Dir)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// Validate reports settings that cannot produce a chart.
func (c Config) Validate() error {
	var errs []error
	if c.ZoomThreshold < 0 {
		errs = append(errs, fmt.Errorf("zoom_threshold must not be negative, got %d", c.ZoomThreshold))
	}
	if c.Histogram.ListCutoff < 0 {
		errs = append(errs, fmt.Errorf("histogram.list_cutoff must not be negative, got %d", c.Histogram.ListCutoff))
	}
	if c.Venn.ListBudget < 0 || c.Venn.TooltipBudget < 0 {
		errs = append(errs, errors.New("venn budgets must not be negative"))
	}
	for i, r := range c.Rules {
		if r.Trigger == "" || len(r.Columns) == 0 {
			errs = append(errs, fmt.Errorf("rule %d (%s): trigger and columns are required", i, r.Name))
		}
	}
	return errors.Join(errs...)
}

// Selector returns the column selector: built-in rules, then configured ones.
func (c Config) Selector() schema.Selector {
	return schema.NewSelector(c.Rules...)
}

// NewMapper returns a color mapper over the configured palette and seed.
func (c Config) NewMapper() *palette.Mapper {
	return palette.NewMapper(c.Palette, c.Seed)
}

// BarOptions applies the configured colors and zoom threshold to base.
func (c Config) BarOptions(base chart.BarOptions) chart.BarOptions {
	if c.UniformColor != "" {
		base.UniformColor = c.UniformColor
	}
	if c.ZoomThreshold > 0 {
		base.ZoomThreshold = c.ZoomThreshold
	}
	return base
}

// HistogramOptions returns the configured histogram options.
func (c Config) HistogramOptions() chart.HistogramOptions {
	return chart.HistogramOptions{ListCutoff: c.Histogram.ListCutoff}
}

// VennOptions returns the configured Venn options.
func (c Config) VennOptions() chart.VennOptions {
	return chart.VennOptions{ListBudget: c.Venn.ListBudget, TooltipBudget: c.Venn.TooltipBudget}
}

// GeneScatterOptions returns the dataset used in gene page links.
func (c Config) GeneScatterOptions() chart.GeneScatterOptions {
	return chart.GeneScatterOptions{Organism: c.Data.Organism, Dataset: c.Data.Dataset}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
