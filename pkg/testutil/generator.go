// Package testutil provides deterministic fixture generators and assertion
// helpers shared by the chart pipeline tests.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// BundleConfig controls fixture generation.
type BundleConfig struct {
	Seed          int64    // Random seed for determinism (0 = use current time)
	Conditions    int      // Number of measurement rows (default: 6)
	MaxReplicates int      // Upper bound on replicates per condition (default: 3)
	Projects      []string // Project pool (default: "proj_a", "proj_b", "proj_c")
	RunLength     int      // Max consecutive conditions per project run (default: 3)
	Header        []string // Metadata header (default: sample, project, DOI, media, phase)
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() BundleConfig {
	return BundleConfig{
		Seed:          42,
		Conditions:    6,
		MaxReplicates: 3,
		Projects:      []string{"proj_a", "proj_b", "proj_c"},
		RunLength:     3,
		Header:        []string{"sample", "project", "DOI", "media", "phase"},
	}
}

// Bundle is a generated metadata/measurement table pair.
type Bundle struct {
	MetadataCSV    string
	MeasurementCSV string

	Replicates []int    // replicate count per condition
	Projects   []string // project of each condition, in order
	Runs       int      // number of maximal equal-project runs
	Samples    int      // number of metadata samples
}

// Generator produces deterministic fixtures.
type Generator struct {
	cfg BundleConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg BundleConfig) *Generator {
	def := DefaultConfig()
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.Conditions <= 0 {
		cfg.Conditions = def.Conditions
	}
	if cfg.MaxReplicates <= 0 {
		cfg.MaxReplicates = def.MaxReplicates
	}
	if len(cfg.Projects) == 0 {
		cfg.Projects = def.Projects
	}
	if cfg.RunLength <= 0 {
		cfg.RunLength = def.RunLength
	}
	if len(cfg.Header) == 0 {
		cfg.Header = def.Header
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// Bundle generates one table pair. Every replicate gets its own metadata
// sample, and each condition's first replicate is its representative sample.
func (g *Generator) Bundle() Bundle {
	var (
		b       Bundle
		meta    strings.Builder
		data    strings.Builder
		project string
		left    int
	)

	meta.WriteString(strings.Join(g.cfg.Header, ","))
	meta.WriteString("\n")
	data.WriteString("id,name,mean,std,count\n")

	for i := 0; i < g.cfg.Conditions; i++ {
		if left == 0 {
			next := g.cfg.Projects[g.rng.Intn(len(g.cfg.Projects))]
			if i == 0 || next != project {
				b.Runs++
			}
			project = next
			left = 1 + g.rng.Intn(g.cfg.RunLength)
		}
		left--

		n := 1 + g.rng.Intn(g.cfg.MaxReplicates)
		b.Replicates = append(b.Replicates, n)
		b.Projects = append(b.Projects, project)

		values := make([]float64, n)
		var sum float64
		for j := range values {
			values[j] = float64(g.rng.Intn(800)-400) / 100
			sum += values[j]
		}

		fmt.Fprintf(&data, "%d,cond_%d,%g,0.1,%d", i, i, sum/float64(n), n)
		for _, v := range values {
			fmt.Fprintf(&data, ",%d,%g", b.Samples, v)
			g.writeSample(&meta, b.Samples, project)
			b.Samples++
		}
		data.WriteString("\n")
	}

	b.MetadataCSV = meta.String()
	b.MeasurementCSV = data.String()
	return b
}

func (g *Generator) writeSample(w *strings.Builder, sample int, project string) {
	fields := make([]string, len(g.cfg.Header))
	for i, col := range g.cfg.Header {
		switch col {
		case "sample":
			fields[i] = fmt.Sprintf("s%d", sample)
		case "project":
			fields[i] = project
		case "DOI":
			fields[i] = fmt.Sprintf("doi.org/10.1000/%d", sample)
		default:
			fields[i] = fmt.Sprintf("%s_%d", col, g.rng.Intn(3))
		}
	}
	w.WriteString(strings.Join(fields, ","))
	w.WriteString("\n")
}
