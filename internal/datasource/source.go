// Package datasource locates the input tables of a chart bundle. Tables are
// found by preferred file name in a bundle directory, with a SQLite archive
// as a fallback for tables no longer present on disk.
package datasource

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/vanderheijden86/modviz/pkg/export"
	"github.com/vanderheijden86/modviz/pkg/table"
)

// Role identifies which table of a bundle a source holds.
type Role string

const (
	RoleMetadata Role = "metadata"
	RoleActivity Role = "activity"
)

// SourceType identifies where a source lives.
type SourceType string

const (
	SourceTypeFile    SourceType = "file"
	SourceTypeArchive SourceType = "archive"
)

// PreferredNames lists the file names tried for each role, best first.
var PreferredNames = map[Role][]string{
	RoleMetadata: {export.MetadataFile, "sample_table.csv", "metadata.tsv", "sample_table.tsv"},
	RoleActivity: {export.ActivityFile, "activity.csv", "A.csv", "activity_data.tsv"},
}

// Priority bases (higher = preferred). File priority decreases with the
// position of the name in PreferredNames.
const (
	PriorityFile    = 100
	PriorityArchive = 10
)

// DataSource is one candidate table.
type DataSource struct {
	Role     Role       `json:"role"`
	Type     SourceType `json:"type"`
	Name     string     `json:"name"`
	Path     string     `json:"path"` // file path, or archive path for archived tables
	Priority int        `json:"priority"`
	ModTime  time.Time  `json:"mod_time"`
	Size     int64      `json:"size"`

	Valid           bool   `json:"valid"`
	ValidationError string `json:"validation_error,omitempty"`
	Rows            int    `json:"rows"`
}

// String returns a human-readable description of the source
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = fmt.Sprintf("invalid: %s", s.ValidationError)
	}
	return fmt.Sprintf("%s %s (%s, priority=%d, rows=%d, %s)",
		s.Role, s.Path, s.Type, s.Priority, s.Rows, status)
}

// DiscoveryOptions configures source discovery behavior
type DiscoveryOptions struct {
	// Dir is the bundle directory; MODVIZ_DATA_DIR, then the working
	// directory, are used when empty.
	Dir string
	// ValidateAfterDiscovery parses each discovered source
	ValidateAfterDiscovery bool
	// IncludeInvalid keeps sources that failed validation
	IncludeInvalid bool
	// Logger receives discovery diagnostics
	Logger *log.Logger
}

// ResolveDir returns the bundle directory discovery would use.
func ResolveDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	if env := os.Getenv("MODVIZ_DATA_DIR"); env != "" {
		return env, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}
	return wd, nil
}

// DiscoverSources finds every candidate table in the bundle directory,
// ordered best first.
func DiscoverSources(opts DiscoveryOptions) ([]DataSource, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	dir, err := ResolveDir(opts.Dir)
	if err != nil {
		return nil, err
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("bundle directory %s not found", dir)
	}
	logger.Printf("datasource: discovering sources in %s", dir)

	var sources []DataSource
	for _, role := range []Role{RoleMetadata, RoleActivity} {
		sources = append(sources, discoverFiles(dir, role, logger)...)
	}

	archived, err := discoverArchived(filepath.Join(dir, export.ArchiveFile), logger)
	if err != nil {
		logger.Printf("datasource: archive discovery warning: %v", err)
	}
	sources = append(sources, archived...)

	if opts.ValidateAfterDiscovery {
		for i := range sources {
			if err := ValidateSource(&sources[i]); err != nil {
				logger.Printf("datasource: validation failed for %s: %v", sources[i].Path, err)
			}
		}
		if !opts.IncludeInvalid {
			valid := sources[:0]
			for _, s := range sources {
				if s.Valid {
					valid = append(valid, s)
				}
			}
			sources = valid
		}
	}

	sortSources(sources)
	logger.Printf("datasource: discovered %d sources", len(sources))
	return sources, nil
}

func discoverFiles(dir string, role Role, logger *log.Logger) []DataSource {
	var sources []DataSource
	for i, name := range PreferredNames[role] {
		path := filepath.Join(dir, name)
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		sources = append(sources, DataSource{
			Role:     role,
			Type:     SourceTypeFile,
			Name:     name,
			Path:     path,
			Priority: PriorityFile - i,
			ModTime:  info.ModTime(),
			Size:     info.Size(),
		})
		logger.Printf("datasource: found %s table %s", role, path)
	}
	return sources
}

func discoverArchived(archivePath string, logger *log.Logger) ([]DataSource, error) {
	info, err := os.Stat(archivePath)
	if err != nil {
		return nil, nil
	}
	r, err := NewArchiveReader(archivePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	names, err := r.SourceNames()
	if err != nil {
		return nil, err
	}
	stored := make(map[string]bool, len(names))
	for _, n := range names {
		stored[n] = true
	}

	var sources []DataSource
	for _, role := range []Role{RoleMetadata, RoleActivity} {
		for i, name := range PreferredNames[role] {
			if !stored[name] {
				continue
			}
			sources = append(sources, DataSource{
				Role:     role,
				Type:     SourceTypeArchive,
				Name:     name,
				Path:     archivePath,
				Priority: PriorityArchive - i,
				ModTime:  info.ModTime(),
			})
			logger.Printf("datasource: found archived %s table %s", role, name)
		}
	}
	return sources, nil
}

// sortSources orders by priority, then freshness.
func sortSources(sources []DataSource) {
	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].Priority != sources[j].Priority {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})
}

// ValidateSource parses s and records whether it is a usable table.
func ValidateSource(s *DataSource) error {
	src, err := LoadSource(*s)
	if err != nil {
		s.Valid = false
		s.ValidationError = err.Error()
		return err
	}
	s.Valid = true
	s.ValidationError = ""
	s.Rows = src.Matrix.Len()
	return nil
}

// SelectBestSource returns the preferred valid source for role.
func SelectBestSource(sources []DataSource, role Role) (DataSource, error) {
	candidates := make([]DataSource, 0, len(sources))
	for _, s := range sources {
		if s.Role == role && (s.Valid || s.ValidationError == "") {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return DataSource{}, fmt.Errorf("no %s table found (tried %v)", role, PreferredNames[role])
	}
	sortSources(candidates)
	return candidates[0], nil
}

// LoadSource reads the table behind s.
func LoadSource(s DataSource) (*table.Source, error) {
	switch s.Type {
	case SourceTypeFile:
		return table.ReadSource(s.Path, table.OptionsForPath(s.Path))
	case SourceTypeArchive:
		r, err := NewArchiveReader(s.Path)
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return r.LatestSource(s.Name)
	default:
		return nil, fmt.Errorf("unknown source type: %s", s.Type)
	}
}
