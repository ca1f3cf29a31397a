package datasource

import (
	"fmt"

	"github.com/vanderheijden86/modviz/pkg/table"
)

// Bundle is the pair of tables an activity chart is built from.
type Bundle struct {
	Dir  string
	Meta *table.Source
	Data *table.Source
}

// LoadBundle discovers, validates and loads the best metadata and activity
// tables of a bundle directory.
func LoadBundle(opts DiscoveryOptions) (*Bundle, error) {
	dir, err := ResolveDir(opts.Dir)
	if err != nil {
		return nil, err
	}
	opts.Dir = dir
	opts.ValidateAfterDiscovery = true
	opts.IncludeInvalid = false

	sources, err := DiscoverSources(opts)
	if err != nil {
		return nil, err
	}

	b := &Bundle{Dir: dir}
	for _, role := range []Role{RoleMetadata, RoleActivity} {
		best, err := SelectBestSource(sources, role)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", dir, err)
		}
		src, err := LoadSource(best)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", best.Path, err)
		}
		if role == RoleMetadata {
			b.Meta = src
		} else {
			b.Data = src
		}
	}
	return b, nil
}

// Paths returns the on-disk files of the bundle that exist, for watching.
func (b *Bundle) Paths() []string {
	sources, err := DiscoverSources(DiscoveryOptions{Dir: b.Dir})
	if err != nil {
		return nil
	}
	var paths []string
	for _, s := range sources {
		if s.Type == SourceTypeFile {
			paths = append(paths, s.Path)
		}
	}
	return paths
}
