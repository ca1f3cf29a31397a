// Package export hands visual models to the outside world: JSON documents
// for the external renderer, static SVG/PNG previews, Markdown summaries,
// raw-source downloads and a SQLite archive.
package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/modviz/pkg/model"
	"github.com/vanderheijden86/modviz/pkg/version"
)

// ErrUnknownFormat is returned for an output format no exporter handles.
var ErrUnknownFormat = errors.New("unknown export format")

// Document wraps a visual model with provenance.
type Document struct {
	Kind        model.ChartKind `json:"kind"`
	Version     string          `json:"version"`
	GeneratedAt time.Time       `json:"generated_at"`
	Sources     []string        `json:"sources,omitempty"`
	Chart       model.Chart     `json:"chart"`
}

// NewDocument wraps c, naming the source files it was built from.
func NewDocument(c model.Chart, sources ...string) Document {
	return Document{
		Kind:        c.ChartKind(),
		Version:     version.Version,
		GeneratedAt: time.Now().UTC(),
		Sources:     sources,
		Chart:       c,
	}
}

// WriteJSON encodes v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// SaveJSON writes v to path, creating parent directories.
func SaveJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteJSON(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
