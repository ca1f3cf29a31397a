package table

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/vanderheijden86/modviz/pkg/debug"
	"github.com/vanderheijden86/modviz/pkg/metrics"
)

// floatPattern matches the strings the portal's upstream parser converts to
// numbers. Anything else, including "1.2.3" or "NaN", stays text.
var floatPattern = regexp.MustCompile(`^\s*-?(\d+\.?|\.\d+|\d+\.\d+)([eE][-+]?\d+)?\s*$`)

// ParseOptions configures Parse.
type ParseOptions struct {
	// Comma is the field delimiter. Zero selects ','.
	Comma rune

	// Untyped disables numeric conversion: every field becomes a text cell,
	// empty fields included.
	Untyped bool
}

// OptionsForPath picks a delimiter from the file extension.
func OptionsForPath(path string) ParseOptions {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tsv", ".tab", ".txt":
		return ParseOptions{Comma: '\t'}
	default:
		return ParseOptions{Comma: ','}
	}
}

// Parse reads delimited text into a Matrix.
//
// With typing enabled, empty fields become Null and numeric-looking fields
// become numbers. A trailing line terminator produces a final blank sentinel
// row, matching the upstream parser the table layouts were designed around.
func Parse(r io.Reader, opts ParseOptions) (*Matrix, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading table: %w", err)
	}
	return ParseBytes(data, opts)
}

// ParseBytes is Parse over an in-memory buffer.
func ParseBytes(data []byte, opts ParseOptions) (*Matrix, error) {
	start := time.Now()
	defer metrics.Timer(metrics.TableParse)()

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmpty
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}

	var rows [][]Cell
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing table: %w", err)
		}
		row := make([]Cell, len(record))
		for i, field := range record {
			row[i] = convert(field, opts.Untyped)
		}
		rows = append(rows, row)
	}

	if bytes.HasSuffix(data, []byte("\n")) {
		rows = append(rows, []Cell{Null})
	}

	debug.LogTiming(fmt.Sprintf("table.Parse (%d rows)", len(rows)), time.Since(start))
	return NewMatrix(rows), nil
}

// ReadSource loads and parses a table file, keeping its raw text.
func ReadSource(path string, opts ParseOptions) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	m, err := ParseBytes(data, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Source{Name: filepath.Base(path), Raw: data, Matrix: m}, nil
}

// NewSource parses raw text held in memory.
func NewSource(name string, raw []byte, opts ParseOptions) (*Source, error) {
	m, err := ParseBytes(raw, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return &Source{Name: name, Raw: raw, Matrix: m}, nil
}

func convert(field string, untyped bool) Cell {
	if untyped {
		return Str(field)
	}
	if field == "" {
		return Null
	}
	if floatPattern.MatchString(field) {
		if f, err := strconv.ParseFloat(strings.TrimSpace(field), 64); err == nil {
			return Num(f)
		}
	}
	return Str(field)
}
