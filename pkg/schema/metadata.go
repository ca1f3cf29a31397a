package schema

import (
	"fmt"
	"strings"

	"github.com/vanderheijden86/modviz/pkg/table"
)

// Well-known metadata column names.
const (
	SampleColumn  = "sample"
	ProjectColumn = "project"
	LinkColumn    = "DOI"
)

// Metadata is a sample metadata table with its well-known columns resolved.
// Sample s (zero-based) lives in matrix row s+1.
type Metadata struct {
	m      *table.Matrix
	header []string

	SampleCol  int
	ProjectCol int
	LinkCol    int
}

// NewMetadata resolves the well-known columns of m. When there is no sample
// column, the first column names the samples.
func NewMetadata(m *table.Matrix) (*Metadata, error) {
	if m.Len() == 0 {
		return nil, fmt.Errorf("metadata: %w", table.ErrEmpty)
	}
	header := m.Header()
	md := &Metadata{
		m:          m,
		header:     header,
		SampleCol:  IndexOf(header, SampleColumn),
		ProjectCol: IndexOf(header, ProjectColumn),
		LinkCol:    IndexOf(header, LinkColumn),
	}
	if md.SampleCol == NotFound {
		md.SampleCol = 0
	}
	return md, nil
}

// Header returns the column names.
func (md *Metadata) Header() []string {
	return md.header
}

// Label returns the header name of col, or "" for NotFound.
func (md *Metadata) Label(col int) string {
	if col < 0 || col >= len(md.header) {
		return ""
	}
	return md.header[col]
}

// NumSamples returns the number of sample rows, ignoring a trailing blank
// sentinel row.
func (md *Metadata) NumSamples() int {
	n := md.m.Len() - 1
	if n > 0 && md.m.IsBlankRow(md.m.Len()-1) {
		n--
	}
	if n < 0 {
		return 0
	}
	return n
}

// Check returns a malformed-input error when sample is not a valid sample
// index.
func (md *Metadata) Check(sample int) error {
	if sample < 0 || sample >= md.NumSamples() {
		return table.Malformedf("sample index %d outside metadata table of %d samples", sample, md.NumSamples())
	}
	return nil
}

// Value returns the metadata cell for sample in col. NotFound columns and
// out-of-range samples yield Null.
func (md *Metadata) Value(sample, col int) table.Cell {
	if col == NotFound {
		return table.Null
	}
	return md.m.At(sample+1, col)
}

// SampleName returns the display name of sample.
func (md *Metadata) SampleName(sample int) string {
	return md.Value(sample, md.SampleCol).String()
}

// Project returns the project cell of sample.
func (md *Metadata) Project(sample int) table.Cell {
	return md.Value(sample, md.ProjectCol)
}

// Link returns the publication URL of sample, if the metadata has one. The
// link cell sometimes carries a citation before the DOI, so only its last word
// is used; bare DOIs and hosts get an http:// prefix.
func (md *Metadata) Link(sample int) (string, bool) {
	cell := md.Value(sample, md.LinkCol)
	if cell.IsNull() {
		return "", false
	}
	words := strings.Fields(cell.String())
	if len(words) == 0 {
		return "", false
	}
	link := words[len(words)-1]
	if strings.HasPrefix(link, "h") {
		return link, true
	}
	return "http://" + link, true
}
