package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/modviz/pkg/table"
)

// File names offered to users downloading a chart's inputs.
const (
	MetadataFile = "metadata.csv"
	ActivityFile = "activity_data.csv"
)

// DownloadFile is one raw input handed back to the user.
type DownloadFile struct {
	Name    string
	Content []byte
}

// Download returns the raw text of the metadata and measurement tables under
// their download names. A nil source is skipped.
func Download(meta, data *table.Source) []DownloadFile {
	var files []DownloadFile
	if meta != nil {
		files = append(files, DownloadFile{Name: MetadataFile, Content: meta.Raw})
	}
	if data != nil {
		files = append(files, DownloadFile{Name: ActivityFile, Content: data.Raw})
	}
	return files
}

// WriteDownloads writes files into dir and returns the paths written.
func WriteDownloads(dir string, files []DownloadFile) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		p := filepath.Join(dir, f.Name)
		if err := os.WriteFile(p, f.Content, 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", f.Name, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}
