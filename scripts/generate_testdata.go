//go:build ignore

// generate_testdata.go writes sample chart bundles for manual runs and
// benchmarking of the batch renderer.
// Usage: go run scripts/generate_testdata.go
//
// Creates one directory per bundle under testdata/bundles, each holding a
// metadata.csv and an activity_data.csv.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/vanderheijden86/modviz/pkg/export"
	"github.com/vanderheijden86/modviz/pkg/testutil"
)

type bundleSize struct {
	name       string
	conditions int
	projects   []string
}

var bundles = []bundleSize{
	{"small", 12, []string{"base", "ale"}},
	{"medium", 120, []string{"base", "ale", "fur", "ica", "ssw"}},
	{"large", 600, []string{"base", "ale", "fur", "ica", "ssw", "omics", "ros", "nac"}},
}

func main() {
	outputDir := filepath.Join("testdata", "bundles")

	for _, b := range bundles {
		cfg := testutil.DefaultConfig()
		cfg.Seed = int64(b.conditions) // reproducible per size
		cfg.Conditions = b.conditions
		cfg.Projects = b.projects
		cfg.RunLength = 8

		bundle := testutil.New(cfg).Bundle()

		dir := filepath.Join(outputDir, b.name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create %s: %v\n", dir, err)
			os.Exit(1)
		}
		files := map[string]string{
			export.MetadataFile: bundle.MetadataCSV,
			export.ActivityFile: bundle.MeasurementCSV,
		}
		for name, content := range files {
			path := filepath.Join(dir, name)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", path, err)
				os.Exit(1)
			}
		}
		fmt.Printf("  %s: %d conditions, %d samples, %d project runs\n", dir, b.conditions, bundle.Samples, bundle.Runs)
	}

	fmt.Println("\nDone! Render them with: modviz -batch", outputDir, "-out out -format svg")
}
