// Package report writes run results as JSON, CSV tables and a terminal
// summary.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/experia/internal/pipeline"
)

// Output file names inside the output directory
const (
	ResultsFile   = "results.json"
	EstimatesFile = "estimates.csv"
	SpansFile     = "spans.csv"
)

// Renderer writes a run's artifacts to a directory
type Renderer struct {
	dir string
}

// NewRenderer creates a renderer for dir
func NewRenderer(dir string) *Renderer {
	return &Renderer{dir: dir}
}

// Render writes every artifact and returns the paths written
func (r *Renderer) Render(result *pipeline.Result) ([]string, error) {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	var written []string

	path := filepath.Join(r.dir, ResultsFile)
	if err := RenderJSON(result, path); err != nil {
		return written, fmt.Errorf("render JSON: %w", err)
	}
	written = append(written, path)

	path = filepath.Join(r.dir, EstimatesFile)
	if err := writeFile(path, func(f *os.File) error { return WriteEstimates(f, result.Estimates) }); err != nil {
		return written, fmt.Errorf("render estimates: %w", err)
	}
	written = append(written, path)

	path = filepath.Join(r.dir, SpansFile)
	if err := writeFile(path, func(f *os.File) error { return WriteSpans(f, result) }); err != nil {
		return written, fmt.Errorf("render spans: %w", err)
	}
	written = append(written, path)

	return written, nil
}

// RenderJSON writes the full result as indented JSON
func RenderJSON(result *pipeline.Result, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

func writeFile(path string, write func(*os.File) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()
	return write(f)
}
