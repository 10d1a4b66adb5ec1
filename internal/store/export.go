// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/specgrade/pkg/types"
)

// Export formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Export is the document written by an export: every stored result and the
// summary over them.
type Export struct {
	Summary types.Summary        `json:"summary" yaml:"summary"`
	Results []types.ResultRecord `json:"results" yaml:"results"`
}

// BuildExport collects all results from s and summarizes them against t.
func BuildExport(ctx context.Context, s ResultStore, t types.Targets) (Export, error) {
	records, err := s.ListResults(ctx)
	if err != nil {
		return Export{}, fmt.Errorf("querying for export: %w", err)
	}
	if records == nil {
		records = []types.ResultRecord{}
	}
	return Export{
		Summary: types.Summarize(records).ApplyTargets(t),
		Results: records,
	}, nil
}

// WriteExport encodes e to w in the given format.
func WriteExport(w io.Writer, e Export, format string) error {
	switch format {
	case FormatYAML, "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("marshaling YAML: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
}

// ExportFile writes the export to <dir>/export.<format> and returns the path.
func ExportFile(ctx context.Context, s ResultStore, t types.Targets, dir, format string) (string, error) {
	if format == "" {
		format = FormatYAML
	}
	e, err := BuildExport(ctx, s, t)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating export directory: %w", err)
	}

	path := filepath.Join(dir, "export."+format)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteExport(f, e, format); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	return path, f.Close()
}
