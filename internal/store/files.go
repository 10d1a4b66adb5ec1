// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdiddy/specgrade/pkg/types"
)

const (
	generatedSuffix = "_generated.json"
	resultsSuffix   = "_results.json"
)

// FileStore writes one JSON file per endpoint id:
// <generatedDir>/<id>_generated.json and <resultsDir>/<id>_results.json.
// Directories are created on first write.
type FileStore struct {
	generatedDir string
	resultsDir   string
}

// NewFileStore returns a store rooted at the two directories.
func NewFileStore(generatedDir, resultsDir string) *FileStore {
	return &FileStore{generatedDir: generatedDir, resultsDir: resultsDir}
}

// GeneratedPath returns the file a generated document is written to.
func (s *FileStore) GeneratedPath(endpointID string) string {
	return filepath.Join(s.generatedDir, endpointID+generatedSuffix)
}

// ResultPath returns the file a result record is written to.
func (s *FileStore) ResultPath(endpointID string) string {
	return filepath.Join(s.resultsDir, endpointID+resultsSuffix)
}

func (s *FileStore) SaveGenerated(_ context.Context, endpointID string, doc types.Document) error {
	if err := checkID(endpointID); err != nil {
		return err
	}
	return writeJSON(s.GeneratedPath(endpointID), doc)
}

func (s *FileStore) SaveResult(_ context.Context, rec types.ResultRecord) error {
	if err := checkID(rec.EndpointID); err != nil {
		return err
	}
	return writeJSON(s.ResultPath(rec.EndpointID), rec)
}

func (s *FileStore) LoadGenerated(_ context.Context, endpointID string) (types.Document, error) {
	var doc types.Document
	if err := readJSON(s.GeneratedPath(endpointID), &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *FileStore) LoadResult(_ context.Context, endpointID string) (types.ResultRecord, error) {
	var rec types.ResultRecord
	err := readJSON(s.ResultPath(endpointID), &rec)
	return rec, err
}

func (s *FileStore) ListResults(ctx context.Context) ([]types.ResultRecord, error) {
	entries, err := os.ReadDir(s.resultsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading results directory %s: %w", s.resultsDir, err)
	}

	var ids []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), resultsSuffix) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(e.Name(), resultsSuffix))
	}
	sort.Strings(ids)

	records := make([]types.ResultRecord, 0, len(ids))
	for _, id := range ids {
		rec, err := s.LoadResult(ctx, id)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close is a no-op.
func (s *FileStore) Close() error {
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	data = append(data, '\n')

	// Readers such as the HTTP server see either the old file or the new
	// one, never a partial write: the bytes go to a temp file in the same
	// directory, which is then renamed over path.
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}
