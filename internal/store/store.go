// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store records generated documents and evaluation results keyed
// by endpoint id. A rerun for the same endpoint id overwrites the previous
// entry.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/pdiddy/specgrade/pkg/types"
)

// ErrNotFound is returned when no entry exists for an endpoint id.
var ErrNotFound = errors.New("not found")

// ResultStore persists the outputs of an evaluation run.
type ResultStore interface {
	SaveGenerated(ctx context.Context, endpointID string, doc types.Document) error
	SaveResult(ctx context.Context, rec types.ResultRecord) error
	LoadGenerated(ctx context.Context, endpointID string) (types.Document, error)
	LoadResult(ctx context.Context, endpointID string) (types.ResultRecord, error)

	// ListResults returns every stored record ordered by endpoint id.
	ListResults(ctx context.Context) ([]types.ResultRecord, error)

	Close() error
}

// Default locations, relative to the working directory.
const (
	DefaultGeneratedDir = "data/generated"
	DefaultResultsDir   = "data/eval_results"
	defaultDBFile       = "specgrade.db"
)

// Open returns the store selected by cfg.Driver. An empty driver selects
// the files store.
func Open(cfg types.StoreConfig) (ResultStore, error) {
	if cfg.GeneratedDir == "" {
		cfg.GeneratedDir = DefaultGeneratedDir
	}
	if cfg.ResultsDir == "" {
		cfg.ResultsDir = DefaultResultsDir
	}

	switch cfg.Driver {
	case types.StoreFiles, "":
		return NewFileStore(cfg.GeneratedDir, cfg.ResultsDir), nil
	case types.StoreMemory:
		return NewMemoryStore(), nil
	case types.StoreSQLite3, types.StoreSQLite:
		dsn := cfg.DSN
		if dsn == "" {
			dsn = filepath.Join(cfg.ResultsDir, defaultDBFile)
		}
		return OpenSQL(cfg.Driver, dsn)
	case types.StorePostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("%w: postgres store requires a dsn (store.dsn or database-dsn secret)", types.ErrConfiguration)
		}
		return OpenSQL(cfg.Driver, cfg.DSN)
	default:
		return nil, fmt.Errorf("%w: unknown store driver %q: use files, memory, sqlite3, sqlite, or postgres",
			types.ErrConfiguration, cfg.Driver)
	}
}

func checkID(endpointID string) error {
	if endpointID == "" {
		return errors.New("empty endpoint id")
	}
	return nil
}
