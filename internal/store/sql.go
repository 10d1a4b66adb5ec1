// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/pdiddy/specgrade/pkg/types"
)

// SQLStore keeps generated documents and results in two tables keyed by
// endpoint id. The same statements serve SQLite (mattn/go-sqlite3 or
// modernc.org/sqlite) and PostgreSQL; only placeholders differ.
type SQLStore struct {
	db       *sql.DB
	postgres bool
}

// OpenSQL opens a database with the named driver and creates the schema.
// For the SQLite drivers dsn is a file path; its directory is created.
func OpenSQL(driver types.StoreDriver, dsn string) (*SQLStore, error) {
	source := dsn
	switch driver {
	case types.StoreSQLite3:
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		source = dsn + "?_journal_mode=WAL&_busy_timeout=5000"
	case types.StoreSQLite:
		if err := ensureDir(dsn); err != nil {
			return nil, err
		}
		source = dsn + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	case types.StorePostgres:
	default:
		return nil, fmt.Errorf("%w: unsupported SQL driver %q", types.ErrConfiguration, driver)
	}

	db, err := sql.Open(string(driver), source)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s, err := NewSQLStore(db, driver)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database and creates the schema if it does not
// exist.
func NewSQLStore(db *sql.DB, driver types.StoreDriver) (*SQLStore, error) {
	s := &SQLStore{db: db, postgres: driver == types.StorePostgres}
	if err := s.createSchema(); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating database directory %s: %w", dir, err)
	}
	return nil
}

// Close releases the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS generated_specs (
			endpoint_id TEXT PRIMARY KEY,
			document TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			endpoint_id TEXT PRIMARY KEY,
			api TEXT NOT NULL,
			generator TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			endpoint_coverage DOUBLE PRECISION NOT NULL,
			field_accuracy DOUBLE PRECISION NOT NULL,
			hallucination_rate DOUBLE PRECISION NOT NULL,
			schema_validity DOUBLE PRECISION NOT NULL,
			overall_score DOUBLE PRECISION NOT NULL,
			error TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_api ON results(api)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) SaveGenerated(ctx context.Context, endpointID string, doc types.Document) error {
	if err := checkID(endpointID); err != nil {
		return err
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling generated document %s: %w", endpointID, err)
	}
	_, err = s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO generated_specs (endpoint_id, document, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(endpoint_id) DO UPDATE SET
			document=excluded.document, updated_at=excluded.updated_at`),
		endpointID, string(data), time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting generated document %s: %w", endpointID, err)
	}
	return nil
}

func (s *SQLStore) SaveResult(ctx context.Context, rec types.ResultRecord) error {
	if err := checkID(rec.EndpointID); err != nil {
		return err
	}
	m := rec.Metrics
	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO results (endpoint_id, api, generator, timestamp,
			endpoint_coverage, field_accuracy, hallucination_rate, schema_validity, overall_score, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(endpoint_id) DO UPDATE SET
			api=excluded.api, generator=excluded.generator, timestamp=excluded.timestamp,
			endpoint_coverage=excluded.endpoint_coverage, field_accuracy=excluded.field_accuracy,
			hallucination_rate=excluded.hallucination_rate, schema_validity=excluded.schema_validity,
			overall_score=excluded.overall_score, error=excluded.error`),
		rec.EndpointID, rec.API, rec.Generator, rec.Timestamp.UTC().Format(time.RFC3339Nano),
		m.EndpointCoverage, m.FieldAccuracy, m.HallucinationRate, m.SchemaValidity, m.OverallScore,
		rec.Error,
	)
	if err != nil {
		return fmt.Errorf("upserting result %s: %w", rec.EndpointID, err)
	}
	return nil
}

func (s *SQLStore) LoadGenerated(ctx context.Context, endpointID string) (types.Document, error) {
	var data string
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT document FROM generated_specs WHERE endpoint_id = ?`), endpointID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("generated document %s: %w", endpointID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying generated document %s: %w", endpointID, err)
	}

	var doc types.Document
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("parsing generated document %s: %w", endpointID, err)
	}
	return doc, nil
}

const resultColumns = `endpoint_id, api, generator, timestamp,
	endpoint_coverage, field_accuracy, hallucination_rate, schema_validity, overall_score, error`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (types.ResultRecord, error) {
	var rec types.ResultRecord
	var ts string
	m := &rec.Metrics
	err := row.Scan(&rec.EndpointID, &rec.API, &rec.Generator, &ts,
		&m.EndpointCoverage, &m.FieldAccuracy, &m.HallucinationRate, &m.SchemaValidity, &m.OverallScore,
		&rec.Error)
	if err != nil {
		return rec, err
	}
	rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return rec, fmt.Errorf("parsing timestamp for %s: %w", rec.EndpointID, err)
	}
	return rec, nil
}

func (s *SQLStore) LoadResult(ctx context.Context, endpointID string) (types.ResultRecord, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT `+resultColumns+` FROM results WHERE endpoint_id = ?`), endpointID)
	rec, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.ResultRecord{}, fmt.Errorf("result %s: %w", endpointID, ErrNotFound)
	}
	if err != nil {
		return types.ResultRecord{}, fmt.Errorf("querying result %s: %w", endpointID, err)
	}
	return rec, nil
}

func (s *SQLStore) ListResults(ctx context.Context) ([]types.ResultRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+resultColumns+` FROM results ORDER BY endpoint_id`)
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}
	defer rows.Close()

	var records []types.ResultRecord
	for rows.Next() {
		rec, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
