// Package duckdb provides persistent storage for reference features and annotation results.
// Parsed features are cached as gob files (fast, pure Go).
// Features and annotation results are stored in DuckDB (queryable, append-only).
package duckdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb"
)

// Store manages a DuckDB connection holding the feature index and annotation results.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates a DuckDB database at the given path.
// Use an empty string for an in-memory database.
func Open(path string) (*Store, error) {
	if path != "" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	s := &Store{db: db, path: path}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for direct access.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Path returns the database file path, empty for in-memory databases.
func (s *Store) Path() string {
	return s.path
}

// ensureSchema creates tables if they don't exist.
func (s *Store) ensureSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS features (
			seq BIGINT,
			chrom VARCHAR,
			start_pos BIGINT,
			end_pos BIGINT,
			strand VARCHAR,
			level VARCHAR,
			gene_id VARCHAR,
			transcript_id VARCHAR,
			hugo_symbol VARCHAR,
			biotype VARCHAR,
			parent_transcript_id VARCHAR,
			tsl VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS annotation_results (
			chrom VARCHAR,
			start_pos BIGINT,
			end_pos BIGINT,
			gene_id VARCHAR,
			hugo VARCHAR,
			transcript_id VARCHAR,
			strand VARCHAR,
			biotype VARCHAR,
			tsl VARCHAR,
			tx_overlap_pct DOUBLE,
			exon_overlap_pct DOUBLE,
			cds_overlap_pct DOUBLE,
			priority_rank BIGINT,
			PRIMARY KEY (chrom, start_pos, end_pos, transcript_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}
