package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-regions/internal/cache"
	"github.com/inodb/vibe-regions/internal/region"
)

// FeatureStore answers overlap queries from the features table.
// It satisfies annotate.FeatureIndex, so an index built once with the
// index command can be reused without re-parsing the GTF.
type FeatureStore struct {
	s *Store
}

// NewFeatureStore returns a feature index backed by the store.
func NewFeatureStore(s *Store) *FeatureStore {
	return &FeatureStore{s: s}
}

// WriteFeatures appends features to the features table using the Appender API.
// Query results keep the order in which features were written for equal starts.
func (fs *FeatureStore) WriteFeatures(ctx context.Context, features []*cache.Feature) error {
	if len(features) == 0 {
		return nil
	}

	var next int64
	if err := fs.s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq) + 1, 0) FROM features").Scan(&next); err != nil {
		return fmt.Errorf("read feature sequence: %w", err)
	}

	conn, err := fs.s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	_, err = appendFeatures(conn, next, features)
	return err
}

// WriteIndex appends every feature of an in-memory index.
func (fs *FeatureStore) WriteIndex(ctx context.Context, ix *cache.Index) error {
	for _, chrom := range ix.Chromosomes() {
		if err := fs.WriteFeatures(ctx, ix.FeaturesByChrom(chrom)); err != nil {
			return fmt.Errorf("write chromosome %s: %w", chrom, err)
		}
	}
	return nil
}

// ReplaceIndex replaces all stored features with those of ix in one transaction.
// On error the previous index is left untouched.
func (fs *FeatureStore) ReplaceIndex(ctx context.Context, ix *cache.Index) error {
	conn, err := fs.s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN TRANSACTION"); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := replaceFeatures(ctx, conn, ix); err != nil {
		if _, rbErr := conn.ExecContext(context.Background(), "ROLLBACK"); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return fmt.Errorf("commit feature index: %w", err)
	}
	return nil
}

// replaceFeatures runs inside the caller's transaction. The appender is closed
// before it returns so nothing is flushed after a rollback.
func replaceFeatures(ctx context.Context, conn *sql.Conn, ix *cache.Index) error {
	if _, err := conn.ExecContext(ctx, "DELETE FROM features"); err != nil {
		return fmt.Errorf("clear features: %w", err)
	}

	var next int64
	for _, chrom := range ix.Chromosomes() {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := appendFeatures(conn, next, ix.FeaturesByChrom(chrom))
		if err != nil {
			return fmt.Errorf("write chromosome %s: %w", chrom, err)
		}
		next += n
	}
	return nil
}

// appendFeatures writes features with sequence numbers starting at next
// and returns how many were written.
func appendFeatures(conn *sql.Conn, next int64, features []*cache.Feature) (int64, error) {
	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "features")
		return err
	}); err != nil {
		return 0, fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for i, f := range features {
		if f.Level == cache.LevelUnknown {
			return 0, fmt.Errorf("append feature %s: unknown level", f.Parent())
		}
		if err := appender.AppendRow(
			next+int64(i), region.NormalizeChrom(f.Chrom), f.Start, f.End, f.Strand,
			f.Level.String(), f.GeneID, f.TranscriptID, f.HugoSymbol, f.Biotype,
			f.ParentTranscriptID, f.TSL,
		); err != nil {
			return 0, fmt.Errorf("append feature: %w", err)
		}
	}

	if err := appender.Flush(); err != nil {
		return 0, fmt.Errorf("flush features: %w", err)
	}
	return int64(len(features)), nil
}

// ClearFeatures removes all stored features.
func (fs *FeatureStore) ClearFeatures() error {
	_, err := fs.s.db.Exec("DELETE FROM features")
	return err
}

// FeatureCount returns the number of stored features.
func (fs *FeatureStore) FeatureCount(ctx context.Context) (int, error) {
	var n int
	if err := fs.s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM features").Scan(&n); err != nil {
		return 0, fmt.Errorf("count features: %w", err)
	}
	return n, nil
}

const featureColumns = `chrom, start_pos, end_pos, strand, level, gene_id, transcript_id,
	hugo_symbol, biotype, parent_transcript_id, tsl`

// QueryOverlapping returns all stored features overlapping [start, end) on chrom,
// in ascending start order.
func (fs *FeatureStore) QueryOverlapping(ctx context.Context, chrom string, start, end int64) ([]*cache.Feature, error) {
	rows, err := fs.s.db.QueryContext(ctx, `SELECT `+featureColumns+`
		FROM features
		WHERE chrom=? AND start_pos < ? AND end_pos > ?
		ORDER BY start_pos, seq`,
		region.NormalizeChrom(chrom), end, start)
	if err != nil {
		return nil, fmt.Errorf("query features: %w", err)
	}
	defer rows.Close()

	return scanFeatures(rows)
}

// LoadInto copies all stored features into an in-memory index and builds it.
func (fs *FeatureStore) LoadInto(ctx context.Context, ix *cache.Index) error {
	rows, err := fs.s.db.QueryContext(ctx, `SELECT `+featureColumns+` FROM features ORDER BY seq`)
	if err != nil {
		return fmt.Errorf("query features: %w", err)
	}
	defer rows.Close()

	features, err := scanFeatures(rows)
	if err != nil {
		return err
	}
	for _, f := range features {
		ix.AddFeature(f)
	}
	ix.Build()
	return nil
}

func scanFeatures(rows *sql.Rows) ([]*cache.Feature, error) {
	var features []*cache.Feature
	for rows.Next() {
		var f cache.Feature
		var level string
		if err := rows.Scan(
			&f.Chrom, &f.Start, &f.End, &f.Strand, &level, &f.GeneID, &f.TranscriptID,
			&f.HugoSymbol, &f.Biotype, &f.ParentTranscriptID, &f.TSL,
		); err != nil {
			return nil, fmt.Errorf("scan feature: %w", err)
		}
		f.Level, _ = cache.ParseLevel(level)
		features = append(features, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate features: %w", err)
	}
	return features, nil
}
