package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	goduckdb "github.com/marcboeker/go-duckdb"

	"github.com/inodb/vibe-regions/internal/annotate"
	"github.com/inodb/vibe-regions/internal/region"
)

// resultKey is the composite key for deduplicating records before writing.
type resultKey struct {
	chrom, transcriptID string
	start, end          int64
}

// WriteRecords batch-inserts annotation records into DuckDB using the Appender API.
// Earlier results for the same regions are replaced. Duplicate
// (chrom, start, end, transcript_id) entries keep the first occurrence.
func (s *Store) WriteRecords(ctx context.Context, records []*annotate.Record) error {
	if len(records) == 0 {
		return nil
	}

	seen := make(map[resultKey]bool, len(records))
	regions := make(map[region.Region]bool)
	deduped := make([]*annotate.Record, 0, len(records))
	for _, r := range records {
		k := resultKey{r.Region.Chrom, r.TranscriptID, r.Region.Start, r.Region.End}
		if !seen[k] {
			seen[k] = true
			regions[r.Region] = true
			deduped = append(deduped, r)
		}
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	for r := range regions {
		if _, err := conn.ExecContext(ctx,
			"DELETE FROM annotation_results WHERE chrom=? AND start_pos=? AND end_pos=?",
			r.Chrom, r.Start, r.End); err != nil {
			return fmt.Errorf("replace results for %s: %w", r, err)
		}
	}

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "annotation_results")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, r := range deduped {
		if err := appender.AppendRow(
			r.Region.Chrom, r.Region.Start, r.Region.End,
			r.GeneID, r.Hugo, r.TranscriptID, r.Strand, r.Biotype, r.TSL,
			r.TxOverlapPct, r.ExonOverlapPct, r.CDSOverlapPct, int64(r.Rank),
		); err != nil {
			return fmt.Errorf("append annotation result: %w", err)
		}
	}

	return appender.Flush()
}

// ClearResults removes all stored annotation results.
func (s *Store) ClearResults() error {
	_, err := s.db.Exec("DELETE FROM annotation_results")
	return err
}

const resultColumns = `chrom, start_pos, end_pos, gene_id, hugo, transcript_id, strand,
	biotype, tsl, tx_overlap_pct, exon_overlap_pct, cds_overlap_pct, priority_rank`

// LookupRegion returns the stored records of a region in rank order.
// The region must match the one that was annotated exactly.
func (s *Store) LookupRegion(ctx context.Context, r region.Region) ([]*annotate.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+resultColumns+`
		FROM annotation_results
		WHERE chrom=? AND start_pos=? AND end_pos=?
		ORDER BY priority_rank`,
		r.Chrom, r.Start, r.End)
	if err != nil {
		return nil, fmt.Errorf("query region: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// SearchByGene returns all stored records whose HUGO symbol or gene ID matches gene.
func (s *Store) SearchByGene(ctx context.Context, gene string) ([]*annotate.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+resultColumns+`
		FROM annotation_results
		WHERE hugo=? OR gene_id=?
		ORDER BY chrom, start_pos, end_pos, priority_rank`,
		gene, gene)
	if err != nil {
		return nil, fmt.Errorf("query by gene: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]*annotate.Record, error) {
	var records []*annotate.Record
	for rows.Next() {
		var rec annotate.Record
		var rank int64
		if err := rows.Scan(
			&rec.Region.Chrom, &rec.Region.Start, &rec.Region.End,
			&rec.GeneID, &rec.Hugo, &rec.TranscriptID, &rec.Strand,
			&rec.Biotype, &rec.TSL, &rec.TxOverlapPct, &rec.ExonOverlapPct, &rec.CDSOverlapPct,
			&rank,
		); err != nil {
			return nil, fmt.Errorf("scan annotation result: %w", err)
		}
		rec.Rank = int(rank)
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate annotation results: %w", err)
	}
	return records, nil
}
