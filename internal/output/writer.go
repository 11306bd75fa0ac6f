package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/inodb/vibe-regions/internal/annotate"
	"github.com/inodb/vibe-regions/internal/region"
)

// Columns are the output columns, in order.
var Columns = []string{
	"chrom",
	"start",
	"end",
	"gene_id",
	"hugo",
	"ensembl_id",
	"strand",
	"biotype",
	"tsl",
	"tx_overlap_pct",
	"exon_overlap_pct",
	"cds_overlap_pct",
	"rank",
}

// Supported output formats.
const (
	FormatTab = "tab"
	FormatCSV = "csv"
)

// RecordWriter writes annotation records in some output format.
type RecordWriter interface {
	WriteHeader() error
	Write(rec *annotate.Record) error
	WriteUnmatched(r region.Region) error
	Flush() error
}

// NewWriter returns a RecordWriter for the named format.
func NewWriter(format string, w io.Writer) (RecordWriter, error) {
	switch format {
	case FormatTab, "":
		return NewTabWriter(w), nil
	case FormatCSV:
		return NewCSVWriter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (use %s or %s)", format, FormatTab, FormatCSV)
	}
}

// WriteResult writes the header and all records of res, grouped by input region.
// regions must be the list that produced res. When keepUnmatched is set,
// every processed region without records gets a placeholder row, except
// regions whose index query failed: those are reported in res.Failures only.
func WriteResult(rw RecordWriter, regions []region.Region, res *annotate.Result, keepUnmatched bool) error {
	if err := rw.WriteHeader(); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	// Identical regions may repeat, so failures are counted per region.
	failed := make(map[region.Region]int, len(res.Failures))
	for _, f := range res.Failures {
		failed[f.Region]++
	}

	processed := min(res.Processed, len(regions))
	next := 0
	for _, r := range regions[:processed] {
		// Records of one region are contiguous and start at rank 1.
		written := 0
		for next < len(res.Records) {
			rec := res.Records[next]
			if rec.Region != r || (written > 0 && rec.Rank == 1) || (written == 0 && rec.Rank != 1) {
				break
			}
			if err := rw.Write(rec); err != nil {
				return fmt.Errorf("write record: %w", err)
			}
			next++
			written++
		}
		if written == 0 && failed[r] > 0 {
			failed[r]--
			continue
		}
		if written == 0 && keepUnmatched {
			if err := rw.WriteUnmatched(r); err != nil {
				return fmt.Errorf("write record: %w", err)
			}
		}
	}

	// Records not attributable to a listed region are still written.
	for _, rec := range res.Records[next:] {
		if err := rw.Write(rec); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	return rw.Flush()
}

func recordFields(rec *annotate.Record, missing string) []string {
	return []string{
		rec.Region.Chrom,
		strconv.FormatInt(rec.Region.Start, 10),
		strconv.FormatInt(rec.Region.End, 10),
		orMissing(rec.GeneID, missing),
		orMissing(rec.Hugo, missing),
		orMissing(rec.TranscriptID, missing),
		orMissing(rec.Strand, missing),
		orMissing(rec.Biotype, missing),
		orMissing(rec.TSL, missing),
		formatPct(rec.TxOverlapPct),
		formatPct(rec.ExonOverlapPct),
		formatPct(rec.CDSOverlapPct),
		strconv.Itoa(rec.Rank),
	}
}

func unmatchedFields(r region.Region, missing string) []string {
	fields := []string{
		r.Chrom,
		strconv.FormatInt(r.Start, 10),
		strconv.FormatInt(r.End, 10),
	}
	for range Columns[3:] {
		fields = append(fields, missing)
	}
	return fields
}

func formatPct(pct float64) string {
	return strconv.FormatFloat(pct, 'f', 3, 64)
}

func orMissing(s, missing string) string {
	if s == "" {
		return missing
	}
	return s
}
