package output

import (
	"encoding/csv"
	"io"

	"github.com/inodb/vibe-regions/internal/annotate"
	"github.com/inodb/vibe-regions/internal/region"
)

// CSVWriter writes annotation records as RFC 4180 CSV.
// Missing values are written as empty fields.
type CSVWriter struct {
	w *csv.Writer
}

// NewCSVWriter creates a new CSV writer.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{w: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (cw *CSVWriter) WriteHeader() error {
	return cw.w.Write(Columns)
}

// Write writes a single record.
func (cw *CSVWriter) Write(rec *annotate.Record) error {
	return cw.w.Write(recordFields(rec, ""))
}

// WriteUnmatched writes a placeholder row for a region without annotations.
func (cw *CSVWriter) WriteUnmatched(r region.Region) error {
	return cw.w.Write(unmatchedFields(r, ""))
}

// Flush flushes any buffered data to the underlying writer.
func (cw *CSVWriter) Flush() error {
	cw.w.Flush()
	return cw.w.Error()
}
