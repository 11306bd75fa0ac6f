// Package output provides annotation output formatters.
package output

import (
	"bufio"
	"io"
	"strings"

	"github.com/inodb/vibe-regions/internal/annotate"
	"github.com/inodb/vibe-regions/internal/region"
)

// TabWriter writes annotation records in tab-delimited format.
// Missing values are written as "-".
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w:       bufio.NewWriter(w),
		columns: Columns,
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString("#" + strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes a single record.
func (tw *TabWriter) Write(rec *annotate.Record) error {
	return tw.writeRow(recordFields(rec, "-"))
}

// WriteUnmatched writes a placeholder row for a region without annotations.
func (tw *TabWriter) WriteUnmatched(r region.Region) error {
	return tw.writeRow(unmatchedFields(r, "-"))
}

func (tw *TabWriter) writeRow(values []string) error {
	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}
