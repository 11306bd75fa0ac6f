// Package region provides genomic region types and BED file parsing.
package region

import (
	"fmt"
	"strconv"
	"strings"
)

// Region is a half-open genomic interval [Start, End) on a chromosome.
type Region struct {
	Chrom string // Chromosome name as given in the input (e.g., "chr1", "1")
	Start int64  // 0-based start, inclusive
	End   int64  // 0-based end, exclusive
}

// Len returns the number of bases covered by the region.
func (r Region) Len() int64 {
	return r.End - r.Start
}

// Validate reports whether the region is well formed.
func (r Region) Validate() error {
	if r.Chrom == "" {
		return fmt.Errorf("region %s: empty chromosome", r)
	}
	if r.Start < 0 {
		return fmt.Errorf("region %s: negative start", r)
	}
	if r.Start >= r.End {
		return fmt.Errorf("region %s: start must be less than end", r)
	}
	return nil
}

// NormalizedChrom returns the chromosome name without "chr" prefix.
func (r Region) NormalizedChrom() string {
	return NormalizeChrom(r.Chrom)
}

func (r Region) String() string {
	return fmt.Sprintf("%s:%d-%d", r.Chrom, r.Start, r.End)
}

// NormalizeChrom removes a leading "chr" prefix (any case).
// GENCODE uses "chr1" while many region files use "1"; indexes store the short form.
func NormalizeChrom(chrom string) string {
	if len(chrom) > 3 && strings.EqualFold(chrom[:3], "chr") {
		return chrom[3:]
	}
	return chrom
}

// Parse parses a region written as "chrom:start-end" with 0-based half-open
// coordinates, the form produced by Region.String. Thousands separators are accepted.
func Parse(s string) (Region, error) {
	chrom, span, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Region{}, fmt.Errorf("parse region %q: expected chrom:start-end", s)
	}
	startStr, endStr, ok := strings.Cut(strings.ReplaceAll(span, ",", ""), "-")
	if !ok {
		return Region{}, fmt.Errorf("parse region %q: expected chrom:start-end", s)
	}
	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return Region{}, fmt.Errorf("parse region %q: invalid start: %w", s, err)
	}
	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil {
		return Region{}, fmt.Errorf("parse region %q: invalid end: %w", s, err)
	}

	r := Region{Chrom: chrom, Start: start, End: end}
	if err := r.Validate(); err != nil {
		return Region{}, err
	}
	return r, nil
}
