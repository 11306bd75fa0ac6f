// Package annotate annotates genomic regions with overlapping transcripts,
// ranking ambiguous hits with a deterministic multi-key priority.
package annotate

import (
	"sort"

	"github.com/inodb/vibe-regions/internal/region"
)

// Record is one reported annotation of a region.
type Record struct {
	Region         region.Region // Input region as given by the caller
	GeneID         string        // Ensembl gene ID
	Hugo           string        // Gene symbol, empty if not annotated
	TranscriptID   string        // Ensembl transcript ID
	Strand         string        // "+" or "-"
	Biotype        string        // Transcript biotype
	TSL            string        // Transcript support level, empty if not annotated
	TxOverlapPct   float64       // Overlap as % of transcript span
	ExonOverlapPct float64       // Overlap as % of summed exon length
	CDSOverlapPct  float64       // Overlap as % of summed CDS length
	Rank           int           // 1-based priority rank within the region
}

// GeneKey returns the identifier used to count unique genes:
// the HUGO symbol when present, otherwise the gene ID.
func (r *Record) GeneKey() string {
	if r.Hugo != "" {
		return r.Hugo
	}
	return r.GeneID
}

// Summary aggregates the records reported in a run.
// It is not safe for concurrent use; the engine updates it from a single collector.
type Summary struct {
	UniqueGenes map[string]struct{}
	ByBiotype   map[string]int
}

// NewSummary creates an empty summary.
func NewSummary() *Summary {
	return &Summary{
		UniqueGenes: make(map[string]struct{}),
		ByBiotype:   make(map[string]int),
	}
}

// Add accounts for one reported record.
func (s *Summary) Add(r *Record) {
	if key := r.GeneKey(); key != "" {
		s.UniqueGenes[key] = struct{}{}
	}
	if r.Biotype != "" {
		s.ByBiotype[r.Biotype]++
	}
}

// UniqueGeneCount returns the number of distinct genes seen.
func (s *Summary) UniqueGeneCount() int {
	return len(s.UniqueGenes)
}

// Genes returns the distinct genes in sorted order.
func (s *Summary) Genes() []string {
	genes := make([]string, 0, len(s.UniqueGenes))
	for g := range s.UniqueGenes {
		genes = append(genes, g)
	}
	sort.Strings(genes)
	return genes
}

// Biotypes returns the counted biotypes in sorted order.
func (s *Summary) Biotypes() []string {
	biotypes := make([]string, 0, len(s.ByBiotype))
	for bt := range s.ByBiotype {
		biotypes = append(biotypes, bt)
	}
	sort.Strings(biotypes)
	return biotypes
}

// Result is the outcome of annotating a list of regions.
type Result struct {
	Records   []*Record       // Reported records, in input region order
	Summary   *Summary        // Aggregate over Records
	Unmatched []region.Region // Regions that produced no record
	Anomalies []Anomaly       // Skipped feature rows
	Failures  []*QueryError   // Regions whose index query failed
	Processed int             // Regions handled, including failures
	Complete  bool            // False if the run was cancelled before all regions were handled
}
