package output

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/inodb/vibe-regions/internal/annotate"
)

// SummaryReport is the serialized form of a run summary.
type SummaryReport struct {
	Regions     int            `yaml:"regions"`
	Records     int            `yaml:"records"`
	Complete    bool           `yaml:"complete"`
	UniqueGenes int            `yaml:"unique_genes"`
	Genes       []string       `yaml:"genes,omitempty"`
	ByBiotype   map[string]int `yaml:"by_biotype,omitempty"`
	Unmatched   int            `yaml:"unmatched"`
	Anomalies   map[string]int `yaml:"anomalies,omitempty"`
	Failures    []string       `yaml:"failures,omitempty"`
}

// NewSummaryReport builds a report from an annotation result.
func NewSummaryReport(res *annotate.Result) *SummaryReport {
	rep := &SummaryReport{
		Regions:   res.Processed,
		Records:   len(res.Records),
		Complete:  res.Complete,
		Unmatched: len(res.Unmatched),
	}
	if res.Summary != nil {
		rep.UniqueGenes = res.Summary.UniqueGeneCount()
		rep.Genes = res.Summary.Genes()
		if len(res.Summary.ByBiotype) > 0 {
			rep.ByBiotype = res.Summary.ByBiotype
		}
	}
	for _, a := range res.Anomalies {
		if rep.Anomalies == nil {
			rep.Anomalies = make(map[string]int)
		}
		rep.Anomalies[string(a.Reason)]++
	}
	for _, f := range res.Failures {
		rep.Failures = append(rep.Failures, f.Region.String())
	}
	return rep
}

// WriteSummary writes the run summary as YAML.
func WriteSummary(w io.Writer, res *annotate.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(NewSummaryReport(res)); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return enc.Close()
}

// WriteSummaryText writes biotype counts as an aligned table, most frequent first.
func WriteSummaryText(w io.Writer, res *annotate.Result) {
	rep := NewSummaryReport(res)
	fmt.Fprintf(w, "\nAnnotation Summary (%d regions, %d records, %d genes):\n",
		rep.Regions, rep.Records, rep.UniqueGenes)

	type biotypeCount struct {
		biotype string
		count   int
	}
	var sorted []biotypeCount
	for bt, n := range rep.ByBiotype {
		sorted = append(sorted, biotypeCount{bt, n})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].count != sorted[j].count {
			return sorted[i].count > sorted[j].count
		}
		return sorted[i].biotype < sorted[j].biotype
	})

	for _, bc := range sorted {
		fmt.Fprintf(w, "  %-32s%d\n", bc.biotype, bc.count)
	}
	if rep.Unmatched > 0 {
		fmt.Fprintf(w, "  %-32s%d\n", "(no overlap)", rep.Unmatched)
	}
}
