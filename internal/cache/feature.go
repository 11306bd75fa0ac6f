// Package cache provides the reference feature catalog and its interval index.
package cache

import "fmt"

// Level is the annotation level of a feature.
type Level uint8

// Feature levels, from coarse to fine.
const (
	LevelUnknown Level = iota
	LevelGene
	LevelTranscript
	LevelExon
	LevelCDS
)

// String returns the GTF feature type for the level.
func (l Level) String() string {
	switch l {
	case LevelGene:
		return "gene"
	case LevelTranscript:
		return "transcript"
	case LevelExon:
		return "exon"
	case LevelCDS:
		return "CDS"
	default:
		return "unknown"
	}
}

// ParseLevel maps a GTF feature type column to a Level.
// Returns false for feature types that are not indexed (UTR, start_codon, ...).
func ParseLevel(featureType string) (Level, bool) {
	switch featureType {
	case "gene":
		return LevelGene, true
	case "transcript":
		return LevelTranscript, true
	case "exon":
		return LevelExon, true
	case "CDS", "cds":
		return LevelCDS, true
	}
	return LevelUnknown, false
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	if l == LevelUnknown {
		return nil, fmt.Errorf("marshal level: unknown level %d", uint8(l))
	}
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	level, ok := ParseLevel(string(text))
	if !ok {
		return fmt.Errorf("unmarshal level: unknown feature type %q", text)
	}
	*l = level
	return nil
}

// Feature is one annotated genomic element: a gene, transcript, exon or CDS segment.
type Feature struct {
	Chrom              string `json:"chrom"`                          // Chromosome, normalized (no "chr" prefix)
	Start              int64  `json:"start"`                          // 0-based start, inclusive
	End                int64  `json:"end"`                            // 0-based end, exclusive
	Strand             string `json:"strand"`                         // "+" or "-"
	Level              Level  `json:"level"`                          // Annotation level
	GeneID             string `json:"gene_id"`                        // Ensembl gene ID (e.g., ENSG00000133703)
	TranscriptID       string `json:"transcript_id,omitempty"`        // Ensembl transcript ID, empty for genes
	HugoSymbol         string `json:"hugo_symbol,omitempty"`          // Gene symbol, empty if not annotated
	Biotype            string `json:"biotype,omitempty"`              // Transcript biotype (gene biotype for genes)
	ParentTranscriptID string `json:"parent_transcript_id,omitempty"` // Owning transcript for exon and CDS features
	TSL                string `json:"tsl,omitempty"`                  // Transcript support level, empty if not annotated
}

// Len returns the span of the feature in bases.
func (f *Feature) Len() int64 {
	return f.End - f.Start
}

// Overlaps reports whether the feature intersects the half-open range [start, end).
func (f *Feature) Overlaps(start, end int64) bool {
	return f.Start < end && f.End > start
}

// IsForwardStrand returns true if the feature is on the forward strand.
func (f *Feature) IsForwardStrand() bool {
	return f.Strand == "+"
}

// Parent returns the transcript an exon or CDS feature belongs to.
func (f *Feature) Parent() string {
	if f.ParentTranscriptID != "" {
		return f.ParentTranscriptID
	}
	return f.TranscriptID
}
