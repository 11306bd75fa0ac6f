package annotate

import (
	"github.com/inodb/vibe-regions/internal/cache"
	"github.com/inodb/vibe-regions/internal/region"
)

// Candidate aggregates the overlap of one region with one transcript and its
// exon and CDS children.
type Candidate struct {
	Region       region.Region
	TranscriptID string
	GeneID       string
	HugoSymbol   string
	Biotype      string
	Strand       string
	TSL          string

	TxOverlapBases   int64
	TxLengthBases    int64
	ExonOverlapBases int64
	ExonTotalBases   int64
	CDSOverlapBases  int64
	CDSTotalBases    int64

	Key  PriorityKey
	Rank int // 1-based position after ranking, 0 before
}

// TxOverlapPct returns the overlap as a percentage of the transcript span.
func (c *Candidate) TxOverlapPct() float64 {
	return Pct(c.TxOverlapBases, c.TxLengthBases)
}

// ExonOverlapPct returns the overlap as a percentage of the summed exon length.
func (c *Candidate) ExonOverlapPct() float64 {
	return Pct(c.ExonOverlapBases, c.ExonTotalBases)
}

// CDSOverlapPct returns the overlap as a percentage of the summed CDS length.
func (c *Candidate) CDSOverlapPct() float64 {
	return Pct(c.CDSOverlapBases, c.CDSTotalBases)
}

// computeKey fills in the candidate's priority key from its overlap totals.
func (c *Candidate) computeKey() {
	c.Key = PriorityKey{
		TxOverlapPct:   c.TxOverlapPct(),
		CDSOverlapPct:  c.CDSOverlapPct(),
		ExonOverlapPct: c.ExonOverlapPct(),
		BiotypeRank:    BiotypeRank(c.Biotype),
		HasHugo:        c.HugoSymbol != "",
		TxLength:       c.TxLengthBases,
	}
}

// Record converts the candidate into an output record.
func (c *Candidate) Record() *Record {
	return &Record{
		Region:         c.Region,
		GeneID:         c.GeneID,
		Hugo:           c.HugoSymbol,
		TranscriptID:   c.TranscriptID,
		Strand:         c.Strand,
		Biotype:        c.Biotype,
		TSL:            c.TSL,
		TxOverlapPct:   c.Key.TxOverlapPct,
		ExonOverlapPct: c.Key.ExonOverlapPct,
		CDSOverlapPct:  c.Key.CDSOverlapPct,
		Rank:           c.Rank,
	}
}

// groupFeatures consolidates raw index hits into one candidate per transcript,
// in order of first appearance of the transcript row. Exon and CDS rows are
// aggregated into their parent. Rows that cannot be used are reported as anomalies.
// Transcripts that do not intersect the region yield no candidate.
func groupFeatures(r region.Region, features []*cache.Feature) ([]*Candidate, []Anomaly) {
	var anomalies []Anomaly
	anomaly := func(f *cache.Feature, reason string) {
		anomalies = append(anomalies, Anomaly{
			Region:    r,
			FeatureID: featureID(f),
			Level:     f.Level,
			Reason:    reason,
		})
	}

	byID := make(map[string]*Candidate)
	var candidates []*Candidate

	for _, f := range features {
		if f.Level != cache.LevelTranscript {
			continue
		}
		switch {
		case f.TranscriptID == "":
			anomaly(f, AnomalyMissingID)
			continue
		case f.Len() <= 0:
			anomaly(f, AnomalyEmptySpan)
			continue
		}
		if _, ok := byID[f.TranscriptID]; ok {
			anomaly(f, AnomalyDuplicate)
			continue
		}

		c := &Candidate{
			Region:         r,
			TranscriptID:   f.TranscriptID,
			GeneID:         f.GeneID,
			HugoSymbol:     f.HugoSymbol,
			Biotype:        f.Biotype,
			Strand:         f.Strand,
			TSL:            f.TSL,
			TxOverlapBases: Overlap(r.Start, r.End, f.Start, f.End),
			TxLengthBases:  f.Len(),
		}
		byID[f.TranscriptID] = c
		candidates = append(candidates, c)
	}

	for _, f := range features {
		if f.Level != cache.LevelExon && f.Level != cache.LevelCDS {
			continue
		}
		parent := f.Parent()
		switch {
		case parent == "":
			anomaly(f, AnomalyMissingID)
			continue
		case f.Len() <= 0:
			anomaly(f, AnomalyEmptySpan)
			continue
		}
		c, ok := byID[parent]
		if !ok {
			anomaly(f, AnomalyOrphan)
			continue
		}

		ol := Overlap(r.Start, r.End, f.Start, f.End)
		if f.Level == cache.LevelExon {
			c.ExonOverlapBases += ol
			c.ExonTotalBases += f.Len()
		} else {
			c.CDSOverlapBases += ol
			c.CDSTotalBases += f.Len()
		}
	}

	kept := candidates[:0]
	for _, c := range candidates {
		if c.TxOverlapBases == 0 {
			continue
		}
		c.computeKey()
		kept = append(kept, c)
	}

	return kept, anomalies
}

func featureID(f *cache.Feature) string {
	switch {
	case f.TranscriptID != "":
		return f.TranscriptID
	case f.ParentTranscriptID != "":
		return f.ParentTranscriptID
	default:
		return f.GeneID
	}
}
