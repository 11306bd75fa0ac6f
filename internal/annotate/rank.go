package annotate

import (
	"cmp"
	"slices"
)

// PriorityKey is the composite sort key of a candidate. Fields are compared in
// declaration order; each only breaks ties left by the previous ones.
// Numeric fields are compared exactly, without tolerance.
type PriorityKey struct {
	TxOverlapPct   float64 // descending
	CDSOverlapPct  float64 // descending
	ExonOverlapPct float64 // descending
	BiotypeRank    int     // ascending
	HasHugo        bool    // true first
	TxLength       int64   // descending
}

// Compare returns a negative number if k ranks before o, a positive number if
// it ranks after, and 0 if the keys are identical.
func (k PriorityKey) Compare(o PriorityKey) int {
	if c := cmp.Compare(o.TxOverlapPct, k.TxOverlapPct); c != 0 {
		return c
	}
	if c := cmp.Compare(o.CDSOverlapPct, k.CDSOverlapPct); c != 0 {
		return c
	}
	if c := cmp.Compare(o.ExonOverlapPct, k.ExonOverlapPct); c != 0 {
		return c
	}
	if c := cmp.Compare(k.BiotypeRank, o.BiotypeRank); c != 0 {
		return c
	}
	if k.HasHugo != o.HasHugo {
		if k.HasHugo {
			return -1
		}
		return 1
	}
	return cmp.Compare(o.TxLength, k.TxLength)
}

// Rank sorts candidates in place by priority and assigns 1-based ranks.
// Candidates with identical keys keep their input order.
func Rank(candidates []*Candidate) {
	slices.SortStableFunc(candidates, func(a, b *Candidate) int {
		return a.Key.Compare(b.Key)
	})
	for i, c := range candidates {
		c.Rank = i + 1
	}
}
