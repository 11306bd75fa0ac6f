package annotate

import "strings"

// BiotypeRankOther is the rank of biotypes matching none of the patterns.
const BiotypeRankOther = 1

// biotypeRule maps a lower-cased biotype predicate to a rank. Lower ranks are preferred.
type biotypeRule struct {
	match func(biotype string) bool
	rank  int
}

// biotypeRules is evaluated top to bottom; the first match wins.
var biotypeRules = []biotypeRule{
	{func(bt string) bool { return bt == "protein_coding" }, 0},
	{func(bt string) bool { return strings.HasSuffix(bt, "rna") }, 2},
	{func(bt string) bool { return strings.HasSuffix(bt, "_decay") }, 3},
	{func(bt string) bool { return strings.HasPrefix(bt, "sense_") }, 4},
	{func(bt string) bool { return bt == "antisense" }, 5},
	{func(bt string) bool { return strings.HasPrefix(bt, "translated_") }, 6},
	{func(bt string) bool { return strings.HasPrefix(bt, "transcribed_") }, 7},
}

// BiotypeRank returns the preference rank of a transcript biotype:
//
//	0 protein_coding
//	1 any other biotype (including empty)
//	2 *RNA (lncRNA, miRNA, snRNA, ...)
//	3 *_decay (nonsense_mediated_decay, non_stop_decay)
//	4 sense_* (sense_intronic, sense_overlapping)
//	5 antisense
//	6 translated_*
//	7 transcribed_*
//
// Matching is case-insensitive.
func BiotypeRank(biotype string) int {
	bt := strings.ToLower(biotype)
	for _, rule := range biotypeRules {
		if rule.match(bt) {
			return rule.rank
		}
	}
	return BiotypeRankOther
}
