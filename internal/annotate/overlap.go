package annotate

// Overlap returns the number of bases shared by the half-open intervals
// [aStart, aEnd) and [bStart, bEnd). Disjoint or touching intervals give 0.
func Overlap(aStart, aEnd, bStart, bEnd int64) int64 {
	left := max(aStart, bStart)
	right := min(aEnd, bEnd)
	if right <= left {
		return 0
	}
	return right - left
}

// Pct returns overlap as a percentage of total.
// A non-positive total yields 0 rather than NaN or Inf.
func Pct(overlap, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(overlap) / float64(total) * 100
}
