package cache

import "sort"

// IntervalTree answers overlap queries over a start-sorted slice.
// A query costs O(log n + m), where m counts the intervals between the first one
// reaching past the query start and the query end; m equals the number of hits
// unless a long interval spans many short ones.
// Features are loaded once and never modified after build.
type IntervalTree struct {
	intervals []interval
	maxEnd    []int64 // maxEnd[i] = max(end) for intervals[:i+1]
}

type interval struct {
	start   int64
	end     int64
	feature *Feature
}

// BuildIntervalTree creates an interval tree from a slice of features.
// Features with equal start keep their input order.
func BuildIntervalTree(features []*Feature) *IntervalTree {
	if len(features) == 0 {
		return &IntervalTree{}
	}

	intervals := make([]interval, len(features))
	for i, f := range features {
		intervals[i] = interval{start: f.Start, end: f.End, feature: f}
	}

	sort.SliceStable(intervals, func(i, j int) bool {
		return intervals[i].start < intervals[j].start
	})

	// Prefix-max array: maxEnd[i] = max(end) for intervals[:i+1]
	maxEnd := make([]int64, len(intervals))
	maxEnd[0] = intervals[0].end
	for i := 1; i < len(intervals); i++ {
		maxEnd[i] = max(maxEnd[i-1], intervals[i].end)
	}

	return &IntervalTree{intervals: intervals, maxEnd: maxEnd}
}

// Len returns the number of intervals in the tree.
func (t *IntervalTree) Len() int {
	return len(t.intervals)
}

// FindOverlaps returns all features intersecting the half-open range [start, end),
// ordered by feature start.
func (t *IntervalTree) FindOverlaps(start, end int64) []*Feature {
	if len(t.intervals) == 0 || start >= end {
		return nil
	}

	// hi is the first index with start >= end; candidates are [0, hi).
	hi := sort.Search(len(t.intervals), func(i int) bool {
		return t.intervals[i].start >= end
	})

	// maxEnd is non-decreasing, so lo is the first index whose prefix reaches past start.
	lo := sort.Search(hi, func(i int) bool {
		return t.maxEnd[i] > start
	})

	var result []*Feature
	for i := lo; i < hi; i++ {
		if t.intervals[i].end > start {
			result = append(result, t.intervals[i].feature)
		}
	}
	return result
}
