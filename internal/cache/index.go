package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/inodb/vibe-regions/internal/region"
)

// Index is an in-memory feature catalog answering overlap queries per chromosome.
// Features are added during loading; Build must be called before querying.
// Once built, the index is safe for concurrent queries.
type Index struct {
	mu       sync.RWMutex
	features map[string][]*Feature
	trees    map[string]*IntervalTree
}

// NewIndex creates a new empty index.
func NewIndex() *Index {
	return &Index{
		features: make(map[string][]*Feature),
		trees:    make(map[string]*IntervalTree),
	}
}

// NewIndexFromFeatures creates a built index holding the given features.
func NewIndexFromFeatures(features []*Feature) *Index {
	ix := NewIndex()
	for _, f := range features {
		ix.AddFeature(f)
	}
	ix.Build()
	return ix
}

// AddFeature adds a feature to the index. The feature's chromosome is normalized.
// The affected chromosome must be rebuilt before it can be queried again.
func (ix *Index) AddFeature(f *Feature) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	f.Chrom = region.NormalizeChrom(f.Chrom)
	ix.features[f.Chrom] = append(ix.features[f.Chrom], f)
	delete(ix.trees, f.Chrom)
}

// Build builds interval trees for every chromosome added since the last build.
func (ix *Index) Build() {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	for chrom, features := range ix.features {
		if _, ok := ix.trees[chrom]; !ok {
			ix.trees[chrom] = BuildIntervalTree(features)
		}
	}
}

// QueryOverlapping returns all features whose span intersects [start, end) on chrom.
// The chromosome name may carry a "chr" prefix. Unknown chromosomes yield no features.
func (ix *Index) QueryOverlapping(ctx context.Context, chrom string, start, end int64) ([]*Feature, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chrom = region.NormalizeChrom(chrom)

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	tree, ok := ix.trees[chrom]
	if !ok {
		if _, loaded := ix.features[chrom]; loaded {
			return nil, fmt.Errorf("index for chromosome %s not built", chrom)
		}
		return nil, nil
	}
	return tree.FindOverlaps(start, end), nil
}

// FeatureCount returns the total number of features in the index.
func (ix *Index) FeatureCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	count := 0
	for _, features := range ix.features {
		count += len(features)
	}
	return count
}

// TranscriptCount returns the number of transcript-level features in the index.
func (ix *Index) TranscriptCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	count := 0
	for _, features := range ix.features {
		for _, f := range features {
			if f.Level == LevelTranscript {
				count++
			}
		}
	}
	return count
}

// Chromosomes returns a sorted list of chromosomes in the index.
func (ix *Index) Chromosomes() []string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	chroms := make([]string, 0, len(ix.features))
	for chrom := range ix.features {
		chroms = append(chroms, chrom)
	}
	sort.Strings(chroms)
	return chroms
}

// FeaturesByChrom returns all features for a chromosome in insertion order.
func (ix *Index) FeaturesByChrom(chrom string) []*Feature {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	return ix.features[region.NormalizeChrom(chrom)]
}
