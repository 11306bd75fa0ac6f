package annotate

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"github.com/inodb/vibe-regions/internal/cache"
	"github.com/inodb/vibe-regions/internal/region"
)

// FeatureIndex answers overlap queries against a reference feature catalog.
// Implementations return every feature intersecting [start, end) in any
// deterministic order, and must be safe for concurrent queries.
type FeatureIndex interface {
	QueryOverlapping(ctx context.Context, chrom string, start, end int64) ([]*cache.Feature, error)
}

// Annotator annotates regions with overlapping transcripts.
type Annotator struct {
	index   FeatureIndex
	mode    Mode
	workers int
	logger  *zap.Logger
}

// NewAnnotator creates a new annotator over the given index.
// The default mode is best_all.
func NewAnnotator(ix FeatureIndex) *Annotator {
	return &Annotator{
		index:  ix,
		mode:   ModeBestAll,
		logger: zap.NewNop(),
	}
}

// SetMode sets the ambiguity mode. The mode is validated when a run starts.
func (a *Annotator) SetMode(m Mode) {
	a.mode = m
}

// SetWorkers sets the number of concurrent region workers.
// If workers is 0, runtime.NumCPU() is used.
func (a *Annotator) SetWorkers(workers int) {
	a.workers = workers
}

// SetLogger sets the logger for warning and info messages.
func (a *Annotator) SetLogger(l *zap.Logger) {
	a.logger = l
}

// RegionResult holds the outcome of annotating a single region.
type RegionResult struct {
	Region     region.Region
	Candidates []*Candidate // All candidates in ranked order
	Records    []*Record    // Records selected by the ambiguity mode
	Anomalies  []Anomaly
}

// AnnotateRegion queries, groups, ranks and resolves a single region.
// A failed index lookup is returned as a *QueryError; cancellation returns the context error.
func (a *Annotator) AnnotateRegion(ctx context.Context, r region.Region) (*RegionResult, error) {
	features, err := a.index.QueryOverlapping(ctx, r.NormalizedChrom(), r.Start, r.End)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &QueryError{Region: r, Err: err}
	}

	candidates, anomalies := groupFeatures(r, features)
	for _, an := range anomalies {
		a.logger.Debug("skipped feature row",
			zap.Stringer("region", r),
			zap.String("feature", an.FeatureID),
			zap.Stringer("level", an.Level),
			zap.String("reason", an.Reason))
	}

	Rank(candidates)

	picked := Resolve(a.mode, candidates)
	records := make([]*Record, len(picked))
	for i, c := range picked {
		records[i] = c.Record()
	}

	return &RegionResult{
		Region:     r,
		Candidates: candidates,
		Records:    records,
		Anomalies:  anomalies,
	}, nil
}

// Annotate annotates all regions and returns records in input order with a summary.
//
// An invalid mode or region rejects the whole run with a *ConfigError and a nil result.
// Index failures for individual regions are listed in Result.Failures and joined
// into the returned error alongside a non-nil result. If ctx is cancelled, the
// result holds the regions completed in input order, Complete is false, and the
// context error is returned.
func (a *Annotator) Annotate(ctx context.Context, regions []region.Region) (*Result, error) {
	if !a.mode.Valid() {
		return nil, &ConfigError{Field: "mode", Value: string(a.mode), Reason: "must be one of best_all, best_one, all"}
	}
	for i, r := range regions {
		if err := r.Validate(); err != nil {
			return nil, &ConfigError{Field: "region", Value: r.String(), Reason: fmt.Sprintf("region %d: %v", i+1, err)}
		}
	}

	workers := a.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	items := make(chan WorkItem, 2*workers)
	go func() {
		defer close(items)
		for i, r := range regions {
			select {
			case items <- WorkItem{Seq: i, Region: r}:
			case <-ctx.Done():
				return
			}
		}
	}()

	results := a.ParallelAnnotate(ctx, items, workers)

	res := &Result{Summary: NewSummary(), Complete: true}
	var queryErrs []error
	var stopErr error

	if err := OrderedCollect(results, func(wr WorkResult) error {
		if stopErr != nil {
			// Only the completed prefix is reported.
			return nil
		}
		if wr.Err != nil {
			var qe *QueryError
			if !errors.As(wr.Err, &qe) {
				stopErr = wr.Err
				return nil
			}
			a.logger.Warn("feature query failed",
				zap.Stringer("region", wr.Region),
				zap.Error(qe.Err))
			res.Failures = append(res.Failures, qe)
			queryErrs = append(queryErrs, qe)
			res.Processed++
			return nil
		}

		rr := wr.Result
		res.Anomalies = append(res.Anomalies, rr.Anomalies...)
		if len(rr.Records) == 0 {
			res.Unmatched = append(res.Unmatched, rr.Region)
		}
		for _, rec := range rr.Records {
			res.Records = append(res.Records, rec)
			res.Summary.Add(rec)
		}
		res.Processed++
		return nil
	}); err != nil {
		return nil, err
	}

	if stopErr == nil && res.Processed < len(regions) {
		stopErr = ctx.Err()
	}
	if stopErr != nil {
		res.Complete = false
		a.logger.Warn("annotation interrupted",
			zap.Int("processed", res.Processed),
			zap.Int("regions", len(regions)),
			zap.Error(stopErr))
		return res, errors.Join(append([]error{fmt.Errorf("annotation interrupted after %d of %d regions: %w", res.Processed, len(regions), stopErr)}, queryErrs...)...)
	}

	a.logger.Info("annotation complete",
		zap.Int("regions", len(regions)),
		zap.Int("records", len(res.Records)),
		zap.Int("unmatched", len(res.Unmatched)),
		zap.Int("anomalies", len(res.Anomalies)),
		zap.Int("failures", len(res.Failures)),
		zap.Int("unique_genes", res.Summary.UniqueGeneCount()))

	if len(queryErrs) > 0 {
		return res, errors.Join(queryErrs...)
	}
	return res, nil
}
