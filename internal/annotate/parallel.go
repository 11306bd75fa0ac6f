package annotate

import (
	"context"
	"runtime"
	"sync"

	"github.com/inodb/vibe-regions/internal/region"
)

// WorkItem holds a region ready for annotation.
type WorkItem struct {
	Seq    int
	Region region.Region
}

// WorkResult holds the annotation output for a single region.
type WorkResult struct {
	Seq    int
	Region region.Region
	Result *RegionResult
	Err    error
}

// ParallelAnnotate annotates work items using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
// Once ctx is cancelled, remaining items are answered with the context error.
// If workers is 0, runtime.NumCPU() is used.
func (a *Annotator) ParallelAnnotate(ctx context.Context, items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				if err := ctx.Err(); err != nil {
					results <- WorkResult{Seq: item.Seq, Region: item.Region, Err: err}
					continue
				}
				rr, err := a.AnnotateRegion(ctx, item.Region)
				results <- WorkResult{
					Seq:    item.Seq,
					Region: item.Region,
					Result: rr,
					Err:    err,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}
