package research

import (
	"context"
	"sync"
)

// processBatch fans segments out across a pool of numWorkers goroutines
// pulling from a shared work channel, the same bounded worker-pool shape
// the tool-registry provider uses for inbound tool calls: a fixed number of
// goroutines draining a buffered channel rather than one goroutine per
// item. A semaphore additionally caps how many of those workers may call
// handle at once to maxConcurrent, independent of the pool size — e.g. 3
// workers but max_concurrent=1 processes strictly sequentially. The workers
// are started per call and exit once this batch's work is drained. Every segment
// yields exactly one SegmentResult; ordering on the returned channel is not
// guaranteed. A cancelled context still yields a (failed) result for every
// remaining segment so callers can always expect len(segments) results.
func processBatch(ctx context.Context, segments []Segment, numWorkers, maxConcurrent int, handle func(context.Context, Segment) SegmentResult) <-chan SegmentResult {
	results := make(chan SegmentResult, len(segments))
	if len(segments) == 0 {
		close(results)
		return results
	}

	workers := numWorkers
	if workers <= 0 {
		workers = 1
	}
	if workers > len(segments) {
		workers = len(segments)
	}

	sem := maxConcurrent
	if sem <= 0 {
		sem = 1
	}
	tokens := make(chan struct{}, sem)

	work := make(chan Segment, len(segments))
	for _, s := range segments {
		work <- s
	}
	close(work)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for seg := range work {
				if err := ctx.Err(); err != nil {
					results <- SegmentResult{SegmentID: seg.ID, Success: false, Error: err.Error()}
					continue
				}
				tokens <- struct{}{}
				r := handle(ctx, seg)
				<-tokens
				results <- r
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()
	return results
}

// batches splits segments into chunks of at most size, preserving order.
func batches(segments []Segment, size int) [][]Segment {
	if size <= 0 {
		size = len(segments)
	}
	var out [][]Segment
	for size > 0 && len(segments) > 0 {
		n := size
		if n > len(segments) {
			n = len(segments)
		}
		out = append(out, segments[:n])
		segments = segments[n:]
	}
	return out
}
