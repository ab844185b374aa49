package classify

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/inodb/vibe-str/internal/report"
)

// ErrStoreNotFrozen is returned by ClassifyAll when the profile store can
// still be modified.
var ErrStoreNotFrozen = errors.New("profile store must be frozen before concurrent classification")

// WorkItem holds the peaks of one sample ready for classification.
type WorkItem struct {
	Seq    int
	Sample string
	Peaks  []*report.Peak
}

// WorkResult holds the outcome of classifying one sample.
type WorkResult struct {
	Seq    int
	Sample string
	Peaks  []*report.Peak
	Err    error
}

// GroupBySample splits peaks into per-sample groups, in order of first
// appearance. Peak order within a group is preserved.
func GroupBySample(peaks []*report.Peak) []WorkItem {
	index := make(map[string]int)
	var items []WorkItem
	for _, pk := range peaks {
		i, ok := index[pk.Sample]
		if !ok {
			i = len(items)
			index[pk.Sample] = i
			items = append(items, WorkItem{Seq: i, Sample: pk.Sample})
		}
		items[i].Peaks = append(items[i].Peaks, pk)
	}
	return items
}

// ParallelClassify classifies samples using a pool of workers.
// Results are sent to the returned channel in arrival order (not sequence order).
// Use OrderedCollect to consume results in sequence-number order.
func (c *Classifier) ParallelClassify(items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = c.workers
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				err := c.ClassifySample(item.Peaks)
				results <- WorkResult{
					Seq:    item.Seq,
					Sample: item.Sample,
					Peaks:  item.Peaks,
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

// ClassifyAll classifies every peak of a report in place, one task per
// sample. The store must be frozen first. The first failing sample, in report
// order, aborts the run and its error is returned.
func (c *Classifier) ClassifyAll(peaks []*report.Peak) error {
	if !c.store.Frozen() {
		return ErrStoreNotFrozen
	}

	groups := GroupBySample(peaks)
	items := make(chan WorkItem, len(groups))
	for _, g := range groups {
		items <- g
	}
	close(items)

	results := c.ParallelClassify(items, min(c.workers, max(len(groups), 1)))

	return OrderedCollect(results, func(r WorkResult) error {
		if r.Err != nil {
			c.logger.Error("failed to classify sample",
				zap.String("sample", r.Sample),
				zap.Error(r.Err))
			return r.Err
		}
		return nil
	})
}

// CountCodes tallies the individual classification codes of peaks.
func CountCodes(peaks []*report.Peak) map[string]int {
	counts := make(map[string]int)
	for _, pk := range peaks {
		for _, code := range pk.Codes() {
			counts[code]++
		}
	}
	return counts
}
