// Package classify assigns query records to reference taxa by k-mer voting
// against a read-only index.
//
// Confidence is the best taxon's tally divided by the number of k-wide
// windows in the query. Every window counts toward that denominator,
// including windows with ambiguous symbols that can never hit the index.
// A multi-owner index holds one owner entry per reference occurrence, so
// repeated k-mers cast several votes and the raw ratio may exceed one. It
// is capped at 1; HitCount keeps the tally.
package classify

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/aria-lang/metaclassify-go/internal/index"
	"github.com/aria-lang/metaclassify-go/internal/kmer"
	"github.com/aria-lang/metaclassify-go/internal/progress"
	"github.com/aria-lang/metaclassify-go/internal/sequence"
)

// DefaultThreshold is the confidence threshold used when none is given.
const DefaultThreshold = 0.1

// Result is the classification of a single query record.
type Result struct {
	SequenceID string  `json:"sequenceId"`
	Outcome    Outcome `json:"classification"`
	Confidence float64 `json:"confidence"`
	HitCount   int     `json:"hitCount"`
	TotalKmers int     `json:"totalKmers"`
}

func (r Result) String() string {
	return fmt.Sprintf("%s\t%s\t%.4f\t%d/%d", r.SequenceID, r.Outcome, r.Confidence, r.HitCount, r.TotalKmers)
}

// Classifier votes query k-mers against an index. It holds no mutable
// state and is safe for concurrent use.
type Classifier struct {
	idx       *index.Index
	threshold float64
}

// New returns a classifier over idx. The window width is the index's k.
func New(idx *index.Index, threshold float64) *Classifier {
	return &Classifier{idx: idx, threshold: threshold}
}

// K returns the window width.
func (c *Classifier) K() int {
	return c.idx.K()
}

// Threshold returns the minimum confidence for a taxon verdict.
func (c *Classifier) Threshold() float64 {
	return c.threshold
}

// tally counts hits per taxon and remembers the order in which taxa were
// first seen, which decides ties.
type tally struct {
	counts map[string]int
	order  []string
}

func (t *tally) add(label string) {
	if _, ok := t.counts[label]; !ok {
		t.order = append(t.order, label)
	}
	t.counts[label]++
}

// best returns the taxon with the highest count; among equal counts the
// one first seen wins.
func (t *tally) best() (string, int) {
	var bestLabel string
	bestCount := 0
	for _, label := range t.order {
		if n := t.counts[label]; n > bestCount {
			bestLabel, bestCount = label, n
		}
	}
	return bestLabel, bestCount
}

// Classify returns the verdict for rec.
func (c *Classifier) Classify(rec sequence.Record) Result {
	k := c.idx.K()
	result := Result{SequenceID: rec.ID}

	if rec.Len() < k {
		result.Outcome = Outcome{Kind: TooShort}
		return result
	}

	t := tally{counts: make(map[string]int)}
	single := c.idx.Mode() == index.SingleOwner

	kmer.Each(rec.Bases, k, func(_ int, km string, valid bool) {
		result.TotalKmers++
		if !valid {
			return
		}
		owners := c.idx.Lookup(km)
		if len(owners) == 0 {
			return
		}
		if single {
			t.add(owners[len(owners)-1])
			return
		}
		for _, label := range owners {
			t.add(label)
		}
	})

	if len(t.order) == 0 {
		result.Outcome = Outcome{Kind: Unclassified}
		return result
	}

	label, count := t.best()
	result.HitCount = count
	result.Confidence = math.Min(1, float64(count)/float64(result.TotalKmers))

	if result.Confidence >= c.threshold {
		result.Outcome = TaxonOutcome(label)
	} else {
		result.Outcome = Outcome{Kind: LowConfidence}
	}

	return result
}

// BatchOptions configures ClassifyAll.
type BatchOptions struct {
	// Workers is the number of classifying goroutines. Zero means
	// runtime.NumCPU().
	Workers int
	// Progress, if non-nil, receives an event every ProgressEvery records.
	Progress      chan<- progress.Event
	ProgressEvery int
}

// DefaultProgressEvery is the reporting interval used when none is set.
const DefaultProgressEvery = 1000

// ClassifyAll classifies records concurrently. Results are in input order.
func (c *Classifier) ClassifyAll(ctx context.Context, records []sequence.Record, opts BatchOptions) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make([]Result, len(records))
	if len(records) == 0 {
		return results, nil
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(records) {
		workers = len(records)
	}
	every := opts.ProgressEvery
	if every <= 0 {
		every = DefaultProgressEvery
	}

	done := make(chan struct{}, len(records))
	reported := make(chan struct{})
	go func() {
		defer close(reported)
		processed := 0
		for range done {
			processed++
			if progress.Every(processed, len(records), every) {
				progress.Send(opts.Progress, progress.Event{
					Phase:     progress.PhaseClassifying,
					Processed: processed,
					Total:     len(records),
				})
			}
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	next := make(chan int)

	g.Go(func() error {
		defer close(next)
		for i := range records {
			if err := gctx.Err(); err != nil {
				return err
			}
			select {
			case next <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range next {
				results[i] = c.Classify(records[i])
				done <- struct{}{}
			}
			return nil
		})
	}

	err := g.Wait()
	close(done)
	<-reported

	if err != nil {
		return nil, err
	}
	return results, nil
}
