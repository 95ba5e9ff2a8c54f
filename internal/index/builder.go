package index

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/aria-lang/metaclassify-go/internal/kmer"
	"github.com/aria-lang/metaclassify-go/internal/progress"
	"github.com/aria-lang/metaclassify-go/internal/sequence"
)

// Warning describes a reference record that contributed no k-mers.
type Warning struct {
	RecordID string
	Label    string
	Length   int
	K        int
}

func (w Warning) String() string {
	return fmt.Sprintf("reference %q (%s) is %d bp, shorter than k=%d; skipped", w.RecordID, w.Label, w.Length, w.K)
}

// Builder accumulates reference records into an Index.
//
// A Builder is not safe for concurrent use; Build parallelizes enumeration
// itself and funnels registration through a single goroutine.
type Builder struct {
	k        int
	mode     Mode
	entries  map[string][]string
	records  int
	warnings []Warning
	built    bool
}

// NewBuilder creates a builder for k-mers of width k.
func NewBuilder(k int, mode Mode) (*Builder, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive")
	}
	if mode != MultiOwner && mode != SingleOwner {
		return nil, fmt.Errorf("unknown index mode %d", mode)
	}

	return &Builder{
		k:       k,
		mode:    mode,
		entries: make(map[string][]string),
	}, nil
}

// Add registers every canonical k-mer occurrence of rec under its label and
// returns the number of registrations. In multi-owner mode a k-mer repeated
// within or across records is registered once per occurrence. A record
// shorter than k registers nothing and is recorded as a warning.
func (b *Builder) Add(rec sequence.Record) int {
	label := rec.Label()
	return b.register(rec, label, kmer.Enumerate(rec.Bases, b.k))
}

func (b *Builder) register(rec sequence.Record, label string, kmers []string) int {
	b.records++

	if rec.Len() < b.k {
		b.warnings = append(b.warnings, Warning{
			RecordID: rec.ID,
			Label:    label,
			Length:   rec.Len(),
			K:        b.k,
		})
		return 0
	}

	for _, km := range kmers {
		switch b.mode {
		case SingleOwner:
			if owners, ok := b.entries[km]; ok {
				owners[0] = label
			} else {
				b.entries[km] = []string{label}
			}
		default:
			b.entries[km] = append(b.entries[km], label)
		}
	}

	return len(kmers)
}

// Records returns the number of records added so far.
func (b *Builder) Records() int {
	return b.records
}

// Warnings returns the non-fatal warnings collected so far.
func (b *Builder) Warnings() []Warning {
	return b.warnings
}

// Build finalizes the index. The builder must not be used afterwards.
func (b *Builder) Build() (*Index, error) {
	if b.built {
		return nil, fmt.Errorf("builder already used")
	}
	if b.records == 0 {
		return nil, ErrNoReferenceData
	}
	if len(b.entries) == 0 {
		return nil, fmt.Errorf("%d reference records yielded no k-mers of width %d: %w", b.records, b.k, ErrNoReferenceData)
	}

	b.built = true
	idx := newIndex(b.k, b.mode, b.entries)
	b.entries = nil
	return idx, nil
}

// Options configures Build.
type Options struct {
	K    int
	Mode Mode
	// Workers is the number of goroutines enumerating k-mers. Zero means
	// runtime.NumCPU(); one builds sequentially.
	Workers int
	// Progress, if non-nil, receives one event per merged record. Sends
	// never block.
	Progress chan<- progress.Event
}

// Build constructs an index from records. Enumeration runs in parallel;
// registration happens in record order, so the result is identical to a
// sequential build.
func Build(ctx context.Context, records []sequence.Record, opts Options) (*Index, []Warning, error) {
	k := opts.K
	if k == 0 {
		k = kmer.DefaultK
	}

	b, err := NewBuilder(k, opts.Mode)
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, ErrNoReferenceData
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	total := len(records)
	chunk := workers * 4

	for start := 0; start < total; start += chunk {
		end := start + chunk
		if end > total {
			end = total
		}

		batch, err := enumerateBatch(ctx, records[start:end], k, workers)
		if err != nil {
			return nil, b.Warnings(), err
		}

		for i, kmers := range batch {
			rec := records[start+i]
			b.register(rec, rec.Label(), kmers)
			progress.Send(opts.Progress, progress.Event{
				Phase:     progress.PhaseIndexing,
				Processed: start + i + 1,
				Total:     total,
			})
		}
	}

	idx, err := b.Build()
	if err != nil {
		return nil, b.Warnings(), err
	}
	return idx, b.Warnings(), nil
}

func enumerateBatch(ctx context.Context, records []sequence.Record, k, workers int) ([][]string, error) {
	out := make([][]string, len(records))

	if workers == 1 {
		for i, rec := range records {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out[i] = kmer.Enumerate(rec.Bases, k)
		}
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range records {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = kmer.Enumerate(records[i].Bases, k)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("enumerating k-mers: %w", err)
	}
	return out, nil
}
