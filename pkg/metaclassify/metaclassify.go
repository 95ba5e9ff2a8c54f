// Package metaclassify is the public entry point for k-mer taxonomic
// classification.
//
// An Engine owns one reference index at a time and runs one analysis at a
// time. A build or classification started while another is running fails
// immediately with ErrConcurrentRun.
//
// Example usage:
//
//	engine := metaclassify.New(metaclassify.Options{K: 31})
//	if _, err := engine.BuildIndex(ctx, []metaclassify.Source{{Name: "ecoli.fasta", Text: refs}}); err != nil {
//	    log.Fatal(err)
//	}
//
//	rep, err := engine.Classify(ctx, reads)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	rep.WriteText(os.Stdout)
package metaclassify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aria-lang/metaclassify-go/internal/classify"
	"github.com/aria-lang/metaclassify-go/internal/index"
	"github.com/aria-lang/metaclassify-go/internal/kmer"
	"github.com/aria-lang/metaclassify-go/internal/progress"
	"github.com/aria-lang/metaclassify-go/internal/report"
	"github.com/aria-lang/metaclassify-go/internal/sequence"
	"github.com/aria-lang/metaclassify-go/internal/stats"
)

// Re-export types for convenience
type (
	Record   = sequence.Record
	Index    = index.Index
	Mode     = index.Mode
	Warning  = index.Warning
	Result   = classify.Result
	Outcome  = classify.Outcome
	Report   = report.Report
	Event    = progress.Event
	SetStats = stats.SetStats
)

const (
	MultiOwner  = index.MultiOwner
	SingleOwner = index.SingleOwner
)

var (
	// ErrConcurrentRun is returned when a build or classification is
	// started while another one is running on the same engine.
	ErrConcurrentRun = errors.New("analysis already in progress")
	// ErrNoIndex is returned by Classify before any index is installed.
	ErrNoIndex = errors.New("no reference index loaded")
	// ErrNoReferenceData is returned when a build has no usable reference
	// sequences.
	ErrNoReferenceData = index.ErrNoReferenceData
)

// DefaultProgressBuffer is the capacity of the progress channel.
const DefaultProgressBuffer = 256

// Options configures an Engine. Zero K, Workers and ProgressBuffer select
// defaults. ConfidenceThreshold is used as given: zero accepts any hit.
type Options struct {
	K                   int
	ConfidenceThreshold float64
	Mode                index.Mode
	Workers             int
	ProgressBuffer      int
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		K:                   kmer.DefaultK,
		ConfidenceThreshold: classify.DefaultThreshold,
		Mode:                index.MultiOwner,
	}
}

// Source is one named input text, typically a file's contents. The name
// feeds label extraction when headers carry no organism.
type Source struct {
	Name string
	Text string
}

// BuildSummary describes a completed index build.
type BuildSummary struct {
	Records  int
	Warnings []index.Warning
	Size     int
	Digest   string
	Duration time.Duration
}

// Status is a snapshot of the engine state.
type Status struct {
	Running     bool      `json:"running"`
	K           int       `json:"k"`
	IndexLoaded bool      `json:"indexLoaded"`
	IndexSize   int       `json:"indexSize"`
	IndexMode   string    `json:"indexMode"`
	IndexDigest string    `json:"indexDigest,omitempty"`
	Taxa        int       `json:"taxa"`
	LastRunID   string    `json:"lastRunId,omitempty"`
	LastRunAt   time.Time `json:"lastRunAt,omitempty"`
}

// Engine builds reference indexes and classifies queries against them.
type Engine struct {
	opts    Options
	running atomic.Bool
	events  chan progress.Event

	mu        sync.RWMutex
	idx       *index.Index
	digest    string
	taxa      int
	lastRunID string
	lastRunAt time.Time
}

// New creates an engine with no index installed.
func New(opts Options) *Engine {
	if opts.K <= 0 {
		opts.K = kmer.DefaultK
	}
	if opts.ProgressBuffer <= 0 {
		opts.ProgressBuffer = DefaultProgressBuffer
	}

	return &Engine{
		opts:   opts,
		events: make(chan progress.Event, opts.ProgressBuffer),
	}
}

// Progress returns the channel progress events are published on. Events
// are dropped when nobody drains it.
func (e *Engine) Progress() <-chan progress.Event {
	return e.events
}

// K returns the k-mer width used for builds, or the installed index's k.
func (e *Engine) K() int {
	if idx := e.Index(); idx != nil {
		return idx.K()
	}
	return e.opts.K
}

// Threshold returns the confidence threshold.
func (e *Engine) Threshold() float64 {
	return e.opts.ConfidenceThreshold
}

// Index returns the installed index, or nil.
func (e *Engine) Index() *index.Index {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.idx
}

// UseIndex installs a pre-built index. Later classifications use its k.
func (e *Engine) UseIndex(idx *index.Index) error {
	if idx == nil || idx.Len() == 0 {
		return ErrNoReferenceData
	}
	if !e.running.CompareAndSwap(false, true) {
		return ErrConcurrentRun
	}
	defer e.running.Store(false)

	e.install(idx)
	return nil
}

func (e *Engine) install(idx *index.Index) {
	digest := idx.DigestString()
	taxa := len(idx.Labels())

	e.mu.Lock()
	e.idx = idx
	e.digest = digest
	e.taxa = taxa
	e.mu.Unlock()
}

// BuildIndex parses every source as reference data, builds an index and
// installs it. The previous index stays in place if the build fails.
func (e *Engine) BuildIndex(ctx context.Context, sources []Source) (*BuildSummary, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrConcurrentRun
	}
	defer e.running.Store(false)

	start := time.Now()
	records := e.parse(sources)
	if len(records) == 0 {
		return nil, ErrNoReferenceData
	}

	idx, warnings, err := index.Build(ctx, records, index.Options{
		K:        e.opts.K,
		Mode:     e.opts.Mode,
		Workers:  e.opts.Workers,
		Progress: e.events,
	})
	if err != nil {
		return nil, fmt.Errorf("building index: %w", err)
	}

	e.install(idx)
	e.emit(progress.PhaseComplete, 1, 1)

	return &BuildSummary{
		Records:  len(records),
		Warnings: warnings,
		Size:     idx.Len(),
		Digest:   e.digest,
		Duration: time.Since(start),
	}, nil
}

// Classify parses raw as query data and classifies every record.
func (e *Engine) Classify(ctx context.Context, raw string) (*report.Report, error) {
	return e.ClassifySources(ctx, []Source{{Text: raw}})
}

// ClassifySources classifies the records of every source, in order, and
// aggregates them into one report. Inputs with no records produce an empty
// report, not an error.
func (e *Engine) ClassifySources(ctx context.Context, sources []Source) (*report.Report, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrConcurrentRun
	}
	defer e.running.Store(false)

	e.mu.RLock()
	idx, digest := e.idx, e.digest
	e.mu.RUnlock()
	if idx == nil {
		return nil, ErrNoIndex
	}

	records := e.parse(sources)

	c := classify.New(idx, e.opts.ConfidenceThreshold)
	results, err := c.ClassifyAll(ctx, records, classify.BatchOptions{
		Workers:  e.opts.Workers,
		Progress: e.events,
	})
	if err != nil {
		return nil, fmt.Errorf("classifying: %w", err)
	}

	e.emit(progress.PhaseAggregating, 0, 1)
	rep := report.Aggregate(results)

	meta := report.NewMetadata()
	meta.K = idx.K()
	meta.ConfidenceThreshold = e.opts.ConfidenceThreshold
	meta.IndexSize = idx.Len()
	meta.IndexMode = idx.Mode().String()
	meta.IndexDigest = digest
	for _, src := range sources {
		if src.Name != "" {
			meta.Sources = append(meta.Sources, src.Name)
		}
	}
	if len(records) > 0 {
		sample, err := stats.FromRecords(records)
		if err != nil {
			return nil, fmt.Errorf("sample statistics: %w", err)
		}
		meta.Sample = sample
	}
	rep.Metadata = meta

	e.mu.Lock()
	e.lastRunID = meta.RunID
	e.lastRunAt = meta.CreatedAt
	e.mu.Unlock()

	e.emit(progress.PhaseComplete, 1, 1)
	return rep, nil
}

// Status returns a snapshot of the engine.
func (e *Engine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := Status{
		Running:   e.running.Load(),
		K:         e.opts.K,
		IndexMode: e.opts.Mode.String(),
		LastRunID: e.lastRunID,
		LastRunAt: e.lastRunAt,
	}
	if e.idx != nil {
		s.IndexLoaded = true
		s.K = e.idx.K()
		s.IndexSize = e.idx.Len()
		s.IndexMode = e.idx.Mode().String()
		s.IndexDigest = e.digest
		s.Taxa = e.taxa
	}
	return s
}

func (e *Engine) parse(sources []Source) []sequence.Record {
	var records []sequence.Record
	for i, src := range sources {
		records = append(records, sequence.ParseNamed(src.Text, src.Name)...)
		e.emit(progress.PhaseParsing, i+1, len(sources))
	}
	return records
}

func (e *Engine) emit(phase progress.Phase, processed, total int) {
	progress.Send(e.events, progress.Event{Phase: phase, Processed: processed, Total: total})
}

// Version returns the metaclassify version.
func Version() string {
	return "1.0.0"
}

// Info returns information about metaclassify.
func Info() string {
	return fmt.Sprintf(`metaclassify v%s - k-mer taxonomic classifier

Features:
  - FASTA/FASTQ parsing with organism label extraction
  - Exact k-mer reference index (multi-owner or single-owner)
  - Voting classification with confidence threshold
  - Abundance profiles as JSON, CSV, text or TSV
  - Index persistence as JSON or SQLite
`, Version())
}
