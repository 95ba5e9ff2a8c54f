// Package report aggregates per-record classifications into an abundance
// profile and renders it.
package report

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/aria-lang/metaclassify-go/internal/classify"
	"github.com/aria-lang/metaclassify-go/internal/stats"
)

// Statistics summarizes a run. UnclassifiedCount covers every non-taxon
// outcome; the per-kind counts break it down.
type Statistics struct {
	TotalSequences     int     `json:"totalSequences"`
	ClassifiedCount    int     `json:"classifiedCount"`
	UnclassifiedCount  int     `json:"unclassifiedCount"`
	NoHitCount         int     `json:"noHitCount"`
	LowConfidenceCount int     `json:"lowConfidenceCount"`
	TooShortCount      int     `json:"tooShortCount"`
	UniqueTaxonCount   int     `json:"uniqueTaxonCount"`
	AverageConfidence  float64 `json:"averageConfidence"`
	ClassificationRate float64 `json:"classificationRate"`
}

// AbundanceEntry is one row of the abundance table.
type AbundanceEntry struct {
	Taxon                  string  `json:"taxon"`
	Count                  int     `json:"count"`
	PercentageOfTotal      float64 `json:"percentageOfTotal"`
	PercentageOfClassified float64 `json:"percentageOfClassified"`
}

// Metadata describes the run that produced a report.
type Metadata struct {
	RunID               string          `json:"runId"`
	CreatedAt           time.Time       `json:"createdAt"`
	Sources             []string        `json:"sources,omitempty"`
	K                   int             `json:"kmerSize"`
	ConfidenceThreshold float64         `json:"confidenceThreshold"`
	IndexSize           int             `json:"indexSize"`
	IndexMode           string          `json:"indexMode"`
	IndexDigest         string          `json:"indexDigest,omitempty"`
	Sample              *stats.SetStats `json:"sample,omitempty"`
}

// NewMetadata returns metadata stamped with a fresh run id and the current
// time.
func NewMetadata() Metadata {
	return Metadata{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

// Report is the outcome of one analysis run. It is not modified after
// Aggregate returns, apart from the caller filling in Metadata.
type Report struct {
	Statistics      Statistics        `json:"statistics"`
	Abundance       []AbundanceEntry  `json:"abundance"`
	Classifications []classify.Result `json:"classifications"`
	Metadata        Metadata          `json:"metadata"`
}

// Aggregate tallies results into a report. Abundance is sorted by count
// descending; taxa with equal counts stay in the order first seen.
func Aggregate(results []classify.Result) *Report {
	r := &Report{
		Abundance:       []AbundanceEntry{},
		Classifications: make([]classify.Result, len(results)),
	}
	copy(r.Classifications, results)

	s := &r.Statistics
	s.TotalSequences = len(results)

	counts := make(map[string]int)
	var order []string
	confidenceSum := 0.0

	for _, res := range results {
		switch res.Outcome.Kind {
		case classify.Taxon:
			s.ClassifiedCount++
			confidenceSum += res.Confidence
			label := res.Outcome.Label
			if _, ok := counts[label]; !ok {
				order = append(order, label)
			}
			counts[label]++
		case classify.Unclassified:
			s.NoHitCount++
		case classify.LowConfidence:
			s.LowConfidenceCount++
		case classify.TooShort:
			s.TooShortCount++
		}
	}

	s.UnclassifiedCount = s.TotalSequences - s.ClassifiedCount
	s.UniqueTaxonCount = len(order)
	if s.ClassifiedCount > 0 {
		s.AverageConfidence = confidenceSum / float64(s.ClassifiedCount)
	}
	if s.TotalSequences > 0 {
		s.ClassificationRate = float64(s.ClassifiedCount) / float64(s.TotalSequences)
	}

	for _, taxon := range order {
		n := counts[taxon]
		entry := AbundanceEntry{Taxon: taxon, Count: n}
		if s.TotalSequences > 0 {
			entry.PercentageOfTotal = float64(n) / float64(s.TotalSequences) * 100
		}
		if s.ClassifiedCount > 0 {
			entry.PercentageOfClassified = float64(n) / float64(s.ClassifiedCount) * 100
		}
		r.Abundance = append(r.Abundance, entry)
	}

	sort.SliceStable(r.Abundance, func(i, j int) bool {
		return r.Abundance[i].Count > r.Abundance[j].Count
	})

	return r
}

// Top returns at most n abundance entries.
func (r *Report) Top(n int) []AbundanceEntry {
	if n < 0 || n >= len(r.Abundance) {
		return r.Abundance
	}
	return r.Abundance[:n]
}
