// Package stats summarizes collections of sequence records: length
// distribution, N50, GC content and ambiguity.
package stats

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aria-lang/metaclassify-go/internal/sequence"
)

// RecordStats holds the composition of a single record.
type RecordStats struct {
	Length       int
	GCContent    float64
	ATContent    float64
	ACount       int
	CCount       int
	GCount       int
	TCount       int
	OtherCount   int
	HasAmbiguous bool
}

// FromRecord calculates statistics for one record.
func FromRecord(rec sequence.Record) *RecordStats {
	counts := rec.BaseCounts()

	atContent := 0.0
	if rec.Len() > 0 {
		atContent = float64(counts.A+counts.T) / float64(rec.Len())
	}

	return &RecordStats{
		Length:       rec.Len(),
		GCContent:    rec.GCContent(),
		ATContent:    atContent,
		ACount:       counts.A,
		CCount:       counts.C,
		GCount:       counts.G,
		TCount:       counts.T,
		OtherCount:   counts.Other,
		HasAmbiguous: counts.Other > 0,
	}
}

func (s *RecordStats) String() string {
	return fmt.Sprintf(`RecordStats {
  length: %d
  GC content: %.1f%%
  AT content: %.1f%%
  A: %d, C: %d, G: %d, T: %d, other: %d
}`, s.Length, s.GCContent*100, s.ATContent*100,
		s.ACount, s.CCount, s.GCount, s.TCount, s.OtherCount)
}

// SetStats is the aggregate summary of a record collection, attached to
// reports as sample metadata.
type SetStats struct {
	Count          int     `json:"count"`
	TotalBases     int     `json:"totalBases"`
	MinLength      int     `json:"minLength"`
	MaxLength      int     `json:"maxLength"`
	MeanLength     float64 `json:"meanLength"`
	MedianLength   int     `json:"medianLength"`
	MeanGCContent  float64 `json:"meanGcContent"`
	N50            int     `json:"n50"`
	TotalAmbiguous int     `json:"totalAmbiguous"`
}

// FromRecords calculates statistics for a collection of records.
func FromRecords(records []sequence.Record) (*SetStats, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("record list cannot be empty")
	}

	count := len(records)
	lengths := make([]int, count)
	totalBases := 0
	gcSum := 0.0
	totalAmbiguous := 0

	for i, rec := range records {
		lengths[i] = rec.Len()
		totalBases += rec.Len()
		gcSum += rec.GCContent()
		totalAmbiguous += rec.CountAmbiguous()
	}

	sorted := make([]int, count)
	copy(sorted, lengths)
	sort.Ints(sorted)

	mid := count / 2
	var medianLen int
	if count%2 == 0 {
		medianLen = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		medianLen = sorted[mid]
	}

	return &SetStats{
		Count:          count,
		TotalBases:     totalBases,
		MinLength:      sorted[0],
		MaxLength:      sorted[count-1],
		MeanLength:     float64(totalBases) / float64(count),
		MedianLength:   medianLen,
		MeanGCContent:  gcSum / float64(count),
		N50:            n50(sorted, totalBases),
		TotalAmbiguous: totalAmbiguous,
	}, nil
}

// n50 expects lengths sorted ascending.
func n50(sorted []int, totalBases int) int {
	half := totalBases / 2
	running := 0
	for i := len(sorted) - 1; i >= 0; i-- {
		running += sorted[i]
		if running >= half {
			return sorted[i]
		}
	}
	return sorted[len(sorted)-1]
}

func (s *SetStats) String() string {
	return fmt.Sprintf(`SetStats {
  count: %d
  total_bases: %d
  length range: %d - %d
  mean length: %.1f
  median length: %d
  mean GC: %.1f%%
  N50: %d
  ambiguous bases: %d
}`, s.Count, s.TotalBases, s.MinLength, s.MaxLength,
		s.MeanLength, s.MedianLength, s.MeanGCContent*100, s.N50, s.TotalAmbiguous)
}

// GCHistogram bins records by GC content.
type GCHistogram struct {
	Bins    []int
	BinSize float64
	NumBins int
}

// NewGCHistogram creates a GC content histogram from records.
func NewGCHistogram(records []sequence.Record, numBins int) (*GCHistogram, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("record list cannot be empty")
	}
	if numBins <= 0 {
		return nil, fmt.Errorf("numBins must be positive")
	}

	binSize := 1.0 / float64(numBins)
	bins := make([]int, numBins)

	for _, rec := range records {
		binIndex := int(rec.GCContent() / binSize)
		if binIndex >= numBins {
			binIndex = numBins - 1
		}
		bins[binIndex]++
	}

	return &GCHistogram{
		Bins:    bins,
		BinSize: binSize,
		NumBins: numBins,
	}, nil
}

// ModeBin returns the most common GC content range.
func (h *GCHistogram) ModeBin() (float64, float64) {
	maxCount := h.Bins[0]
	maxBin := 0

	for i, count := range h.Bins {
		if count > maxCount {
			maxCount = count
			maxBin = i
		}
	}

	start := float64(maxBin) * h.BinSize
	return start, start + h.BinSize
}

func (h *GCHistogram) String() string {
	var sb strings.Builder
	sb.WriteString("GC Content Histogram:\n")
	for i := 0; i < h.NumBins; i++ {
		start := int(float64(i) * h.BinSize * 100)
		end := start + int(h.BinSize*100)
		fmt.Fprintf(&sb, "%2d-%2d%%: %s (%d)\n", start, end, strings.Repeat("#", h.Bins[i]/10), h.Bins[i])
	}
	return sb.String()
}

// LengthHistogram bins records by length.
type LengthHistogram struct {
	Bins      []int
	MinLength int
	MaxLength int
	BinWidth  int
	NumBins   int
}

// NewLengthHistogram creates a length histogram from records.
func NewLengthHistogram(records []sequence.Record, numBins int) (*LengthHistogram, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("record list cannot be empty")
	}
	if numBins <= 0 {
		return nil, fmt.Errorf("numBins must be positive")
	}

	minLen, maxLen := records[0].Len(), records[0].Len()
	for _, rec := range records {
		if rec.Len() < minLen {
			minLen = rec.Len()
		}
		if rec.Len() > maxLen {
			maxLen = rec.Len()
		}
	}

	binWidth := (maxLen - minLen) / numBins
	if binWidth < 1 {
		binWidth = 1
	}

	bins := make([]int, numBins)
	for _, rec := range records {
		binIndex := (rec.Len() - minLen) / binWidth
		if binIndex >= numBins {
			binIndex = numBins - 1
		}
		bins[binIndex]++
	}

	return &LengthHistogram{
		Bins:      bins,
		MinLength: minLen,
		MaxLength: maxLen,
		BinWidth:  binWidth,
		NumBins:   numBins,
	}, nil
}

func (h *LengthHistogram) String() string {
	var sb strings.Builder
	sb.WriteString("Length Histogram:\n")
	for i := 0; i < h.NumBins; i++ {
		start := h.MinLength + i*h.BinWidth
		fmt.Fprintf(&sb, "%5d-%5d: %s (%d)\n", start, start+h.BinWidth, strings.Repeat("#", h.Bins[i]/5), h.Bins[i])
	}
	return sb.String()
}
