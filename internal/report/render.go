package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Format selects a report rendering.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatText Format = "txt"
	FormatTSV  Format = "tsv"
)

// ParseFormat accepts json, csv, txt (or text) and tsv, case-insensitively.
// An empty string means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "txt", "text":
		return FormatText, nil
	case "tsv":
		return FormatTSV, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want json, csv, txt or tsv)", s)
	}
}

// ContentType returns the MIME type of the rendering.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatText:
		return "text/plain; charset=utf-8"
	case FormatTSV:
		return "text/tab-separated-values"
	default:
		return "application/json"
	}
}

// Write renders r to w in format f.
func (r *Report) Write(w io.Writer, f Format) error {
	switch f {
	case FormatCSV:
		return r.WriteCSV(w)
	case FormatText:
		return r.WriteText(w)
	case FormatTSV:
		return r.WriteClassificationsTSV(w)
	case FormatJSON, "":
		return r.WriteJSON(w)
	default:
		return fmt.Errorf("unknown report format %q", f)
	}
}

// WriteJSON writes the whole report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteCSV writes the abundance table.
func (r *Report) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"Taxon", "Count", "Percentage", "Relative_Abundance"}); err != nil {
		return err
	}
	for _, e := range r.Abundance {
		row := []string{
			e.Taxon,
			strconv.Itoa(e.Count),
			strconv.FormatFloat(e.PercentageOfTotal, 'f', 2, 64),
			strconv.FormatFloat(e.PercentageOfClassified, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteClassificationsTSV writes one line per classified record, in input
// order.
func (r *Report) WriteClassificationsTSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write([]string{"sequence_id", "classification", "confidence", "hit_count", "total_kmers"}); err != nil {
		return err
	}
	for _, c := range r.Classifications {
		row := []string{
			c.SequenceID,
			c.Outcome.String(),
			strconv.FormatFloat(c.Confidence, 'f', 4, 64),
			strconv.Itoa(c.HitCount),
			strconv.Itoa(c.TotalKmers),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteText writes a human-readable summary.
func (r *Report) WriteText(w io.Writer) error {
	var sb strings.Builder
	s := r.Statistics
	m := r.Metadata

	sb.WriteString("MetaClassify Analysis Results\n")
	sb.WriteString("=============================\n\n")
	if m.RunID != "" {
		fmt.Fprintf(&sb, "Run: %s\n", m.RunID)
	}
	if !m.CreatedAt.IsZero() {
		fmt.Fprintf(&sb, "Analysis Date: %s\n", m.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	}
	if len(m.Sources) > 0 {
		fmt.Fprintf(&sb, "Files Analyzed: %s\n", strings.Join(m.Sources, ", "))
	}
	if m.K > 0 {
		fmt.Fprintf(&sb, "K-mer Size: %d\n", m.K)
		fmt.Fprintf(&sb, "Index: %s k-mers (%s owner)\n", humanize.Comma(int64(m.IndexSize)), m.IndexMode)
		fmt.Fprintf(&sb, "Confidence Threshold: %.2f\n", m.ConfidenceThreshold)
	}
	if m.Sample != nil {
		fmt.Fprintf(&sb, "Sample: %s sequences, %s bases, N50 %s\n",
			humanize.Comma(int64(m.Sample.Count)), humanize.Comma(int64(m.Sample.TotalBases)), humanize.Comma(int64(m.Sample.N50)))
	}
	sb.WriteString("\n")

	sb.WriteString("Statistics:\n")
	sb.WriteString("-----------\n")
	fmt.Fprintf(&sb, "Total Sequences: %s\n", humanize.Comma(int64(s.TotalSequences)))
	fmt.Fprintf(&sb, "Classified: %s (%.1f%%)\n", humanize.Comma(int64(s.ClassifiedCount)), s.ClassificationRate*100)
	fmt.Fprintf(&sb, "Unclassified: %s (%.1f%%)\n", humanize.Comma(int64(s.UnclassifiedCount)), percent(s.UnclassifiedCount, s.TotalSequences))
	fmt.Fprintf(&sb, "  no hits: %s, low confidence: %s, too short: %s\n",
		humanize.Comma(int64(s.NoHitCount)), humanize.Comma(int64(s.LowConfidenceCount)), humanize.Comma(int64(s.TooShortCount)))
	fmt.Fprintf(&sb, "Unique Taxa: %d\n", s.UniqueTaxonCount)
	fmt.Fprintf(&sb, "Average Confidence: %.1f%%\n\n", s.AverageConfidence*100)

	sb.WriteString("Taxon Abundance:\n")
	sb.WriteString("----------------\n")
	if len(r.Abundance) == 0 {
		sb.WriteString("(none)\n")
	}
	for i, e := range r.Abundance {
		fmt.Fprintf(&sb, "%d. %s: %s sequences (%.2f%%)\n", i+1, e.Taxon, humanize.Comma(int64(e.Count)), e.PercentageOfClassified)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
