package handlers

import (
	"io"
	"log"
	"net/http"

	"github.com/aria-lang/metaclassify-go/internal/sequence"
	"github.com/aria-lang/metaclassify-go/internal/stats"
)

// DefaultHistogramBins is the GC histogram resolution used for the peak.
const DefaultHistogramBins = 10

// SequenceRequest represents a request with raw sequence text.
type SequenceRequest struct {
	Sequences string `json:"sequences"`
	Name      string `json:"name"`
}

// RecordInfo describes one parsed record.
type RecordInfo struct {
	ID        string  `json:"id"`
	Label     string  `json:"label"`
	Length    int     `json:"length"`
	GCContent float64 `json:"gc_content"`
	ATContent float64 `json:"at_content"`
	Ambiguous int     `json:"ambiguous"`
	// Invalid names the first non-ACGT symbol, if any.
	Invalid string `json:"invalid,omitempty"`
}

// ParseResponse represents the response for parsing.
type ParseResponse struct {
	Format  string       `json:"format"`
	Records []RecordInfo `json:"records"`
}

// ParseHandler parses the posted text and describes each record, including
// the label it would be indexed under. With format=fasta it returns the
// normalized records as FASTA instead.
func (a *API) ParseHandler(w http.ResponseWriter, r *http.Request) {
	var req SequenceRequest
	if !a.decode(w, r, &req) {
		return
	}

	records := sequence.ParseNamed(req.Sequences, req.Name)

	if r.URL.Query().Get("format") == "fasta" {
		w.Header().Set("Content-Type", "text/x-fasta")
		for _, rec := range records {
			if _, err := io.WriteString(w, rec.ToFASTA()); err != nil {
				log.Printf("Writing FASTA: %v", err)
				return
			}
		}
		return
	}

	resp := ParseResponse{
		Format:  sequence.DetectFormat(req.Sequences).String(),
		Records: make([]RecordInfo, 0, len(records)),
	}
	for _, rec := range records {
		st := stats.FromRecord(rec)
		info := RecordInfo{
			ID:        rec.ID,
			Label:     rec.Label(),
			Length:    st.Length,
			GCContent: st.GCContent,
			ATContent: st.ATContent,
			Ambiguous: st.OtherCount,
		}
		if err := sequence.ValidateCanonical(rec.Bases); err != nil {
			info.Invalid = err.Error()
		}
		resp.Records = append(resp.Records, info)
	}

	writeJSON(w, http.StatusOK, resp)
}

// SetStatsResponse is the set summary plus the most common GC range.
type SetStatsResponse struct {
	*stats.SetStats
	GCPeakLow  float64 `json:"gcPeakLow"`
	GCPeakHigh float64 `json:"gcPeakHigh"`
}

// SetStatsHandler summarizes the posted records.
func (a *API) SetStatsHandler(w http.ResponseWriter, r *http.Request) {
	var req SequenceRequest
	if !a.decode(w, r, &req) {
		return
	}

	records := sequence.Parse(req.Sequences)
	s, err := stats.FromRecords(records)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	gc, err := stats.NewGCHistogram(records, DefaultHistogramBins)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	low, high := gc.ModeBin()
	writeJSON(w, http.StatusOK, SetStatsResponse{SetStats: s, GCPeakLow: low, GCPeakHigh: high})
}
