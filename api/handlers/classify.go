package handlers

import (
	"log"
	"net/http"

	"github.com/aria-lang/metaclassify-go/internal/report"
	"github.com/aria-lang/metaclassify-go/pkg/metaclassify"
)

// SourceRequest is one named input text.
type SourceRequest struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// ClassifyRequest carries query data, either as one text or as several
// named sources.
type ClassifyRequest struct {
	Sequences string          `json:"sequences"`
	Sources   []SourceRequest `json:"sources"`
}

func (req ClassifyRequest) sources() []metaclassify.Source {
	out := make([]metaclassify.Source, 0, len(req.Sources)+1)
	if req.Sequences != "" {
		out = append(out, metaclassify.Source{Text: req.Sequences})
	}
	for _, s := range req.Sources {
		out = append(out, metaclassify.Source{Name: s.Name, Text: s.Text})
	}
	return out
}

// ClassifyHandler classifies the posted sequences and returns the report.
// The format query parameter selects json (default), csv, txt or tsv.
func (a *API) ClassifyHandler(w http.ResponseWriter, r *http.Request) {
	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var req ClassifyRequest
	if !a.decode(w, r, &req) {
		return
	}

	rep, err := a.Engine.ClassifySources(r.Context(), req.sources())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("X-Run-Id", rep.Metadata.RunID)
	if err := rep.Write(w, format); err != nil {
		log.Printf("Writing report %s: %v", rep.Metadata.RunID, err)
	}
}
