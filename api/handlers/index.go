package handlers

import (
	"errors"
	"net/http"
	"sort"

	"github.com/aria-lang/metaclassify-go/pkg/metaclassify"
)

// BuildIndexRequest carries reference sources.
type BuildIndexRequest struct {
	Sources []SourceRequest `json:"sources"`
}

// BuildIndexResponse summarizes a build.
type BuildIndexResponse struct {
	Records    int      `json:"records"`
	Size       int      `json:"size"`
	Digest     string   `json:"digest"`
	DurationMS int64    `json:"durationMs"`
	Warnings   []string `json:"warnings,omitempty"`
}

func buildResponse(s *metaclassify.BuildSummary) BuildIndexResponse {
	resp := BuildIndexResponse{
		Records:    s.Records,
		Size:       s.Size,
		Digest:     s.Digest,
		DurationMS: s.Duration.Milliseconds(),
	}
	for _, w := range s.Warnings {
		resp.Warnings = append(resp.Warnings, w.String())
	}
	return resp
}

// BuildIndexHandler builds and installs an index from posted references.
func (a *API) BuildIndexHandler(w http.ResponseWriter, r *http.Request) {
	var req BuildIndexRequest
	if !a.decode(w, r, &req) {
		return
	}

	sources := make([]metaclassify.Source, 0, len(req.Sources))
	for _, s := range req.Sources {
		sources = append(sources, metaclassify.Source{Name: s.Name, Text: s.Text})
	}

	summary, err := a.Engine.BuildIndex(r.Context(), sources)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, buildResponse(summary))
}

// ReloadHandler rebuilds the index from the server's configured origin.
func (a *API) ReloadHandler(w http.ResponseWriter, r *http.Request) {
	if a.Reload == nil {
		writeError(w, http.StatusNotImplemented, errors.New("no reference origin configured"))
		return
	}

	summary, err := a.Reload(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, buildResponse(summary))
}

// IndexStatusHandler reports the engine status.
func (a *API) IndexStatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.Engine.Status())
}

// LabelCount is the number of k-mers a taxon owns.
type LabelCount struct {
	Label string `json:"label"`
	Kmers int    `json:"kmers"`
}

// IndexLabelsHandler lists the taxa in the index by k-mer count.
func (a *API) IndexLabelsHandler(w http.ResponseWriter, r *http.Request) {
	idx := a.Engine.Index()
	if idx == nil {
		writeError(w, http.StatusServiceUnavailable, metaclassify.ErrNoIndex)
		return
	}

	counts := idx.LabelCounts()
	out := make([]LabelCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, LabelCount{Label: label, Kmers: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kmers != out[j].Kmers {
			return out[i].Kmers > out[j].Kmers
		}
		return out[i].Label < out[j].Label
	})

	writeJSON(w, http.StatusOK, out)
}
