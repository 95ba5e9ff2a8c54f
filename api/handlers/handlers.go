// Package handlers provides HTTP handlers for the metaclassify API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aria-lang/metaclassify-go/internal/index"
	"github.com/aria-lang/metaclassify-go/pkg/metaclassify"
)

// DefaultMaxBodyBytes caps request bodies.
const DefaultMaxBodyBytes = 256 << 20

// ReloadFunc rebuilds the engine's index from its configured origin.
type ReloadFunc func(ctx context.Context) (*metaclassify.BuildSummary, error)

// API serves an Engine over HTTP.
type API struct {
	Engine *metaclassify.Engine
	// Reload, if set, backs POST /index/reload.
	Reload       ReloadFunc
	MaxBodyBytes int64
}

// Routes returns the API router, to be mounted under /api.
func (a *API) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/classify", a.ClassifyHandler)

	r.Route("/index", func(r chi.Router) {
		r.Get("/", a.IndexStatusHandler)
		r.Post("/", a.BuildIndexHandler)
		r.Get("/labels", a.IndexLabelsHandler)
		r.Post("/reload", a.ReloadHandler)
	})

	r.Route("/sequence", func(r chi.Router) {
		r.Post("/parse", a.ParseHandler)
		r.Post("/stats", a.SetStatsHandler)
	})

	return r
}

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	limit := a.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, errors.New("invalid request body"))
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

// statusFor maps engine errors to HTTP status codes.
func statusFor(err error) int {
	var keyErr *index.InvalidKeyError
	switch {
	case errors.Is(err, metaclassify.ErrConcurrentRun):
		return http.StatusConflict
	case errors.Is(err, metaclassify.ErrNoIndex):
		return http.StatusServiceUnavailable
	case errors.Is(err, metaclassify.ErrNoReferenceData):
		return http.StatusUnprocessableEntity
	case errors.As(err, &keyErr):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
