// Command metaclassify-server provides a REST API for k-mer taxonomic
// classification.
//
// Usage:
//
//	metaclassify-server [options]
//
// Options:
//
//	-listen   Address to listen on (default: localhost:8080, or $METACLASSIFY_LISTEN)
//
// Everything else comes from metaclassify.yaml (or $CONFIG_PATH) and
// METACLASSIFY_* environment variables.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/aria-lang/metaclassify-go/api/handlers"
	"github.com/aria-lang/metaclassify-go/api/middleware"
	"github.com/aria-lang/metaclassify-go/internal/config"
	"github.com/aria-lang/metaclassify-go/pkg/metaclassify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	listen := flag.String("listen", cfg.Listen, "Address to listen on")
	flag.Parse()

	engine := metaclassify.New(metaclassify.Options{
		K:                   cfg.K,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		Mode:                cfg.Mode(),
		Workers:             cfg.Workers,
	})
	go drainProgress(engine.Progress())

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	origin := &indexOrigin{cfg: cfg, engine: engine}
	if err := origin.loadInitial(ctx); err != nil {
		log.Fatalf("Could not load index: %v", err)
	}
	origin.startReloadScheduler(ctx)

	api := &handlers.API{Engine: engine}
	if cfg.ReferenceDir != "" {
		api.Reload = origin.rebuild
	}

	server := &http.Server{
		Addr:         *listen,
		Handler:      newRouter(api),
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool, 1)
	quit := make(chan os.Signal, 1)

	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Server is shutting down...")
		stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatalf("Could not gracefully shutdown: %v\n", err)
		}
		close(done)
	}()

	log.Printf("metaclassify API server starting on http://%s\n", *listen)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v\n", *listen, err)
	}

	<-done
	log.Println("Server stopped")
}

func newRouter(api *handlers.API) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Mount("/api", api.Routes())

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(homePage))
	})

	return r
}

// drainProgress logs phase completions so the engine's progress channel
// never fills up.
func drainProgress(events <-chan metaclassify.Event) {
	for ev := range events {
		if ev.Total > 0 && ev.Processed == ev.Total {
			log.Printf("Progress %s", ev)
		}
	}
}

const homePage = `<!DOCTYPE html>
<html>
<head>
    <title>metaclassify API</title>
    <style>
        body { font-family: system-ui, sans-serif; max-width: 800px; margin: 2rem auto; padding: 0 1rem; }
        h1 { color: #2563eb; }
        pre { background: #f3f4f6; padding: 1rem; border-radius: 0.5rem; overflow-x: auto; }
        .endpoint { margin: 1rem 0; padding: 1rem; border: 1px solid #e5e7eb; border-radius: 0.5rem; }
        .method { display: inline-block; padding: 0.25rem 0.5rem; background: #10b981; color: white; border-radius: 0.25rem; font-size: 0.875rem; }
    </style>
</head>
<body>
    <h1>metaclassify API</h1>
    <p>k-mer taxonomic classification of sequencing reads.</p>

    <h2>Endpoints</h2>

    <div class="endpoint">
        <span class="method">POST</span> <code>/api/classify?format=json|csv|txt|tsv</code>
        <p>Classify reads and return the abundance report.</p>
        <pre>{"sequences": "&gt;read1\nACGT..."}</pre>
    </div>

    <div class="endpoint">
        <span class="method">POST</span> <code>/api/index</code>
        <p>Build the reference index from posted sources.</p>
        <pre>{"sources": [{"name": "ecoli.fasta", "text": "&gt;NC_000913 [Escherichia coli]\nACGT..."}]}</pre>
    </div>

    <div class="endpoint">
        <span class="method">GET</span> <code>/api/index</code>
        <p>Engine and index status.</p>
    </div>

    <div class="endpoint">
        <span class="method">GET</span> <code>/api/index/labels</code>
        <p>Taxa in the index with their k-mer counts.</p>
    </div>

    <div class="endpoint">
        <span class="method">POST</span> <code>/api/index/reload</code>
        <p>Rebuild the index from the configured reference directory.</p>
    </div>

    <div class="endpoint">
        <span class="method">POST</span> <code>/api/sequence/parse</code>
        <p>Parse FASTA/FASTQ text and show the label of each record.</p>
    </div>

    <div class="endpoint">
        <span class="method">POST</span> <code>/api/sequence/stats</code>
        <p>Length, N50 and GC summary of posted sequences.</p>
    </div>
</body>
</html>`
