package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aria-lang/metaclassify-go/api/handlers"
	"github.com/aria-lang/metaclassify-go/internal/config"
	"github.com/aria-lang/metaclassify-go/internal/index"
	"github.com/aria-lang/metaclassify-go/pkg/metaclassify"
)

func newOrigin(t *testing.T, cfg config.Config) *indexOrigin {
	t.Helper()
	engine := metaclassify.New(metaclassify.Options{K: cfg.K, Mode: cfg.Mode()})
	return &indexOrigin{cfg: cfg, engine: engine}
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.K = 4
	cfg.IndexPath = ""
	cfg.DBPath = ""
	cfg.ReferenceDir = ""
	return cfg
}

func writeReferences(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "refs.fasta"),
		[]byte(">NC_1 Escherichia coli\nACGTACGTTTGACCA\n>NC_2 Bacillus subtilis\nGGGCCCAAATTTGGG\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	return dir
}

func TestLoadInitialBuildsAndPersists(t *testing.T) {
	cfg := testConfig(t)
	cfg.ReferenceDir = writeReferences(t)
	cfg.DBPath = filepath.Join(t.TempDir(), "refs.db")

	ctx := context.Background()
	origin := newOrigin(t, cfg)
	require.NoError(t, origin.loadInitial(ctx))

	idx := origin.engine.Index()
	require.NotNil(t, idx)
	assert.Greater(t, idx.Len(), 0)

	// A second server starts from the store without touching the references.
	cfg.ReferenceDir = ""
	second := newOrigin(t, cfg)
	require.NoError(t, second.loadInitial(ctx))
	require.NotNil(t, second.engine.Index())
	assert.Equal(t, idx.Digest(), second.engine.Index().Digest())
}

func TestLoadInitialFromIndexFile(t *testing.T) {
	b, err := index.NewBuilder(4, index.MultiOwner)
	require.NoError(t, err)
	b.Add(metaclassify.Record{ID: "r", Bases: "ACGTACGTTT", SourceLabel: "A"})
	idx, err := b.Build()
	require.NoError(t, err)

	cfg := testConfig(t)
	cfg.IndexPath = filepath.Join(t.TempDir(), "kmer_database.json")
	require.NoError(t, index.SaveFile(cfg.IndexPath, idx))

	origin := newOrigin(t, cfg)
	require.NoError(t, origin.loadInitial(context.Background()))
	require.NotNil(t, origin.engine.Index())
	assert.Equal(t, idx.Digest(), origin.engine.Index().Digest())
}

func TestLoadInitialWithoutSources(t *testing.T) {
	cfg := testConfig(t)
	cfg.IndexPath = filepath.Join(t.TempDir(), "missing.json")

	origin := newOrigin(t, cfg)
	require.NoError(t, origin.loadInitial(context.Background()))
	assert.Nil(t, origin.engine.Index())
}

func TestRebuildRequiresReferenceDir(t *testing.T) {
	origin := newOrigin(t, testConfig(t))
	_, err := origin.rebuild(context.Background())
	require.Error(t, err)
}

func TestRebuild(t *testing.T) {
	cfg := testConfig(t)
	cfg.ReferenceDir = writeReferences(t)

	origin := newOrigin(t, cfg)
	summary, err := origin.rebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Records)
	assert.Equal(t, origin.engine.Index().Len(), summary.Size)
}

func TestStartReloadScheduler(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := testConfig(t)
	assert.False(t, newOrigin(t, cfg).startReloadScheduler(ctx))

	cfg.ReloadSchedule = "0 3 * * *"
	assert.False(t, newOrigin(t, cfg).startReloadScheduler(ctx), "no reference dir")

	cfg.ReferenceDir = t.TempDir()
	cfg.ReloadSchedule = "not a schedule"
	assert.False(t, newOrigin(t, cfg).startReloadScheduler(ctx))

	cfg.ReloadSchedule = "0 3 * * *"
	assert.True(t, newOrigin(t, cfg).startReloadScheduler(ctx))
}

func TestRouter(t *testing.T) {
	origin := newOrigin(t, testConfig(t))
	router := newRouter(&handlers.API{Engine: origin.engine})

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"health", http.MethodGet, "/health", http.StatusOK},
		{"home", http.MethodGet, "/", http.StatusOK},
		{"status", http.MethodGet, "/api/index", http.StatusOK},
		{"reload not configured", http.MethodPost, "/api/index/reload", http.StatusNotImplemented},
		{"unknown", http.MethodGet, "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}
