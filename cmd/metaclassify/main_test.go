package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aria-lang/metaclassify-go/internal/index"
	"github.com/aria-lang/metaclassify-go/internal/sequence"
)

func TestIsSQLitePath(t *testing.T) {
	assert.True(t, isSQLitePath("refs.db"))
	assert.True(t, isSQLitePath("/data/REFS.SQLite"))
	assert.True(t, isSQLitePath("refs.sqlite3"))
	assert.False(t, isSQLitePath("refs.json"))
	assert.False(t, isSQLitePath("db"))
}

func TestSaveAndLoadIndex(t *testing.T) {
	b, err := index.NewBuilder(4, index.MultiOwner)
	require.NoError(t, err)
	b.Add(sequence.NewRecord("r", "ACGTACGTTT", "A"))
	idx, err := b.Build()
	require.NoError(t, err)

	ctx := context.Background()
	dir := t.TempDir()

	for _, name := range []string{"refs.json", "refs.db"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, saveIndex(ctx, path, idx))

			loaded, err := loadIndex(ctx, path)
			require.NoError(t, err)
			assert.Equal(t, idx.Digest(), loaded.Digest())
		})
	}

	_, err = loadIndex(ctx, filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}
