package main

import (
	"context"
	"fmt"

	"github.com/aria-lang/metaclassify-go/internal/index"
)

// loadIndex reads an index from a SQLite database (.db, .sqlite) or a JSON
// file.
func loadIndex(ctx context.Context, path string) (*index.Index, error) {
	if !isSQLitePath(path) {
		return index.LoadFile(path)
	}

	store, err := index.OpenStore(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	idx, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return idx, nil
}

// saveIndex writes idx in the format implied by path.
func saveIndex(ctx context.Context, path string, idx *index.Index) error {
	if !isSQLitePath(path) {
		return index.SaveFile(path, idx)
	}

	store, err := index.OpenStore(path)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.Save(ctx, idx)
}
