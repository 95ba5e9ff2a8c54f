package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
)

// Store persists an index in a SQLite database. A store holds at most one
// index; Save replaces whatever was there.
type Store struct {
	db *sql.DB
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS index_meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS kmer_labels (
	kmer  TEXT    NOT NULL,
	ord   INTEGER NOT NULL,
	label TEXT    NOT NULL,
	PRIMARY KEY (kmer, ord)
);
`

// OpenStore opens (creating if needed) the database at path.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening index store: %w", err)
	}

	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing index store: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save replaces the stored index with idx in a single transaction.
func (s *Store) Save(ctx context.Context, idx *Index) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning save: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM kmer_labels`); err != nil {
		return fmt.Errorf("clearing k-mers: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM index_meta`); err != nil {
		return fmt.Errorf("clearing metadata: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO kmer_labels (kmer, ord, label) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, key := range idx.Keys() {
		for ord, label := range idx.entries[key] {
			if _, err := stmt.ExecContext(ctx, key, ord, label); err != nil {
				return fmt.Errorf("inserting %s: %w", key, err)
			}
		}
	}

	meta := map[string]string{
		"k":      strconv.Itoa(idx.k),
		"mode":   idx.mode.String(),
		"digest": idx.DigestString(),
		"size":   strconv.Itoa(idx.Len()),
	}
	for key, value := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO index_meta (key, value) VALUES (?, ?)`, key, value); err != nil {
			return fmt.Errorf("writing metadata %s: %w", key, err)
		}
	}

	return tx.Commit()
}

// Load reads the stored index and checks it against the recorded digest.
// An empty store yields ErrNoReferenceData.
func (s *Store) Load(ctx context.Context) (*Index, error) {
	meta, err := s.meta(ctx)
	if err != nil {
		return nil, err
	}
	if len(meta) == 0 {
		return nil, ErrNoReferenceData
	}

	k, err := strconv.Atoi(meta["k"])
	if err != nil || k <= 0 {
		return nil, fmt.Errorf("stored index has invalid k %q", meta["k"])
	}
	mode, err := ParseMode(meta["mode"])
	if err != nil {
		return nil, fmt.Errorf("stored index: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT kmer, label FROM kmer_labels ORDER BY kmer, ord`)
	if err != nil {
		return nil, fmt.Errorf("querying k-mers: %w", err)
	}
	defer rows.Close()

	entries := make(map[string][]string)
	for rows.Next() {
		var key, label string
		if err := rows.Scan(&key, &label); err != nil {
			return nil, fmt.Errorf("scanning k-mer: %w", err)
		}
		entries[key] = append(entries[key], label)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading k-mers: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNoReferenceData
	}

	for key := range entries {
		if err := validateKey(key, k); err != nil {
			return nil, err
		}
	}

	idx := newIndex(k, mode, entries)
	if want := meta["digest"]; want != "" && want != idx.DigestString() {
		return nil, fmt.Errorf("%w: stored %s, computed %s", ErrDigestMismatch, want, idx.DigestString())
	}

	return idx, nil
}

// Digest returns the digest recorded for the stored index without loading
// it, or "" when the store is empty.
func (s *Store) Digest(ctx context.Context) (string, error) {
	var digest string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM index_meta WHERE key = 'digest'`).Scan(&digest)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading digest: %w", err)
	}
	return digest, nil
}

func (s *Store) meta(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM index_meta`)
	if err != nil {
		return nil, fmt.Errorf("querying metadata: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scanning metadata: %w", err)
		}
		meta[key] = value
	}
	return meta, rows.Err()
}
