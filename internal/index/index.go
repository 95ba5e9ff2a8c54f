// Package index builds and stores the reference k-mer index: a mapping
// from every canonical k-mer of the reference corpus to the taxon labels
// it was observed in.
//
// An Index is immutable once built or loaded, so a single value may be
// shared by any number of concurrent classifiers.
package index

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/zeebo/xxh3"
)

// ErrNoReferenceData is returned when an index would contain no k-mers,
// either because no reference records were supplied or because none of
// them was long enough to yield a k-mer.
var ErrNoReferenceData = errors.New("no reference data: index would be empty")

// ErrDigestMismatch is returned when a stored index does not hash to the
// digest recorded alongside it.
var ErrDigestMismatch = errors.New("index digest mismatch")

// InvalidKeyError is returned when a serialized index contains a key that
// is not a k-mer of the expected width over {A,C,G,T}.
type InvalidKeyError struct {
	Key    string
	Reason string
}

func (e *InvalidKeyError) Error() string {
	return fmt.Sprintf("invalid index key %q: %s", e.Key, e.Reason)
}

// Mode selects how labels accumulate on a k-mer during construction.
type Mode int

const (
	// MultiOwner appends every registration, duplicates included, so
	// repeated k-mers carry proportionally more voting weight.
	MultiOwner Mode = iota
	// SingleOwner keeps only the last label registered for a k-mer.
	SingleOwner
)

func (m Mode) String() string {
	switch m {
	case SingleOwner:
		return "single"
	default:
		return "multi"
	}
}

// ParseMode parses "multi" or "single" (also "multi-owner", "single-owner").
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "multi", "multi-owner", "multi_owner":
		return MultiOwner, nil
	case "single", "single-owner", "single_owner":
		return SingleOwner, nil
	default:
		return MultiOwner, fmt.Errorf("unknown index mode %q (want multi or single)", s)
	}
}

// Index maps k-mers to the labels registered for them.
type Index struct {
	k       int
	mode    Mode
	entries map[string][]string
}

func newIndex(k int, mode Mode, entries map[string][]string) *Index {
	return &Index{k: k, mode: mode, entries: entries}
}

// K returns the k-mer width of the index.
func (idx *Index) K() int {
	return idx.k
}

// Mode returns the registration mode the index was built with.
func (idx *Index) Mode() Mode {
	return idx.mode
}

// Len returns the number of distinct k-mers.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Lookup returns the labels registered for kmer in registration order, or
// nil when no reference contains it. The returned slice must not be
// modified.
func (idx *Index) Lookup(kmer string) []string {
	return idx.entries[kmer]
}

// Contains reports whether kmer is a key of the index.
func (idx *Index) Contains(kmer string) bool {
	_, ok := idx.entries[kmer]
	return ok
}

// Keys returns every k-mer in lexical order.
func (idx *Index) Keys() []string {
	keys := make([]string, 0, len(idx.entries))
	for key := range idx.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Labels returns the distinct labels present in the index, sorted.
func (idx *Index) Labels() []string {
	counts := idx.LabelCounts()
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// LabelCounts returns, per label, the number of distinct k-mers that carry
// it at least once.
func (idx *Index) LabelCounts() map[string]int {
	counts := make(map[string]int)
	for _, labels := range idx.entries {
		if len(labels) == 1 {
			counts[labels[0]]++
			continue
		}
		seen := make(map[string]struct{}, len(labels))
		for _, label := range labels {
			if _, ok := seen[label]; ok {
				continue
			}
			seen[label] = struct{}{}
			counts[label]++
		}
	}
	return counts
}

// Digest returns a fingerprint of the index contents. It depends only on
// k, the mode and the key/label lists, never on map iteration order.
func (idx *Index) Digest() uint64 {
	h := xxh3.New()
	_, _ = h.WriteString("k=" + strconv.Itoa(idx.k) + ";mode=" + idx.mode.String() + "\n")
	for _, key := range idx.Keys() {
		_, _ = h.WriteString(key)
		_, _ = h.Write([]byte{0x1e})
		for _, label := range idx.entries[key] {
			_, _ = h.WriteString(label)
			_, _ = h.Write([]byte{0x1f})
		}
		_, _ = h.Write([]byte{'\n'})
	}
	return h.Sum64()
}

// DigestString returns Digest formatted as 16 hex digits.
func (idx *Index) DigestString() string {
	return fmt.Sprintf("%016x", idx.Digest())
}

func (idx *Index) String() string {
	return fmt.Sprintf("Index { k: %d, mode: %s, kmers: %d }", idx.k, idx.mode, len(idx.entries))
}
