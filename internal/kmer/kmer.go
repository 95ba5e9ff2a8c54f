// Package kmer enumerates fixed-length windows over normalized sequences.
//
// Two enumeration semantics coexist and are kept apart on purpose:
//
//   - Enumerate returns only windows made entirely of A, C, G and T. The
//     reference index is built from these.
//   - Windows returns every window position together with a validity flag.
//     The classifier uses it so that its denominator is the true number of
//     windows in the query, ambiguous or not.
package kmer

import (
	"github.com/aria-lang/metaclassify-go/internal/sequence"
)

// DefaultK is the window width used when none is configured.
const DefaultK = 31

// Window is one k-wide slice of a sequence.
type Window struct {
	Kmer  string
	Valid bool
}

// WindowCount returns the number of k-wide windows in a sequence of the
// given length, 0 when the sequence is shorter than k.
func WindowCount(length, k int) int {
	if k <= 0 || length < k {
		return 0
	}
	return length - k + 1
}

// IsCanonical reports whether s consists only of A, C, G and T.
func IsCanonical(s string) bool {
	for i := 0; i < len(s); i++ {
		if !sequence.IsCanonicalBase(s[i]) {
			return false
		}
	}
	return true
}

// Each calls fn for every window of bases in left-to-right order. The
// validity check is incremental: it tracks the position of the last
// non-canonical symbol instead of rescanning each window.
func Each(bases string, k int, fn func(pos int, kmer string, valid bool)) {
	n := WindowCount(len(bases), k)
	if n == 0 {
		return
	}

	lastBad := -1
	for i := 0; i < k-1; i++ {
		if !sequence.IsCanonicalBase(bases[i]) {
			lastBad = i
		}
	}

	for pos := 0; pos < n; pos++ {
		end := pos + k - 1
		if !sequence.IsCanonicalBase(bases[end]) {
			lastBad = end
		}
		fn(pos, bases[pos:pos+k], lastBad < pos)
	}
}

// Enumerate returns the windows of bases that contain only canonical
// symbols, in order. Windows with any other symbol are skipped.
func Enumerate(bases string, k int) []string {
	kmers := make([]string, 0, WindowCount(len(bases), k))
	Each(bases, k, func(_ int, kmer string, valid bool) {
		if valid {
			kmers = append(kmers, kmer)
		}
	})
	return kmers
}

// Windows returns every window of bases, valid or not, in order.
func Windows(bases string, k int) []Window {
	windows := make([]Window, 0, WindowCount(len(bases), k))
	Each(bases, k, func(_ int, kmer string, valid bool) {
		windows = append(windows, Window{Kmer: kmer, Valid: valid})
	})
	return windows
}
