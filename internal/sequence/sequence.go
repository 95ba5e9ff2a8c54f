// Package sequence provides the normalized sequence record shared by the
// reference and query paths, together with the parsers that produce it.
//
// Records are values: once parsed they are never mutated, so the same slice
// can be handed to the index builder and to concurrent classifiers.
package sequence

import (
	"fmt"
	"strings"
)

// Record is a parsed sequence with its identifier and taxon label.
type Record struct {
	// ID is the header text after the '>' or '@' marker, trimmed.
	ID string
	// Bases is the upper-cased sequence with all whitespace removed.
	Bases string
	// SourceLabel is the taxon the record belongs to. It is only set for
	// reference records; see ExtractLabel.
	SourceLabel string
}

// NewRecord normalizes bases and returns a record.
func NewRecord(id, bases, label string) Record {
	return Record{
		ID:          strings.TrimSpace(id),
		Bases:       normalizeBases(bases),
		SourceLabel: label,
	}
}

// Len returns the length of the sequence.
func (r Record) Len() int {
	return len(r.Bases)
}

// Label returns the record's taxon label, deriving it from the identifier
// when none was supplied.
func (r Record) Label() string {
	if r.SourceLabel != "" {
		return r.SourceLabel
	}
	return ExtractLabel(r.ID, "")
}

// WithLabel returns a copy of the record carrying label.
func (r Record) WithLabel(label string) Record {
	r.SourceLabel = label
	return r
}

// GCContent calculates the proportion of G and C among all bases.
func (r Record) GCContent() float64 {
	if len(r.Bases) == 0 {
		return 0.0
	}

	gcCount := 0
	for i := 0; i < len(r.Bases); i++ {
		if r.Bases[i] == 'G' || r.Bases[i] == 'C' {
			gcCount++
		}
	}

	return float64(gcCount) / float64(len(r.Bases))
}

// BaseCounts holds per-symbol counts. Other counts every symbol outside
// the canonical alphabet (N and the IUPAC ambiguity codes alike).
type BaseCounts struct {
	A     int
	C     int
	G     int
	T     int
	Other int
}

// BaseCounts returns the count of each base type.
func (r Record) BaseCounts() BaseCounts {
	counts := BaseCounts{}

	for i := 0; i < len(r.Bases); i++ {
		switch r.Bases[i] {
		case 'A':
			counts.A++
		case 'C':
			counts.C++
		case 'G':
			counts.G++
		case 'T':
			counts.T++
		default:
			counts.Other++
		}
	}

	return counts
}

// Total returns the total count of all bases.
func (bc BaseCounts) Total() int {
	return bc.A + bc.C + bc.G + bc.T + bc.Other
}

// CountAmbiguous counts the symbols outside {A,C,G,T}.
func (r Record) CountAmbiguous() int {
	return r.BaseCounts().Other
}

// ToFASTA returns the record in header-delimited format with 80-column lines.
func (r Record) ToFASTA() string {
	id := r.ID
	if id == "" {
		id = "sequence"
	}

	var sb strings.Builder
	sb.WriteByte('>')
	sb.WriteString(id)
	sb.WriteByte('\n')

	for i := 0; i < len(r.Bases); i += 80 {
		end := i + 80
		if end > len(r.Bases) {
			end = len(r.Bases)
		}
		sb.WriteString(r.Bases[i:end])
		sb.WriteByte('\n')
	}

	return sb.String()
}

func (r Record) String() string {
	if r.SourceLabel != "" {
		return fmt.Sprintf("%s [%s] (%d bp)", r.ID, r.SourceLabel, len(r.Bases))
	}
	return fmt.Sprintf("%s (%d bp)", r.ID, len(r.Bases))
}

// normalizeBases upper-cases s and drops every whitespace character.
func normalizeBases(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch c {
		case ' ', '\t', '\r', '\n', '\v', '\f':
			continue
		}
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
