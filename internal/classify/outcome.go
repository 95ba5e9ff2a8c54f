package classify

import (
	"encoding/json"
	"fmt"
)

// Kind enumerates the terminal states of a classification.
type Kind int

const (
	// Taxon means the record was assigned to a reference label.
	Taxon Kind = iota
	// Unclassified means no window of the record was found in the index.
	Unclassified
	// TooShort means the record is shorter than k.
	TooShort
	// LowConfidence means the best taxon did not reach the threshold.
	LowConfidence
)

// Outcome labels written for the non-taxon kinds.
const (
	UnclassifiedLabel  = "Unclassified"
	TooShortLabel      = "Too_Short"
	LowConfidenceLabel = "Low_Confidence"
)

func (k Kind) String() string {
	switch k {
	case Taxon:
		return "taxon"
	case Unclassified:
		return UnclassifiedLabel
	case TooShort:
		return TooShortLabel
	case LowConfidence:
		return LowConfidenceLabel
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Outcome is the verdict for one record. Label is only meaningful when
// Kind is Taxon.
type Outcome struct {
	Kind  Kind
	Label string
}

// TaxonOutcome returns an Outcome assigning label.
func TaxonOutcome(label string) Outcome {
	return Outcome{Kind: Taxon, Label: label}
}

// IsClassified reports whether the outcome names a taxon.
func (o Outcome) IsClassified() bool {
	return o.Kind == Taxon
}

// String returns the taxon label, or the fixed label of a non-taxon kind.
func (o Outcome) String() string {
	if o.Kind == Taxon {
		return o.Label
	}
	return o.Kind.String()
}

// MarshalJSON encodes the outcome as its String form.
func (o Outcome) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

// UnmarshalJSON decodes the String form. A taxon whose label collides with
// one of the fixed labels cannot round-trip; reference labels never do.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*o = ParseOutcome(s)
	return nil
}

// ParseOutcome maps a String form back to an Outcome.
func ParseOutcome(s string) Outcome {
	switch s {
	case UnclassifiedLabel:
		return Outcome{Kind: Unclassified}
	case TooShortLabel:
		return Outcome{Kind: TooShort}
	case LowConfidenceLabel:
		return Outcome{Kind: LowConfidence}
	default:
		return TaxonOutcome(s)
	}
}
