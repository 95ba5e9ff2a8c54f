package sequence

import "fmt"

// InvalidBaseError is returned when a symbol outside {A,C,G,T} is found.
type InvalidBaseError struct {
	Position int
	Found    byte
}

func (e *InvalidBaseError) Error() string {
	return fmt.Sprintf("invalid base '%c' at position %d", e.Found, e.Position)
}

// IsCanonicalBase reports whether c is one of A, C, G or T.
func IsCanonicalBase(c byte) bool {
	switch c {
	case 'A', 'C', 'G', 'T':
		return true
	}
	return false
}

// ValidateCanonical returns an error for the first non-canonical symbol.
func ValidateCanonical(bases string) error {
	for i := 0; i < len(bases); i++ {
		if !IsCanonicalBase(bases[i]) {
			return &InvalidBaseError{Position: i, Found: bases[i]}
		}
	}
	return nil
}
