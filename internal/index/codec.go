package index

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/aria-lang/metaclassify-go/internal/kmer"
)

// WriteJSON serializes idx as a flat JSON object. Single-owner indexes map
// each k-mer to a label string; multi-owner indexes map it to the ordered
// label list. Keys are written in lexical order so equal indexes produce
// identical bytes.
func WriteJSON(w io.Writer, idx *Index) error {
	bw := bufio.NewWriter(w)

	if _, err := bw.WriteString("{"); err != nil {
		return err
	}

	for i, key := range idx.Keys() {
		if i > 0 {
			if err := bw.WriteByte(','); err != nil {
				return err
			}
		}

		keyJSON, err := json.Marshal(key)
		if err != nil {
			return fmt.Errorf("encoding key %q: %w", key, err)
		}

		var value interface{} = idx.entries[key]
		if idx.mode == SingleOwner {
			value = idx.entries[key][0]
		}
		valueJSON, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encoding labels for %q: %w", key, err)
		}

		bw.Write(keyJSON)
		bw.WriteByte(':')
		bw.Write(valueJSON)
	}

	if _, err := bw.WriteString("}\n"); err != nil {
		return err
	}
	return bw.Flush()
}

// ReadJSON decodes an index written by WriteJSON or by any producer of the
// same flat mapping. Values may be label strings or label lists; an index
// whose values are all strings is single-owner. The width k is taken from
// the keys, which must all share it.
func ReadJSON(r io.Reader) (*Index, error) {
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decoding index: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrNoReferenceData
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	k := len(keys[0])
	mode := SingleOwner
	entries := make(map[string][]string, len(raw))

	for _, key := range keys {
		if err := validateKey(key, k); err != nil {
			return nil, err
		}

		labels, single, err := decodeLabels(raw[key])
		if err != nil {
			return nil, &InvalidKeyError{Key: key, Reason: err.Error()}
		}
		if !single {
			mode = MultiOwner
		}
		entries[key] = labels
	}

	return newIndex(k, mode, entries), nil
}

// SaveFile writes idx as JSON to path.
func SaveFile(path string, idx *Index) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating index file: %w", err)
	}
	defer f.Close()

	if err := WriteJSON(f, idx); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return f.Close()
}

// LoadFile reads a JSON index from path.
func LoadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening index file: %w", err)
	}
	defer f.Close()

	return ReadJSON(bufio.NewReader(f))
}

func validateKey(key string, k int) error {
	if len(key) != k {
		return &InvalidKeyError{Key: key, Reason: fmt.Sprintf("length %d, want %d", len(key), k)}
	}
	if k == 0 {
		return &InvalidKeyError{Key: key, Reason: "empty key"}
	}
	if !kmer.IsCanonical(key) {
		return &InvalidKeyError{Key: key, Reason: "contains symbols outside A, C, G, T"}
	}
	return nil
}

func decodeLabels(msg json.RawMessage) ([]string, bool, error) {
	if string(msg) == "null" {
		return nil, false, fmt.Errorf("null labels")
	}

	var label string
	if err := json.Unmarshal(msg, &label); err == nil {
		return []string{label}, true, nil
	}

	var labels []string
	if err := json.Unmarshal(msg, &labels); err != nil {
		return nil, false, fmt.Errorf("value must be a label or a list of labels")
	}
	if len(labels) == 0 {
		return nil, false, fmt.Errorf("empty label list")
	}
	return labels, false, nil
}
