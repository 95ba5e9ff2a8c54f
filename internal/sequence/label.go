package sequence

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Header patterns tried in order by ExtractLabel.
var (
	organismPattern  = regexp.MustCompile(`(?i)organism\s*[=:]\s*([^,|\[\]]+)`)
	bracketPattern   = regexp.MustCompile(`\[([^\]]+)\]\s*$`)
	firstTwoWordsPat = regexp.MustCompile(`^(\w+\s+\w+)`)

	referenceExtPattern = regexp.MustCompile(`(?i)\.(fasta|fa|fas|fna|fastq|fq)$`)
)

// ExtractLabel derives a taxon label from a sequence header.
//
// The first rule that matches wins:
//
//  1. an organism=<value> or organism:<value> token
//  2. a trailing [<value>] suffix
//  3. the first two words of the header
//  4. the filename without extension, '_' and '-' turned into spaces
//
// When the filename is empty as well, the trimmed header is returned.
func ExtractLabel(header, filename string) string {
	header = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(header), ">@"))

	if m := organismPattern.FindStringSubmatch(header); m != nil {
		if label := strings.TrimSpace(m[1]); label != "" {
			return label
		}
	}

	if m := bracketPattern.FindStringSubmatch(header); m != nil {
		if label := strings.TrimSpace(m[1]); label != "" {
			return label
		}
	}

	if m := firstTwoWordsPat.FindStringSubmatch(header); m != nil {
		return strings.TrimSpace(m[1])
	}

	if label := LabelFromFilename(filename); label != "" {
		return label
	}

	return header
}

// LabelFromFilename strips the directory and a sequence-file extension from
// name and replaces underscores and hyphens with spaces.
func LabelFromFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	base := filepath.Base(name)
	base = referenceExtPattern.ReplaceAllString(base, "")

	return strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(base))
}
