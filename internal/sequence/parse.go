package sequence

import (
	"strings"
)

// Format identifies the record layout of raw sequence text.
type Format int

const (
	// FormatUnknown is reported for empty or unrecognized input.
	FormatUnknown Format = iota
	// FormatFASTA is the header-delimited layout ('>' headers).
	FormatFASTA
	// FormatFASTQ is the 4-line quality-annotated layout ('@' headers).
	FormatFASTQ
)

func (f Format) String() string {
	switch f {
	case FormatFASTA:
		return "fasta"
	case FormatFASTQ:
		return "fastq"
	default:
		return "unknown"
	}
}

// DetectFormat inspects the first non-empty line of raw.
func DetectFormat(raw string) Format {
	lines := splitLines(raw)
	first := firstNonEmpty(lines)
	if first < 0 {
		return FormatUnknown
	}
	return formatOf(lines[first])
}

func formatOf(line string) Format {
	switch strings.TrimSpace(line)[0] {
	case '>':
		return FormatFASTA
	case '@':
		return FormatFASTQ
	default:
		return FormatUnknown
	}
}

// Parse decodes raw text into records. Unrecognized or empty input yields
// no records; malformed records are dropped rather than reported.
func Parse(raw string) []Record {
	lines := splitLines(raw)
	first := firstNonEmpty(lines)
	if first < 0 {
		return []Record{}
	}

	switch formatOf(lines[first]) {
	case FormatFASTA:
		return parseFASTA(lines[first:])
	case FormatFASTQ:
		return parseFASTQ(lines[first:])
	default:
		return []Record{}
	}
}

// ParseNamed parses raw and labels every record from its header, falling
// back to filename.
func ParseNamed(raw, filename string) []Record {
	records := Parse(raw)
	for i := range records {
		records[i] = records[i].WithLabel(ExtractLabel(records[i].ID, filename))
	}
	return records
}

func parseFASTA(lines []string) []Record {
	records := make([]Record, 0)

	var currentID string
	var currentBases strings.Builder

	flush := func() {
		if currentID != "" {
			records = append(records, Record{
				ID:    currentID,
				Bases: currentBases.String(),
			})
		}
		currentBases.Reset()
	}

	for _, line := range lines {
		line = strings.TrimSpace(line)

		if strings.HasPrefix(line, ">") {
			flush()
			currentID = strings.TrimSpace(line[1:])
			continue
		}

		currentBases.WriteString(normalizeBases(line))
	}

	flush()

	return records
}

func parseFASTQ(lines []string) []Record {
	records := make([]Record, 0, len(lines)/4)

	for i := 0; i+3 < len(lines); i += 4 {
		header := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(header, "@") {
			continue
		}

		id := strings.TrimSpace(header[1:])
		bases := normalizeBases(lines[i+1])
		if id == "" || bases == "" {
			continue
		}

		records = append(records, Record{ID: id, Bases: bases})
	}

	return records
}

func splitLines(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "\n")
}

func firstNonEmpty(lines []string) int {
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			return i
		}
	}
	return -1
}
