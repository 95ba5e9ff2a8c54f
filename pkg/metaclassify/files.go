package metaclassify

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var sequenceExts = map[string]bool{
	".fasta": true,
	".fa":    true,
	".fas":   true,
	".fna":   true,
	".fastq": true,
	".fq":    true,
}

// IsSequenceFile reports whether name has a FASTA or FASTQ extension.
func IsSequenceFile(name string) bool {
	return sequenceExts[strings.ToLower(filepath.Ext(name))]
}

// ReadSources reads every path into a Source named by its base name.
// Directories are walked recursively and contribute only sequence files,
// in lexical order. The path "-" reads standard input.
func ReadSources(paths ...string) ([]Source, error) {
	var sources []Source

	for _, path := range paths {
		if path == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return nil, fmt.Errorf("reading stdin: %w", err)
			}
			sources = append(sources, Source{Name: "stdin", Text: string(data)})
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			src, err := readSource(path)
			if err != nil {
				return nil, err
			}
			sources = append(sources, src)
			continue
		}

		var files []string
		err = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && IsSequenceFile(d.Name()) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", path, err)
		}
		sort.Strings(files)

		for _, f := range files {
			src, err := readSource(f)
			if err != nil {
				return nil, err
			}
			sources = append(sources, src)
		}
	}

	return sources, nil
}

func readSource(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return Source{Name: filepath.Base(path), Text: string(data)}, nil
}
