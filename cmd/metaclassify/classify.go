package main

import (
	"fmt"
	"log"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/aria-lang/metaclassify-go/internal/report"
	"github.com/aria-lang/metaclassify-go/pkg/metaclassify"
)

func newClassifyCmd() *cobra.Command {
	var (
		indexPath string
		refs      []string
		format    string
		output    string
	)

	cmd := &cobra.Command{
		Use:   "classify [flags] <read files>...",
		Short: "Classify reads and write an abundance report",
		Long: `Classify every read against a reference index and write the report.

The index is loaded from --index (JSON, or SQLite for .db/.sqlite), or built
on the fly from --ref files. Use "-" to read queries from standard input.`,
		Example: `  metaclassify classify --index refs.json reads.fastq
  metaclassify classify --ref refs/ -k 21 -f csv -o abundance.csv reads.fq
  cat reads.fa | metaclassify classify --index refs.db -f txt -`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}

			var engine *metaclassify.Engine
			if len(refs) > 0 {
				engine, _, err = buildEngine(cmd.Context(), refs)
				if err != nil {
					return err
				}
			} else {
				engine, err = loadEngine(cmd, indexPath)
				if err != nil {
					return err
				}
			}

			sources, err := metaclassify.ReadSources(args...)
			if err != nil {
				return err
			}

			start := time.Now()
			stop := showProgress(engine.Progress())
			rep, err := engine.ClassifySources(cmd.Context(), sources)
			stop()
			if err != nil {
				return err
			}

			s := rep.Statistics
			log.Printf("classified %s of %s sequences (%.1f%%) into %d taxa in %s",
				humanize.Comma(int64(s.ClassifiedCount)), humanize.Comma(int64(s.TotalSequences)),
				s.ClassificationRate*100, s.UniqueTaxonCount, time.Since(start).Round(time.Millisecond))

			out, closeOut, err := createOutput(output)
			if err != nil {
				return err
			}
			if err := rep.Write(out, f); err != nil {
				closeOut()
				return fmt.Errorf("writing report: %w", err)
			}
			return closeOut()
		},
	}

	cmd.Flags().StringVarP(&indexPath, "index", "i", "", "saved index (.json, or .db/.sqlite)")
	cmd.Flags().StringSliceVarP(&refs, "ref", "r", nil, "reference files or directories to index before classifying")
	cmd.Flags().StringVarP(&format, "format", "f", "txt", "report format: json, csv, txt or tsv")
	cmd.Flags().StringVarP(&output, "output", "o", "-", `report file ("-" for stdout)`)
	cmd.Flags().IntVarP(&cfg.K, "kmer", "k", cfg.K, "k-mer length when building from --ref")
	cmd.Flags().StringVar(&cfg.IndexMode, "mode", cfg.IndexMode, "index mode when building from --ref")
	cmd.Flags().Float64VarP(&cfg.ConfidenceThreshold, "threshold", "t", cfg.ConfidenceThreshold, "minimum confidence for a taxon call")

	return cmd
}

// loadEngine installs a saved index into a fresh engine. Without an
// explicit path the configured database, then the configured JSON index,
// is used.
func loadEngine(cmd *cobra.Command, path string) (*metaclassify.Engine, error) {
	if path == "" {
		path = cfg.IndexPath
		if cfg.DBPath != "" {
			path = cfg.DBPath
		}
	}

	opts, err := engineOptions()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	idx, err := loadIndex(cmd.Context(), path)
	if err != nil {
		return nil, fmt.Errorf("loading index: %w", err)
	}

	engine := metaclassify.New(opts)
	if err := engine.UseIndex(idx); err != nil {
		return nil, err
	}

	log.Printf("loaded %s k-mers (k=%d, %s owner) from %s in %s",
		humanize.Comma(int64(idx.Len())), idx.K(), idx.Mode(), path, time.Since(start).Round(time.Millisecond))
	return engine, nil
}
