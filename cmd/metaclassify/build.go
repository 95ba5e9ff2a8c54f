package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/aria-lang/metaclassify-go/pkg/metaclassify"
)

func newBuildCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "build [flags] <reference files or directories>...",
		Short: "Build a reference index from FASTA/FASTQ files",
		Long: `Build a k-mer reference index. Each record is labelled from its header
(organism=..., a trailing [Organism name], or its first two words) and
otherwise from its file name.

The index is written as JSON, or to SQLite when the output ends in .db or
.sqlite.`,
		Example: `  metaclassify build -k 21 -o refs.json refs/
  metaclassify build --mode single -o refs.db ecoli.fasta bsub.fasta`,
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := args
			if len(paths) == 0 && cfg.ReferenceDir != "" {
				paths = []string{cfg.ReferenceDir}
			}
			if len(paths) == 0 {
				return fmt.Errorf("no reference files given and reference_dir is not configured")
			}
			if output == "" {
				output = cfg.IndexPath
				if cfg.DBPath != "" {
					output = cfg.DBPath
				}
			}

			engine, summary, err := buildEngine(cmd.Context(), paths)
			if err != nil {
				return err
			}

			start := time.Now()
			if err := saveIndex(cmd.Context(), output, engine.Index()); err != nil {
				return fmt.Errorf("saving index: %w", err)
			}

			log.Printf("indexed %s references into %s k-mers (k=%d, %s owner, digest %s) in %s",
				humanize.Comma(int64(summary.Records)), humanize.Comma(int64(summary.Size)),
				engine.K(), cfg.IndexMode, summary.Digest, summary.Duration.Round(time.Millisecond))
			log.Printf("saved index to %s in %s", output, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "index file (.json, or .db/.sqlite for SQLite)")
	cmd.Flags().IntVarP(&cfg.K, "kmer", "k", cfg.K, "k-mer length")
	cmd.Flags().StringVar(&cfg.IndexMode, "mode", cfg.IndexMode, "index mode: multi or single")

	return cmd
}

// buildEngine reads paths and builds an index into a fresh engine,
// drawing progress and logging build warnings.
func buildEngine(ctx context.Context, paths []string) (*metaclassify.Engine, *metaclassify.BuildSummary, error) {
	opts, err := engineOptions()
	if err != nil {
		return nil, nil, err
	}

	sources, err := metaclassify.ReadSources(paths...)
	if err != nil {
		return nil, nil, err
	}

	engine := metaclassify.New(opts)
	stop := showProgress(engine.Progress())
	summary, err := engine.BuildIndex(ctx, sources)
	stop()
	if err != nil {
		return nil, nil, err
	}

	for _, w := range summary.Warnings {
		log.Printf("warning: %s", w)
	}
	return engine, summary, nil
}
