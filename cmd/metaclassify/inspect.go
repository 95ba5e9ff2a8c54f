package main

import (
	"fmt"
	"sort"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/aria-lang/metaclassify-go/internal/sequence"
	"github.com/aria-lang/metaclassify-go/internal/stats"
	"github.com/aria-lang/metaclassify-go/pkg/metaclassify"
)

func newInspectCmd() *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "inspect [index file]",
		Short: "Summarize a saved index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			engine, err := loadEngine(cmd, path)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			idx := engine.Index()
			status := engine.Status()
			fmt.Fprintf(out, "k:       %d\n", idx.K())
			fmt.Fprintf(out, "mode:    %s owner\n", idx.Mode())
			fmt.Fprintf(out, "k-mers:  %s\n", humanize.Comma(int64(idx.Len())))
			fmt.Fprintf(out, "taxa:    %d\n", status.Taxa)
			fmt.Fprintf(out, "digest:  %s\n", status.IndexDigest)

			counts := idx.LabelCounts()
			labels := make([]string, 0, len(counts))
			for label := range counts {
				labels = append(labels, label)
			}
			sort.Slice(labels, func(i, j int) bool {
				if counts[labels[i]] != counts[labels[j]] {
					return counts[labels[i]] > counts[labels[j]]
				}
				return labels[i] < labels[j]
			})
			if top >= 0 && top < len(labels) {
				labels = labels[:top]
			}

			fmt.Fprintln(out)
			for i, label := range labels {
				fmt.Fprintf(out, "%3d. %s: %s k-mers\n", i+1, label, humanize.Comma(int64(counts[label])))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&top, "top", "n", 20, "number of taxa to list (-1 for all)")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var bins int

	cmd := &cobra.Command{
		Use:   "stats <sequence files>...",
		Short: "Summarize sequence files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sources, err := metaclassify.ReadSources(args...)
			if err != nil {
				return err
			}

			var records []sequence.Record
			for _, src := range sources {
				records = append(records, sequence.ParseNamed(src.Text, src.Name)...)
			}
			if len(records) == 0 {
				return fmt.Errorf("no sequences found")
			}

			set, err := stats.FromRecords(records)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, set)

			gc, err := stats.NewGCHistogram(records, bins)
			if err != nil {
				return err
			}
			lengths, err := stats.NewLengthHistogram(records, bins)
			if err != nil {
				return err
			}
			low, high := gc.ModeBin()
			fmt.Fprintf(out, "GC peak: %.0f-%.0f%%\n", low*100, high*100)
			if invalid := countInvalid(records); invalid > 0 {
				fmt.Fprintf(out, "Records with non-ACGT symbols: %s\n", humanize.Comma(int64(invalid)))
			}
			fmt.Fprintln(out)
			fmt.Fprint(out, gc)
			fmt.Fprintln(out)
			fmt.Fprint(out, lengths)
			return nil
		},
	}

	cmd.Flags().IntVarP(&bins, "bins", "b", 10, "histogram bins")
	return cmd
}

func countInvalid(records []sequence.Record) int {
	n := 0
	for _, rec := range records {
		if sequence.ValidateCanonical(rec.Bases) != nil {
			n++
		}
	}
	return n
}
