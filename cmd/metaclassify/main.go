// Command metaclassify builds k-mer reference indexes and classifies
// sequencing reads against them.
//
// Usage:
//
//	metaclassify [command] [options]
//
// Commands:
//
//	build       Build a reference index from FASTA/FASTQ files
//	classify    Classify reads and write an abundance report
//	inspect     Summarize a saved index
//	stats       Summarize sequence files
//	version     Show version information
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aria-lang/metaclassify-go/internal/config"
	"github.com/aria-lang/metaclassify-go/pkg/metaclassify"
)

var rootCmd = &cobra.Command{
	Use:   "metaclassify",
	Short: "k-mer taxonomic classifier",
	Long: `metaclassify assigns sequencing reads to reference organisms by exact
k-mer voting and reports the abundance profile of a sample.

Settings come from metaclassify.yaml (or $CONFIG_PATH), METACLASSIFY_*
environment variables and flags, in increasing order of precedence.`,
	Version:       metaclassify.Version(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// cfg holds the loaded configuration; flags registered against it override
// file and environment values.
var cfg = config.Default()

var quiet bool

func main() {
	log.SetFlags(0)
	log.SetPrefix("[metaclassify] ")

	loaded, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	cfg = loaded

	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "do not show progress bars")
	rootCmd.PersistentFlags().IntVarP(&cfg.Workers, "threads", "j", cfg.Workers, "number of worker goroutines")

	rootCmd.AddCommand(newBuildCmd(), newClassifyCmd(), newInspectCmd(), newStatsCmd(), newVersionCmd())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = rootCmd.ExecuteContext(ctx)
	cancel()
	if err != nil {
		log.Fatalf("%v", err)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), metaclassify.Info())
		},
	}
}

// engineOptions converts the validated configuration into engine options.
func engineOptions() (metaclassify.Options, error) {
	if err := cfg.Validate(); err != nil {
		return metaclassify.Options{}, err
	}
	return metaclassify.Options{
		K:                   cfg.K,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		Mode:                cfg.Mode(),
		Workers:             cfg.Workers,
	}, nil
}

func isStdout(path string) bool {
	return path == "" || path == "-"
}

func createOutput(path string) (*os.File, func() error, error) {
	if isStdout(path) {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func isSQLitePath(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".db") || strings.HasSuffix(lower, ".sqlite") || strings.HasSuffix(lower, ".sqlite3")
}
