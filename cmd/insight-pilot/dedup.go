package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/PotatoDog1669/insight-pilot/internal/process"
	"github.com/PotatoDog1669/insight-pilot/internal/project"
)

var dedupCmd = &cobra.Command{
	Use:   "dedup",
	Short: "Collapse duplicate items in the canonical list",
	Long: `Dedup collapses records that refer to the same work, matching by DOI,
then arXiv ID, then normalized title with a fuzzy-similarity fallback.
Duplicates merge field by field into the earliest record; survivor order
is preserved.`,
	RunE: runDedup,
}

func init() {
	dedupCmd.Flags().Float64("threshold", process.DefaultSimilarityThreshold,
		"minimum title similarity for a fuzzy match, in (0,1]")
	dedupCmd.Flags().Bool("dry-run", false, "report duplicates without changing the item list")

	rootCmd.AddCommand(dedupCmd)
}

func runDedup(cmd *cobra.Command, args []string) error {
	layout, err := findProject()
	if err != nil {
		return err
	}
	threshold, _ := cmd.Flags().GetFloat64("threshold")
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	return executeDedup(layout, threshold, dryRun, os.Stdout)
}

// executeDedup deduplicates the item list and saves the survivors. Shared
// with the pipeline command.
func executeDedup(layout project.Layout, threshold float64, dryRun bool, w io.Writer) error {
	if threshold <= 0 || threshold > 1 {
		return fmt.Errorf("threshold %v out of range (0,1]", threshold)
	}

	items, err := layout.LoadItems()
	if err != nil {
		return err
	}

	survivors, stats := process.Deduplicate(items, threshold)

	fmt.Fprintf(w, "Deduplicated %d -> %d items (%d duplicates)\n",
		stats.Original, stats.Final, stats.Duplicates)
	for _, m := range stats.Merged {
		fmt.Fprintf(w, "  merged %q into %q\n", m.Title, m.MergedWith)
	}

	if dryRun {
		fmt.Fprintln(w, "Dry run: item list unchanged.")
		return nil
	}

	if err := layout.SaveItems(survivors); err != nil {
		return err
	}
	syncState(layout, "dedup", survivors)
	return nil
}
