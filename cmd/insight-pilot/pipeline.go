package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PotatoDog1669/insight-pilot/internal/process"
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run search, merge, and dedup in one pass",
	Long: `Pipeline chains the collection stages: search the enabled sources, merge
the raw results into the item list, and deduplicate. Equivalent to running
the three commands in sequence.`,
	RunE: runPipeline,
}

func init() {
	pipelineCmd.Flags().String("query", "", "free-text query (default: project keywords)")
	pipelineCmd.Flags().String("source", "", "comma-separated source list (default: sources enabled in config)")
	pipelineCmd.Flags().Int("max-results", defaultMaxResults, "per-source result cap")
	pipelineCmd.Flags().Float64("threshold", process.DefaultSimilarityThreshold,
		"minimum title similarity for a fuzzy match, in (0,1]")

	rootCmd.AddCommand(pipelineCmd)
}

func runPipeline(cmd *cobra.Command, args []string) error {
	layout, err := findProject()
	if err != nil {
		return err
	}

	queryFlag, _ := cmd.Flags().GetString("query")
	sourceFlag, _ := cmd.Flags().GetString("source")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	threshold, _ := cmd.Flags().GetFloat64("threshold")

	fmt.Println("=== search ===")
	opts := searchOptions{Query: queryFlag, Sources: splitCSV(sourceFlag), MaxResults: maxResults}
	if _, err := executeSearch(layout, opts, os.Stdout); err != nil {
		return err
	}

	fmt.Println("\n=== merge ===")
	if _, err := executeMerge(layout, nil, os.Stdout); err != nil {
		return err
	}

	fmt.Println("\n=== dedup ===")
	return executeDedup(layout, threshold, false, os.Stdout)
}
