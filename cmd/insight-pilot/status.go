package main

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/PotatoDog1669/insight-pilot/internal/download"
	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show project state and per-stage progress",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	layout, err := findProject()
	if err != nil {
		return err
	}

	state, err := layout.LoadState()
	if err != nil {
		return err
	}
	items, err := layout.LoadItems()
	if err != nil {
		return err
	}

	var active, excluded, pending int
	for _, it := range items {
		switch it.Status {
		case types.StatusExcluded:
			excluded++
		case types.StatusPendingReview:
			pending++
		default:
			active++
		}
	}
	dl := download.Stats(items)

	analyses, err := layout.ListAnalyses()
	if err != nil {
		return err
	}

	fmt.Printf("Project:      %s\n", state.Topic)
	fmt.Printf("Root:         %s\n", layout.Root)
	fmt.Printf("Created:      %s\n", state.CreatedAt)
	fmt.Printf("Last updated: %s\n", state.LastUpdated)
	if len(state.SourcesUsed) > 0 {
		fmt.Printf("Sources used: %s\n", strings.Join(state.SourcesUsed, ", "))
	}
	fmt.Println()
	fmt.Printf("Items:     %d total, %d active, %d excluded, %d pending review\n",
		len(items), active, excluded, pending)
	fmt.Printf("Downloads: %d success, %d failed, %d pending\n",
		dl.Success, dl.Failed, dl.Pending)
	fmt.Printf("Analyses:  %d\n", len(analyses))

	if len(state.Stages) > 0 {
		names := make([]string, 0, len(state.Stages))
		for name := range state.Stages {
			names = append(names, name)
		}
		sort.Strings(names)

		fmt.Println("\nStages:")
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, name := range names {
			info := state.Stages[name]
			fmt.Fprintf(tw, "  %s\t%s\t%d items\n", name, info.RanAt, info.Items)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	return nil
}
