package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/PotatoDog1669/insight-pilot/internal/process"
	"github.com/PotatoDog1669/insight-pilot/internal/project"
	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

var mergeCmd = &cobra.Command{
	Use:   "merge [files...]",
	Short: "Merge raw search results into the canonical item list",
	Long: `Merge reads raw result files (default: every file in .insight/raw/),
concatenates the records with the current item list, fills required
defaults, and assigns stable IDs. No duplicate removal happens here;
run dedup next.`,
	RunE: runMerge,
}

func init() {
	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	layout, err := findProject()
	if err != nil {
		return err
	}
	_, err = executeMerge(layout, args, os.Stdout)
	return err
}

// executeMerge merges the given files (default: all raw result files) with
// the existing item list and saves the result. Shared with the pipeline
// command.
func executeMerge(layout project.Layout, files []string, w io.Writer) ([]types.Item, error) {
	paths := files
	if len(paths) == 0 {
		var err error
		paths, err = layout.RawFiles()
		if err != nil {
			return nil, err
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no raw result files in %s: run search first", layout.RawDir())
	}

	// The current item list leads the inputs so existing IDs stay stable.
	if _, err := os.Stat(layout.ItemsPath()); err == nil {
		paths = append([]string{layout.ItemsPath()}, paths...)
	}

	items, err := process.Merge(paths, w)
	if err != nil {
		return nil, err
	}

	if err := layout.SaveItems(items); err != nil {
		return nil, err
	}
	fmt.Fprintf(w, "\nMerged %d records into %s\n", len(items), layout.ItemsPath())

	syncState(layout, "merge", items)
	return items, nil
}
