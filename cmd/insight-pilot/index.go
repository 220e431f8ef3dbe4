// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/PotatoDog1669/insight-pilot/internal/catalog"
	"github.com/PotatoDog1669/insight-pilot/internal/output"
	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Generate reports and the index, and refresh the catalog",
	Long: `Index renders one Markdown report per analyzed item under reports/,
regenerates index.md, and refreshes the searchable catalog from the
current item list.`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	layout, err := findProject()
	if err != nil {
		return err
	}

	projCfg, err := layout.LoadConfig()
	if err != nil {
		return err
	}
	items, err := layout.LoadItems()
	if err != nil {
		return err
	}

	summary, err := output.WriteAll(items, layout.LoadAnalysis, projCfg.Topic, projCfg.Keywords, layout.IndexPath(), layout.ReportsDir(), os.Stdout)
	if err != nil {
		return err
	}

	// WriteAll stamps report paths on the items.
	if err := layout.SaveItems(items); err != nil {
		return err
	}

	store, err := catalog.NewStore(layout.CatalogDir(), types.CatalogConfig{})
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Println()
	ingest, err := store.Ingest(context.Background(), items, layout.LoadAnalysis, os.Stdout)
	if err != nil {
		return err
	}

	touchStage(layout, "index", summary.Analyzed)

	if ingest.Failed > 0 {
		return fmt.Errorf("%d item(s) failed catalog indexing", ingest.Failed)
	}
	return nil
}
