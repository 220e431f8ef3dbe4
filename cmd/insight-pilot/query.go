package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PotatoDog1669/insight-pilot/internal/catalog"
	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Search the catalog",
	Long: `Query searches the catalog built by index. Free text matches titles,
abstracts, summaries, authors, and tags; filters narrow by type, source,
tag, or status. With --export the matching entries are written to the
catalog directory instead of the terminal.`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().String("type", "", "filter by item type: paper, blog, or github")
	queryCmd.Flags().String("source", "", "filter by originating source")
	queryCmd.Flags().String("tag", "", "filter by analysis tag")
	queryCmd.Flags().String("status", "", "filter by item status: active, excluded, or pending_review")
	queryCmd.Flags().Int("limit", 0, "maximum results (0 = catalog default)")
	queryCmd.Flags().Bool("json", false, "print results as JSON")
	queryCmd.Flags().Bool("export", false, "write matching entries to the catalog directory")
	queryCmd.Flags().String("format", "yaml", "export format: yaml or json")

	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	layout, err := findProject()
	if err != nil {
		return err
	}

	itemType, _ := cmd.Flags().GetString("type")
	source, _ := cmd.Flags().GetString("source")
	tag, _ := cmd.Flags().GetString("tag")
	status, _ := cmd.Flags().GetString("status")
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")
	export, _ := cmd.Flags().GetBool("export")
	format, _ := cmd.Flags().GetString("format")

	opts := catalog.QueryOptions{
		Query:      strings.Join(args, " "),
		Type:       itemType,
		Source:     source,
		Status:     status,
		MaxResults: limit,
	}
	if tag != "" {
		opts.Tags = []string{tag}
	}

	store, err := catalog.NewStore(layout.CatalogDir(), types.CatalogConfig{})
	if err != nil {
		return err
	}
	defer store.Close()

	if export {
		switch format {
		case "yaml":
			if err := store.ExportYAML(context.Background(), opts); err != nil {
				return err
			}
			fmt.Printf("Exported to %s\n", filepath.Join(layout.CatalogDir(), "export.yaml"))
		case "json":
			if err := store.ExportJSON(context.Background(), opts); err != nil {
				return err
			}
			fmt.Printf("Exported to %s\n", filepath.Join(layout.CatalogDir(), "export.json"))
		default:
			return fmt.Errorf("unsupported format %q: use yaml or json", format)
		}
		return nil
	}

	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide search text, --type, --source, --tag, or --status")
	}

	results, err := store.Retrieve(context.Background(), opts)
	if err != nil {
		return err
	}

	if asJSON {
		return catalog.WriteJSON(os.Stdout, results)
	}
	return catalog.WriteTable(os.Stdout, results)
}
