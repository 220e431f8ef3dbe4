// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/PotatoDog1669/insight-pilot/internal/sources"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage the blog source registry (list, add, remove)",
	Long: `Sources manages the sources.yaml registry the blog collector reads.
Entries name a site and its platform (ghost, wordpress, rss, or auto);
URLs, types, and API keys can be overridden per source through
INSIGHT_PILOT_SOURCE_* environment variables so secrets stay out of
the file.`,
}

// --- list subcommand ---

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered blog sources",
	RunE:  runSourcesList,
}

func runSourcesList(cmd *cobra.Command, args []string) error {
	path, err := sourcesFile(cmd)
	if err != nil {
		return err
	}

	list, err := sources.Load(path)
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("name")
	category, _ := cmd.Flags().GetString("category")
	list = sources.Filter(list, name, category)

	asJSON, _ := cmd.Flags().GetBool("json")
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	if len(list) == 0 {
		fmt.Println("No sources configured.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tCATEGORY\tURL")
	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, s.Type, s.Category, s.URL)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Printf("\n%d source(s)\n", len(list))
	return nil
}

// --- add subcommand ---

var sourcesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a blog source to the registry",
	RunE:  runSourcesAdd,
}

func runSourcesAdd(cmd *cobra.Command, args []string) error {
	path, err := sourcesFile(cmd)
	if err != nil {
		return err
	}

	name, _ := cmd.Flags().GetString("name")
	url, _ := cmd.Flags().GetString("url")
	srcType, _ := cmd.Flags().GetString("type")
	category, _ := cmd.Flags().GetString("category")
	apiKey, _ := cmd.Flags().GetString("api-key")

	if name == "" || url == "" {
		return fmt.Errorf("both --name and --url are required")
	}
	srcType = strings.ToLower(srcType)
	if !sources.SupportedTypes[srcType] {
		return fmt.Errorf("unsupported type %q (supported: ghost, wordpress, rss, auto)", srcType)
	}

	src := sources.Source{
		Name:     name,
		Type:     srcType,
		URL:      url,
		Category: category,
		APIKey:   apiKey,
	}
	if err := sources.Add(path, src); err != nil {
		return err
	}
	fmt.Printf("Added source %q to %s\n", name, path)
	return nil
}

// --- remove subcommand ---

var sourcesRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a blog source from the registry",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourcesRemove,
}

func runSourcesRemove(cmd *cobra.Command, args []string) error {
	path, err := sourcesFile(cmd)
	if err != nil {
		return err
	}

	removed, err := sources.Remove(path, args[0])
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("no source named %q in %s", args[0], path)
	}
	fmt.Printf("Removed source %q\n", args[0])
	return nil
}

// --- shared helpers ---

// sourcesFile resolves the registry path: the --file flag, then the
// environment override, then the enclosing project's sources.yaml.
func sourcesFile(cmd *cobra.Command) (string, error) {
	explicit, _ := cmd.Flags().GetString("file")
	if path := sources.ResolvePath(explicit, ""); path != "" {
		return path, nil
	}
	layout, err := findProject()
	if err != nil {
		return "", err
	}
	return layout.SourcesPath(), nil
}

func init() {
	// Shared flag on the parent command, inherited by subcommands.
	sourcesCmd.PersistentFlags().String("file", "", "registry file (default: .insight/sources.yaml of the enclosing project)")

	// List flags.
	sourcesListCmd.Flags().String("name", "", "filter by name substring")
	sourcesListCmd.Flags().String("category", "", "filter by category")
	sourcesListCmd.Flags().Bool("json", false, "output as JSON")

	// Add flags.
	sourcesAddCmd.Flags().String("name", "", "source name")
	sourcesAddCmd.Flags().String("url", "", "site URL")
	sourcesAddCmd.Flags().String("type", "auto", "platform type: ghost, wordpress, rss, or auto")
	sourcesAddCmd.Flags().String("category", "", "free-form grouping label")
	sourcesAddCmd.Flags().String("api-key", "", "API key for ghost sources")

	// Wire subcommands.
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesAddCmd)
	sourcesCmd.AddCommand(sourcesRemoveCmd)

	rootCmd.AddCommand(sourcesCmd)
}
