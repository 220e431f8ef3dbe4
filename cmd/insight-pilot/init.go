package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/PotatoDog1669/insight-pilot/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init [topic]",
	Short: "Create a research project in the current directory",
	Long: `Init creates the .insight project tree: configuration, state, an empty
item list, and the papers/, reports/, and raw-results directories. The topic
seeds the default search keywords.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().String("topic", "", "research topic (alternative to the positional argument)")
	initCmd.Flags().String("keywords", "", "comma-separated search keywords (default: the lowercased topic)")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	topic, _ := cmd.Flags().GetString("topic")
	if topic == "" {
		topic = strings.TrimSpace(strings.Join(args, " "))
	}
	if topic == "" {
		return fmt.Errorf("provide a research topic: insight-pilot init \"efficient attention\"")
	}

	keywordsFlag, _ := cmd.Flags().GetString("keywords")

	layout, err := project.Init(".", topic, splitCSV(keywordsFlag))
	if err != nil {
		return err
	}

	fmt.Printf("Initialized project for %q\n", topic)
	fmt.Printf("  config: %s\n", layout.ConfigPath())
	fmt.Printf("  items:  %s\n", layout.ItemsPath())
	return nil
}
