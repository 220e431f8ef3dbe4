// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the insight-pilot CLI.
// Implements: prd001-collection, prd002-reconciliation, prd003-download,
//             prd004-conversion, prd005-analysis, prd006-output,
//             prd007-catalog (CLI surface).
// See docs/ARCHITECTURE.md § Pipeline Interface, § Project Structure.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/PotatoDog1669/insight-pilot/internal/download"
	"github.com/PotatoDog1669/insight-pilot/internal/project"
	"github.com/PotatoDog1669/insight-pilot/internal/secrets"
	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

const (
	secretsDir       = ".secrets/"
	defaultUserAgent = "insight-pilot/0.1"
)

// rootCmd is the base command for the insight-pilot CLI.
var rootCmd = &cobra.Command{
	Use:   "insight-pilot",
	Short: "Literature collection and analysis pipeline",
	Long: `insight-pilot collects literature from academic and web sources, reconciles
the results into one canonical item list, and carries the items through
download, conversion, analysis, report generation, and a searchable catalog.

Each pipeline stage is a subcommand: search, merge, dedup, download, convert,
analyze, index, and query. The pipeline command chains the collection stages
into a single run.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(secretsDir)
		if err != nil {
			return err
		}
		if applied := secrets.Apply(s); len(applied) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", applied)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: .insight/config.yaml of the enclosing project)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if layout, err := project.Find("."); err == nil {
		viper.SetConfigFile(layout.ConfigPath())
	}

	viper.SetEnvPrefix("INSIGHT_PILOT")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// findProject locates the enclosing project for commands that need one.
func findProject() (project.Layout, error) {
	layout, err := project.Find(".")
	if err != nil {
		return project.Layout{}, fmt.Errorf("no project here: run \"insight-pilot init\" first (%v)", err)
	}
	return layout, nil
}

// touchStage records a stage run in state.json. State trouble is worth a
// warning, never a failed command.
func touchStage(layout project.Layout, stage string, items int) {
	state, err := layout.LoadState()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not update state: %v\n", err)
		return
	}
	state.Touch(stage, items)
	if err := layout.SaveState(&state); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not update state: %v\n", err)
	}
}

// syncState refreshes the item-derived state fields and records a stage run.
func syncState(layout project.Layout, stage string, items []types.Item) {
	state, err := layout.LoadState()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not update state: %v\n", err)
		return
	}
	state.TotalItems = len(items)
	state.DownloadStats = download.Stats(items)
	state.Touch(stage, len(items))
	if err := layout.SaveState(&state); err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not update state: %v\n", err)
	}
}

// splitCSV splits a comma-separated flag value, dropping blanks.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
