// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/PotatoDog1669/insight-pilot/internal/collect"
	"github.com/PotatoDog1669/insight-pilot/internal/project"
	"github.com/PotatoDog1669/insight-pilot/internal/sources"
	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

const (
	defaultHTTPTimeout      = 30 * time.Second
	defaultMaxResults       = 20
	defaultInterSourceDelay = 1 * time.Second
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run source collectors and save raw results",
	Long: `Search queries the enabled sources (arXiv, OpenAlex, PubMed, GitHub,
Dev.to, configured blogs) for the project topic or an explicit query, and
writes one raw result file per source under .insight/raw/. A failing source
produces a warning; the run continues with the rest.`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().String("query", "", "free-text query (default: project keywords)")
	searchCmd.Flags().String("source", "", "comma-separated source list (default: sources enabled in config)")
	searchCmd.Flags().Int("max-results", defaultMaxResults, "per-source result cap")
	searchCmd.Flags().String("from", "", "publication date range start (YYYY-MM-DD)")
	searchCmd.Flags().String("to", "", "publication date range end (YYYY-MM-DD)")
	searchCmd.Flags().Bool("title-only", false, "match work titles only (OpenAlex)")

	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	layout, err := findProject()
	if err != nil {
		return err
	}

	queryFlag, _ := cmd.Flags().GetString("query")
	sourceFlag, _ := cmd.Flags().GetString("source")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	titleOnly, _ := cmd.Flags().GetBool("title-only")

	opts := searchOptions{
		Query:      queryFlag,
		Sources:    splitCSV(sourceFlag),
		MaxResults: maxResults,
		From:       from,
		To:         to,
		TitleOnly:  titleOnly,
	}
	_, err = executeSearch(layout, opts, os.Stdout)
	return err
}

type searchOptions struct {
	Query      string
	Sources    []string
	MaxResults int
	From, To   string
	TitleOnly  bool
}

// executeSearch runs the collectors and persists one raw result file per
// source. Shared with the pipeline command.
func executeSearch(layout project.Layout, opts searchOptions, w io.Writer) (collect.Output, error) {
	projCfg, err := layout.LoadConfig()
	if err != nil {
		return collect.Output{}, err
	}

	query := collect.Query{Topic: projCfg.Topic, Keywords: projCfg.Keywords}
	if opts.Query != "" {
		query = collect.Query{Topic: opts.Query}
	}

	enabled := opts.Sources
	if len(enabled) == 0 {
		enabled = projCfg.Sources.Enabled
	}
	if len(enabled) == 0 {
		enabled = []string{"arxiv", "openalex"}
	}

	blogs, err := sources.Load(sources.ResolvePath("", layout.SourcesPath()))
	if err != nil {
		return collect.Output{}, err
	}

	client := &http.Client{Timeout: defaultHTTPTimeout}
	collectors, err := collect.BuildCollectors(enabled, client, blogs)
	if err != nil {
		return collect.Output{}, err
	}

	cfg := types.CollectConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   defaultHTTPTimeout,
			UserAgent: defaultUserAgent,
		},
		MaxResults:       opts.MaxResults,
		TimeRange:        types.TimeRange{Start: opts.From, End: opts.To},
		GithubToken:      viper.GetString("github-token"),
		OpenAlexMailto:   viper.GetString("openalex-email"),
		PubMedEmail:      viper.GetString("pubmed-email"),
		TitleOnly:        opts.TitleOnly,
		InterSourceDelay: defaultInterSourceDelay,
	}
	if cfg.TimeRange.Start == "" && cfg.TimeRange.End == "" {
		cfg.TimeRange = projCfg.TimeRange
	}

	out, err := collect.Run(context.Background(), query, collectors, cfg, w)
	if err != nil {
		return out, err
	}

	state, stateErr := layout.LoadState()
	for _, result := range out.Results {
		path, err := layout.WriteRaw(result)
		if err != nil {
			return out, err
		}
		fmt.Fprintf(w, "%s: %d records -> %s\n", result.Source, len(result.Results), path)
		if stateErr == nil && result.Error == "" {
			state.RecordSource(result.Source)
		}
	}
	fmt.Fprintf(w, "\nCollected %d records from %d source(s)\n", out.Items(), len(out.Results))

	if stateErr == nil {
		state.Touch("search", out.Items())
		if err := layout.SaveState(&state); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not update state: %v\n", err)
		}
	}
	return out, nil
}
