package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/PotatoDog1669/insight-pilot/internal/analyze"
	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

const analyzeHTTPTimeout = 5 * time.Minute

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze downloaded items with a Generative AI backend",
	Long: `Analyze sends each downloaded item to a Generative AI backend and
stores a structured analysis under analysis/. OpenAI and Anthropic need
an API key in .secrets/llm-api-key or INSIGHT_PILOT_LLM_API_KEY; Ollama
runs against a local server and needs none.`,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().String("provider", "", "AI provider: openai, anthropic, or ollama (default openai)")
	analyzeCmd.Flags().String("model", "", "model name (default depends on provider)")
	analyzeCmd.Flags().Bool("force", false, "reanalyze items that already have an analysis")
	analyzeCmd.Flags().Duration("delay", time.Second, "pause between consecutive API calls")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	layout, err := findProject()
	if err != nil {
		return err
	}

	provider, _ := cmd.Flags().GetString("provider")
	model, _ := cmd.Flags().GetString("model")
	force, _ := cmd.Flags().GetBool("force")
	delay, _ := cmd.Flags().GetDuration("delay")

	items, err := layout.LoadItems()
	if err != nil {
		return err
	}

	cfg := types.AnalysisConfig{
		AIConfig: types.AIConfig{
			Model:  model,
			APIKey: viper.GetString("llm-api-key"),
		},
		Provider: provider,
		BaseURL:  viper.GetString("llm-base-url"),
		Delay:    delay,
	}

	client := &http.Client{Timeout: analyzeHTTPTimeout}
	backend, err := analyze.NewBackend(cfg, client)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Using backend: %s\n", backend.Name())

	summary, err := analyze.AnalyzeBatch(context.Background(), backend, items, layout.MarkdownDir(), layout.AnalysisDir(), cfg, force, os.Stdout)
	if err != nil {
		return err
	}

	touchStage(layout, "analyze", summary.Analyzed)

	if summary.HasFailures() {
		return fmt.Errorf("%d item(s) failed analysis", summary.Failed)
	}
	return nil
}
