// Package analyze runs collected items through a Generative AI backend and
// persists structured per-item analyses.
// Implements: prd005-analysis (R1-R5);
//
//	docs/ARCHITECTURE.md § Analysis.
package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/PotatoDog1669/insight-pilot/internal/convert"
	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

// Backend abstracts the Generative AI API so tests can supply a mock.
// Analyze sends one rendered prompt and returns the model's raw text
// response. Per Strategy pattern (prd005-analysis R3.1).
type Backend interface {
	// Name identifies the backend as "<provider>/<model>" for provenance.
	Name() string

	Analyze(ctx context.Context, prompt string) (string, error)
}

// NewBackend constructs the backend selected by cfg.Provider (R3.2).
// OpenAI and Anthropic require an API key; Ollama does not.
func NewBackend(cfg types.AnalysisConfig, client *http.Client) (Backend, error) {
	switch cfg.Provider {
	case "openai", "":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OpenAI API key not configured")
		}
		return &OpenAIBackend{
			APIKey:    cfg.APIKey,
			Model:     modelOr(cfg.Model, defaultOpenAIModel),
			MaxTokens: cfg.MaxTokens,
			BaseURL:   cfg.BaseURL,
			Client:    client,
		}, nil
	case "anthropic":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("Anthropic API key not configured")
		}
		return &ClaudeBackend{
			APIKey:    cfg.APIKey,
			Model:     modelOr(cfg.Model, defaultClaudeModel),
			MaxTokens: cfg.MaxTokens,
			BaseURL:   cfg.BaseURL,
			Client:    client,
		}, nil
	case "ollama":
		return &OllamaBackend{
			Model:   modelOr(cfg.Model, defaultOllamaModel),
			BaseURL: cfg.BaseURL,
			Client:  client,
		}, nil
	default:
		return nil, fmt.Errorf("unknown provider %q (supported: openai, anthropic, ollama)", cfg.Provider)
	}
}

func modelOr(model, fallback string) string {
	if model != "" {
		return model
	}
	return fallback
}

// BatchSummary holds counts from a batch analysis run (R5.4).
type BatchSummary struct {
	Analyzed      int
	Skipped       int
	NotDownloaded int
	Failed        int
}

// Total returns the number of items considered.
func (s BatchSummary) Total() int {
	return s.Analyzed + s.Skipped + s.NotDownloaded + s.Failed
}

// HasFailures reports whether any analyses failed.
func (s BatchSummary) HasFailures() bool {
	return s.Failed > 0
}

// AnalyzeBatch analyzes every active, downloaded item and writes one JSON
// file per item under analysisDir (R5.1). Existing analyses are skipped
// unless force is set (R5.2). Converted markdown under markdownDir feeds
// the prompt when present; otherwise the abstract stands in (R2.2, R2.3).
// It continues after individual failures and applies cfg.Delay between
// consecutive API calls. Progress lines go to w.
func AnalyzeBatch(ctx context.Context, backend Backend, items []types.Item, markdownDir, analysisDir string, cfg types.AnalysisConfig, force bool, w io.Writer) (BatchSummary, error) {
	if err := os.MkdirAll(analysisDir, 0o755); err != nil {
		return BatchSummary{}, fmt.Errorf("creating analysis directory: %w", err)
	}

	var summary BatchSummary
	called := false

	for _, it := range items {
		if !it.Active() || it.ID == "" {
			continue
		}
		if it.DownloadStatus != types.DownloadSuccess {
			summary.NotDownloaded++
			continue
		}

		outPath := filepath.Join(analysisDir, it.ID+".json")
		if !force {
			if _, err := os.Stat(outPath); err == nil {
				fmt.Fprintf(w, "skipped %s\n", it.ID)
				summary.Skipped++
				continue
			}
		}

		fullText, err := convert.ReadMarkdown(markdownDir, it.ID)
		if err != nil {
			fmt.Fprintf(w, "  warning: reading markdown for %s: %v\n", it.ID, err)
		}

		if called && cfg.Delay > 0 {
			time.Sleep(cfg.Delay)
		}
		called = true

		fmt.Fprintf(w, "analyzing %s\n", it.ID)

		a, err := AnalyzeItem(ctx, backend, it, fullText, cfg)
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", it.ID, err)
			summary.Failed++
			continue
		}

		if err := writeAnalysis(outPath, a); err != nil {
			fmt.Fprintf(w, "failed  %s: write error: %v\n", it.ID, err)
			summary.Failed++
			continue
		}

		fmt.Fprintf(w, "analyzed %s\n", it.ID)
		summary.Analyzed++
	}

	fmt.Fprintf(w, "\nAnalysis summary: %d analyzed, %d skipped, %d not downloaded, %d failed (total: %d)\n",
		summary.Analyzed, summary.Skipped, summary.NotDownloaded, summary.Failed, summary.Total())
	return summary, nil
}

// AnalyzeItem runs one item through the backend and returns the parsed
// analysis with provenance stamped (R2.1, R2.4).
func AnalyzeItem(ctx context.Context, backend Backend, it types.Item, fullText string, cfg types.AnalysisConfig) (*types.Analysis, error) {
	prompt, err := BuildPrompt(it, fullText)
	if err != nil {
		return nil, fmt.Errorf("rendering prompt: %w", err)
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	raw, err := callWithRetry(ctx, backend, prompt, maxRetries)
	if err != nil {
		return nil, err
	}

	a, err := parseAnalysis(raw)
	if err != nil {
		return nil, err
	}

	a.ID = it.ID
	a.Title = it.Title
	a.AnalyzedAt = types.UTCNow()
	a.AnalyzedBy = backend.Name()
	return &a, nil
}

// backoffBase controls the base duration for exponential backoff. Tests
// override this to avoid real sleeps.
var backoffBase = time.Second

// callWithRetry calls the backend with exponential backoff (R3.4).
func callWithRetry(ctx context.Context, backend Backend, prompt string, maxRetries int) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * backoffBase
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := backend.Analyze(ctx, prompt)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// parseAnalysis decodes the model's response into an Analysis, tolerating
// a surrounding markdown code fence (R4.1, R4.2).
func parseAnalysis(raw string) (types.Analysis, error) {
	var a types.Analysis
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &a); err != nil {
		return types.Analysis{}, fmt.Errorf("parsing analysis JSON: %w", err)
	}
	return a, nil
}

// stripCodeFence removes a surrounding markdown code fence, tolerating a
// language tag after the opening backticks.
func stripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if i := strings.Index(t, "\n"); i >= 0 {
		t = t[i+1:]
	}
	t = strings.TrimSpace(t)
	t = strings.TrimSuffix(t, "```")
	return strings.TrimSpace(t)
}

// writeAnalysis persists one analysis as indented JSON.
func writeAnalysis(path string, a *types.Analysis) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling analysis: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
