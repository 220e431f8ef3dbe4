package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

// --- mock backends ---

type mockBackend struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (m *mockBackend) Name() string { return "mock/test-model" }

func (m *mockBackend) Analyze(_ context.Context, prompt string) (string, error) {
	m.calls++
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

// failNTimesBackend fails the first N calls, then succeeds.
type failNTimesBackend struct {
	failures  int
	callCount int
	response  string
}

func (f *failNTimesBackend) Name() string { return "mock/flaky" }

func (f *failNTimesBackend) Analyze(_ context.Context, _ string) (string, error) {
	f.callCount++
	if f.callCount <= f.failures {
		return "", fmt.Errorf("transient error (call %d)", f.callCount)
	}
	return f.response, nil
}

func TestMain(m *testing.M) {
	// Override backoff to avoid real sleeps in retry tests.
	backoffBase = time.Millisecond
	os.Exit(m.Run())
}

const sampleAnalysisJSON = `{
  "summary": "Introduces the transformer architecture.",
  "brief_analysis": "Replaces recurrence with attention and sets new translation benchmarks.",
  "detailed_analysis": "The paper proposes an encoder-decoder built entirely from attention.",
  "contributions": ["self-attention", "positional encoding"],
  "methodology": "Encoder-decoder with multi-head attention.",
  "key_findings": ["state-of-the-art BLEU on WMT14"],
  "limitations": ["quadratic attention cost"],
  "future_work": ["apply to other modalities"],
  "tags": ["transformers", "attention"],
  "relevance_score": 9
}`

// --- prompt building ---

func TestBuildPrompt(t *testing.T) {
	it := types.Item{
		ID:       "i0001",
		Title:    "Attention Is All You Need",
		Authors:  []string{"Ada Lovelace", "Alan Turing"},
		Date:     "2017-06-12",
		Abstract: "We propose the transformer.",
	}

	prompt, err := BuildPrompt(it, "# Body\n\nAttention mechanism details.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"**Title**: Attention Is All You Need",
		"**Authors**: Ada Lovelace, Alan Turing",
		"**Date**: 2017-06-12",
		"**Abstract**: We propose the transformer.",
		"**Full Text (from markdown)**:",
		"Attention mechanism details.",
		"relevance_score",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPromptWithoutFullText(t *testing.T) {
	it := types.Item{ID: "i0001", Title: "A Paper"}

	prompt, err := BuildPrompt(it, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(prompt, "Full Text") {
		t.Error("prompt should omit the full-text section when there is none")
	}
	if !strings.Contains(prompt, "**Date**: Unknown") {
		t.Error("missing date should render as Unknown")
	}
	if !strings.Contains(prompt, "**Abstract**: Not available") {
		t.Error("missing abstract should render as Not available")
	}
}

func TestBuildPromptTruncatesFullText(t *testing.T) {
	it := types.Item{ID: "i0001", Title: "Long Paper"}
	fullText := strings.Repeat("a", maxFullTextChars) + "TAILMARKER"

	prompt, err := BuildPrompt(it, fullText)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(prompt, "TAILMARKER") {
		t.Error("full text beyond the cap should be cut")
	}
}

// --- response parsing ---

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain JSON", `{"a": 1}`, `{"a": 1}`},
		{"fenced with language tag", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fenced without language tag", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  {\"a\": 1}\n", `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripCodeFence(tt.in); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseAnalysis(t *testing.T) {
	a, err := parseAnalysis(sampleAnalysisJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Summary != "Introduces the transformer architecture." {
		t.Errorf("summary = %q", a.Summary)
	}
	if len(a.Contributions) != 2 {
		t.Errorf("contributions = %v", a.Contributions)
	}
	if a.RelevanceScore != 9 {
		t.Errorf("relevance_score = %v, want 9", a.RelevanceScore)
	}

	// A fenced response parses the same.
	fenced := "```json\n" + sampleAnalysisJSON + "\n```"
	if _, err := parseAnalysis(fenced); err != nil {
		t.Errorf("fenced response should parse: %v", err)
	}

	if _, err := parseAnalysis("not json at all"); err == nil {
		t.Error("expected error for invalid JSON")
	} else if !strings.Contains(err.Error(), "parsing analysis JSON") {
		t.Errorf("unexpected error: %v", err)
	}
}

// --- retry logic ---

func TestCallWithRetry(t *testing.T) {
	tests := []struct {
		name       string
		failures   int
		maxRetries int
		wantErr    bool
	}{
		{"succeeds first try", 0, 3, false},
		{"succeeds after 2 failures", 2, 3, false},
		{"fails after exhausting retries", 4, 3, true},
		{"succeeds on last retry", 3, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &failNTimesBackend{
				failures: tt.failures,
				response: sampleAnalysisJSON,
			}

			_, err := callWithRetry(context.Background(), backend, "prompt", tt.maxRetries)

			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

// --- backend construction ---

func TestNewBackend(t *testing.T) {
	b, err := NewBackend(types.AnalysisConfig{
		AIConfig: types.AIConfig{APIKey: "sk-test"},
	}, nil)
	if err != nil {
		t.Fatalf("default provider: %v", err)
	}
	if b.Name() != "openai/"+defaultOpenAIModel {
		t.Errorf("default backend = %q", b.Name())
	}

	if _, err := NewBackend(types.AnalysisConfig{Provider: "openai"}, nil); err == nil {
		t.Error("expected error for missing OpenAI key")
	}

	b, err = NewBackend(types.AnalysisConfig{
		AIConfig: types.AIConfig{APIKey: "sk-ant", Model: "claude-3-opus"},
		Provider: "anthropic",
	}, nil)
	if err != nil {
		t.Fatalf("anthropic provider: %v", err)
	}
	if b.Name() != "anthropic/claude-3-opus" {
		t.Errorf("anthropic backend = %q", b.Name())
	}

	if _, err := NewBackend(types.AnalysisConfig{Provider: "anthropic"}, nil); err == nil {
		t.Error("expected error for missing Anthropic key")
	}

	// Ollama needs no key.
	b, err = NewBackend(types.AnalysisConfig{Provider: "ollama"}, nil)
	if err != nil {
		t.Fatalf("ollama provider: %v", err)
	}
	if b.Name() != "ollama/"+defaultOllamaModel {
		t.Errorf("ollama backend = %q", b.Name())
	}

	if _, err := NewBackend(types.AnalysisConfig{Provider: "gemini"}, nil); err == nil {
		t.Error("expected error for unknown provider")
	} else if !strings.Contains(err.Error(), "unknown provider") {
		t.Errorf("unexpected error: %v", err)
	}
}

// --- AnalyzeItem ---

func TestAnalyzeItem(t *testing.T) {
	backend := &mockBackend{response: sampleAnalysisJSON}
	it := types.Item{ID: "i0042", Title: "Attention Is All You Need"}

	a, err := AnalyzeItem(context.Background(), backend, it, "full text here", types.AnalysisConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a.ID != "i0042" {
		t.Errorf("ID = %q, want i0042", a.ID)
	}
	if a.Title != "Attention Is All You Need" {
		t.Errorf("Title = %q", a.Title)
	}
	if a.AnalyzedBy != "mock/test-model" {
		t.Errorf("AnalyzedBy = %q", a.AnalyzedBy)
	}
	if a.AnalyzedAt == "" {
		t.Error("AnalyzedAt should be set")
	}
	if backend.calls != 1 {
		t.Errorf("backend called %d times, want 1", backend.calls)
	}
	if !strings.Contains(backend.prompts[0], "full text here") {
		t.Error("prompt should carry the full text")
	}
}

func TestAnalyzeItemRetriesExhausted(t *testing.T) {
	backend := &mockBackend{err: fmt.Errorf("api down")}
	it := types.Item{ID: "i0001", Title: "Paper"}

	_, err := AnalyzeItem(context.Background(), backend, it, "", types.AnalysisConfig{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "after 3 retries") {
		t.Errorf("unexpected error: %v", err)
	}
	// Default is 3 retries on top of the first attempt.
	if backend.calls != 4 {
		t.Errorf("backend called %d times, want 4", backend.calls)
	}
}

// --- AnalyzeBatch ---

func writeMarkdownFixture(t *testing.T, dir, id, body string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	content := "---\nitem_id: \"" + id + "\"\n---\n\n" + body
	if err := os.WriteFile(filepath.Join(dir, id+".md"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestAnalyzeBatch(t *testing.T) {
	tmpDir := t.TempDir()
	mdDir := filepath.Join(tmpDir, "markdown")
	analysisDir := filepath.Join(tmpDir, "analysis")

	writeMarkdownFixture(t, mdDir, "i0001", "# Transformer Paper\n\nAttention mechanism details.")

	// Pre-existing analysis for i0002 triggers a skip.
	if err := os.MkdirAll(analysisDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(analysisDir, "i0002.json"), []byte(`{"id":"i0002"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	items := []types.Item{
		{ID: "i0001", Title: "Paper A", DownloadStatus: types.DownloadSuccess, LocalPath: "papers/a.pdf"},
		{ID: "i0002", Title: "Paper B", DownloadStatus: types.DownloadSuccess, LocalPath: "papers/b.pdf"},
		{ID: "i0003", Title: "Pending", DownloadStatus: types.DownloadPending},
		{ID: "i0004", Title: "Excluded", Status: types.StatusExcluded, DownloadStatus: types.DownloadSuccess},
	}

	backend := &mockBackend{response: sampleAnalysisJSON}
	var log strings.Builder
	summary, err := AnalyzeBatch(context.Background(), backend, items, mdDir, analysisDir, types.AnalysisConfig{}, false, &log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Analyzed != 1 {
		t.Errorf("analyzed = %d, want 1", summary.Analyzed)
	}
	if summary.Skipped != 1 {
		t.Errorf("skipped = %d, want 1", summary.Skipped)
	}
	if summary.NotDownloaded != 1 {
		t.Errorf("not downloaded = %d, want 1", summary.NotDownloaded)
	}
	if summary.Failed != 0 {
		t.Errorf("failed = %d, want 0", summary.Failed)
	}
	if summary.Total() != 3 {
		t.Errorf("total = %d, want 3", summary.Total())
	}

	output := log.String()
	for _, want := range []string{"analyzing i0001", "analyzed i0001", "skipped i0002", "Analysis summary:"} {
		if !strings.Contains(output, want) {
			t.Errorf("output missing %q:\n%s", want, output)
		}
	}
	if strings.Contains(output, "i0004") {
		t.Errorf("excluded item should not appear in output:\n%s", output)
	}

	// The prompt carries the markdown body with frontmatter stripped.
	if backend.calls != 1 {
		t.Fatalf("backend called %d times, want 1", backend.calls)
	}
	if !strings.Contains(backend.prompts[0], "Attention mechanism details.") {
		t.Error("prompt should contain the converted text")
	}
	if strings.Contains(backend.prompts[0], "item_id:") {
		t.Error("prompt should not contain markdown frontmatter")
	}

	// The written analysis carries stamped provenance.
	data, err := os.ReadFile(filepath.Join(analysisDir, "i0001.json"))
	if err != nil {
		t.Fatalf("reading analysis: %v", err)
	}
	var a types.Analysis
	if err := json.Unmarshal(data, &a); err != nil {
		t.Fatalf("parsing analysis: %v", err)
	}
	if a.ID != "i0001" {
		t.Errorf("ID = %q, want i0001", a.ID)
	}
	if a.Title != "Paper A" {
		t.Errorf("Title = %q, want Paper A", a.Title)
	}
	if a.AnalyzedBy != "mock/test-model" {
		t.Errorf("AnalyzedBy = %q", a.AnalyzedBy)
	}
	if a.Summary == "" {
		t.Error("Summary should be populated")
	}
}

func TestAnalyzeBatchForce(t *testing.T) {
	tmpDir := t.TempDir()
	mdDir := filepath.Join(tmpDir, "markdown")
	analysisDir := filepath.Join(tmpDir, "analysis")

	if err := os.MkdirAll(analysisDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(analysisDir, "i0001.json"), []byte(`{"id":"stale"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	items := []types.Item{
		{ID: "i0001", Title: "Paper", DownloadStatus: types.DownloadSuccess, LocalPath: "papers/a.pdf"},
	}

	backend := &mockBackend{response: sampleAnalysisJSON}
	var log strings.Builder
	summary, err := AnalyzeBatch(context.Background(), backend, items, mdDir, analysisDir, types.AnalysisConfig{}, true, &log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.Analyzed != 1 || summary.Skipped != 0 {
		t.Errorf("summary = %+v, want 1 analyzed, 0 skipped", summary)
	}

	data, err := os.ReadFile(filepath.Join(analysisDir, "i0001.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"id": "i0001"`) {
		t.Errorf("force should rewrite the analysis, got %s", data)
	}
}

func TestAnalyzeBatchContinuesAfterFailure(t *testing.T) {
	tmpDir := t.TempDir()
	analysisDir := filepath.Join(tmpDir, "analysis")

	items := []types.Item{
		{ID: "i0001", Title: "Paper A", DownloadStatus: types.DownloadSuccess, LocalPath: "papers/a.pdf"},
		{ID: "i0002", Title: "Paper B", DownloadStatus: types.DownloadSuccess, LocalPath: "papers/b.pdf"},
	}

	// Fails every call for the first item, then would keep failing; the
	// second item still gets attempted and also fails.
	backend := &mockBackend{err: fmt.Errorf("api down")}
	var log strings.Builder
	summary, err := AnalyzeBatch(context.Background(), backend, items, filepath.Join(tmpDir, "markdown"), analysisDir,
		types.AnalysisConfig{AIConfig: types.AIConfig{MaxRetries: 1}}, false, &log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if summary.Failed != 2 {
		t.Errorf("failed = %d, want 2", summary.Failed)
	}
	if !strings.Contains(log.String(), "failed  i0001") {
		t.Errorf("output should report the first failure:\n%s", log.String())
	}
	if !strings.Contains(log.String(), "failed  i0002") {
		t.Errorf("output should report the second failure:\n%s", log.String())
	}
}

// --- HTTP backends ---

func TestClaudeBackendAnalyze(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "sk-test" {
			t.Errorf("x-api-key = %q", got)
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Error("missing anthropic-version header")
		}
		var req claudeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Model != defaultClaudeModel {
			t.Errorf("model = %q", req.Model)
		}
		if req.MaxTokens != 2000 {
			t.Errorf("max_tokens = %d, want default 2000", req.MaxTokens)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" {
			t.Errorf("messages = %+v", req.Messages)
		}
		fmt.Fprint(w, `{"content":[{"type":"text","text":"analysis text"}]}`)
	}))
	defer ts.Close()

	old := claudeAPIURL
	claudeAPIURL = ts.URL
	defer func() { claudeAPIURL = old }()

	b := &ClaudeBackend{APIKey: "sk-test", Model: defaultClaudeModel, Client: ts.Client()}
	got, err := b.Analyze(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "analysis text" {
		t.Errorf("got %q, want %q", got, "analysis text")
	}
}

func TestClaudeBackendAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"bad request"}`, http.StatusBadRequest)
	}))
	defer ts.Close()

	old := claudeAPIURL
	claudeAPIURL = ts.URL
	defer func() { claudeAPIURL = old }()

	b := &ClaudeBackend{APIKey: "sk-test", Model: defaultClaudeModel, Client: ts.Client()}
	_, err := b.Analyze(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "Claude API returned 400") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestOpenAIBackendAnalyze(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Authorization = %q", got)
		}
		var req openaiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Temperature != openaiTemperature {
			t.Errorf("temperature = %v, want %v", req.Temperature, openaiTemperature)
		}
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"analysis text"}}]}`)
	}))
	defer ts.Close()

	old := openaiAPIURL
	openaiAPIURL = ts.URL
	defer func() { openaiAPIURL = old }()

	b := &OpenAIBackend{APIKey: "sk-test", Model: defaultOpenAIModel, Client: ts.Client()}
	got, err := b.Analyze(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "analysis text" {
		t.Errorf("got %q, want %q", got, "analysis text")
	}
}

func TestOpenAIBackendNoChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"choices":[]}`)
	}))
	defer ts.Close()

	old := openaiAPIURL
	openaiAPIURL = ts.URL
	defer func() { openaiAPIURL = old }()

	b := &OpenAIBackend{APIKey: "sk-test", Model: defaultOpenAIModel, Client: ts.Client()}
	_, err := b.Analyze(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "no choices") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestOllamaBackendAnalyze(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Stream {
			t.Error("stream should be false")
		}
		if req.Format != "json" {
			t.Errorf("format = %q, want json", req.Format)
		}
		fmt.Fprint(w, `{"response":"analysis text"}`)
	}))
	defer ts.Close()

	old := ollamaAPIURL
	ollamaAPIURL = ts.URL
	defer func() { ollamaAPIURL = old }()

	b := &OllamaBackend{Model: defaultOllamaModel, Client: ts.Client()}
	got, err := b.Analyze(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "analysis text" {
		t.Errorf("got %q, want %q", got, "analysis text")
	}
}

func TestBackendEndpoints(t *testing.T) {
	c := &ClaudeBackend{BaseURL: "http://proxy.local/v1/"}
	if got := c.endpoint(); got != "http://proxy.local/v1/messages" {
		t.Errorf("claude endpoint = %q", got)
	}
	o := &OpenAIBackend{BaseURL: "http://proxy.local/v1"}
	if got := o.endpoint(); got != "http://proxy.local/v1/chat/completions" {
		t.Errorf("openai endpoint = %q", got)
	}
	ol := &OllamaBackend{BaseURL: "http://remote:11434"}
	if got := ol.endpoint(); got != "http://remote:11434/api/generate" {
		t.Errorf("ollama endpoint = %q", got)
	}
}
