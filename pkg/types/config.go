package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "insight-pilot/0.1"). Per prd001-collection R5.2.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries is the number of retry attempts for rate-limited calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// TimeRange bounds a collection query by publication date. Empty bounds are
// open. Values are ISO dates ("2023-01-01").
type TimeRange struct {
	Start string `json:"start,omitempty" yaml:"start,omitempty"`
	End   string `json:"end,omitempty" yaml:"end,omitempty"`
}

// ProjectConfig is the .insight/config.yaml shape written by project init.
type ProjectConfig struct {
	// Topic is the research topic, set at init.
	Topic string `json:"topic" yaml:"topic"`

	// Keywords are the default query terms (default: lowercased topic).
	Keywords []string `json:"keywords" yaml:"keywords"`

	// TimeRange optionally bounds searches by publication date.
	TimeRange TimeRange `json:"time_range" yaml:"time_range"`

	// Sources controls which collectors run by default.
	Sources SourceToggles `json:"sources" yaml:"sources"`
}

// SourceToggles selects the default collector set for searches.
type SourceToggles struct {
	Enabled []string `json:"enabled" yaml:"enabled"`
}

// CollectConfig holds settings for the collection stage.
// Per prd001-collection R1.3, R5.1-R5.4.
type CollectConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxResults is the per-source result cap (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`

	// TimeRange optionally bounds results by publication date.
	TimeRange TimeRange `json:"time_range" yaml:"time_range"`

	// GithubToken authenticates GitHub search for higher rate limits.
	GithubToken string `json:"github_token,omitempty" yaml:"github_token,omitempty"`

	// OpenAlexMailto is the contact email sent to OpenAlex for polite-pool
	// rate limits.
	OpenAlexMailto string `json:"openalex_mailto,omitempty" yaml:"openalex_mailto,omitempty"`

	// TitleOnly restricts OpenAlex matching to work titles instead of
	// full-record search.
	TitleOnly bool `json:"title_only,omitempty" yaml:"title_only,omitempty"`

	// PubMedEmail is the contact email required by the NCBI E-utilities.
	PubMedEmail string `json:"pubmed_email,omitempty" yaml:"pubmed_email,omitempty"`

	// InterSourceDelay is the pause between collectors in a sequential run
	// (default 1s).
	InterSourceDelay time.Duration `json:"inter_source_delay" yaml:"inter_source_delay"`
}

// DedupConfig holds settings for the deduplication stage.
// Per prd002-reconciliation R3.4.
type DedupConfig struct {
	// SimilarityThreshold is the minimum normalized-title similarity for a
	// fuzzy duplicate match, in [0,1] (default 0.9).
	SimilarityThreshold float64 `json:"similarity_threshold" yaml:"similarity_threshold"`
}

// DownloadConfig holds settings for the download stage.
// Per prd003-download R1.2, R3.1.
type DownloadConfig struct {
	HTTPConfig `yaml:",inline"`

	// DownloadDelay is the delay between consecutive downloads (default 1s).
	DownloadDelay time.Duration `json:"download_delay" yaml:"download_delay"`
}

// ConversionBackend identifies the PDF-to-markdown conversion tool.
// Per prd004-conversion R5.1.
type ConversionBackend string

const (
	BackendMarkitdown ConversionBackend = "markitdown"
	BackendMarker     ConversionBackend = "marker"
)

// ConversionConfig holds settings for the conversion stage.
type ConversionConfig struct {
	// Backend selects the conversion tool: markitdown or marker.
	Backend ConversionBackend `json:"backend" yaml:"backend"`
}

// AIConfig holds shared settings for stages that call a Generative AI API.
type AIConfig struct {
	// Model is the AI model identifier (e.g. "claude-3-haiku-20240307").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the AI API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// MaxRetries is the number of retry attempts for failed API calls (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// AnalysisConfig holds settings for the analysis stage.
// Per prd005-analysis R1.2, R5.1-R5.3.
type AnalysisConfig struct {
	AIConfig `yaml:",inline"`

	// Provider selects the AI backend: openai, anthropic, or ollama.
	Provider string `json:"provider" yaml:"provider"`

	// BaseURL overrides the provider's default API base, e.g. for a proxy
	// or a remote Ollama host.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxTokens caps the model response length (default 2000).
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Delay is the pause between consecutive API calls (default 1s).
	Delay time.Duration `json:"delay" yaml:"delay"`
}

// CatalogConfig holds settings for the catalog stage.
// Per prd007-catalog R1.2, R2.3.
type CatalogConfig struct {
	// MaxResults is the default maximum number of query results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results"`
}

// PipelineConfig groups all stage configurations for the pipeline.
type PipelineConfig struct {
	Collect    CollectConfig    `json:"collect" yaml:"collect"`
	Dedup      DedupConfig      `json:"dedup" yaml:"dedup"`
	Download   DownloadConfig   `json:"download" yaml:"download"`
	Conversion ConversionConfig `json:"conversion" yaml:"conversion"`
	Analysis   AnalysisConfig   `json:"analysis" yaml:"analysis"`
	Catalog    CatalogConfig    `json:"catalog" yaml:"catalog"`
}
