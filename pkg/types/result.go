// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// SearchResult wraps one collector's raw output for a single query run.
// Collectors persist these under .insight/raw/ before the merge stage folds
// the records into the canonical item list. Per prd001-collection R3.1.
type SearchResult struct {
	// Source names the collector that produced the results (e.g. "arxiv").
	Source string `json:"source" yaml:"source"`

	// Query is the query string the collector ran.
	Query string `json:"query" yaml:"query"`

	// Timestamp is the RFC 3339 time the collector finished.
	Timestamp string `json:"timestamp" yaml:"timestamp"`

	// Results holds the loosely-shaped records. Records missing source or
	// collected_at inherit the wrapper's values on ingestion.
	Results []Item `json:"results" yaml:"results"`

	// Error records a collector failure message; empty on success.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

// ItemFile is the canonical on-disk shape of items.json.
type ItemFile struct {
	Items []Item `json:"items" yaml:"items"`
}

// DownloadFailedItem records one permanently failed download attempt.
// Per prd003-download R4.2.
type DownloadFailedItem struct {
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`

	// URL is the attempted download URL.
	URL string `json:"url" yaml:"url"`

	// Error is the final failure message.
	Error string `json:"error" yaml:"error"`

	// Domain is the URL host, recorded for per-site triage.
	Domain string `json:"domain,omitempty" yaml:"domain,omitempty"`

	// AlternativeURLs lists other known URLs worth trying by hand.
	AlternativeURLs []string `json:"alternative_urls,omitempty" yaml:"alternative_urls,omitempty"`

	RetryCount int    `json:"retry_count" yaml:"retry_count"`
	FailedAt   string `json:"failed_at" yaml:"failed_at"`
}

// DownloadFailedFile is the on-disk shape of download_failed.json.
type DownloadFailedFile struct {
	GeneratedAt string               `json:"generated_at" yaml:"generated_at"`
	Items       []DownloadFailedItem `json:"items" yaml:"items"`
}
