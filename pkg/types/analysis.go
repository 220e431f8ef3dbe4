// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Analysis is the structured output of the AI analysis stage for one item,
// persisted as .insight/analysis/<id>.json. Per prd005-analysis R2.1-R2.4.
type Analysis struct {
	// ID and Title are copied from the analyzed item.
	ID    string `json:"id" yaml:"id"`
	Title string `json:"title" yaml:"title"`

	// Summary is a one-sentence overview.
	Summary string `json:"summary" yaml:"summary"`

	// BriefAnalysis is a short assessment of the core contribution and
	// its significance.
	BriefAnalysis string `json:"brief_analysis" yaml:"brief_analysis"`

	// DetailedAnalysis is a multi-paragraph discussion of problem,
	// approach, results, and impact.
	DetailedAnalysis string `json:"detailed_analysis,omitempty" yaml:"detailed_analysis,omitempty"`

	Contributions []string `json:"contributions" yaml:"contributions"`
	Methodology   string   `json:"methodology,omitempty" yaml:"methodology,omitempty"`
	KeyFindings   []string `json:"key_findings" yaml:"key_findings"`
	Limitations   []string `json:"limitations,omitempty" yaml:"limitations,omitempty"`
	FutureWork    []string `json:"future_work,omitempty" yaml:"future_work,omitempty"`

	// Tags are short lowercase topic labels for the catalog.
	Tags []string `json:"tags" yaml:"tags"`

	// RelevanceScore rates topical relevance from 1 to 10.
	RelevanceScore float64 `json:"relevance_score,omitempty" yaml:"relevance_score,omitempty"`

	// AnalyzedAt is the RFC 3339 completion time.
	AnalyzedAt string `json:"analyzed_at" yaml:"analyzed_at"`

	// AnalyzedBy identifies the backend as "<provider>/<model>".
	AnalyzedBy string `json:"analyzed_by" yaml:"analyzed_by"`
}
