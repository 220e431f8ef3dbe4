// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// DownloadStats summarizes download outcomes across the item list.
type DownloadStats struct {
	Success int `json:"success" yaml:"success"`
	Failed  int `json:"failed" yaml:"failed"`
	Pending int `json:"pending" yaml:"pending"`
}

// StageInfo records the last run of one pipeline stage.
type StageInfo struct {
	// RanAt is the RFC 3339 time the stage last completed.
	RanAt string `json:"ran_at" yaml:"ran_at"`

	// Items is the number of items the stage touched, when meaningful.
	Items int `json:"items,omitempty" yaml:"items,omitempty"`
}

// State is the project-level bookkeeping record persisted as state.json.
// Every command that mutates the item list updates it. Per
// docs/ARCHITECTURE.md § Project State.
type State struct {
	// Topic is the research topic the project was initialized with.
	Topic string `json:"topic" yaml:"topic"`

	// Keywords are the default query terms. Initialized to the lowercased
	// topic; editable in config.yaml.
	Keywords []string `json:"keywords" yaml:"keywords"`

	// SourcesUsed lists every collector that has contributed results,
	// in first-use order without repetition.
	SourcesUsed []string `json:"sources_used" yaml:"sources_used"`

	CreatedAt   string `json:"created_at" yaml:"created_at"`
	LastUpdated string `json:"last_updated" yaml:"last_updated"`

	// TotalItems is the item count after the last merge or dedup run.
	TotalItems int `json:"total_items" yaml:"total_items"`

	DownloadStats DownloadStats `json:"download_stats" yaml:"download_stats"`

	// Stages maps stage name (search, merge, dedup, download, convert,
	// analyze, index) to its last-run record.
	Stages map[string]StageInfo `json:"stages,omitempty" yaml:"stages,omitempty"`
}

// Touch records a stage run and refreshes LastUpdated.
func (s *State) Touch(stage string, items int) {
	now := UTCNow()
	s.LastUpdated = now
	if s.Stages == nil {
		s.Stages = make(map[string]StageInfo)
	}
	s.Stages[stage] = StageInfo{RanAt: now, Items: items}
}

// RecordSource appends name to SourcesUsed unless already present.
func (s *State) RecordSource(name string) {
	for _, v := range s.SourcesUsed {
		if v == name {
			return
		}
	}
	s.SourcesUsed = append(s.SourcesUsed, name)
}
