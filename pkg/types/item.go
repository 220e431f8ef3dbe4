// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the insight-pilot pipeline.
// Implements: prd002-reconciliation (Item, R1.1-R1.4);
//
//	prd001-collection (SearchResult, R3.1);
//	prd003-download (DownloadStatus, DownloadFailedItem);
//	prd005-analysis (Analysis);
//	docs/ARCHITECTURE.md § Data Model.
package types

import (
	"encoding/json"
	"fmt"
	"time"

	"go.yaml.in/yaml/v3"
)

// ItemType classifies the origin kind of a collected item.
type ItemType string

const (
	TypePaper  ItemType = "paper"
	TypeBlog   ItemType = "blog"
	TypeGithub ItemType = "github"
)

// DownloadStatus tracks the document download lifecycle for an item.
// Per prd003-download R2.1.
type DownloadStatus string

const (
	DownloadPending     DownloadStatus = "pending"
	DownloadSuccess     DownloadStatus = "success"
	DownloadFailed      DownloadStatus = "failed"
	DownloadUnavailable DownloadStatus = "unavailable"
)

// Priority returns the merge precedence of a download status. When duplicate
// records disagree, the higher-priority status survives:
// success(3) > pending(2) > failed(1) > unavailable(0).
// Unknown values rank lowest. Per prd002-reconciliation R4.6.
func (s DownloadStatus) Priority() int {
	switch s {
	case DownloadSuccess:
		return 3
	case DownloadPending:
		return 2
	case DownloadFailed:
		return 1
	default:
		return 0
	}
}

// ItemStatus is the review lifecycle flag for an item. Excluded items are
// retained in storage but skipped by every downstream stage.
type ItemStatus string

const (
	StatusActive        ItemStatus = "active"
	StatusExcluded      ItemStatus = "excluded"
	StatusPendingReview ItemStatus = "pending_review"
)

// Identifiers holds the identity fields used for deduplication, plus an
// open-ended mapping for source-specific ID kinds (pmid, github_id, ...).
type Identifiers struct {
	DOI        string            `json:"doi,omitempty" yaml:"doi,omitempty"`
	ArxivID    string            `json:"arxiv_id,omitempty" yaml:"arxiv_id,omitempty"`
	OpenAlexID string            `json:"openalex_id,omitempty" yaml:"openalex_id,omitempty"`
	Other      map[string]string `json:"other,omitempty" yaml:"other,omitempty"`
}

// URLs holds the canonical URL slots for an item plus an open-ended mapping.
// Each slot fills independently during merge ("first non-empty wins").
type URLs struct {
	Abstract  string            `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	PDF       string            `json:"pdf,omitempty" yaml:"pdf,omitempty"`
	Publisher string            `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	Other     map[string]string `json:"other,omitempty" yaml:"other,omitempty"`
}

// Item is the canonical record representing one discovered paper, blog post,
// or repository. Source collectors produce loosely-shaped records in this
// schema; the merge engine normalizes and assigns IDs; the dedup engine
// collapses duplicates. Per prd002-reconciliation R1.1.
type Item struct {
	// ID is unique within a project. Assigned by the merge engine when
	// absent on ingestion, immutable thereafter.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	// Type is informational and does not affect merge or dedup logic.
	Type ItemType `json:"type,omitempty" yaml:"type,omitempty"`

	// Title is the primary human-readable handle and the fallback dedup key.
	Title string `json:"title" yaml:"title"`

	// Authors lists author names in insertion order. Merges append new
	// names without reordering previously seen ones.
	Authors []string `json:"authors" yaml:"authors"`

	// Date is an ISO-ish publication date string (e.g. "2023-05-17").
	Date string `json:"date,omitempty" yaml:"date,omitempty"`

	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Summary  string `json:"summary,omitempty" yaml:"summary,omitempty"`

	// Identifiers and URLs are always present, possibly empty but never absent.
	Identifiers Identifiers `json:"identifiers" yaml:"identifiers"`
	URLs        URLs        `json:"urls" yaml:"urls"`

	// LocalPath is the downloaded document path, set by the download stage.
	LocalPath string `json:"local_path,omitempty" yaml:"local_path,omitempty"`

	DownloadStatus DownloadStatus `json:"download_status,omitempty" yaml:"download_status,omitempty"`
	DownloadError  string         `json:"download_error,omitempty" yaml:"download_error,omitempty"`

	// AccessNote records degraded-access conditions (e.g. a blog collector
	// falling back from a platform API to its RSS feed).
	AccessNote string `json:"access_note,omitempty" yaml:"access_note,omitempty"`

	// CitationCount is nil when unknown. Merge keeps the maximum.
	CitationCount *int `json:"citation_count,omitempty" yaml:"citation_count,omitempty"`

	// Source lists the origin collectors that contributed to this item,
	// in discovery order without repetition. Raw records may carry a bare
	// string; it is normalized to a single-element list on read.
	Source StringList `json:"source" yaml:"source"`

	// ReportPath is the rendered report location, set by the output stage.
	ReportPath string `json:"report_path,omitempty" yaml:"report_path,omitempty"`

	// CollectedAt is the RFC 3339 timestamp of first observation. Merging
	// duplicates retains the earliest value.
	CollectedAt string `json:"collected_at,omitempty" yaml:"collected_at,omitempty"`

	// Status defaults to active. Excluded items are skipped downstream
	// but never removed from storage.
	Status        ItemStatus `json:"status,omitempty" yaml:"status,omitempty"`
	ExcludeReason string     `json:"exclude_reason,omitempty" yaml:"exclude_reason,omitempty"`
	ReviewedAt    string     `json:"reviewed_at,omitempty" yaml:"reviewed_at,omitempty"`
}

// Active reports whether downstream stages should process this item.
// An empty status counts as active.
func (it Item) Active() bool {
	return it.Status == "" || it.Status == StatusActive
}

// StringList accepts either a JSON/YAML scalar or a sequence on read and
// always marshals as a sequence. Raw collector records historically carried
// source as a bare string; the canonical shape is a list.
type StringList []string

// UnmarshalJSON decodes either a string or an array of strings.
func (s *StringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return fmt.Errorf("source must be a string or list of strings: %w", err)
	}
	if single == "" {
		*s = StringList{}
		return nil
	}
	*s = StringList{single}
	return nil
}

// UnmarshalYAML decodes either a scalar or a sequence node.
func (s *StringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return err
		}
		*s = list
		return nil
	case yaml.ScalarNode:
		var single string
		if err := value.Decode(&single); err != nil {
			return err
		}
		if single == "" {
			*s = StringList{}
			return nil
		}
		*s = StringList{single}
		return nil
	default:
		return fmt.Errorf("source must be a string or list of strings")
	}
}

// Contains reports whether name is already in the list.
func (s StringList) Contains(name string) bool {
	for _, v := range s {
		if v == name {
			return true
		}
	}
	return false
}

// UTCNow returns the current UTC time formatted as RFC 3339 with a Z suffix,
// the timestamp format used throughout project files.
func UTCNow() string {
	return time.Now().UTC().Format(time.RFC3339)
}
