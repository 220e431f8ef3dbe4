// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package process implements the merge and deduplication engines that turn
// raw collector output into the canonical item list.
// Implements: prd002-reconciliation R1.1-R1.4 (ingestion and normalization),
//
//	R2.1-R2.4 (ID assignment), R3.1-R3.5 (deduplication),
//	R4.1-R4.8 (field-level merge);
//	docs/ARCHITECTURE.md § Reconciliation.
package process

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

// LoadItemsFromFile reads one input file and returns its records in
// ingestion order. Three shapes are accepted: a bare JSON array of items,
// an object with an "items" key (the canonical store shape), and an object
// with a "results" key (a collector output wrapper). When both keys are
// present, "items" wins. Records inside a "results" wrapper inherit the
// wrapper's source and timestamp for any record missing its own.
// Per prd002-reconciliation R1.2-R1.3.
func LoadItemsFromFile(path string) ([]types.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingInputError{Path: path}
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return decodeItems(path, data)
}

func decodeItems(path string, data []byte) ([]types.Item, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, &InvalidInputFormatError{Path: path, Reason: "empty file"}
	}
	if trimmed[0] == '[' {
		var items []types.Item
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, &InvalidInputFormatError{Path: path, Reason: "not an item list"}
		}
		return items, nil
	}
	if trimmed[0] != '{' {
		return nil, &InvalidInputFormatError{Path: path, Reason: "not a JSON item list or wrapper object"}
	}

	var wrapper struct {
		Items     json.RawMessage `json:"items"`
		Results   json.RawMessage `json:"results"`
		Source    string          `json:"source"`
		Timestamp string          `json:"timestamp"`
	}
	if err := json.Unmarshal(trimmed, &wrapper); err != nil {
		return nil, &InvalidInputFormatError{Path: path, Reason: "not a JSON item list or wrapper object"}
	}

	var items []types.Item
	if wrapper.Items != nil {
		if err := json.Unmarshal(wrapper.Items, &items); err != nil {
			return nil, &InvalidInputFormatError{Path: path, Reason: `"items" is not an item list`}
		}
		return items, nil
	}

	if wrapper.Results != nil {
		if err := json.Unmarshal(wrapper.Results, &items); err != nil {
			return nil, &InvalidInputFormatError{Path: path, Reason: `"results" is not an item list`}
		}
		for i := range items {
			if len(items[i].Source) == 0 && wrapper.Source != "" {
				items[i].Source = types.StringList{wrapper.Source}
			}
			if items[i].CollectedAt == "" && wrapper.Timestamp != "" {
				items[i].CollectedAt = wrapper.Timestamp
			}
		}
		return items, nil
	}

	return nil, &InvalidInputFormatError{Path: path, Reason: `object has neither "items" nor "results"`}
}

// EnsureFields fills required defaults on every record in place: download
// status becomes pending, collected_at gets the current UTC time, status
// becomes active, and nil collections become empty ones so the canonical
// file never carries JSON nulls. Returns the same slice for chaining.
// Per prd002-reconciliation R1.4.
func EnsureFields(items []types.Item) []types.Item {
	now := types.UTCNow()
	for i := range items {
		it := &items[i]
		if it.DownloadStatus == "" {
			it.DownloadStatus = types.DownloadPending
		}
		if it.CollectedAt == "" {
			it.CollectedAt = now
		}
		if it.Status == "" {
			it.Status = types.StatusActive
		}
		if it.Authors == nil {
			it.Authors = []string{}
		}
		if it.Source == nil {
			it.Source = types.StringList{}
		}
	}
	return items
}

// AssignIDs gives every record without an ID a sequential identifier of the
// form "i0042", skipping values already taken anywhere in the list. Existing
// IDs are never changed. Assignment runs in list order from a counter that
// advances past every ID it grants or finds taken.
// Per prd002-reconciliation R2.1-R2.4.
func AssignIDs(items []types.Item) []types.Item {
	used := make(map[string]struct{}, len(items))
	for _, it := range items {
		if it.ID != "" {
			used[it.ID] = struct{}{}
		}
	}

	counter := 1
	for i := range items {
		if items[i].ID != "" {
			continue
		}
		id := fmt.Sprintf("i%04d", counter)
		for {
			if _, taken := used[id]; !taken {
				break
			}
			counter++
			id = fmt.Sprintf("i%04d", counter)
		}
		items[i].ID = id
		used[id] = struct{}{}
		counter++
	}
	return items
}

// Merge loads every input file in order, concatenates the records,
// fills defaults, and assigns missing IDs. Progress lines go to w.
func Merge(paths []string, w io.Writer) ([]types.Item, error) {
	var all []types.Item
	for _, p := range paths {
		items, err := LoadItemsFromFile(p)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(w, "loaded %d records from %s\n", len(items), filepath.Base(p))
		all = append(all, items...)
	}
	return AssignIDs(EnsureFields(all)), nil
}

// MergeItems folds the incoming duplicate into the existing survivor and
// returns the merged record. The survivor keeps its identity fields (id,
// title, type); list fields union in order, empty fields fill from the
// incoming record, citation counts keep the maximum, download status keeps
// the further-along value, and collected_at keeps the earlier timestamp.
// Per prd002-reconciliation R4.1-R4.8.
func MergeItems(existing, incoming types.Item) types.Item {
	merged := existing

	merged.Source = mergeUnique(existing.Source, incoming.Source)
	merged.Authors = mergeUnique(existing.Authors, incoming.Authors)

	if merged.Abstract == "" {
		merged.Abstract = incoming.Abstract
	}
	if merged.Summary == "" {
		merged.Summary = incoming.Summary
	}
	if merged.Date == "" {
		merged.Date = incoming.Date
	}
	if merged.AccessNote == "" {
		merged.AccessNote = incoming.AccessNote
	}
	if merged.ReportPath == "" {
		merged.ReportPath = incoming.ReportPath
	}

	// Citation counts only grow. An incoming nil never erases a known count;
	// an incoming value is compared against the existing one with nil as 0.
	if incoming.CitationCount != nil {
		count := *incoming.CitationCount
		if existing.CitationCount != nil && *existing.CitationCount > count {
			count = *existing.CitationCount
		}
		merged.CitationCount = &count
	}

	if merged.Identifiers.DOI == "" {
		merged.Identifiers.DOI = incoming.Identifiers.DOI
	}
	if merged.Identifiers.ArxivID == "" {
		merged.Identifiers.ArxivID = incoming.Identifiers.ArxivID
	}
	if merged.Identifiers.OpenAlexID == "" {
		merged.Identifiers.OpenAlexID = incoming.Identifiers.OpenAlexID
	}

	if merged.URLs.Abstract == "" {
		merged.URLs.Abstract = incoming.URLs.Abstract
	}
	if merged.URLs.PDF == "" {
		merged.URLs.PDF = incoming.URLs.PDF
	}
	if merged.URLs.Publisher == "" {
		merged.URLs.Publisher = incoming.URLs.Publisher
	}

	// An unset status counts as pending, and the default is materialized so
	// merged records always carry an explicit status.
	existingStatus := existing.DownloadStatus
	if existingStatus == "" {
		existingStatus = types.DownloadPending
	}
	incomingStatus := incoming.DownloadStatus
	if incomingStatus == "" {
		incomingStatus = types.DownloadPending
	}
	merged.DownloadStatus = existingStatus
	if incomingStatus.Priority() > existingStatus.Priority() {
		merged.DownloadStatus = incomingStatus
	}

	if merged.LocalPath == "" {
		merged.LocalPath = incoming.LocalPath
	}

	// A failure message is only worth keeping while the merged record still
	// counts as failed.
	if merged.DownloadStatus == types.DownloadFailed && merged.DownloadError == "" && incoming.DownloadError != "" {
		merged.DownloadError = incoming.DownloadError
	}

	merged.CollectedAt = minTimestamp(existing.CollectedAt, incoming.CollectedAt)

	return merged
}

// mergeUnique unions two string lists in first-seen order, dropping empty
// strings and repeats.
func mergeUnique(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	seen := make(map[string]struct{}, len(a)+len(b))
	for _, list := range [][]string{a, b} {
		for _, v := range list {
			if v == "" {
				continue
			}
			if _, ok := seen[v]; ok {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// minTimestamp returns the earlier of two timestamp strings. An empty value
// loses to any value; a value that fails to parse compares as the current
// time. Ties keep a.
func minTimestamp(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	now := time.Now().UTC()
	if parseTimestamp(a, now).After(parseTimestamp(b, now)) {
		return b
	}
	return a
}

func parseTimestamp(s string, fallback time.Time) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return fallback
}
