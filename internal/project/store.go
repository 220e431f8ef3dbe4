// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

// LoadState reads state.json. A missing file yields a zero state, so
// commands can run against projects created by older versions.
func (l Layout) LoadState() (types.State, error) {
	var state types.State
	err := readJSON(l.StatePath(), &state)
	if errors.Is(err, fs.ErrNotExist) {
		return types.State{}, nil
	}
	return state, err
}

// SaveState writes state.json, stamping LastUpdated.
func (l Layout) SaveState(state *types.State) error {
	state.LastUpdated = types.UTCNow()
	return writeJSON(l.StatePath(), state)
}

// LoadItems reads the canonical item list. The wrapper object form is
// canonical; a legacy bare array is accepted. A missing file yields an
// empty list.
func (l Layout) LoadItems() ([]types.Item, error) {
	data, err := os.ReadFile(l.ItemsPath())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []types.Item{}, nil
		}
		return nil, fmt.Errorf("reading items: %w", err)
	}

	var file types.ItemFile
	if err := json.Unmarshal(data, &file); err == nil {
		if file.Items == nil {
			file.Items = []types.Item{}
		}
		return file.Items, nil
	}
	var items []types.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", l.ItemsPath(), err)
	}
	return items, nil
}

// SaveItems writes the canonical {"items": [...]} form.
func (l Layout) SaveItems(items []types.Item) error {
	if items == nil {
		items = []types.Item{}
	}
	return writeJSON(l.ItemsPath(), types.ItemFile{Items: items})
}

// LoadDownloadFailed reads download_failed.json. Missing file yields an
// empty list.
func (l Layout) LoadDownloadFailed() ([]types.DownloadFailedItem, error) {
	var file types.DownloadFailedFile
	err := readJSON(l.DownloadFailedPath(), &file)
	if errors.Is(err, fs.ErrNotExist) {
		return []types.DownloadFailedItem{}, nil
	}
	if err != nil {
		return nil, err
	}
	return file.Items, nil
}

// SaveDownloadFailed writes download_failed.json with a fresh generated_at.
func (l Layout) SaveDownloadFailed(items []types.DownloadFailedItem) error {
	if items == nil {
		items = []types.DownloadFailedItem{}
	}
	return writeJSON(l.DownloadFailedPath(), types.DownloadFailedFile{
		GeneratedAt: types.UTCNow(),
		Items:       items,
	})
}

// LoadAnalysis reads the stored analysis for an item. Returns nil without
// error when the item has not been analyzed.
func (l Layout) LoadAnalysis(itemID string) (*types.Analysis, error) {
	var a types.Analysis
	err := readJSON(l.analysisPath(itemID), &a)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// SaveAnalysis writes .insight/analysis/<id>.json.
func (l Layout) SaveAnalysis(a types.Analysis) error {
	if a.ID == "" {
		return errors.New("analysis has no item id")
	}
	if err := os.MkdirAll(l.AnalysisDir(), 0o755); err != nil {
		return fmt.Errorf("creating analysis dir: %w", err)
	}
	return writeJSON(l.analysisPath(a.ID), a)
}

// ListAnalyses returns the IDs of all analyzed items, sorted.
func (l Layout) ListAnalyses() ([]string, error) {
	entries, err := os.ReadDir(l.AnalysisDir())
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading analysis dir: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

func (l Layout) analysisPath(itemID string) string {
	return filepath.Join(l.AnalysisDir(), itemID+".json")
}

// WriteRaw persists one collector's output as .insight/raw/<source>.json,
// overwriting any previous run for that source.
func (l Layout) WriteRaw(result types.SearchResult) (string, error) {
	if err := os.MkdirAll(l.RawDir(), 0o755); err != nil {
		return "", fmt.Errorf("creating raw dir: %w", err)
	}
	path := filepath.Join(l.RawDir(), result.Source+".json")
	if err := writeJSON(path, result); err != nil {
		return "", err
	}
	return path, nil
}

// RawFiles lists the per-source raw output files in sorted order.
func (l Layout) RawFiles() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(l.RawDir(), "*.json"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
