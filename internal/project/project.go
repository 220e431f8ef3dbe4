// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package project manages the on-disk layout and state of an insight-pilot
// research project: the .insight/ metadata directory plus the papers/,
// reports/, and markdown/ trees at the project root.
// See docs/ARCHITECTURE.md § Project State.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

// ErrNotFound reports that no project was found walking up from the start
// directory.
var ErrNotFound = errors.New("no insight-pilot project found")

// ErrAlreadyInitialized reports an init attempt inside an existing project.
var ErrAlreadyInitialized = errors.New("project already initialized")

// Layout resolves every path of a project from its root directory.
type Layout struct {
	Root string
}

// NewLayout returns a Layout rooted at dir, resolved to an absolute path
// when possible.
func NewLayout(dir string) Layout {
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	return Layout{Root: dir}
}

// Dir is the .insight metadata directory.
func (l Layout) Dir() string { return filepath.Join(l.Root, ".insight") }

func (l Layout) ConfigPath() string         { return filepath.Join(l.Dir(), "config.yaml") }
func (l Layout) StatePath() string          { return filepath.Join(l.Dir(), "state.json") }
func (l Layout) ItemsPath() string          { return filepath.Join(l.Dir(), "items.json") }
func (l Layout) DownloadFailedPath() string { return filepath.Join(l.Dir(), "download_failed.json") }
func (l Layout) SourcesPath() string        { return filepath.Join(l.Dir(), "sources.yaml") }
func (l Layout) AnalysisDir() string        { return filepath.Join(l.Dir(), "analysis") }
func (l Layout) RawDir() string             { return filepath.Join(l.Dir(), "raw") }
func (l Layout) CatalogDir() string         { return filepath.Join(l.Dir(), "index") }

// Document trees live at the project root, next to .insight.
func (l Layout) PapersDir() string   { return filepath.Join(l.Root, "papers") }
func (l Layout) ReportsDir() string  { return filepath.Join(l.Root, "reports") }
func (l Layout) MarkdownDir() string { return filepath.Join(l.Root, "markdown") }
func (l Layout) IndexPath() string   { return filepath.Join(l.Root, "index.md") }

// Exists reports whether dir holds an initialized project.
func (l Layout) Exists() bool {
	if _, err := os.Stat(l.StatePath()); err != nil {
		return false
	}
	return true
}

// Find walks upward from start looking for a directory containing an
// initialized project. Returns ErrNotFound when the filesystem root is
// reached without a hit.
func Find(start string) (Layout, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return Layout{}, err
	}
	for {
		l := Layout{Root: dir}
		if l.Exists() {
			return l, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return Layout{}, fmt.Errorf("%w (searched from %s upward)", ErrNotFound, start)
		}
		dir = parent
	}
}

// Init creates a new project under root: the .insight tree, the document
// directories, a default config, an empty item list, zeroed state, and a
// placeholder index.md. Keywords default to the lowercased topic.
func Init(root, topic string, keywords []string) (Layout, error) {
	l := NewLayout(root)
	if l.Exists() {
		return l, fmt.Errorf("%w at %s", ErrAlreadyInitialized, l.Root)
	}

	for _, dir := range []string{l.Dir(), l.AnalysisDir(), l.RawDir(), l.PapersDir(), l.ReportsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return l, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	if len(keywords) == 0 {
		keywords = []string{strings.ToLower(topic)}
	}
	cfg := types.ProjectConfig{
		Topic:    topic,
		Keywords: keywords,
		Sources:  types.SourceToggles{Enabled: []string{"arxiv", "openalex"}},
	}
	if err := l.SaveConfig(cfg); err != nil {
		return l, err
	}

	now := types.UTCNow()
	state := types.State{
		Topic:       topic,
		Keywords:    keywords,
		SourcesUsed: []string{},
		CreatedAt:   now,
		LastUpdated: now,
	}
	if err := writeJSON(l.StatePath(), state); err != nil {
		return l, err
	}

	if err := l.SaveItems([]types.Item{}); err != nil {
		return l, err
	}

	index := fmt.Sprintf("# %s Research Index\n\n> Created: %s\n\n*No items collected yet.*\n",
		topic, time.Now().Format("2006-01-02"))
	if err := os.WriteFile(l.IndexPath(), []byte(index), 0o644); err != nil {
		return l, fmt.Errorf("writing index.md: %w", err)
	}

	return l, nil
}

// LoadConfig reads .insight/config.yaml.
func (l Layout) LoadConfig() (types.ProjectConfig, error) {
	var cfg types.ProjectConfig
	data, err := os.ReadFile(l.ConfigPath())
	if err != nil {
		return cfg, fmt.Errorf("reading project config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing project config: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes .insight/config.yaml.
func (l Layout) SaveConfig(cfg types.ProjectConfig) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding project config: %w", err)
	}
	if err := os.WriteFile(l.ConfigPath(), data, 0o644); err != nil {
		return fmt.Errorf("writing project config: %w", err)
	}
	return nil
}
