// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sources manages the registry of blog sources consumed by the blog
// collector. The registry is a YAML file listing named sources with a
// platform type, and individual fields can be overridden through environment
// variables so API keys stay out of the file. Implements: prd001-collection
// (R4.1-R4.5).
package sources

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// EnvPath names the environment variable that overrides the registry location.
const EnvPath = "INSIGHT_PILOT_SOURCES"

// SupportedTypes lists the platforms the blog collector understands. The
// "auto" type probes the site and picks one, falling back to RSS.
var SupportedTypes = map[string]bool{
	"ghost":     true,
	"wordpress": true,
	"rss":       true,
	"auto":      true,
}

// Source describes one configured blog source.
type Source struct {
	Name     string `yaml:"name" json:"name"`
	Type     string `yaml:"type" json:"type"`
	URL      string `yaml:"url" json:"url"`
	Category string `yaml:"category,omitempty" json:"category,omitempty"`
	APIKey   string `yaml:"api_key,omitempty" json:"api_key,omitempty"`
}

// File is the top-level sources.yaml document.
type File struct {
	Blogs []Source `yaml:"blogs"`
}

// ResolvePath picks the registry location: an explicit path wins, then the
// INSIGHT_PILOT_SOURCES environment variable, then the project default.
func ResolvePath(explicit, projectDefault string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(EnvPath); env != "" {
		return env
	}
	return projectDefault
}

// Load reads the registry, normalizes and validates entries, and applies
// environment overrides. A missing file yields an empty registry. Entries
// without a name or URL are skipped; an unsupported type is an error.
func Load(path string) ([]Source, error) {
	f, err := readFile(path)
	if err != nil {
		return nil, err
	}

	var out []Source
	for _, s := range f.Blogs {
		if s.Name == "" || s.URL == "" {
			continue
		}
		if s.Type == "" {
			s.Type = "auto"
		}
		applyEnvOverrides(&s)
		s.Type = strings.ToLower(s.Type)
		if !SupportedTypes[s.Type] {
			return nil, fmt.Errorf("source %s: unsupported type %q", s.Name, s.Type)
		}
		out = append(out, s)
	}
	return out, nil
}

// Save writes the registry, creating parent directories as needed.
func Save(path string, list []Source) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	data, err := yaml.Marshal(File{Blogs: list})
	if err != nil {
		return fmt.Errorf("encoding sources: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Add appends a source to the registry file as given, without validation, so
// a partially configured entry can be completed by hand or by env overrides.
func Add(path string, s Source) error {
	f, err := readFile(path)
	if err != nil {
		return err
	}
	f.Blogs = append(f.Blogs, s)
	return Save(path, f.Blogs)
}

// Remove deletes the named source and reports whether anything was removed.
func Remove(path, name string) (bool, error) {
	f, err := readFile(path)
	if err != nil {
		return false, err
	}
	var kept []Source
	for _, s := range f.Blogs {
		if s.Name != name {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(f.Blogs) {
		return false, nil
	}
	if err := Save(path, kept); err != nil {
		return false, err
	}
	return true, nil
}

// Filter narrows the registry by case-insensitive name substring and exact
// category match. Empty filters match everything.
func Filter(list []Source, name, category string) []Source {
	var out []Source
	for _, s := range list {
		if name != "" && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(name)) {
			continue
		}
		if category != "" && !strings.EqualFold(s.Category, category) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func readFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return File{}, nil
		}
		return File{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, nil
}

// applyEnvOverrides lets a deployment swap a source's URL, type, or API key
// without editing the registry. The variable suffix is the source name
// uppercased with runs of non-alphanumerics turned into underscores.
func applyEnvOverrides(s *Source) {
	key := envKey(s.Name)
	if key == "" {
		return
	}
	if v := os.Getenv("INSIGHT_PILOT_SOURCE_URL_" + key); v != "" {
		s.URL = v
	}
	if v := os.Getenv("INSIGHT_PILOT_SOURCE_TYPE_" + key); v != "" {
		s.Type = v
	}
	if v := os.Getenv("INSIGHT_PILOT_SOURCE_API_KEY_" + key); v != "" {
		s.APIKey = v
	}
}

func envKey(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}
