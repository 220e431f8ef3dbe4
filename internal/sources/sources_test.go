// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"os"
	"path/filepath"
	"testing"
)

func writeRegistry(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sources.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing registry: %v", err)
	}
	return path
}

// --- Load ---

func TestLoadRegistry(t *testing.T) {
	path := writeRegistry(t, `blogs:
  - name: Engineering Blog
    type: ghost
    url: https://blog.example.com
    category: engineering
  - name: Research Notes
    url: https://notes.example.com/feed.xml
`)

	list, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len(list) = %d, want 2", len(list))
	}
	if list[0].Type != "ghost" || list[0].Category != "engineering" {
		t.Errorf("list[0] = %+v", list[0])
	}
	// Missing type defaults to auto.
	if list[1].Type != "auto" {
		t.Errorf("list[1].Type = %q, want %q", list[1].Type, "auto")
	}
}

func TestLoadMissingFileYieldsEmptyRegistry(t *testing.T) {
	list, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("len(list) = %d, want 0", len(list))
	}
}

func TestLoadSkipsIncompleteEntries(t *testing.T) {
	path := writeRegistry(t, `blogs:
  - name: No URL Here
    type: rss
  - url: https://nameless.example.com
  - name: Complete
    type: rss
    url: https://complete.example.com/feed
`)

	list, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Complete" {
		t.Errorf("list = %+v, want only the complete entry", list)
	}
}

func TestLoadRejectsUnsupportedType(t *testing.T) {
	path := writeRegistry(t, `blogs:
  - name: Broken
    type: medium
    url: https://broken.example.com
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Load should fail on unsupported type")
	}
}

func TestLoadNormalizesTypeCase(t *testing.T) {
	path := writeRegistry(t, `blogs:
  - name: Shouty
    type: WordPress
    url: https://shouty.example.com
`)

	list, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if list[0].Type != "wordpress" {
		t.Errorf("Type = %q, want %q", list[0].Type, "wordpress")
	}
}

// --- Environment overrides ---

func TestEnvOverrides(t *testing.T) {
	path := writeRegistry(t, `blogs:
  - name: Team Blog
    type: ghost
    url: https://old.example.com
`)

	t.Setenv("INSIGHT_PILOT_SOURCE_URL_TEAM_BLOG", "https://new.example.com")
	t.Setenv("INSIGHT_PILOT_SOURCE_TYPE_TEAM_BLOG", "rss")
	t.Setenv("INSIGHT_PILOT_SOURCE_API_KEY_TEAM_BLOG", "abc123")

	list, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	s := list[0]
	if s.URL != "https://new.example.com" {
		t.Errorf("URL = %q, override not applied", s.URL)
	}
	if s.Type != "rss" {
		t.Errorf("Type = %q, override not applied", s.Type)
	}
	if s.APIKey != "abc123" {
		t.Errorf("APIKey = %q, override not applied", s.APIKey)
	}
}

func TestEnvKey(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Team Blog", "TEAM_BLOG"},
		{"ai-research.net", "AI_RESEARCH_NET"},
		{"simple", "SIMPLE"},
		{"--edges--", "EDGES"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := envKey(tt.name); got != tt.want {
			t.Errorf("envKey(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

// --- Add / Remove ---

func TestAddAndRemove(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")

	if err := Add(path, Source{Name: "First", Type: "rss", URL: "https://a.example.com/feed"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := Add(path, Source{Name: "Second", Type: "auto", URL: "https://b.example.com"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	list, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len(list) = %d, want 2", len(list))
	}

	removed, err := Remove(path, "First")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !removed {
		t.Error("Remove = false, want true")
	}

	list, err = Load(path)
	if err != nil {
		t.Fatalf("Load after remove: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Second" {
		t.Errorf("list = %+v, want only Second", list)
	}

	removed, err = Remove(path, "First")
	if err != nil {
		t.Fatalf("Remove absent: %v", err)
	}
	if removed {
		t.Error("Remove of absent source = true, want false")
	}
}

// --- Filter ---

func TestFilter(t *testing.T) {
	list := []Source{
		{Name: "Engineering Blog", Category: "engineering"},
		{Name: "ML Notes", Category: "research"},
		{Name: "Systems Engineering Weekly", Category: "engineering"},
	}

	if got := Filter(list, "engineering", ""); len(got) != 2 {
		t.Errorf("name filter matched %d, want 2", len(got))
	}
	if got := Filter(list, "", "research"); len(got) != 1 || got[0].Name != "ML Notes" {
		t.Errorf("category filter = %+v, want ML Notes", got)
	}
	if got := Filter(list, "engineering", "research"); len(got) != 0 {
		t.Errorf("combined filter matched %d, want 0", len(got))
	}
	if got := Filter(list, "", ""); len(got) != 3 {
		t.Errorf("empty filter matched %d, want 3", len(got))
	}
}

// --- ResolvePath ---

func TestResolvePath(t *testing.T) {
	t.Setenv(EnvPath, "")
	if got := ResolvePath("", "/proj/.insight/sources.yaml"); got != "/proj/.insight/sources.yaml" {
		t.Errorf("default = %q", got)
	}

	t.Setenv(EnvPath, "/env/sources.yaml")
	if got := ResolvePath("", "/proj/.insight/sources.yaml"); got != "/env/sources.yaml" {
		t.Errorf("env = %q", got)
	}
	if got := ResolvePath("/flag/sources.yaml", "/proj/.insight/sources.yaml"); got != "/flag/sources.yaml" {
		t.Errorf("explicit = %q", got)
	}
}
