// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package process

import (
	"strings"

	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

// DefaultSimilarityThreshold is the minimum normalized-title similarity for
// a fuzzy duplicate match. Per prd002-reconciliation R3.4.
const DefaultSimilarityThreshold = 0.9

// MergeRecord is one audit entry describing a collapsed duplicate. Titles
// are truncated to 80 characters.
type MergeRecord struct {
	Title      string `json:"title"`
	MergedWith string `json:"merged_with"`
}

// Stats summarizes one deduplication run.
type Stats struct {
	Original   int           `json:"original"`
	Duplicates int           `json:"duplicates"`
	Merged     []MergeRecord `json:"merged"`
	Final      int           `json:"final"`
}

// DedupKey computes the identity key for an item, checking identifier tiers
// in precedence order: DOI, then arXiv ID, then normalized title. DOIs are
// trimmed, stripped of a leading "https://doi.org/", and lowercased so the
// URL and bare forms collide. ArXiv IDs are trimmed but kept case-sensitive.
// The title fallback lowercases and collapses runs of whitespace.
// Per prd002-reconciliation R3.1-R3.2.
func DedupKey(it types.Item) string {
	if doi := strings.TrimSpace(it.Identifiers.DOI); doi != "" {
		doi = strings.TrimPrefix(doi, "https://doi.org/")
		return "doi:" + strings.ToLower(doi)
	}
	if arxiv := strings.TrimSpace(it.Identifiers.ArxivID); arxiv != "" {
		return "arxiv:" + arxiv
	}
	return "title:" + normalizeTitle(it.Title)
}

// normalizeTitle lowercases and collapses internal whitespace.
func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

// Deduplicate collapses duplicate records in a single ordered pass. Each
// record first tries an exact key match against the survivors seen so far;
// failing that, its normalized title is compared against every survivor in
// order and the first similarity at or above threshold wins. Unmatched
// records become survivors under their own key. A record merged by title
// similarity does not register its own key. Survivor order is first-seen
// order. Per prd002-reconciliation R3.1-R3.5.
func Deduplicate(items []types.Item, threshold float64) ([]types.Item, Stats) {
	stats := Stats{Original: len(items)}
	survivors := make([]types.Item, 0, len(items))
	index := make(map[string]int, len(items))

	for _, item := range items {
		key := DedupKey(item)

		pos, ok := index[key]
		if !ok {
			pos, ok = fuzzyMatch(survivors, item, threshold)
		}
		if !ok {
			index[key] = len(survivors)
			survivors = append(survivors, item)
			continue
		}

		stats.Duplicates++
		stats.Merged = append(stats.Merged, MergeRecord{
			Title:      truncateTitle(item.Title),
			MergedWith: truncateTitle(survivors[pos].Title),
		})
		survivors[pos] = MergeItems(survivors[pos], item)
	}

	stats.Final = len(survivors)
	return survivors, stats
}

// fuzzyMatch scans survivors in insertion order and returns the position of
// the first one whose normalized title is at least threshold similar.
func fuzzyMatch(survivors []types.Item, item types.Item, threshold float64) (int, bool) {
	title := normalizeTitle(item.Title)
	for i := range survivors {
		if titleSimilarity(title, normalizeTitle(survivors[i].Title)) >= threshold {
			return i, true
		}
	}
	return 0, false
}

// titleSimilarity returns 2*LCS(a,b) / (len(a)+len(b)) over runes, a
// symmetric ratio in [0,1]. Two empty strings are identical.
func titleSimilarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}

	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			switch {
			case ra[i-1] == rb[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	lcs := prev[len(rb)]
	return 2.0 * float64(lcs) / float64(len(ra)+len(rb))
}

func truncateTitle(s string) string {
	r := []rune(s)
	if len(r) <= 80 {
		return s
	}
	return string(r[:80])
}
