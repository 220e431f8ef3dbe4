// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package output renders per-item markdown reports and the project index.
// Implements: prd006-output (R1-R3);
//
//	docs/ARCHITECTURE.md § Output.
package output

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

const (
	// reportAuthorMax is the author-list cutoff in report metadata tables.
	reportAuthorMax = 10
	// indexAuthorMax is the author-list cutoff in index entries.
	indexAuthorMax = 3
	// failedAuthorMax is the author-list cutoff in the not-available section.
	failedAuthorMax = 5
	// indexTagMax caps how many tags an index entry shows.
	indexTagMax = 5
	// abstractTruncateLen caps abstracts in the not-available section.
	abstractTruncateLen = 500
)

// GenerateReport renders the detailed markdown report for one analyzed item.
func GenerateReport(it types.Item, a types.Analysis, topic string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", it.Title)
	fmt.Fprintf(&b, "> **Research Topic**: %s\n\n", topic)

	b.WriteString("## 📋 Metadata\n\n")
	b.WriteString("| Field | Value |\n")
	b.WriteString("|-------|-------|\n")
	fmt.Fprintf(&b, "| **Authors** | %s |\n", formatAuthors(it.Authors, reportAuthorMax))
	fmt.Fprintf(&b, "| **Date** | %s |\n", valueOr(it.Date, "_Unknown date_"))
	fmt.Fprintf(&b, "| **Sources** | %s |\n", sourceLinks(it, true))
	fmt.Fprintf(&b, "| **Relevance Score** | %s |\n\n", formatScore(a.RelevanceScore))

	fmt.Fprintf(&b, "## 📝 Summary\n\n%s\n\n", valueOr(a.Summary, "_No summary available_"))
	fmt.Fprintf(&b, "## 🔍 Brief Analysis\n\n%s\n\n", valueOr(a.BriefAnalysis, "_No analysis available_"))
	fmt.Fprintf(&b, "## 📖 Detailed Analysis\n\n%s\n\n", valueOr(a.DetailedAnalysis, "_No detailed analysis available_"))
	fmt.Fprintf(&b, "## 🎯 Main Contributions\n\n%s\n\n", formatList(a.Contributions))
	fmt.Fprintf(&b, "## 🔬 Methodology\n\n%s\n\n", valueOr(a.Methodology, "_Not specified_"))
	fmt.Fprintf(&b, "## 📊 Key Findings\n\n%s\n\n", formatList(a.KeyFindings))
	fmt.Fprintf(&b, "## ⚠️ Limitations\n\n%s\n\n", formatList(a.Limitations))
	fmt.Fprintf(&b, "## 🔮 Future Work\n\n%s\n\n", formatList(a.FutureWork))
	fmt.Fprintf(&b, "## 🏷️ Tags\n\n%s\n\n", inlineTags(a.Tags))
	fmt.Fprintf(&b, "## 📄 Abstract\n\n%s\n\n", valueOr(it.Abstract, "_No abstract available_"))

	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "_Report generated on %s | [Back to Index](../index.md)_\n",
		time.Now().Format("2006-01-02 15:04"))
	return b.String()
}

// formatList renders strings as markdown bullets, with a placeholder for an
// empty list.
func formatList(items []string) string {
	if len(items) == 0 {
		return "_Not available_"
	}
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

// formatAuthors joins author names, collapsing long lists to
// "A, B, ... et al. (+N)".
func formatAuthors(authors []string, max int) string {
	if len(authors) == 0 {
		return "_Unknown_"
	}
	if len(authors) <= max {
		return strings.Join(authors, ", ")
	}
	return fmt.Sprintf("%s et al. (+%d)", strings.Join(authors[:max], ", "), len(authors)-max)
}

// shortAuthors joins author names, collapsing long lists to "A, B, C et al.".
func shortAuthors(authors []string, max int) string {
	if len(authors) == 0 {
		return "_Unknown_"
	}
	if len(authors) <= max {
		return strings.Join(authors, ", ")
	}
	return strings.Join(authors[:max], ", ") + " et al."
}

// sourceLinks renders the item's external links as " | "-separated markdown,
// deduplicated by URL. Order: arXiv, DOI, OpenAlex, abstract page (or
// publisher page when the abstract URL duplicates an earlier link), PDF.
func sourceLinks(it types.Item, placeholder bool) string {
	var links []string
	seen := make(map[string]bool)
	add := func(label, url string) {
		if url == "" || seen[url] {
			return
		}
		seen[url] = true
		links = append(links, fmt.Sprintf("[%s](%s)", label, url))
	}

	if id := it.Identifiers.ArxivID; id != "" {
		add("arXiv:"+id, "https://arxiv.org/abs/"+id)
	}
	if doi := it.Identifiers.DOI; doi != "" {
		add("DOI:"+doi, "https://doi.org/"+doi)
	}
	if oa := it.Identifiers.OpenAlexID; oa != "" {
		url, id := openAlexLink(oa)
		add("OpenAlex:"+id, url)
	}

	abs, pub := it.URLs.Abstract, it.URLs.Publisher
	switch {
	case abs != "" && !seen[abs]:
		add("Source", abs)
	case pub != "" && !seen[pub]:
		add("Publisher", pub)
	}
	if u := it.URLs.PDF; u != "" {
		add("PDF", u)
	}

	if len(links) == 0 {
		if placeholder {
			return "_No external links_"
		}
		return ""
	}
	return strings.Join(links, " | ")
}

// openAlexLink normalizes a stored OpenAlex ID, which collectors record as
// the canonical URL, into a link target and a short W-id label.
func openAlexLink(stored string) (url, id string) {
	if strings.HasPrefix(stored, "http://") || strings.HasPrefix(stored, "https://") {
		if i := strings.LastIndex(stored, "/"); i >= 0 && i < len(stored)-1 {
			return stored, stored[i+1:]
		}
		return stored, stored
	}
	return "https://openalex.org/" + stored, stored
}

// indexSources renders the compact arXiv | DOI link pair used by index
// entries.
func indexSources(it types.Item) string {
	var links []string
	if id := it.Identifiers.ArxivID; id != "" {
		links = append(links, fmt.Sprintf("[arXiv](https://arxiv.org/abs/%s)", id))
	}
	if doi := it.Identifiers.DOI; doi != "" {
		links = append(links, fmt.Sprintf("[DOI](https://doi.org/%s)", doi))
	}
	return strings.Join(links, " | ")
}

// inlineTags renders tags as comma-separated inline code.
func inlineTags(tags []string) string {
	if len(tags) == 0 {
		return "_No tags_"
	}
	quoted := make([]string, len(tags))
	for i, tag := range tags {
		quoted[i] = "`" + tag + "`"
	}
	return strings.Join(quoted, ", ")
}

// spacedTags renders up to max tags as space-separated inline code.
func spacedTags(tags []string, max int) string {
	if len(tags) == 0 {
		return ""
	}
	if len(tags) > max {
		tags = tags[:max]
	}
	quoted := make([]string, len(tags))
	for i, tag := range tags {
		quoted[i] = "`" + tag + "`"
	}
	return strings.Join(quoted, " ")
}

// formatScore renders a relevance score as "N/10", or "N/A" when unset.
func formatScore(score float64) string {
	if score <= 0 {
		return "N/A"
	}
	return strconv.FormatFloat(score, 'f', -1, 64) + "/10"
}

// truncate cuts s at max runes with an ellipsis.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

func valueOr(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
