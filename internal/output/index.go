// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

// AnalyzedItem pairs an item with its stored analysis for rendering.
type AnalyzedItem struct {
	Item     types.Item
	Analysis types.Analysis
}

// AnalysisLoader fetches the stored analysis for an item, returning nil
// without error when the item has not been analyzed.
type AnalysisLoader func(itemID string) (*types.Analysis, error)

// Summary counts what a WriteAll run rendered.
type Summary struct {
	// Analyzed is the number of reports written.
	Analyzed int

	// Unavailable is the number of failed-download entries listed in the
	// index without a report.
	Unavailable int
}

// WriteAll renders one report per analyzed item under reportsDir plus the
// index at indexPath, and stamps ReportPath on items that got a report.
// Items without a stored analysis are listed in the not-available section
// when their download failed, and omitted otherwise. Progress lines go
// to w.
func WriteAll(items []types.Item, load AnalysisLoader, topic string, keywords []string, indexPath, reportsDir string, w io.Writer) (Summary, error) {
	if err := os.MkdirAll(reportsDir, 0o755); err != nil {
		return Summary{}, fmt.Errorf("creating reports directory: %w", err)
	}

	var (
		analyzed []AnalyzedItem
		failed   []types.Item
	)
	for i := range items {
		it := items[i]
		if !it.Active() || it.ID == "" {
			continue
		}

		a, err := load(it.ID)
		if err != nil {
			fmt.Fprintf(w, "  warning: loading analysis for %s: %v\n", it.ID, err)
			continue
		}
		if a == nil {
			if it.DownloadStatus == types.DownloadFailed {
				failed = append(failed, it)
			}
			continue
		}

		path := filepath.Join(reportsDir, it.ID+".md")
		if err := os.WriteFile(path, []byte(GenerateReport(it, *a, topic)), 0o644); err != nil {
			return Summary{}, fmt.Errorf("writing report for %s: %w", it.ID, err)
		}
		items[i].ReportPath = filepath.Join(filepath.Base(reportsDir), it.ID+".md")
		analyzed = append(analyzed, AnalyzedItem{Item: it, Analysis: *a})
		fmt.Fprintf(w, "report: %s\n", it.ID)
	}

	index := GenerateIndex(analyzed, failed, topic, keywords)
	if err := os.WriteFile(indexPath, []byte(index), 0o644); err != nil {
		return Summary{}, fmt.Errorf("writing index: %w", err)
	}

	fmt.Fprintf(w, "\nIndex summary: %d analyzed, %d not available, index written to %s\n",
		len(analyzed), len(failed), indexPath)
	return Summary{Analyzed: len(analyzed), Unavailable: len(failed)}, nil
}

// GenerateIndex renders the index markdown: analyzed entries sorted by
// relevance, the not-available section, and a statistics table.
func GenerateIndex(analyzed []AnalyzedItem, failed []types.Item, topic string, keywords []string) string {
	entries := make([]AnalyzedItem, len(analyzed))
	copy(entries, analyzed)
	sortByRelevance(entries)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", topic)
	fmt.Fprintf(&b, "> **Generated**: %s\n", time.Now().Format("2006-01-02 15:04"))
	if len(keywords) > 0 {
		fmt.Fprintf(&b, "> **Keywords**: %s\n", strings.Join(keywords, ", "))
	}
	fmt.Fprintf(&b, "> **Analyzed**: %d papers\n\n", len(entries))
	b.WriteString("---\n\n")
	b.WriteString("## 📚 Analyzed Papers\n\n")

	for _, e := range entries {
		fmt.Fprintf(&b, "### [%s](reports/%s.md)\n\n", e.Item.Title, e.Item.ID)

		var meta []string
		if len(e.Item.Authors) > 0 {
			meta = append(meta, "**Authors**: "+shortAuthors(e.Item.Authors, indexAuthorMax))
		}
		if e.Item.Date != "" {
			meta = append(meta, "**Date**: "+e.Item.Date)
		}
		if links := indexSources(e.Item); links != "" {
			meta = append(meta, "**Links**: "+links)
		}
		meta = append(meta, "**Relevance**: "+formatScore(e.Analysis.RelevanceScore))
		b.WriteString(strings.Join(meta, " | ") + "\n\n")

		fmt.Fprintf(&b, "**Summary**: %s\n\n", valueOr(e.Analysis.Summary, "_No summary_"))
		if e.Analysis.BriefAnalysis != "" {
			fmt.Fprintf(&b, "> %s\n\n", e.Analysis.BriefAnalysis)
		}
		if tags := spacedTags(e.Analysis.Tags, indexTagMax); tags != "" {
			fmt.Fprintf(&b, "**Tags**: %s\n\n", tags)
		}
		b.WriteString("---\n\n")
	}

	if len(failed) > 0 {
		b.WriteString("## ⚠️ Papers Not Available\n\n")
		b.WriteString("_The following papers could not be downloaded. Only abstracts are shown._\n\n")
		for _, it := range failed {
			fmt.Fprintf(&b, "### %s\n\n", it.Title)

			var meta []string
			if len(it.Authors) > 0 {
				meta = append(meta, "**Authors**: "+shortAuthors(it.Authors, failedAuthorMax))
			}
			if it.Date != "" {
				meta = append(meta, "**Date**: "+it.Date)
			}
			if links := indexSources(it); links != "" {
				meta = append(meta, "**Links**: "+links)
			}
			if len(meta) > 0 {
				b.WriteString(strings.Join(meta, " | ") + "\n\n")
			}

			if it.Abstract != "" {
				fmt.Fprintf(&b, "> %s\n\n", truncate(it.Abstract, abstractTruncateLen))
			}
			b.WriteString("---\n\n")
		}
	}

	b.WriteString("## 📊 Statistics\n\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("|--------|-------|\n")
	fmt.Fprintf(&b, "| Papers Analyzed | %d |\n", len(entries))
	fmt.Fprintf(&b, "| Download Failed | %d |\n", len(failed))
	fmt.Fprintf(&b, "| Total Processed | %d |\n", len(entries)+len(failed))
	return b.String()
}

// sortByRelevance orders entries by relevance score descending, breaking
// ties with newer dates first. The sort is stable so equal entries keep
// their item order.
func sortByRelevance(entries []AnalyzedItem) {
	sort.SliceStable(entries, func(i, j int) bool {
		si, sj := entries[i].Analysis.RelevanceScore, entries[j].Analysis.RelevanceScore
		if si != sj {
			return si > sj
		}
		return entries[i].Item.Date > entries[j].Item.Date
	})
}
