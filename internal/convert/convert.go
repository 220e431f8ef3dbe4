// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert turns downloaded PDFs into markdown for the analysis stage.
// Implements: prd004-conversion (R1-R4);
//
//	docs/ARCHITECTURE.md § Conversion.
package convert

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

// maxMarkdownChars caps the converted text handed to the analysis prompt.
// Longer documents are cut at a rune boundary with a truncation marker.
const maxMarkdownChars = 30000

// Converter turns one PDF file into markdown text. Backends run a container
// image (markitdown or marker) over the document.
type Converter interface {
	// Convert reads the PDF at pdfPath and returns the markdown content.
	Convert(pdfPath string) (string, error)
}

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted     int
	Skipped       int
	NotDownloaded int
	Failed        int
}

// Total returns the number of items the batch considered.
func (r BatchResult) Total() int {
	return r.Converted + r.Skipped + r.NotDownloaded + r.Failed
}

// HasFailures reports whether any conversions failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// ConvertBatch converts every downloaded item that does not yet have a
// markdown file, writing per-item progress to w. Excluded and unidentified
// items are ignored; items without a successful download are counted but not
// converted. With force set, existing markdown files are rewritten.
func ConvertBatch(c Converter, items []types.Item, root, markdownDir string, force bool, w io.Writer) (BatchResult, error) {
	var result BatchResult
	if err := os.MkdirAll(markdownDir, 0o755); err != nil {
		return result, fmt.Errorf("creating markdown directory: %w", err)
	}

	for _, it := range items {
		if !it.Active() || it.ID == "" {
			continue
		}
		if it.DownloadStatus != types.DownloadSuccess {
			result.NotDownloaded++
			continue
		}

		mdPath := markdownPath(markdownDir, it.ID)
		if !force {
			if _, err := os.Stat(mdPath); err == nil {
				fmt.Fprintf(w, "skipped: %s (already exists)\n", it.ID)
				result.Skipped++
				continue
			}
		}

		if it.LocalPath == "" {
			fmt.Fprintf(w, "failed:  %s (no local PDF path recorded)\n", it.ID)
			result.Failed++
			continue
		}
		pdfPath := resolvePDFPath(root, it.LocalPath)
		if _, err := os.Stat(pdfPath); err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", it.ID, err)
			result.Failed++
			continue
		}

		raw, err := c.Convert(pdfPath)
		if err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", it.ID, err)
			result.Failed++
			continue
		}

		content := addFrontmatter(it, pdfPath, raw)
		if err := os.WriteFile(mdPath, []byte(content), 0o644); err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", it.ID, err)
			result.Failed++
			continue
		}

		fmt.Fprintf(w, "converted: %s\n", it.ID)
		result.Converted++
	}

	fmt.Fprintf(w, "\nBatch summary: %d converted, %d skipped, %d not downloaded, %d failed (total: %d)\n",
		result.Converted, result.Skipped, result.NotDownloaded, result.Failed, result.Total())
	return result, nil
}

// ReadMarkdown loads the converted text for an item with frontmatter removed
// and length capped for prompt building. A missing file returns empty content
// and no error so callers can fall back to metadata-only analysis.
func ReadMarkdown(markdownDir, itemID string) (string, error) {
	data, err := os.ReadFile(markdownPath(markdownDir, itemID))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("reading markdown for %s: %w", itemID, err)
	}
	content := stripFrontmatter(string(data))
	if runes := []rune(content); len(runes) > maxMarkdownChars {
		content = string(runes[:maxMarkdownChars]) + "\n\n[... truncated ...]"
	}
	return content, nil
}

func markdownPath(markdownDir, itemID string) string {
	return filepath.Join(markdownDir, itemID+".md")
}

// resolvePDFPath turns the stored local path into an absolute one. Project
// files record download paths relative to the project root.
func resolvePDFPath(root, localPath string) string {
	if filepath.IsAbs(localPath) {
		return localPath
	}
	return filepath.Join(root, strings.TrimPrefix(localPath, "./"))
}

// addFrontmatter prepends YAML frontmatter to the converted markdown body.
func addFrontmatter(it types.Item, pdfPath, body string) string {
	var b strings.Builder
	b.WriteString("---\n")
	fmt.Fprintf(&b, "item_id: %q\n", it.ID)
	fmt.Fprintf(&b, "title: %q\n", it.Title)
	fmt.Fprintf(&b, "source_pdf: %q\n", pdfPath)
	fmt.Fprintf(&b, "converted_at: %q\n", types.UTCNow())
	b.WriteString("---\n\n")
	b.WriteString(body)
	return b.String()
}

// stripFrontmatter removes a leading YAML frontmatter block, if present.
func stripFrontmatter(content string) string {
	if !strings.HasPrefix(content, "---\n") {
		return content
	}
	rest := content[4:]
	i := strings.Index(rest, "\n---\n")
	if i < 0 {
		return content
	}
	return strings.TrimPrefix(rest[i+5:], "\n")
}
