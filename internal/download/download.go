// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package download fetches PDFs for collected items and records outcomes.
// Implements: prd003-download (R1-R4);
//
//	docs/ARCHITECTURE.md § Download.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PotatoDog1669/insight-pilot/internal/httputil"
	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

const pdfMagic = "%PDF"

// BatchResult holds the outcome of a batch download run.
type BatchResult struct {
	Downloaded  int
	Skipped     int
	Unavailable int
	Excluded    int
	Failed      int

	// FailedItems carries the permanent-failure records destined for
	// download_failed.json.
	FailedItems []types.DownloadFailedItem
}

// Total returns the number of items processed.
func (r BatchResult) Total() int {
	return r.Downloaded + r.Skipped + r.Unavailable + r.Excluded + r.Failed
}

// HasFailures reports whether any downloads failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// DownloadBatch fetches the PDF for every active item that still needs one,
// mutating download_status, local_path, and download_error in place (R2.1).
// Items excluded by review are left untouched (R1.1); items already marked
// success are skipped (R1.2). It continues after individual failures (R4.1)
// and applies a delay between consecutive fetches (R3.2). Progress lines
// go to w.
func DownloadBatch(ctx context.Context, client *http.Client, items []types.Item, dir string, cfg types.DownloadConfig, w io.Writer) (BatchResult, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return BatchResult{}, fmt.Errorf("creating directory %s: %w", dir, err)
	}

	var result BatchResult
	used := make(map[string]bool, len(items))
	fetched := false

	for i := range items {
		it := &items[i]

		if !it.Active() {
			result.Excluded++
			continue
		}
		if it.DownloadStatus == types.DownloadSuccess && it.LocalPath != "" {
			fmt.Fprintf(w, "skipped: %s (already downloaded)\n", label(*it))
			result.Skipped++
			continue
		}
		if it.URLs.PDF == "" {
			it.DownloadStatus = types.DownloadUnavailable
			it.DownloadError = "no PDF URL"
			result.Unavailable++
			fmt.Fprintf(w, "unavailable: %s (no PDF URL)\n", label(*it))
			continue
		}

		// Delay only between real network fetches, not skips (R3.2).
		if fetched && cfg.DownloadDelay > 0 {
			time.Sleep(cfg.DownloadDelay)
		}
		fetched = true

		dest := filepath.Join(dir, buildFilename(*it, used))
		fmt.Fprintf(w, "downloading: %s\n", label(*it))

		if err := fetchPDF(ctx, client, it.URLs.PDF, dest, cfg); err != nil {
			it.DownloadStatus = types.DownloadFailed
			it.DownloadError = err.Error()
			result.Failed++
			result.FailedItems = append(result.FailedItems, failedRecord(*it, it.URLs.PDF, err.Error()))
			fmt.Fprintf(w, "failed:  %s (%v)\n", label(*it), err)
			continue
		}

		it.DownloadStatus = types.DownloadSuccess
		it.DownloadError = ""
		it.LocalPath = dest
		result.Downloaded++
	}

	fmt.Fprintf(w, "\nBatch summary: %d downloaded, %d skipped, %d unavailable, %d failed (total: %d)\n",
		result.Downloaded, result.Skipped, result.Unavailable, result.Failed, result.Total())
	return result, nil
}

// fetchPDF downloads rawURL to destPath through a temporary file so a
// partial download never lands at the final path (R2.3). The response must
// start with the %PDF magic bytes (R2.2); anything else is rejected before
// touching disk.
func fetchPDF(ctx context.Context, client *http.Client, rawURL, destPath string, cfg types.DownloadConfig) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)
	req.Header.Set("Accept", "application/pdf")

	resp, err := httputil.DoWithRetry(ctx, client, req, cfg.MaxRetries)
	if err != nil {
		return fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d from %s", resp.StatusCode, rawURL)
	}

	var magic [4]byte
	if _, err := io.ReadFull(resp.Body, magic[:]); err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if string(magic[:]) != pdfMagic {
		return fmt.Errorf("not a PDF (response starts with %q)", string(magic[:]))
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(destPath), ".download-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(magic[:])
	if writeErr == nil {
		_, writeErr = io.Copy(tmpFile, resp.Body)
	}
	closeErr := tmpFile.Close()
	if writeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing download: %w", writeErr)
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// unsafeFilenameChars matches character runs that have no place in a filename.
var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// safeFilename slugs text into a filesystem-safe stem capped at 80 bytes.
// The pattern leaves only ASCII, so byte slicing cannot split a rune.
func safeFilename(text string) string {
	slug := strings.Trim(unsafeFilenameChars.ReplaceAllString(text, "_"), "_")
	if len(slug) > 80 {
		slug = slug[:80]
	}
	if slug == "" {
		return "paper"
	}
	return slug
}

// buildFilename returns a unique PDF filename for the item, preferring
// "<id>_<slugged-title>.pdf". Items without an ID fall back to the slugged
// title plus publication year. Collisions get a numeric suffix (R2.4).
func buildFilename(it types.Item, used map[string]bool) string {
	base := it.ID
	if slug := safeFilename(it.Title); it.Title != "" && slug != "paper" {
		if base != "" {
			base = base + "_" + slug
		} else {
			base = slug
			if len(it.Date) >= 4 {
				base += "_" + it.Date[:4]
			}
		}
	}
	if base == "" {
		base = "paper"
	}

	candidate := base + ".pdf"
	for n := 1; used[candidate]; n++ {
		candidate = fmt.Sprintf("%s_%d.pdf", base, n)
	}
	used[candidate] = true
	return candidate
}

// failedRecord builds the download_failed.json entry for one failed item,
// carrying alternative URLs worth trying by hand (R4.2).
func failedRecord(it types.Item, rawURL, msg string) types.DownloadFailedItem {
	rec := types.DownloadFailedItem{
		ID:       it.ID,
		Title:    it.Title,
		URL:      rawURL,
		Error:    msg,
		FailedAt: types.UTCNow(),
	}
	if u, err := url.Parse(rawURL); err == nil {
		rec.Domain = u.Host
	}
	for _, alt := range []string{it.URLs.Abstract, it.URLs.Publisher} {
		if alt != "" {
			rec.AlternativeURLs = append(rec.AlternativeURLs, alt)
		}
	}
	return rec
}

// Stats tallies download statuses across the item list for state.json.
func Stats(items []types.Item) types.DownloadStats {
	var s types.DownloadStats
	for _, it := range items {
		switch it.DownloadStatus {
		case types.DownloadSuccess:
			s.Success++
		case types.DownloadFailed, types.DownloadUnavailable:
			s.Failed++
		default:
			s.Pending++
		}
	}
	return s
}

// label returns a short progress identifier for an item.
func label(it types.Item) string {
	if it.ID != "" {
		return it.ID
	}
	return truncate(it.Title, 50)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
