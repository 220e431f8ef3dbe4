// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package download

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

func TestSafeFilename(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "attention", "attention"},
		{"spaces and punctuation", "Attention Is All You Need!", "Attention_Is_All_You_Need"},
		{"edge junk stripped", "  (draft)  ", "draft"},
		{"unicode collapsed", "résumé", "r_sum"},
		{"keeps dots and dashes", "v2.1-final", "v2.1-final"},
		{"empty", "", "paper"},
		{"only junk", "???", "paper"},
		{"capped at 80", strings.Repeat("a", 100), strings.Repeat("a", 80)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := safeFilename(tt.in); got != tt.want {
				t.Errorf("safeFilename(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBuildFilename(t *testing.T) {
	used := make(map[string]bool)

	got := buildFilename(types.Item{ID: "i0001", Title: "Attention Is All You Need"}, used)
	if got != "i0001_Attention_Is_All_You_Need.pdf" {
		t.Errorf("buildFilename = %q, want %q", got, "i0001_Attention_Is_All_You_Need.pdf")
	}

	// Same item again collides and gets a numeric suffix.
	got = buildFilename(types.Item{ID: "i0001", Title: "Attention Is All You Need"}, used)
	if got != "i0001_Attention_Is_All_You_Need_1.pdf" {
		t.Errorf("collision = %q, want %q", got, "i0001_Attention_Is_All_You_Need_1.pdf")
	}

	got = buildFilename(types.Item{Title: "Some Paper", Date: "2023-05-17"}, used)
	if got != "Some_Paper_2023.pdf" {
		t.Errorf("no-id with date = %q, want %q", got, "Some_Paper_2023.pdf")
	}

	got = buildFilename(types.Item{Title: "Some Paper"}, used)
	if got != "Some_Paper.pdf" {
		t.Errorf("no-id without date = %q, want %q", got, "Some_Paper.pdf")
	}

	got = buildFilename(types.Item{}, used)
	if got != "paper.pdf" {
		t.Errorf("empty item = %q, want %q", got, "paper.pdf")
	}
}

const fakePDFContent = "%PDF-1.4 fake pdf body"

// downloadTestServer serves a valid PDF, a non-PDF body, and a too-short
// body on fixed paths; everything else is a 404.
func downloadTestServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pdf/ok.pdf":
			w.Header().Set("Content-Type", "application/pdf")
			fmt.Fprint(w, fakePDFContent)
		case "/pdf/html":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "<html><body>paywall</body></html>")
		case "/pdf/short":
			fmt.Fprint(w, "%P")
		default:
			http.NotFound(w, r)
		}
	}))
}

func testCfg() types.DownloadConfig {
	return types.DownloadConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:   10 * time.Second,
			UserAgent: "test/0.1",
		},
		DownloadDelay: 0,
	}
}

func TestFetchPDFWritesFile(t *testing.T) {
	ts := downloadTestServer()
	defer ts.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "paper.pdf")

	if err := fetchPDF(context.Background(), ts.Client(), ts.URL+"/pdf/ok.pdf", dest, testCfg()); err != nil {
		t.Fatalf("fetchPDF: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("reading download: %v", err)
	}
	if string(data) != fakePDFContent {
		t.Errorf("content = %q, want %q", string(data), fakePDFContent)
	}

	// No temp files left behind.
	leftovers, err := filepath.Glob(filepath.Join(dir, ".download-*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(leftovers) != 0 {
		t.Errorf("leftover temp files: %v", leftovers)
	}
}

func TestFetchPDFRejectsNonPDF(t *testing.T) {
	ts := downloadTestServer()
	defer ts.Close()

	dir := t.TempDir()
	dest := filepath.Join(dir, "paper.pdf")

	err := fetchPDF(context.Background(), ts.Client(), ts.URL+"/pdf/html", dest, testCfg())
	if err == nil {
		t.Fatal("expected error for non-PDF response")
	}
	if !strings.Contains(err.Error(), "not a PDF") {
		t.Errorf("error = %q, want 'not a PDF'", err.Error())
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("rejected download should not reach the final path")
	}
}

func TestFetchPDFShortBody(t *testing.T) {
	ts := downloadTestServer()
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "paper.pdf")
	err := fetchPDF(context.Background(), ts.Client(), ts.URL+"/pdf/short", dest, testCfg())
	if err == nil {
		t.Fatal("expected error for truncated response")
	}
	if !strings.Contains(err.Error(), "reading response") {
		t.Errorf("error = %q, want 'reading response'", err.Error())
	}
}

func TestFetchPDFHTTPError(t *testing.T) {
	ts := downloadTestServer()
	defer ts.Close()

	dest := filepath.Join(t.TempDir(), "paper.pdf")
	err := fetchPDF(context.Background(), ts.Client(), ts.URL+"/pdf/missing.pdf", dest, testCfg())
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if !strings.Contains(err.Error(), "HTTP 404") {
		t.Errorf("error = %q, want 'HTTP 404'", err.Error())
	}
}

func TestDownloadBatch(t *testing.T) {
	ts := downloadTestServer()
	defer ts.Close()

	items := []types.Item{
		{ID: "i0001", Title: "Attention Is All You Need", URLs: types.URLs{PDF: ts.URL + "/pdf/ok.pdf"}, DownloadStatus: types.DownloadPending},
		{ID: "i0002", Title: "Already Here", URLs: types.URLs{PDF: ts.URL + "/pdf/ok.pdf"}, DownloadStatus: types.DownloadSuccess, LocalPath: "/elsewhere/i0002.pdf"},
		{ID: "i0003", Title: "Filtered Out", URLs: types.URLs{PDF: ts.URL + "/pdf/ok.pdf"}, DownloadStatus: types.DownloadPending, Status: types.StatusExcluded},
		{ID: "i0004", Title: "No Link"},
		{ID: "i0005", Title: "Gone", URLs: types.URLs{PDF: ts.URL + "/pdf/missing.pdf", Abstract: "https://example.com/abs/5"}},
		{ID: "i0006", Title: "Paywalled", URLs: types.URLs{PDF: ts.URL + "/pdf/html"}},
	}

	dir := t.TempDir()
	var buf bytes.Buffer

	result, err := DownloadBatch(context.Background(), ts.Client(), items, dir, testCfg(), &buf)
	if err != nil {
		t.Fatalf("DownloadBatch: %v", err)
	}

	if result.Downloaded != 1 {
		t.Errorf("Downloaded = %d, want 1", result.Downloaded)
	}
	if result.Skipped != 1 {
		t.Errorf("Skipped = %d, want 1", result.Skipped)
	}
	if result.Excluded != 1 {
		t.Errorf("Excluded = %d, want 1", result.Excluded)
	}
	if result.Unavailable != 1 {
		t.Errorf("Unavailable = %d, want 1", result.Unavailable)
	}
	if result.Failed != 2 {
		t.Errorf("Failed = %d, want 2", result.Failed)
	}
	if result.Total() != 6 {
		t.Errorf("Total = %d, want 6", result.Total())
	}
	if !result.HasFailures() {
		t.Error("HasFailures should be true")
	}

	// Success mutates status, clears error, records the local path.
	if items[0].DownloadStatus != types.DownloadSuccess {
		t.Errorf("items[0] status = %q, want success", items[0].DownloadStatus)
	}
	wantPath := filepath.Join(dir, "i0001_Attention_Is_All_You_Need.pdf")
	if items[0].LocalPath != wantPath {
		t.Errorf("items[0] local_path = %q, want %q", items[0].LocalPath, wantPath)
	}
	data, readErr := os.ReadFile(wantPath)
	if readErr != nil {
		t.Fatalf("reading PDF: %v", readErr)
	}
	if string(data) != fakePDFContent {
		t.Errorf("PDF content = %q, want %q", string(data), fakePDFContent)
	}

	// Skips and exclusions leave the record untouched.
	if items[1].LocalPath != "/elsewhere/i0002.pdf" {
		t.Errorf("items[1] local_path = %q, should be untouched", items[1].LocalPath)
	}
	if items[2].DownloadStatus != types.DownloadPending {
		t.Errorf("items[2] status = %q, should be untouched", items[2].DownloadStatus)
	}

	if items[3].DownloadStatus != types.DownloadUnavailable {
		t.Errorf("items[3] status = %q, want unavailable", items[3].DownloadStatus)
	}
	if items[3].DownloadError != "no PDF URL" {
		t.Errorf("items[3] error = %q, want 'no PDF URL'", items[3].DownloadError)
	}

	if items[4].DownloadStatus != types.DownloadFailed {
		t.Errorf("items[4] status = %q, want failed", items[4].DownloadStatus)
	}
	if !strings.Contains(items[4].DownloadError, "HTTP 404") {
		t.Errorf("items[4] error = %q, want 'HTTP 404'", items[4].DownloadError)
	}

	if len(result.FailedItems) != 2 {
		t.Fatalf("len(FailedItems) = %d, want 2", len(result.FailedItems))
	}
	rec := result.FailedItems[0]
	if rec.ID != "i0005" {
		t.Errorf("FailedItems[0].ID = %q, want i0005", rec.ID)
	}
	if rec.Domain != strings.TrimPrefix(ts.URL, "http://") {
		t.Errorf("Domain = %q, want %q", rec.Domain, strings.TrimPrefix(ts.URL, "http://"))
	}
	if len(rec.AlternativeURLs) != 1 || rec.AlternativeURLs[0] != "https://example.com/abs/5" {
		t.Errorf("AlternativeURLs = %v", rec.AlternativeURLs)
	}
	if rec.FailedAt == "" {
		t.Error("FailedAt should be set")
	}
	if !strings.Contains(result.FailedItems[1].Error, "not a PDF") {
		t.Errorf("FailedItems[1].Error = %q, want 'not a PDF'", result.FailedItems[1].Error)
	}

	out := buf.String()
	for _, want := range []string{
		"downloading: i0001",
		"skipped: i0002 (already downloaded)",
		"unavailable: i0004 (no PDF URL)",
		"failed:  i0005",
		"Batch summary: 1 downloaded, 1 skipped, 1 unavailable, 2 failed (total: 6)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q in:\n%s", want, out)
		}
	}
}

func TestDownloadBatchSecondRunSkips(t *testing.T) {
	hits := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, fakePDFContent)
	}))
	defer ts.Close()

	items := []types.Item{
		{ID: "i0001", Title: "Once Only", URLs: types.URLs{PDF: ts.URL + "/a.pdf"}},
	}
	dir := t.TempDir()

	if _, err := DownloadBatch(context.Background(), ts.Client(), items, dir, testCfg(), &bytes.Buffer{}); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if hits != 1 {
		t.Fatalf("hits after first run = %d, want 1", hits)
	}

	result, err := DownloadBatch(context.Background(), ts.Client(), items, dir, testCfg(), &bytes.Buffer{})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if hits != 1 {
		t.Errorf("hits after second run = %d, want 1", hits)
	}
	if result.Skipped != 1 || result.Downloaded != 0 {
		t.Errorf("second run = %d skipped, %d downloaded; want 1, 0", result.Skipped, result.Downloaded)
	}
}

func TestDownloadBatchAppliesDelay(t *testing.T) {
	ts := downloadTestServer()
	defer ts.Close()

	items := []types.Item{
		{ID: "i0001", Title: "First", URLs: types.URLs{PDF: ts.URL + "/pdf/ok.pdf"}},
		{ID: "i0002", Title: "Second", URLs: types.URLs{PDF: ts.URL + "/pdf/ok.pdf"}},
	}
	cfg := testCfg()
	cfg.DownloadDelay = 30 * time.Millisecond

	start := time.Now()
	if _, err := DownloadBatch(context.Background(), ts.Client(), items, t.TempDir(), cfg, &bytes.Buffer{}); err != nil {
		t.Fatalf("DownloadBatch: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("elapsed = %v, want at least 30ms between fetches", elapsed)
	}
}

func TestStats(t *testing.T) {
	items := []types.Item{
		{DownloadStatus: types.DownloadSuccess},
		{DownloadStatus: types.DownloadSuccess},
		{DownloadStatus: types.DownloadFailed},
		{DownloadStatus: types.DownloadUnavailable},
		{DownloadStatus: types.DownloadPending},
		{},
	}
	got := Stats(items)
	if got.Success != 2 {
		t.Errorf("Success = %d, want 2", got.Success)
	}
	if got.Failed != 2 {
		t.Errorf("Failed = %d, want 2", got.Failed)
	}
	if got.Pending != 2 {
		t.Errorf("Pending = %d, want 2", got.Pending)
	}
}
