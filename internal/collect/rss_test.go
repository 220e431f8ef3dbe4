// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package collect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

// --- matchesQuery ---

func TestMatchesQuery(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		content string
		query   string
		want    bool
	}{
		{"empty query matches", "Anything", "at all", "", true},
		{"title match", "Scaling Transformers", "", "transformers", true},
		{"content match", "Untitled", "notes on transformers", "Transformers", true},
		{"case insensitive", "SCALING TRANSFORMERS", "", "transformers", true},
		{"no match", "Quantum Errors", "error correction", "transformers", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchesQuery(tt.title, tt.content, tt.query); got != tt.want {
				t.Errorf("matchesQuery(%q, %q, %q) = %v, want %v", tt.title, tt.content, tt.query, got, tt.want)
			}
		})
	}
}

// --- Mock feed server ---

const sampleRSSFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>Example Engineering Blog</title>
    <link>https://blog.example.com</link>
    <item>
      <title>Scaling Transformers</title>
      <link>/posts/scaling-transformers</link>
      <guid isPermaLink="false">post-101</guid>
      <pubDate>Mon, 02 Jan 2023 15:04:05 GMT</pubDate>
      <dc:creator>Jane Doe</dc:creator>
      <description>How we scaled attention layers.</description>
      <content:encoded><![CDATA[<p>Full post about transformers.</p>]]></content:encoded>
    </item>
    <item>
      <title>Quantum Errors</title>
      <link>https://blog.example.com/posts/quantum-errors</link>
      <guid isPermaLink="false">post-102</guid>
      <pubDate>Tue, 14 Feb 2023 08:00:00 GMT</pubDate>
      <dc:creator>Bob Lee</dc:creator>
      <description>Error correction notes.</description>
    </item>
  </channel>
</rss>`

func feedTestServer(body string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, body)
	}))
}

// --- fetchFeed ---

func TestFetchFeed(t *testing.T) {
	ts := feedTestServer(sampleRSSFeed)
	defer ts.Close()

	feedURL := ts.URL + "/feed.xml"
	items, err := fetchFeed(context.Background(), ts.Client(), feedURL, 10, "", testCfg())
	if err != nil {
		t.Fatalf("fetchFeed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}

	it := items[0]
	if it.Type != types.TypeBlog {
		t.Errorf("Type = %q, want blog", it.Type)
	}
	if it.Title != "Scaling Transformers" {
		t.Errorf("Title = %q", it.Title)
	}
	// The relative entry link resolves against the feed URL.
	if it.URLs.Abstract != ts.URL+"/posts/scaling-transformers" {
		t.Errorf("Abstract URL = %q", it.URLs.Abstract)
	}
	if it.Identifiers.Other["rss_id"] != "post-101" {
		t.Errorf("rss_id = %q", it.Identifiers.Other["rss_id"])
	}
	if it.Date != "2023-01-02" {
		t.Errorf("Date = %q, want 2023-01-02", it.Date)
	}
	if len(it.Authors) != 1 || it.Authors[0] != "Jane Doe" {
		t.Errorf("Authors = %v", it.Authors)
	}
	if it.Summary != "How we scaled attention layers." {
		t.Errorf("Summary = %q", it.Summary)
	}
	// content:encoded wins over the description as the body.
	if it.Abstract != "<p>Full post about transformers.</p>" {
		t.Errorf("Abstract = %q", it.Abstract)
	}
	if it.DownloadStatus != types.DownloadUnavailable {
		t.Errorf("DownloadStatus = %q, want unavailable", it.DownloadStatus)
	}
	if !it.Source.Contains("rss") {
		t.Errorf("Source = %v", it.Source)
	}

	// Second entry has no content:encoded, so the description doubles as
	// the body.
	if items[1].Abstract != "Error correction notes." {
		t.Errorf("Abstract = %q", items[1].Abstract)
	}
}

func TestFetchFeedFiltersByQuery(t *testing.T) {
	ts := feedTestServer(sampleRSSFeed)
	defer ts.Close()

	items, err := fetchFeed(context.Background(), ts.Client(), ts.URL, 10, "transformers", testCfg())
	if err != nil {
		t.Fatalf("fetchFeed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	if items[0].Title != "Scaling Transformers" {
		t.Errorf("Title = %q", items[0].Title)
	}
}

func TestFetchFeedHonorsLimit(t *testing.T) {
	ts := feedTestServer(sampleRSSFeed)
	defer ts.Close()

	items, err := fetchFeed(context.Background(), ts.Client(), ts.URL, 1, "", testCfg())
	if err != nil {
		t.Fatalf("fetchFeed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("len(items) = %d, want 1", len(items))
	}
}

func TestFetchFeedUnparseable(t *testing.T) {
	ts := feedTestServer("this is not a feed")
	defer ts.Close()

	_, err := fetchFeed(context.Background(), ts.Client(), ts.URL, 10, "", testCfg())
	if err == nil {
		t.Fatal("expected parse error")
	}
}
