// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package collect

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PotatoDog1669/insight-pilot/internal/httputil"
	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests can
// substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

// ArxivCollector queries the arXiv API (R3.1).
type ArxivCollector struct {
	Client *http.Client
}

// Name returns the source identifier.
func (c *ArxivCollector) Name() string { return "arxiv" }

// Collect queries the arXiv API and returns paper records sorted by
// submission date, newest first.
func (c *ArxivCollector) Collect(ctx context.Context, query Query, cfg types.CollectConfig) ([]types.Item, error) {
	q, err := buildArxivQuery(query.Text(), cfg.TimeRange)
	if err != nil {
		return nil, err
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	params := url.Values{
		"search_query": {q},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(maxResults)},
		"sortBy":       {"submittedDate"},
		"sortOrder":    {"descending"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	var items []types.Item
	for _, entry := range feed.Entries {
		id := extractArxivID(entry.ID)
		if id == "" {
			continue
		}

		// arXiv papers without a registered DOI still have the DataCite
		// one derived from the arXiv ID.
		doi := strings.TrimSpace(entry.DOI)
		if doi == "" {
			doi = "10.48550/arXiv." + id
		}

		pdf := ""
		for _, l := range entry.Links {
			if l.Type == "application/pdf" {
				pdf = l.Href
				break
			}
		}
		if pdf == "" {
			pdf = "https://arxiv.org/pdf/" + id
		}

		item := types.Item{
			Type:     types.TypePaper,
			Title:    collapseSpace(entry.Title),
			Abstract: strings.TrimSpace(entry.Summary),
			Identifiers: types.Identifiers{
				DOI:     doi,
				ArxivID: id,
			},
			URLs: types.URLs{
				Abstract: strings.TrimSpace(entry.ID),
				PDF:      pdf,
			},
			DownloadStatus: types.DownloadPending,
			Source:         types.StringList{"arxiv"},
			CollectedAt:    types.UTCNow(),
		}
		for _, a := range entry.Authors {
			if name := strings.TrimSpace(a.Name); name != "" {
				item.Authors = append(item.Authors, name)
			}
		}
		if len(entry.Published) >= 10 {
			item.Date = entry.Published[:10]
		}

		items = append(items, item)
	}
	return items, nil
}

// buildArxivQuery constructs the search_query parameter. Date bounds map to a
// submittedDate range filter; arXiv requires both ends, so a half-open range
// is an error.
func buildArxivQuery(text string, tr types.TimeRange) (string, error) {
	if text == "" {
		return "", fmt.Errorf("empty arXiv query")
	}
	q := "all:" + text

	if tr.Start == "" && tr.End == "" {
		return q, nil
	}
	if tr.Start == "" || tr.End == "" {
		return "", fmt.Errorf("arXiv date filtering needs both start and end dates")
	}

	start, err := arxivDate(tr.Start, "0000")
	if err != nil {
		return "", err
	}
	end, err := arxivDate(tr.End, "2359")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s AND submittedDate:[%s TO %s]", q, start, end), nil
}

// arxivDate converts an ISO date to the YYYYMMDDHHMM form arXiv expects.
func arxivDate(iso, hhmm string) (string, error) {
	digits := strings.ReplaceAll(iso, "-", "")
	if len(digits) != 8 {
		return "", fmt.Errorf("date %q must be YYYY-MM-DD", iso)
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("date %q must be YYYY-MM-DD", iso)
		}
	}
	return digits + hhmm, nil
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID        string        `xml:"id"`
	Title     string        `xml:"title"`
	Summary   string        `xml:"summary"`
	Published string        `xml:"published"`
	DOI       string        `xml:"doi"`
	Authors   []arxivAuthor `xml:"author"`
	Links     []arxivLink   `xml:"link"`
}

type arxivAuthor struct {
	Name string `xml:"name"`
}

type arxivLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" becomes "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	id := strings.TrimSpace(idURL[idx+len(prefix):])

	// Strip version suffix (e.g. "v1", "v2").
	if vIdx := strings.LastIndex(id, "v"); vIdx > 0 {
		if _, err := strconv.Atoi(id[vIdx+1:]); err == nil {
			id = id[:vIdx]
		}
	}
	return id
}

// collapseSpace flattens runs of whitespace. arXiv wraps long titles and
// abstracts with embedded newlines.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
