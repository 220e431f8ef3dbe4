// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/PotatoDog1669/insight-pilot/internal/httputil"
	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

// openAlexAPIBase is the OpenAlex Works endpoint. Declared as a var so tests
// can substitute an httptest server.
var openAlexAPIBase = "https://api.openalex.org/works"

// OpenAlexCollector queries the OpenAlex API (R3.2).
type OpenAlexCollector struct {
	Client *http.Client
}

// Name returns the source identifier.
func (c *OpenAlexCollector) Name() string { return "openalex" }

// Collect pages through OpenAlex cursor pagination until the result cap is
// reached or the cursor runs out.
func (c *OpenAlexCollector) Collect(ctx context.Context, query Query, cfg types.CollectConfig) ([]types.Item, error) {
	text := query.Text()
	if text == "" {
		return nil, fmt.Errorf("empty OpenAlex query")
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}
	perPage := maxResults
	if perPage > 200 {
		perPage = 200
	}

	var items []types.Item
	cursor := "*"
	for len(items) < maxResults {
		page, err := c.fetchPage(ctx, text, perPage, cursor, cfg)
		if err != nil {
			return nil, err
		}
		for _, work := range page.Results {
			items = append(items, openAlexItem(work))
		}
		cursor = page.Meta.NextCursor
		if cursor == "" || len(page.Results) == 0 {
			break
		}
	}
	if len(items) > maxResults {
		items = items[:maxResults]
	}
	return items, nil
}

func (c *OpenAlexCollector) fetchPage(ctx context.Context, text string, perPage int, cursor string, cfg types.CollectConfig) (openAlexResponse, error) {
	params := url.Values{
		"per-page": {strconv.Itoa(perPage)},
		"cursor":   {cursor},
	}

	var filters []string
	if cfg.TitleOnly {
		filters = append(filters, "title.search:"+text)
	} else {
		params.Set("search", text)
	}
	if cfg.TimeRange.Start != "" {
		filters = append(filters, "from_publication_date:"+cfg.TimeRange.Start)
	}
	if cfg.TimeRange.End != "" {
		filters = append(filters, "to_publication_date:"+cfg.TimeRange.End)
	}
	if len(filters) > 0 {
		params.Set("filter", strings.Join(filters, ","))
	}
	if cfg.OpenAlexMailto != "" {
		params.Set("mailto", cfg.OpenAlexMailto)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, openAlexAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return openAlexResponse{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, cfg.MaxRetries)
	if err != nil {
		return openAlexResponse{}, fmt.Errorf("OpenAlex API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return openAlexResponse{}, fmt.Errorf("OpenAlex API returned HTTP %d", resp.StatusCode)
	}

	var page openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return openAlexResponse{}, fmt.Errorf("parsing OpenAlex response: %w", err)
	}
	return page, nil
}

// openAlexItem maps a work to the standard item shape. Works with no PDF
// anywhere are marked unavailable so the download stage skips them.
func openAlexItem(work openAlexWork) types.Item {
	pdf := selectPDFURL(work)
	status := types.DownloadUnavailable
	if pdf != "" {
		status = types.DownloadPending
	}

	item := types.Item{
		Type:     types.TypePaper,
		Title:    work.Title,
		Date:     work.PublicationDate,
		Abstract: reconstructAbstract(work.AbstractInvertedIndex),
		Identifiers: types.Identifiers{
			DOI:        strings.TrimPrefix(work.IDs.DOI, "https://doi.org/"),
			OpenAlexID: work.IDs.OpenAlex,
		},
		URLs: types.URLs{
			Abstract:  work.ID,
			PDF:       pdf,
			Publisher: work.IDs.DOI,
		},
		CitationCount:  work.CitedByCount,
		DownloadStatus: status,
		Source:         types.StringList{"openalex"},
		CollectedAt:    types.UTCNow(),
	}
	for _, authorship := range work.Authorships {
		if authorship.Author.DisplayName != "" {
			item.Authors = append(item.Authors, authorship.Author.DisplayName)
		}
	}
	return item
}

// selectPDFURL picks the best available PDF link: the primary location, then
// the best open-access location, then the plain open-access URL.
func selectPDFURL(work openAlexWork) string {
	if work.PrimaryLocation.PDFURL != "" {
		return work.PrimaryLocation.PDFURL
	}
	if work.BestOALocation.PDFURL != "" {
		return work.BestOALocation.PDFURL
	}
	return work.OpenAccess.OAURL
}

// reconstructAbstract converts OpenAlex's abstract_inverted_index back to
// plain text. The inverted index maps each word to the positions where it
// appears.
func reconstructAbstract(invertedIndex map[string][]int) string {
	if len(invertedIndex) == 0 {
		return ""
	}

	type posWord struct {
		pos  int
		word string
	}
	var pairs []posWord
	for word, positions := range invertedIndex {
		for _, pos := range positions {
			pairs = append(pairs, posWord{pos: pos, word: word})
		}
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].pos < pairs[j].pos
	})

	words := make([]string, len(pairs))
	for i, p := range pairs {
		words[i] = p.word
	}
	return strings.Join(words, " ")
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Meta    openAlexMeta   `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexMeta struct {
	Count      int    `json:"count"`
	NextCursor string `json:"next_cursor"`
}

type openAlexWork struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	PublicationDate       string               `json:"publication_date"`
	CitedByCount          *int                 `json:"cited_by_count"`
	IDs                   openAlexIDs          `json:"ids"`
	Authorships           []openAlexAuthorship `json:"authorships"`
	AbstractInvertedIndex map[string][]int     `json:"abstract_inverted_index"`
	PrimaryLocation       openAlexLocation     `json:"primary_location"`
	BestOALocation        openAlexLocation     `json:"best_oa_location"`
	OpenAccess            openAlexOpenAccess   `json:"open_access"`
}

type openAlexIDs struct {
	OpenAlex string `json:"openalex"`
	DOI      string `json:"doi"`
}

type openAlexAuthorship struct {
	Author openAlexAuthor `json:"author"`
}

type openAlexAuthor struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type openAlexLocation struct {
	PDFURL string `json:"pdf_url"`
}

type openAlexOpenAccess struct {
	IsOA     bool   `json:"is_oa"`
	OAStatus string `json:"oa_status"`
	OAURL    string `json:"oa_url"`
}
