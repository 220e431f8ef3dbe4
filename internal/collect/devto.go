// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PotatoDog1669/insight-pilot/internal/httputil"
	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

// devtoAPIBase is the Dev.to (Forem) API endpoint. Declared as a var so
// tests can substitute an httptest server.
var devtoAPIBase = "https://dev.to/api"

// devtoDetailLimit caps how many articles get a follow-up fetch for the full
// markdown body. The list endpoint returns only summaries.
const devtoDetailLimit = 10

// DevtoCollector searches Dev.to articles (R3.5).
type DevtoCollector struct {
	Client *http.Client
}

// Name returns the source identifier.
func (c *DevtoCollector) Name() string { return "devto" }

// Collect searches articles matching the query. Dev.to posts are web-native,
// so items are always marked unavailable for download.
func (c *DevtoCollector) Collect(ctx context.Context, query Query, cfg types.CollectConfig) ([]types.Item, error) {
	text := query.Text()
	if text == "" {
		return nil, fmt.Errorf("empty Dev.to query")
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	articles, err := c.searchArticles(ctx, text, maxResults, cfg)
	if err != nil {
		return nil, err
	}

	var items []types.Item
	for i, article := range articles {
		if i < devtoDetailLimit && article.ID > 0 {
			detail, err := c.fetchArticle(ctx, article.ID, cfg)
			if err != nil {
				return nil, err
			}
			article = detail
		}
		items = append(items, devtoItem(article))
	}
	return items, nil
}

func (c *DevtoCollector) searchArticles(ctx context.Context, text string, limit int, cfg types.CollectConfig) ([]devtoArticle, error) {
	perPage := limit
	if perPage > 100 {
		perPage = 100
	}
	if perPage < 1 {
		perPage = 1
	}

	var articles []devtoArticle
	for page := 1; len(articles) < limit; page++ {
		params := url.Values{
			"search":   {text},
			"per_page": {strconv.Itoa(perPage)},
			"page":     {strconv.Itoa(page)},
		}
		body, err := c.get(ctx, cfg, devtoAPIBase+"/articles?"+params.Encode())
		if err != nil {
			return nil, err
		}

		var batch []devtoArticle
		if err := json.Unmarshal(body, &batch); err != nil {
			return nil, fmt.Errorf("parsing Dev.to response: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		articles = append(articles, batch...)
		if len(batch) < perPage {
			break
		}
	}
	if len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, nil
}

func (c *DevtoCollector) fetchArticle(ctx context.Context, id int64, cfg types.CollectConfig) (devtoArticle, error) {
	body, err := c.get(ctx, cfg, fmt.Sprintf("%s/articles/%d", devtoAPIBase, id))
	if err != nil {
		return devtoArticle{}, err
	}
	var article devtoArticle
	if err := json.Unmarshal(body, &article); err != nil {
		return devtoArticle{}, fmt.Errorf("parsing Dev.to article: %w", err)
	}
	return article, nil
}

func (c *DevtoCollector) get(ctx context.Context, cfg types.CollectConfig, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("Dev.to API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Dev.to API returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading Dev.to response: %w", err)
	}
	return body, nil
}

// devtoItem maps an article to the standard item shape.
func devtoItem(article devtoArticle) types.Item {
	date := article.PublishedAt
	if date == "" {
		date = article.CreatedAt
	}
	if len(date) > 10 {
		date = date[:10]
	}

	item := types.Item{
		Type:     types.TypeBlog,
		Title:    article.Title,
		Date:     date,
		Summary:  article.Description,
		Abstract: strings.TrimSpace(article.BodyMarkdown),
		Identifiers: types.Identifiers{
			Other: map[string]string{
				"devto_id": strconv.FormatInt(article.ID, 10),
				"slug":     article.Slug,
			},
		},
		URLs: types.URLs{
			Abstract:  article.URL,
			Publisher: article.CanonicalURL,
		},
		DownloadStatus: types.DownloadUnavailable,
		Source:         types.StringList{"devto"},
		CollectedAt:    types.UTCNow(),
	}
	if article.User.Name != "" {
		item.Authors = []string{article.User.Name}
	}
	if article.CoverImage != "" {
		item.URLs.Other = map[string]string{"cover_image": article.CoverImage}
	}
	return item
}

// Dev.to API JSON structures.
type devtoArticle struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	BodyMarkdown string    `json:"body_markdown"`
	Slug         string    `json:"slug"`
	URL          string    `json:"url"`
	CanonicalURL string    `json:"canonical_url"`
	CoverImage   string    `json:"cover_image"`
	PublishedAt  string    `json:"published_at"`
	CreatedAt    string    `json:"created_at"`
	User         devtoUser `json:"user"`
}

type devtoUser struct {
	Name string `json:"name"`
}
