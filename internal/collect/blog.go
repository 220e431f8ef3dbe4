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

	"github.com/mmcdole/gofeed"

	"github.com/PotatoDog1669/insight-pilot/internal/httputil"
	"github.com/PotatoDog1669/insight-pilot/internal/sources"
	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

// BlogCollector queries the blog sources registered in sources.yaml (R4).
// Each source is searched through its platform API (Ghost or WordPress),
// with an RSS fallback when the API is unreachable or unconfigured. Items
// that came through the fallback carry an access note saying so.
type BlogCollector struct {
	Client  *http.Client
	Sources []sources.Source
}

// Name returns the source identifier.
func (c *BlogCollector) Name() string { return "blog" }

// Collect searches every registered source, splitting the result cap evenly
// between them. Individual source failures are tolerated as long as at
// least one source yields records.
func (c *BlogCollector) Collect(ctx context.Context, query Query, cfg types.CollectConfig) ([]types.Item, error) {
	if len(c.Sources) == 0 {
		return nil, nil
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}
	perSource := maxResults / len(c.Sources)
	if perSource < 1 {
		perSource = 1
	}

	var items []types.Item
	var errs []string
	for _, src := range c.Sources {
		found, err := c.collectSource(ctx, src, query.Text(), perSource, cfg)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", src.Name, err))
			continue
		}
		items = append(items, found...)
	}
	if len(items) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("all blog sources failed: %s", strings.Join(errs, "; "))
	}
	if len(items) > maxResults {
		items = items[:maxResults]
	}
	return items, nil
}

func (c *BlogCollector) collectSource(ctx context.Context, src sources.Source, queryText string, limit int, cfg types.CollectConfig) ([]types.Item, error) {
	platform := src.Type
	if platform == "" || platform == "auto" {
		platform = c.detectSourcePlatform(ctx, src.URL, cfg)
	}

	base := baseURL(src.URL)
	fallbackReason := ""

	switch platform {
	case "ghost":
		key := src.APIKey
		if key == "" || key == "auto" {
			key = c.discoverKey(ctx, src.URL, cfg)
		}
		if key == "" {
			fallbackReason = "ghost API key not found"
		} else {
			items, err := c.searchGhost(ctx, base, key, queryText, limit, cfg)
			if err == nil {
				return labelSource(items, src), nil
			}
			fallbackReason = "ghost API failed"
		}
	case "wordpress":
		items, err := c.searchWordPress(ctx, base, queryText, limit, cfg)
		if err == nil {
			return labelSource(items, src), nil
		}
		fallbackReason = "wordpress API failed"
	}

	items, err := c.fallbackToFeed(ctx, src, queryText, limit, cfg)
	if err != nil {
		return nil, err
	}
	if fallbackReason != "" {
		for i := range items {
			items[i].AccessNote = "rss fallback: " + fallbackReason
		}
	}
	return labelSource(items, src), nil
}

// detectSourcePlatform probes the site HTML. Unreachable or unrecognized
// sites go down the RSS path.
func (c *BlogCollector) detectSourcePlatform(ctx context.Context, pageURL string, cfg types.CollectConfig) string {
	body, err := c.fetch(ctx, pageURL, cfg)
	if err != nil {
		return "rss"
	}
	if platform := detectPlatform(string(body)); platform != "" {
		return platform
	}
	return "rss"
}

func (c *BlogCollector) discoverKey(ctx context.Context, pageURL string, cfg types.CollectConfig) string {
	body, err := c.fetch(ctx, pageURL, cfg)
	if err != nil {
		return ""
	}
	return discoverGhostKey(string(body))
}

// fallbackToFeed locates the source's feed and parses it directly. The feed
// link advertised in the page HTML wins, then well-known feed paths are
// probed; otherwise the source URL itself is treated as a feed.
func (c *BlogCollector) fallbackToFeed(ctx context.Context, src sources.Source, queryText string, limit int, cfg types.CollectConfig) ([]types.Item, error) {
	feedURL := src.URL
	if body, err := c.fetch(ctx, src.URL, cfg); err == nil {
		if discovered := discoverFeedURL(string(body), src.URL); discovered != "" {
			feedURL = discovered
		} else if probed := c.probeFeedPaths(ctx, src.URL, cfg); probed != "" {
			feedURL = probed
		}
	}
	return fetchFeed(ctx, c.Client, feedURL, limit, queryText, cfg)
}

// probeFeedPaths tries well-known feed locations under the site root and
// returns the first one that parses as a non-empty feed.
func (c *BlogCollector) probeFeedPaths(ctx context.Context, pageURL string, cfg types.CollectConfig) string {
	base := baseURL(pageURL)
	for _, path := range commonFeedPaths {
		candidate := base + path
		body, err := c.fetch(ctx, candidate, cfg)
		if err != nil {
			continue
		}
		feed, err := gofeed.NewParser().ParseString(string(body))
		if err != nil || len(feed.Items) == 0 {
			continue
		}
		return candidate
	}
	return ""
}

func (c *BlogCollector) searchGhost(ctx context.Context, base, key, queryText string, limit int, cfg types.CollectConfig) ([]types.Item, error) {
	perPage := limit
	if perPage > 100 {
		perPage = 100
	}
	params := url.Values{
		"key":     {key},
		"limit":   {strconv.Itoa(perPage)},
		"include": {"tags,authors"},
	}
	if queryText != "" {
		params.Set("filter", `title:~"`+queryText+`"`)
	}

	body, err := c.fetch(ctx, base+"/ghost/api/content/posts/?"+params.Encode(), cfg)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Posts []ghostPost `json:"posts"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parsing Ghost response: %w", err)
	}

	var items []types.Item
	for i, post := range payload.Posts {
		if i >= limit {
			break
		}
		items = append(items, ghostItem(post))
	}
	return items, nil
}

func (c *BlogCollector) searchWordPress(ctx context.Context, base, queryText string, limit int, cfg types.CollectConfig) ([]types.Item, error) {
	perPage := limit
	if perPage > 100 {
		perPage = 100
	}
	if perPage < 1 {
		perPage = 1
	}

	var items []types.Item
	for page := 1; len(items) < limit; page++ {
		params := url.Values{
			"search":   {queryText},
			"per_page": {strconv.Itoa(perPage)},
			"page":     {strconv.Itoa(page)},
			"_embed":   {"1"},
		}
		body, err := c.fetch(ctx, base+"/wp-json/wp/v2/posts?"+params.Encode(), cfg)
		if err != nil {
			// WordPress answers with an error object once the page
			// number runs past the last page.
			if page > 1 {
				break
			}
			return nil, err
		}

		var posts []wordpressPost
		if err := json.Unmarshal(body, &posts); err != nil {
			return nil, fmt.Errorf("parsing WordPress response: %w", err)
		}
		if len(posts) == 0 {
			break
		}
		for _, post := range posts {
			items = append(items, wordpressItem(post))
		}
		if len(posts) < perPage {
			break
		}
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (c *BlogCollector) fetch(ctx context.Context, rawURL string, cfg types.CollectConfig) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned HTTP %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rawURL, err)
	}
	return body, nil
}

// labelSource stamps registry bookkeeping on items from a blog source and
// normalizes their source tag.
func labelSource(items []types.Item, src sources.Source) []types.Item {
	for i := range items {
		if items[i].Identifiers.Other == nil {
			items[i].Identifiers.Other = make(map[string]string)
		}
		items[i].Identifiers.Other["source_name"] = src.Name
		if src.Category != "" {
			items[i].Identifiers.Other["category"] = src.Category
		}
		items[i].Source = types.StringList{"blog"}
	}
	return items
}

// ghostItem maps a Ghost post to the standard item shape.
func ghostItem(post ghostPost) types.Item {
	date := post.PublishedAt
	if len(date) > 10 {
		date = date[:10]
	}
	abstract := post.HTML
	if abstract == "" {
		abstract = post.Plaintext
	}

	item := types.Item{
		Type:     types.TypeBlog,
		Title:    post.Title,
		Date:     date,
		Summary:  post.Excerpt,
		Abstract: abstract,
		Identifiers: types.Identifiers{
			Other: map[string]string{
				"ghost_id": post.ID,
				"slug":     post.Slug,
			},
		},
		URLs:           types.URLs{Abstract: post.URL},
		DownloadStatus: types.DownloadUnavailable,
		Source:         types.StringList{"blog"},
		CollectedAt:    types.UTCNow(),
	}
	for _, a := range post.Authors {
		if a.Name != "" {
			item.Authors = append(item.Authors, a.Name)
		}
	}
	if post.FeatureImage != "" {
		item.URLs.Other = map[string]string{"feature_image": post.FeatureImage}
	}
	return item
}

// wordpressItem maps a WordPress post to the standard item shape. Rendered
// fields carry HTML as the API returns it.
func wordpressItem(post wordpressPost) types.Item {
	date := post.Date
	if len(date) > 10 {
		date = date[:10]
	}

	item := types.Item{
		Type:     types.TypeBlog,
		Title:    post.Title.Rendered,
		Date:     date,
		Summary:  strings.TrimSpace(post.Excerpt.Rendered),
		Abstract: strings.TrimSpace(post.Content.Rendered),
		Identifiers: types.Identifiers{
			Other: map[string]string{
				"wordpress_id": strconv.FormatInt(post.ID, 10),
				"slug":         post.Slug,
			},
		},
		URLs:           types.URLs{Abstract: post.Link},
		DownloadStatus: types.DownloadUnavailable,
		Source:         types.StringList{"blog"},
		CollectedAt:    types.UTCNow(),
	}
	for _, a := range post.Embedded.Authors {
		if a.Name != "" {
			item.Authors = append(item.Authors, a.Name)
		}
	}
	return item
}

// Ghost Content API JSON structures.
type ghostPost struct {
	ID           string        `json:"id"`
	Slug         string        `json:"slug"`
	Title        string        `json:"title"`
	URL          string        `json:"url"`
	Excerpt      string        `json:"excerpt"`
	HTML         string        `json:"html"`
	Plaintext    string        `json:"plaintext"`
	FeatureImage string        `json:"feature_image"`
	PublishedAt  string        `json:"published_at"`
	Authors      []ghostAuthor `json:"authors"`
}

type ghostAuthor struct {
	Name string `json:"name"`
}

// WordPress REST API JSON structures.
type wordpressPost struct {
	ID       int64             `json:"id"`
	Slug     string            `json:"slug"`
	Date     string            `json:"date"`
	Link     string            `json:"link"`
	Title    wordpressRendered `json:"title"`
	Content  wordpressRendered `json:"content"`
	Excerpt  wordpressRendered `json:"excerpt"`
	Embedded wordpressEmbedded `json:"_embedded"`
}

type wordpressRendered struct {
	Rendered string `json:"rendered"`
}

type wordpressEmbedded struct {
	Authors []wordpressAuthor `json:"author"`
}

type wordpressAuthor struct {
	Name string `json:"name"`
}
