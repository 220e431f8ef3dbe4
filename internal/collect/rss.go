// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package collect

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mmcdole/gofeed"

	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

// fetchFeed parses an RSS or Atom feed into item records, keeping entries
// that mention the query in their title or body. Feeds carry no structured
// identifiers, so entries key on their GUID.
func fetchFeed(ctx context.Context, client *http.Client, feedURL string, limit int, queryText string, cfg types.CollectConfig) ([]types.Item, error) {
	parser := gofeed.NewParser()
	parser.Client = client
	parser.UserAgent = cfg.UserAgent

	feed, err := parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", feedURL, err)
	}

	var items []types.Item
	for _, entry := range feed.Items {
		if entry == nil {
			continue
		}
		title := strings.TrimSpace(entry.Title)
		content := strings.TrimSpace(entry.Content)
		if content == "" {
			content = strings.TrimSpace(entry.Description)
		}
		if !matchesQuery(title, content, queryText) {
			continue
		}

		link := entry.Link
		if link == "" {
			link = entry.GUID
		}
		if link != "" {
			link = resolveURL(feedURL, link)
		}

		item := types.Item{
			Type:     types.TypeBlog,
			Title:    title,
			Summary:  strings.TrimSpace(entry.Description),
			Abstract: content,
			Identifiers: types.Identifiers{
				Other: map[string]string{"rss_id": entry.GUID},
			},
			URLs:           types.URLs{Abstract: link},
			DownloadStatus: types.DownloadUnavailable,
			Source:         types.StringList{"rss"},
			CollectedAt:    types.UTCNow(),
		}

		if entry.PublishedParsed != nil {
			item.Date = entry.PublishedParsed.UTC().Format("2006-01-02")
		} else if entry.UpdatedParsed != nil {
			item.Date = entry.UpdatedParsed.UTC().Format("2006-01-02")
		}

		for _, person := range entry.Authors {
			if person != nil && person.Name != "" {
				item.Authors = append(item.Authors, person.Name)
			}
		}
		if len(item.Authors) == 0 && entry.Author != nil && entry.Author.Name != "" {
			item.Authors = append(item.Authors, entry.Author.Name)
		}

		items = append(items, item)
		if len(items) >= limit {
			break
		}
	}
	return items, nil
}

// matchesQuery reports whether the query appears in the title or body,
// case-insensitively. An empty query matches everything.
func matchesQuery(title, content, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(title), q) || strings.Contains(strings.ToLower(content), q)
}
