// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PotatoDog1669/insight-pilot/internal/httputil"
	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

// githubAPIBase is the GitHub REST endpoint. Declared as a var so tests can
// substitute an httptest server.
var githubAPIBase = "https://api.github.com"

// githubReadmeCap bounds how much README text is kept as the item abstract.
const githubReadmeCap = 5000

// githubSearchCap is the hard ceiling the search API serves per query.
const githubSearchCap = 1000

// GithubCollector searches GitHub repositories (R3.4). For the first few
// repositories it also fetches the README and records any paper links
// (arXiv or DOI references) found there.
type GithubCollector struct {
	Client *http.Client
}

// Name returns the source identifier.
func (c *GithubCollector) Name() string { return "github" }

// Collect searches repositories matching the query. Repository records have
// no downloadable document, so items are always marked unavailable.
func (c *GithubCollector) Collect(ctx context.Context, query Query, cfg types.CollectConfig) ([]types.Item, error) {
	text := query.Text()
	if text == "" {
		return nil, fmt.Errorf("empty GitHub query")
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	repos, err := c.searchRepos(ctx, text, maxResults, cfg)
	if err != nil {
		return nil, err
	}

	// README fetches cost one extra request per repository, so
	// unauthenticated runs detail only a handful.
	detailLimit := 5
	if cfg.GithubToken != "" {
		detailLimit = 20
	}

	var items []types.Item
	for i, repo := range repos {
		readme := ""
		if i < detailLimit && repo.FullName != "" {
			// A missing README is common and not worth failing the
			// whole collection for.
			if text, err := c.fetchReadme(ctx, repo.FullName, cfg); err == nil {
				readme = text
			}
		}
		items = append(items, githubItem(repo, readme))
	}
	return items, nil
}

func (c *GithubCollector) searchRepos(ctx context.Context, text string, limit int, cfg types.CollectConfig) ([]githubRepo, error) {
	perPage := limit
	if perPage > 100 {
		perPage = 100
	}
	if perPage < 1 {
		perPage = 1
	}

	var repos []githubRepo
	for page := 1; len(repos) < limit; page++ {
		params := url.Values{
			"q":        {text},
			"per_page": {strconv.Itoa(perPage)},
			"page":     {strconv.Itoa(page)},
		}
		body, err := c.get(ctx, cfg, githubAPIBase+"/search/repositories?"+params.Encode(), "application/vnd.github+json")
		if err != nil {
			return nil, err
		}

		var payload struct {
			Items []githubRepo `json:"items"`
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("parsing GitHub response: %w", err)
		}
		if len(payload.Items) == 0 {
			break
		}
		repos = append(repos, payload.Items...)
		if len(payload.Items) < perPage {
			break
		}
		if page*perPage >= githubSearchCap {
			break
		}
	}
	if len(repos) > limit {
		repos = repos[:limit]
	}
	return repos, nil
}

// fetchReadme returns the repository README as raw text, truncated to
// githubReadmeCap characters.
func (c *GithubCollector) fetchReadme(ctx context.Context, fullName string, cfg types.CollectConfig) (string, error) {
	body, err := c.get(ctx, cfg, githubAPIBase+"/repos/"+fullName+"/readme", "application/vnd.github.raw+json")
	if err != nil {
		return "", err
	}
	text := string(body)
	if runes := []rune(text); len(runes) > githubReadmeCap {
		text = strings.TrimRight(string(runes[:githubReadmeCap]), " \t\n") + "..."
	}
	return text, nil
}

func (c *GithubCollector) get(ctx context.Context, cfg types.CollectConfig, rawURL, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", cfg.UserAgent)
	if cfg.GithubToken != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.GithubToken)
	}

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("GitHub API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("GitHub API returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading GitHub response: %w", err)
	}
	return body, nil
}

// githubItem maps a repository to the standard item shape.
func githubItem(repo githubRepo, readme string) types.Item {
	fullName := repo.FullName
	if fullName == "" {
		fullName = repo.Name
	}

	date := repo.PushedAt
	if date == "" {
		date = repo.CreatedAt
	}

	urls := types.URLs{
		Abstract:  repo.HTMLURL,
		Publisher: repo.Homepage,
	}
	for i, link := range extractPaperLinks(readme) {
		if i >= 5 {
			break
		}
		if urls.Other == nil {
			urls.Other = make(map[string]string)
		}
		urls.Other[fmt.Sprintf("paper_%d", i+1)] = link
	}

	item := types.Item{
		Type:     types.TypeGithub,
		Title:    fullName,
		Date:     date,
		Summary:  repo.Description,
		Abstract: strings.TrimSpace(readme),
		Identifiers: types.Identifiers{
			Other: map[string]string{
				"github_id": strconv.FormatInt(repo.ID, 10),
				"full_name": fullName,
			},
		},
		URLs:           urls,
		DownloadStatus: types.DownloadUnavailable,
		Source:         types.StringList{"github"},
		CollectedAt:    types.UTCNow(),
	}
	if repo.Owner.Login != "" {
		item.Authors = []string{repo.Owner.Login}
	}
	return item
}

var paperLinkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`https?://arxiv\.org/(?:abs|pdf)/[^\s)]+`),
	regexp.MustCompile(`https?://doi\.org/[^\s)]+`),
	regexp.MustCompile(`\b10\.\d{4,9}/[-._;()/:A-Za-z0-9]+\b`),
}

// extractPaperLinks pulls arXiv and DOI references out of README text. Bare
// DOIs are normalized to resolver URLs. Matches keep first-appearance order
// per pattern, without repetition.
func extractPaperLinks(text string) []string {
	if text == "" {
		return nil
	}
	seen := make(map[string]bool)
	var links []string
	for _, pattern := range paperLinkPatterns {
		for _, match := range pattern.FindAllString(text, -1) {
			if strings.HasPrefix(match, "10.") {
				match = "https://doi.org/" + match
			}
			if !seen[match] {
				seen[match] = true
				links = append(links, match)
			}
		}
	}
	return links
}

// GitHub API JSON structures.
type githubRepo struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	FullName    string      `json:"full_name"`
	Description string      `json:"description"`
	HTMLURL     string      `json:"html_url"`
	Homepage    string      `json:"homepage"`
	PushedAt    string      `json:"pushed_at"`
	CreatedAt   string      `json:"created_at"`
	Owner       githubOwner `json:"owner"`
}

type githubOwner struct {
	Login string `json:"login"`
}
