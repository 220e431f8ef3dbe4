// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package collect

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// detectPlatform guesses the blog platform from page HTML. Ghost sites embed
// a Content API key; WordPress sites reference wp-json or wp-content.
// Unrecognized sites return an empty string.
func detectPlatform(html string) string {
	lower := strings.ToLower(html)
	if strings.Contains(lower, "contentapikey") || strings.Contains(lower, "content-api-key") {
		return "ghost"
	}
	if strings.Contains(lower, "ghost") && strings.Contains(lower, "ghost.org") {
		return "ghost"
	}
	if strings.Contains(lower, "wp-json") || strings.Contains(lower, "wordpress") || strings.Contains(lower, "wp-content") {
		return "wordpress"
	}
	return ""
}

var ghostKeyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)contentApiKey":"([a-f0-9]{24,})"`),
	regexp.MustCompile(`(?i)content_api_key":"([a-f0-9]{24,})"`),
	regexp.MustCompile(`(?i)data-ghost-api-key="([a-f0-9]{24,})"`),
	regexp.MustCompile(`(?i)content-api-key" content="([a-f0-9]{24,})"`),
}

// discoverGhostKey pulls the Ghost Content API key out of page HTML. Public
// themes embed the key in inline script or meta tags.
func discoverGhostKey(html string) string {
	for _, pattern := range ghostKeyPatterns {
		if m := pattern.FindStringSubmatch(html); m != nil {
			return m[1]
		}
	}
	return ""
}

// commonFeedPaths are well-known paths to probe when link discovery finds
// nothing in the page HTML.
var commonFeedPaths = []string{
	"/feed",
	"/rss",
	"/feed.xml",
	"/rss.xml",
	"/atom.xml",
	"/index.xml",
}

// discoverFeedURL finds the advertised RSS or Atom feed in page HTML,
// resolved against the page URL. Returns an empty string when the page
// advertises none.
func discoverFeedURL(html, pageURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	sel := doc.Find(`link[type="application/rss+xml"], link[type="application/atom+xml"]`).First()
	href, ok := sel.Attr("href")
	if !ok || href == "" {
		return ""
	}
	return resolveURL(pageURL, href)
}

// resolveURL resolves ref against base, returning ref unchanged when either
// fails to parse.
func resolveURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

// baseURL reduces a page URL to scheme://host, where platform APIs live.
func baseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return raw
	}
	return u.Scheme + "://" + u.Host
}
