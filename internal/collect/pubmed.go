// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package collect

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PotatoDog1669/insight-pilot/internal/httputil"
	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

// pubmedAPIBase is the NCBI E-utilities endpoint. Declared as a var so tests
// can substitute an httptest server.
var pubmedAPIBase = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"

// pubmedMinInterval spaces requests to at most three per second, the NCBI
// limit for unauthenticated clients.
var pubmedMinInterval = time.Second / 3

// pubmedChunkSize caps how many PMIDs go into one esummary or efetch call.
const pubmedChunkSize = 200

var (
	pubmedMu   sync.Mutex
	pubmedLast time.Time
)

func pubmedThrottle() {
	pubmedMu.Lock()
	defer pubmedMu.Unlock()
	if wait := pubmedMinInterval - time.Since(pubmedLast); wait > 0 {
		time.Sleep(wait)
	}
	pubmedLast = time.Now()
}

// PubMedCollector queries the NCBI E-utilities (R3.3). A collection runs in
// three steps: esearch for PMIDs, esummary for metadata, efetch for
// abstracts and article IDs.
type PubMedCollector struct {
	Client *http.Client
}

// Name returns the source identifier.
func (c *PubMedCollector) Name() string { return "pubmed" }

// Collect queries PubMed and returns paper records. NCBI requires a contact
// email on every request, so an unset pubmed_email is an error.
func (c *PubMedCollector) Collect(ctx context.Context, query Query, cfg types.CollectConfig) ([]types.Item, error) {
	if cfg.PubMedEmail == "" {
		return nil, fmt.Errorf("pubmed_email is required for PubMed API requests")
	}
	text := query.Text()
	if text == "" {
		return nil, fmt.Errorf("empty PubMed query")
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	pmids, err := c.esearch(ctx, text, maxResults, cfg)
	if err != nil {
		return nil, err
	}
	if len(pmids) == 0 {
		return nil, nil
	}

	summaries := make(map[string]pubmedSummary)
	for _, chunk := range chunkStrings(pmids, pubmedChunkSize) {
		if err := c.esummary(ctx, chunk, cfg, summaries); err != nil {
			return nil, err
		}
	}

	details := make(map[string]pubmedDetail)
	for _, chunk := range chunkStrings(pmids, pubmedChunkSize) {
		if err := c.efetch(ctx, chunk, cfg, details); err != nil {
			return nil, err
		}
	}

	var items []types.Item
	for _, pmid := range pmids {
		summary, ok := summaries[pmid]
		if !ok {
			continue
		}
		items = append(items, pubmedItem(pmid, summary, details[pmid]))
	}
	return items, nil
}

func (c *PubMedCollector) get(ctx context.Context, cfg types.CollectConfig, endpoint string, params url.Values) ([]byte, error) {
	pubmedThrottle()
	params.Set("email", cfg.PubMedEmail)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pubmedAPIBase+"/"+endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.Client, req, cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("PubMed API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("PubMed API returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading PubMed response: %w", err)
	}
	return body, nil
}

func (c *PubMedCollector) esearch(ctx context.Context, text string, limit int, cfg types.CollectConfig) ([]string, error) {
	params := url.Values{
		"db":      {"pubmed"},
		"term":    {text},
		"retmax":  {strconv.Itoa(limit)},
		"retmode": {"json"},
	}
	body, err := c.get(ctx, cfg, "esearch.fcgi", params)
	if err != nil {
		return nil, err
	}

	var payload struct {
		ESearchResult struct {
			IDList []string `json:"idlist"`
		} `json:"esearchresult"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("parsing esearch response: %w", err)
	}
	return payload.ESearchResult.IDList, nil
}

// esummary decodes metadata into out. The response maps each PMID to its
// record with a "uids" list alongside, so fields decode in two passes.
func (c *PubMedCollector) esummary(ctx context.Context, pmids []string, cfg types.CollectConfig, out map[string]pubmedSummary) error {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(pmids, ",")},
		"retmode": {"json"},
	}
	body, err := c.get(ctx, cfg, "esummary.fcgi", params)
	if err != nil {
		return err
	}

	var payload struct {
		Result map[string]json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("parsing esummary response: %w", err)
	}

	var uids []string
	if raw, ok := payload.Result["uids"]; ok {
		if err := json.Unmarshal(raw, &uids); err != nil {
			return fmt.Errorf("parsing esummary uids: %w", err)
		}
	}
	for _, uid := range uids {
		raw, ok := payload.Result[uid]
		if !ok {
			continue
		}
		var s pubmedSummary
		if err := json.Unmarshal(raw, &s); err != nil {
			return fmt.Errorf("parsing esummary record %s: %w", uid, err)
		}
		out[uid] = s
	}
	return nil
}

// efetch decodes abstracts and article IDs from the XML form into out.
func (c *PubMedCollector) efetch(ctx context.Context, pmids []string, cfg types.CollectConfig, out map[string]pubmedDetail) error {
	params := url.Values{
		"db":      {"pubmed"},
		"id":      {strings.Join(pmids, ",")},
		"retmode": {"xml"},
	}
	body, err := c.get(ctx, cfg, "efetch.fcgi", params)
	if err != nil {
		return err
	}

	var set pubmedArticleSet
	if err := xml.Unmarshal(body, &set); err != nil {
		return fmt.Errorf("parsing efetch response: %w", err)
	}

	for _, article := range set.Articles {
		pmid := strings.TrimSpace(article.PMID)
		if pmid == "" {
			continue
		}

		// Structured abstracts carry section labels (BACKGROUND,
		// METHODS, ...) that are kept as prefixes.
		var parts []string
		for _, ab := range article.AbstractTexts {
			text := strings.TrimSpace(ab.Text)
			if text == "" {
				continue
			}
			if ab.Label != "" {
				parts = append(parts, ab.Label+": "+text)
			} else {
				parts = append(parts, text)
			}
		}

		detail := pubmedDetail{Abstract: strings.Join(parts, " ")}
		for _, id := range article.ArticleIDs {
			value := strings.TrimSpace(id.Value)
			switch id.IDType {
			case "doi":
				detail.DOI = value
			case "pmc":
				detail.PMC = value
			}
		}
		out[pmid] = detail
	}
	return nil
}

// pubmedItem maps the summary and detail records to the standard item shape.
// Articles with a PubMed Central deposit get a PDF URL; the rest are marked
// unavailable.
func pubmedItem(pmid string, summary pubmedSummary, detail pubmedDetail) types.Item {
	doi := detail.DOI
	if doi == "" {
		doi = strings.TrimSpace(strings.TrimPrefix(summary.ELocationID, "doi:"))
	}

	pdf := ""
	if detail.PMC != "" {
		pdf = fmt.Sprintf("https://www.ncbi.nlm.nih.gov/pmc/articles/%s/pdf/", detail.PMC)
	}
	status := types.DownloadUnavailable
	if pdf != "" {
		status = types.DownloadPending
	}

	other := map[string]string{"pmid": pmid}
	if detail.PMC != "" {
		other["pmc"] = detail.PMC
	}

	publisher := ""
	if doi != "" {
		publisher = "https://doi.org/" + doi
	}

	item := types.Item{
		Type:     types.TypePaper,
		Title:    summary.Title,
		Date:     normalizePubDate(summary.PubDate),
		Abstract: detail.Abstract,
		Identifiers: types.Identifiers{
			DOI:   doi,
			Other: other,
		},
		URLs: types.URLs{
			Abstract:  "https://pubmed.ncbi.nlm.nih.gov/" + pmid + "/",
			PDF:       pdf,
			Publisher: publisher,
		},
		DownloadStatus: status,
		Source:         types.StringList{"pubmed"},
		CollectedAt:    types.UTCNow(),
	}
	for _, a := range summary.Authors {
		if a.Name != "" {
			item.Authors = append(item.Authors, a.Name)
		}
	}
	return item
}

// normalizePubDate converts PubMed date strings ("2023 Mar 15", "2024 Jan",
// "2022") to ISO form, keeping whatever precision the record has.
// Unrecognized values yield an empty string.
func normalizePubDate(value string) string {
	parts := strings.Fields(strings.ReplaceAll(value, ",", " "))
	if len(parts) == 0 {
		return ""
	}
	year := parts[0]
	if !allDigits(year) {
		return ""
	}

	month := ""
	if len(parts) >= 2 {
		m := strings.ToLower(parts[1])
		if len(m) > 3 {
			m = m[:3]
		}
		month = pubmedMonths[m]
	}

	day := ""
	if len(parts) >= 3 && allDigits(parts[2]) {
		day = parts[2]
		if len(day) == 1 {
			day = "0" + day
		}
	}

	switch {
	case month != "" && day != "":
		return year + "-" + month + "-" + day
	case month != "":
		return year + "-" + month
	default:
		return year
	}
}

var pubmedMonths = map[string]string{
	"jan": "01", "feb": "02", "mar": "03", "apr": "04",
	"may": "05", "jun": "06", "jul": "07", "aug": "08",
	"sep": "09", "oct": "10", "nov": "11", "dec": "12",
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// chunkStrings splits values into runs of at most size.
func chunkStrings(values []string, size int) [][]string {
	if size <= 0 {
		return [][]string{values}
	}
	var chunks [][]string
	for start := 0; start < len(values); start += size {
		end := start + size
		if end > len(values) {
			end = len(values)
		}
		chunks = append(chunks, values[start:end])
	}
	return chunks
}

// PubMed efetch XML structures.
type pubmedArticleSet struct {
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	PMID          string            `xml:"MedlineCitation>PMID"`
	AbstractTexts []pubmedAbstract  `xml:"MedlineCitation>Article>Abstract>AbstractText"`
	ArticleIDs    []pubmedArticleID `xml:"PubmedData>ArticleIdList>ArticleId"`
}

type pubmedAbstract struct {
	Label string `xml:"Label,attr"`
	Text  string `xml:",chardata"`
}

type pubmedArticleID struct {
	IDType string `xml:"IdType,attr"`
	Value  string `xml:",chardata"`
}

// PubMed esummary JSON structures.
type pubmedSummary struct {
	UID         string         `json:"uid"`
	Title       string         `json:"title"`
	PubDate     string         `json:"pubdate"`
	Source      string         `json:"source"`
	ELocationID string         `json:"elocationid"`
	Authors     []pubmedAuthor `json:"authors"`
}

type pubmedAuthor struct {
	Name string `json:"name"`
}

type pubmedDetail struct {
	Abstract string
	DOI      string
	PMC      string
}
