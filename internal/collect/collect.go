// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package collect queries literature sources and returns loosely-shaped item
// records for the merge stage to normalize. Implements: prd001-collection
// (R1-R5);
//
//	docs/ARCHITECTURE.md § Collection.
package collect

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PotatoDog1669/insight-pilot/internal/sources"
	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

// Collector queries a single literature source. Each source (arXiv, OpenAlex,
// PubMed, GitHub, Dev.to, the blog registry) implements this interface per
// the Strategy pattern (R2.1).
type Collector interface {
	Name() string
	Collect(ctx context.Context, query Query, cfg types.CollectConfig) ([]types.Item, error)
}

// Query holds the collection parameters (R1.1, R1.2).
type Query struct {
	// Topic is the project research topic, used when no keywords are set.
	Topic string

	// Keywords are explicit query terms. When present they replace the topic.
	Keywords []string
}

// Text returns the search string sent to sources: the keywords joined by
// spaces, or the topic when no keywords are configured.
func (q Query) Text() string {
	var parts []string
	for _, kw := range q.Keywords {
		if kw = strings.TrimSpace(kw); kw != "" {
			parts = append(parts, kw)
		}
	}
	if len(parts) > 0 {
		return strings.Join(parts, " ")
	}
	return strings.TrimSpace(q.Topic)
}

// IsEmpty reports whether the query contains no searchable terms (R1.4).
func (q Query) IsEmpty() bool {
	return q.Text() == ""
}

// Output holds one result wrapper per collector, in the order the collectors
// were given, plus any per-source failure messages.
type Output struct {
	Results      []types.SearchResult
	SourceErrors []string
}

// Items returns the total record count across all sources.
func (o Output) Items() int {
	n := 0
	for _, r := range o.Results {
		n += len(r.Results)
	}
	return n
}

// Run fans the query out to all collectors concurrently and gathers one
// wrapper per source (R2.2). A failing source yields a wrapper with Error set
// and no records, so a partial run still persists raw results for the sources
// that succeeded (R2.4). Warnings for failed sources go to w.
func Run(ctx context.Context, query Query, collectors []Collector, cfg types.CollectConfig, w io.Writer) (Output, error) {
	if query.IsEmpty() {
		return Output{}, fmt.Errorf("query is empty: provide a topic or keywords")
	}
	if len(collectors) == 0 {
		return Output{}, fmt.Errorf("no sources enabled")
	}

	type sourceResult struct {
		index int
		name  string
		items []types.Item
		err   error
	}

	ch := make(chan sourceResult, len(collectors))
	var wg sync.WaitGroup

	for i, c := range collectors {
		if i > 0 && cfg.InterSourceDelay > 0 {
			time.Sleep(cfg.InterSourceDelay)
		}
		wg.Add(1)
		go func(i int, c Collector) {
			defer wg.Done()
			items, err := c.Collect(ctx, query, cfg)
			ch <- sourceResult{index: i, name: c.Name(), items: items, err: err}
		}(i, c)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	queryText := query.Text()
	out := Output{Results: make([]types.SearchResult, len(collectors))}
	for sr := range ch {
		wrapper := types.SearchResult{
			Source:    sr.name,
			Query:     queryText,
			Timestamp: types.UTCNow(),
			Results:   sr.items,
		}
		if sr.err != nil {
			wrapper.Error = sr.err.Error()
			wrapper.Results = nil
			out.SourceErrors = append(out.SourceErrors, fmt.Sprintf("%s: %v", sr.name, sr.err))
			fmt.Fprintf(w, "warning: source %s failed: %v\n", sr.name, sr.err)
		}
		out.Results[sr.index] = wrapper
	}

	return out, nil
}

// BuildCollectors resolves enabled source names into collector instances.
// Blog-platform sources come from the registry. Unknown names fail so config
// typos surface before any network traffic (R2.3).
func BuildCollectors(enabled []string, client *http.Client, blogs []sources.Source) ([]Collector, error) {
	var cs []Collector
	for _, name := range enabled {
		switch name {
		case "arxiv":
			cs = append(cs, &ArxivCollector{Client: client})
		case "openalex":
			cs = append(cs, &OpenAlexCollector{Client: client})
		case "pubmed":
			cs = append(cs, &PubMedCollector{Client: client})
		case "github":
			cs = append(cs, &GithubCollector{Client: client})
		case "devto":
			cs = append(cs, &DevtoCollector{Client: client})
		case "blog":
			cs = append(cs, &BlogCollector{Client: client, Sources: blogs})
		default:
			return nil, fmt.Errorf("unknown source %q (supported: arxiv, openalex, pubmed, github, devto, blog)", name)
		}
	}
	return cs, nil
}
