// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
)

// QueryOptions selects catalog entries (R3.1-R3.3). Query is matched against
// the full-text index; the remaining fields are exact filters.
type QueryOptions struct {
	Query      string
	Type       string
	Source     string
	Tags       []string
	Status     string
	MaxResults int
}

// IsEmpty reports whether no search constraint is set.
func (o QueryOptions) IsEmpty() bool {
	return o.Query == "" && o.Type == "" && o.Source == "" &&
		len(o.Tags) == 0 && o.Status == ""
}

// QueryResult is one catalog entry returned from a search.
type QueryResult struct {
	ID             string   `json:"id" yaml:"id"`
	Type           string   `json:"type" yaml:"type"`
	Title          string   `json:"title" yaml:"title"`
	Authors        []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Date           string   `json:"date,omitempty" yaml:"date,omitempty"`
	Abstract       string   `json:"abstract,omitempty" yaml:"abstract,omitempty"`
	Summary        string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Tags           []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Sources        []string `json:"sources,omitempty" yaml:"sources,omitempty"`
	Status         string   `json:"status" yaml:"status"`
	DownloadStatus string   `json:"download_status,omitempty" yaml:"download_status,omitempty"`
	Relevance      float64  `json:"relevance,omitempty" yaml:"relevance,omitempty"`
	AnalyzedBy     string   `json:"analyzed_by,omitempty" yaml:"analyzed_by,omitempty"`
}

// Retrieve searches the catalog. Full-text matches are ordered by rank,
// filter-only queries by item ID (R3.4).
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]QueryResult, error) {
	limit := opts.MaxResults
	if limit <= 0 {
		limit = s.maxResults
	}

	var query strings.Builder
	var args []interface{}

	query.WriteString(`SELECT i.id, i.type, i.title, i.authors, i.date, i.abstract,
		i.summary, i.tags, i.sources, i.status, i.download_status, i.relevance, i.analyzed_by`)

	if opts.Query != "" {
		query.WriteString(` FROM items_fts JOIN items i ON i.rowid = items_fts.rowid`)
		query.WriteString(` WHERE items_fts MATCH ?`)
		args = append(args, opts.Query)
	} else {
		query.WriteString(` FROM items i WHERE 1=1`)
	}

	if opts.Type != "" {
		query.WriteString(` AND i.type = ?`)
		args = append(args, opts.Type)
	}
	if opts.Source != "" {
		query.WriteString(` AND EXISTS (SELECT 1 FROM json_each(i.sources) WHERE value = ?)`)
		args = append(args, opts.Source)
	}
	for _, tag := range opts.Tags {
		query.WriteString(` AND EXISTS (SELECT 1 FROM json_each(i.tags) WHERE value = ?)`)
		args = append(args, tag)
	}
	if opts.Status != "" {
		query.WriteString(` AND i.status = ?`)
		args = append(args, opts.Status)
	}

	if opts.Query != "" {
		query.WriteString(` ORDER BY items_fts.rank`)
	} else {
		query.WriteString(` ORDER BY i.id`)
	}
	query.WriteString(` LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	var results []QueryResult
	for rows.Next() {
		var r QueryResult
		var authors, tags, sources sql.NullString
		if err := rows.Scan(&r.ID, &r.Type, &r.Title, &authors, &r.Date, &r.Abstract,
			&r.Summary, &tags, &sources, &r.Status, &r.DownloadStatus,
			&r.Relevance, &r.AnalyzedBy); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		if authors.Valid {
			_ = json.Unmarshal([]byte(authors.String), &r.Authors)
		}
		if tags.Valid {
			_ = json.Unmarshal([]byte(tags.String), &r.Tags)
		}
		if sources.Valid {
			_ = json.Unmarshal([]byte(sources.String), &r.Sources)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// WriteTable renders results as an aligned text table (R3.5).
func WriteTable(w io.Writer, results []QueryResult) error {
	if len(results) == 0 {
		fmt.Fprintln(w, "no matching items")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSCORE\tSTATUS\tDOWNLOAD\tTITLE")
	for _, r := range results {
		score := "-"
		if r.Relevance > 0 {
			score = strconv.FormatFloat(r.Relevance, 'f', 1, 64)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.ID, score, r.Status, r.DownloadStatus, truncateTitle(r.Title, 60))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d item(s)\n", len(results))
	return nil
}

// WriteJSON renders results as indented JSON (R3.5).
func WriteJSON(w io.Writer, results []QueryResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}

func truncateTitle(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
