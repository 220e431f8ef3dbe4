// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog maintains a searchable SQLite index over collected items
// and their analyses.
// Implements: prd007-catalog (R1-R4);
//
//	docs/ARCHITECTURE.md § Catalog.
package catalog

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/PotatoDog1669/insight-pilot/pkg/types"
)

const dbFile = "catalog.db"

// AnalysisLoader fetches the stored analysis for an item, returning nil
// without error when the item has not been analyzed.
type AnalysisLoader func(itemID string) (*types.Analysis, error)

// Store manages the catalog SQLite database.
type Store struct {
	db         *sql.DB
	dir        string
	maxResults int
}

// NewStore opens or creates the catalog database at dir/catalog.db and
// ensures the schema exists (R1.1, R1.2).
func NewStore(dir string, cfg types.CatalogConfig) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, dir: dir, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS items (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			type TEXT,
			title TEXT,
			authors TEXT,
			date TEXT,
			abstract TEXT,
			summary TEXT,
			tags TEXT,
			sources TEXT,
			status TEXT,
			download_status TEXT,
			relevance REAL,
			analyzed_by TEXT,
			content_hash TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_items_type ON items(type)`,
		`CREATE INDEX IF NOT EXISTS idx_items_status ON items(status)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='items_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE items_fts USING fts5(
				title, abstract, summary, authors, tags,
				content=items, content_rowid=rowid)`,
			`CREATE TRIGGER items_ai AFTER INSERT ON items BEGIN
				INSERT INTO items_fts(rowid, title, abstract, summary, authors, tags)
				VALUES (new.rowid, new.title, new.abstract, new.summary, new.authors, new.tags);
			END`,
			`CREATE TRIGGER items_ad AFTER DELETE ON items BEGIN
				INSERT INTO items_fts(items_fts, rowid, title, abstract, summary, authors, tags)
				VALUES('delete', old.rowid, old.title, old.abstract, old.summary, old.authors, old.tags);
			END`,
			`CREATE TRIGGER items_au AFTER UPDATE ON items BEGIN
				INSERT INTO items_fts(items_fts, rowid, title, abstract, summary, authors, tags)
				VALUES('delete', old.rowid, old.title, old.abstract, old.summary, old.authors, old.tags);
				INSERT INTO items_fts(rowid, title, abstract, summary, authors, tags)
				VALUES (new.rowid, new.title, new.abstract, new.summary, new.authors, new.tags);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// IngestSummary holds counts from a catalog indexing run (R2.4).
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of items processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest upserts items and their analyses into the catalog. Unchanged items
// are detected by content hash and skipped (R2.1-R2.3). A nil loader
// catalogs items without analysis fields. On success it refreshes
// export.yaml (R4.3).
func (s *Store) Ingest(ctx context.Context, items []types.Item, load AnalysisLoader, w io.Writer) (IngestSummary, error) {
	var summary IngestSummary

	for _, it := range items {
		if it.ID == "" {
			continue
		}

		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		var a *types.Analysis
		if load != nil {
			var err error
			a, err = load(it.ID)
			if err != nil {
				fmt.Fprintf(w, "failed  %s: %v\n", it.ID, err)
				summary.Failed++
				continue
			}
		}

		hash := contentHash(it, a)

		var storedHash string
		err := s.db.QueryRowContext(ctx,
			`SELECT content_hash FROM items WHERE id = ?`, it.ID,
		).Scan(&storedHash)

		if err == nil && storedHash == hash {
			fmt.Fprintf(w, "skipped %s\n", it.ID)
			summary.Skipped++
			continue
		}
		if err != nil && err != sql.ErrNoRows {
			fmt.Fprintf(w, "failed  %s: %v\n", it.ID, err)
			summary.Failed++
			continue
		}

		isUpdate := err == nil

		if err := s.ingestItem(ctx, it, a, hash, isUpdate); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", it.ID, err)
			summary.Failed++
			continue
		}

		if isUpdate {
			fmt.Fprintf(w, "updated %s\n", it.ID)
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s\n", it.ID)
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)

	// Refresh export.yaml after changes (R4.3).
	if summary.Indexed > 0 || summary.Updated > 0 {
		if err := s.ExportYAML(ctx, QueryOptions{}); err != nil {
			fmt.Fprintf(w, "warning: export.yaml write failed: %v\n", err)
		}
	}

	return summary, nil
}

func (s *Store) ingestItem(ctx context.Context, it types.Item, a *types.Analysis, hash string, isUpdate bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// Delete-then-insert keeps the FTS triggers simple on update.
	if isUpdate {
		if _, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, it.ID); err != nil {
			return fmt.Errorf("deleting old record: %w", err)
		}
	}

	authorsJSON, _ := json.Marshal(it.Authors)
	sourcesJSON, _ := json.Marshal([]string(it.Source))

	var (
		summary    string
		tagsJSON   = "[]"
		relevance  float64
		analyzedBy string
	)
	if a != nil {
		summary = a.Summary
		if data, err := json.Marshal(a.Tags); err == nil {
			tagsJSON = string(data)
		}
		relevance = a.RelevanceScore
		analyzedBy = a.AnalyzedBy
	}

	status := string(it.Status)
	if status == "" {
		status = string(types.StatusActive)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO items (id, type, title, authors, date, abstract, summary,
			tags, sources, status, download_status, relevance, analyzed_by, content_hash)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID, string(it.Type), it.Title, string(authorsJSON), it.Date, it.Abstract,
		summary, tagsJSON, string(sourcesJSON), status, string(it.DownloadStatus),
		relevance, analyzedBy, hash,
	)
	if err != nil {
		return fmt.Errorf("inserting item: %w", err)
	}

	return tx.Commit()
}

// contentHash fingerprints an item together with its analysis so unchanged
// records can be skipped on re-ingestion.
func contentHash(it types.Item, a *types.Analysis) string {
	h := sha256.New()
	enc := json.NewEncoder(h)
	_ = enc.Encode(it)
	if a != nil {
		_ = enc.Encode(a)
	}
	return hex.EncodeToString(h.Sum(nil))
}
