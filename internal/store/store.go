// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists papers, research atoms, synthesis reports,
// usage quotas, and crawler settings in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Toyhom/PaperInsight/pkg/types"
)

const (
	defaultQuotaLimit = 3
	defaultQuery      = "cat:cs.AI"
	defaultCrawlMax   = 5
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("not found")

// Store manages the SQLite database.
type Store struct {
	db         *sql.DB
	quotaLimit int
}

// Open opens or creates the database at cfg.Path and creates the schema
// if it does not exist.
func Open(cfg types.StorageConfig) (*Store, error) {
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	quotaLimit := cfg.QuotaLimit
	if quotaLimit <= 0 {
		quotaLimit = defaultQuotaLimit
	}

	s := &Store{db: db, quotaLimit: quotaLimit}

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
		`CREATE TABLE IF NOT EXISTS papers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			arxiv_id TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			pdf_url TEXT,
			raw_text_summary TEXT,
			is_processed INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS atoms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			paper_id INTEGER NOT NULL REFERENCES papers(id) ON DELETE CASCADE,
			type TEXT NOT NULL,
			content_en TEXT NOT NULL,
			content_cn TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_atoms_paper_id ON atoms(paper_id)`,
		`CREATE INDEX IF NOT EXISTS idx_atoms_type ON atoms(type)`,
		`CREATE TABLE IF NOT EXISTS synthesis_reports (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			input_atoms TEXT NOT NULL,
			result_markdown TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS usage_quotas (
			user_id TEXT PRIMARY KEY,
			synthesis_count INTEGER NOT NULL DEFAULT 0,
			synthesis_limit INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS crawler_settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			enabled INTEGER NOT NULL,
			query TEXT NOT NULL,
			max_results INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ingest_steps (
			step_key TEXT PRIMARY KEY,
			result TEXT NOT NULL,
			completed_at TEXT NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='atoms_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE atoms_fts USING fts5(content_en, content=atoms, content_rowid=id)`,
			`CREATE TRIGGER atoms_ai AFTER INSERT ON atoms BEGIN
				INSERT INTO atoms_fts(rowid, content_en) VALUES (new.id, new.content_en);
			END`,
			`CREATE TRIGGER atoms_ad AFTER DELETE ON atoms BEGIN
				INSERT INTO atoms_fts(atoms_fts, rowid, content_en) VALUES('delete', old.id, old.content_en);
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

// PaperExists reports whether a paper with the given external identifier
// is already stored. Pure read; this is the dedup gate.
func (s *Store) PaperExists(ctx context.Context, arxivID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM papers WHERE arxiv_id = ?`, arxivID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking paper %s: %w", arxivID, err)
	}
	return n > 0, nil
}

// SavePaperWithAtoms inserts the paper row and then its atom rows. The
// two writes are deliberately not wrapped in one transaction: if the
// atom insert fails after the paper insert succeeded, the paper stays
// as a processed zero-atom record. That inconsistency is recoverable
// and accepted rather than rolled back.
func (s *Store) SavePaperWithAtoms(ctx context.Context, paper *types.Paper, atoms []types.ExtractedAtom) (int64, error) {
	if paper.CreatedAt.IsZero() {
		paper.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO papers (arxiv_id, title, pdf_url, raw_text_summary, is_processed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		paper.ArxivID, paper.Title, paper.PDFURL, paper.RawText,
		boolToInt(paper.Processed), paper.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting paper %s: %w", paper.ArxivID, err)
	}

	paperID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading paper id: %w", err)
	}
	paper.ID = paperID

	stmt, err := s.db.PrepareContext(ctx,
		`INSERT INTO atoms (paper_id, type, content_en, content_cn) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return paperID, fmt.Errorf("preparing atom insert: %w", err)
	}
	defer stmt.Close()

	for i, a := range atoms {
		if _, err := stmt.ExecContext(ctx, paperID, string(a.Kind), a.ContentEN, a.ContentCN); err != nil {
			return paperID, fmt.Errorf("inserting atom %d for %s: %w", i, paper.ArxivID, err)
		}
	}

	return paperID, nil
}

// AtomsByIDs fetches atoms with their parent paper titles, returned in
// the order of the requested ids. Ids with no matching atom are simply
// absent from the result.
func (s *Store) AtomsByIDs(ctx context.Context, ids []int64) ([]types.SourcedAtom, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.paper_id, a.type, a.content_en, a.content_cn, p.title
		 FROM atoms a JOIN papers p ON p.id = a.paper_id
		 WHERE a.id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching atoms: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]types.SourcedAtom, len(ids))
	for rows.Next() {
		var sa types.SourcedAtom
		var kind string
		if err := rows.Scan(&sa.ID, &sa.PaperID, &kind, &sa.ContentEN, &sa.ContentCN, &sa.PaperTitle); err != nil {
			return nil, fmt.Errorf("scanning atom: %w", err)
		}
		sa.Kind = types.AtomKind(kind)
		byID[sa.ID] = sa
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading atoms: %w", err)
	}

	result := make([]types.SourcedAtom, 0, len(byID))
	for _, id := range ids {
		if sa, ok := byID[id]; ok {
			result = append(result, sa)
		}
	}
	return result, nil
}

// SearchAtoms runs an FTS5 full-text query over atom content and returns
// up to limit matches ranked by relevance.
func (s *Store) SearchAtoms(ctx context.Context, query string, limit int) ([]types.SourcedAtom, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.paper_id, a.type, a.content_en, a.content_cn, p.title
		 FROM atoms_fts f
		 JOIN atoms a ON a.id = f.rowid
		 JOIN papers p ON p.id = a.paper_id
		 WHERE atoms_fts MATCH ?
		 ORDER BY rank
		 LIMIT ?`, ftsQuote(query), limit)
	if err != nil {
		return nil, fmt.Errorf("searching atoms: %w", err)
	}
	defer rows.Close()

	var result []types.SourcedAtom
	for rows.Next() {
		var sa types.SourcedAtom
		var kind string
		if err := rows.Scan(&sa.ID, &sa.PaperID, &kind, &sa.ContentEN, &sa.ContentCN, &sa.PaperTitle); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		sa.Kind = types.AtomKind(kind)
		result = append(result, sa)
	}
	return result, rows.Err()
}

// ftsQuote wraps each term in double quotes so user input cannot invoke
// FTS5 query syntax.
func ftsQuote(query string) string {
	terms := strings.Fields(query)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, ``) + `"`
	}
	return strings.Join(terms, " ")
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// InsertReport persists a finished synthesis report.
func (s *Store) InsertReport(ctx context.Context, report *types.SynthesisReport) error {
	atomsJSON, err := json.Marshal(report.AtomIDs)
	if err != nil {
		return fmt.Errorf("marshaling atom ids: %w", err)
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO synthesis_reports (id, user_id, input_atoms, result_markdown, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		report.ID, report.UserID, string(atomsJSON), report.ResultMarkdown,
		report.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting report %s: %w", report.ID, err)
	}
	return nil
}

// ReportByID fetches a persisted synthesis report.
func (s *Store) ReportByID(ctx context.Context, id string) (*types.SynthesisReport, error) {
	var report types.SynthesisReport
	var atomsJSON, createdAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, input_atoms, result_markdown, created_at
		 FROM synthesis_reports WHERE id = ?`, id,
	).Scan(&report.ID, &report.UserID, &atomsJSON, &report.ResultMarkdown, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("report %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching report %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(atomsJSON), &report.AtomIDs); err != nil {
		return nil, fmt.Errorf("parsing atom ids for report %s: %w", id, err)
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		report.CreatedAt = t
	}
	return &report, nil
}

// Quota returns the user's synthesis counters. A user with no quota row
// gets a zero count and the default limit.
func (s *Store) Quota(ctx context.Context, userID string) (types.UsageQuota, error) {
	q := types.UsageQuota{UserID: userID, Limit: s.quotaLimit}

	err := s.db.QueryRowContext(ctx,
		`SELECT synthesis_count, synthesis_limit FROM usage_quotas WHERE user_id = ?`, userID,
	).Scan(&q.Count, &q.Limit)
	if err == sql.ErrNoRows {
		return q, nil
	}
	if err != nil {
		return q, fmt.Errorf("fetching quota for %s: %w", userID, err)
	}
	return q, nil
}

// IncrementQuota bumps the user's synthesis count, creating the row with
// the default limit on first use. This is a bare counter update; callers
// check the limit separately, so the limit is soft under concurrency.
func (s *Store) IncrementQuota(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO usage_quotas (user_id, synthesis_count, synthesis_limit) VALUES (?, 1, ?)
		 ON CONFLICT(user_id) DO UPDATE SET synthesis_count = synthesis_count + 1`,
		userID, s.quotaLimit,
	)
	if err != nil {
		return fmt.Errorf("incrementing quota for %s: %w", userID, err)
	}
	return nil
}

// CrawlerSettings returns the singleton crawler configuration, or the
// defaults (disabled, "cat:cs.AI", 5) when none has been saved.
func (s *Store) CrawlerSettings(ctx context.Context) (types.CrawlerSettings, error) {
	settings := types.CrawlerSettings{Query: defaultQuery, MaxResults: defaultCrawlMax}

	var enabled int
	err := s.db.QueryRowContext(ctx,
		`SELECT enabled, query, max_results FROM crawler_settings WHERE id = 1`,
	).Scan(&enabled, &settings.Query, &settings.MaxResults)
	if err == sql.ErrNoRows {
		return settings, nil
	}
	if err != nil {
		return settings, fmt.Errorf("fetching crawler settings: %w", err)
	}
	settings.Enabled = enabled != 0
	return settings, nil
}

// PutCrawlerSettings saves the singleton crawler configuration.
func (s *Store) PutCrawlerSettings(ctx context.Context, settings types.CrawlerSettings) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO crawler_settings (id, enabled, query, max_results) VALUES (1, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			enabled=excluded.enabled, query=excluded.query, max_results=excluded.max_results`,
		boolToInt(settings.Enabled), settings.Query, settings.MaxResults,
	)
	if err != nil {
		return fmt.Errorf("saving crawler settings: %w", err)
	}
	return nil
}

// StepResult returns the journaled result for a completed ingestion
// step, if one exists.
func (s *Store) StepResult(ctx context.Context, key string) (string, bool, error) {
	var result string
	err := s.db.QueryRowContext(ctx,
		`SELECT result FROM ingest_steps WHERE step_key = ?`, key,
	).Scan(&result)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading step %s: %w", key, err)
	}
	return result, true, nil
}

// RecordStep journals a completed ingestion step so a restarted workflow
// replays its result instead of redoing the work.
func (s *Store) RecordStep(ctx context.Context, key, result string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ingest_steps (step_key, result, completed_at) VALUES (?, ?, ?)
		 ON CONFLICT(step_key) DO UPDATE SET result=excluded.result, completed_at=excluded.completed_at`,
		key, result, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("recording step %s: %w", key, err)
	}
	return nil
}
