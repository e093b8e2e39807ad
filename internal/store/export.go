// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/Toyhom/PaperInsight/pkg/types"
)

// ExportEntry holds one atom with its paper metadata for export.
type ExportEntry struct {
	ID        int64  `json:"id" yaml:"id"`
	Type      string `json:"type" yaml:"type"`
	ContentEN string `json:"content_en" yaml:"content_en"`
	ContentCN string `json:"content_cn" yaml:"content_cn"`
	Paper     string `json:"paper" yaml:"paper"`
	ArxivID   string `json:"arxiv_id" yaml:"arxiv_id"`
}

// ExportAtomsYAML writes the full atom library to w as YAML, ordered by
// paper then atom id.
func (s *Store) ExportAtomsYAML(ctx context.Context, w io.Writer) error {
	entries, err := s.exportEntries(ctx)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// ExportAtomsJSON writes the full atom library to w as indented JSON.
func (s *Store) ExportAtomsJSON(ctx context.Context, w io.Writer) error {
	entries, err := s.exportEntries(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}

func (s *Store) exportEntries(ctx context.Context) ([]ExportEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.type, a.content_en, a.content_cn, p.title, p.arxiv_id
		 FROM atoms a JOIN papers p ON p.id = a.paper_id
		 ORDER BY a.paper_id, a.id`)
	if err != nil {
		return nil, fmt.Errorf("querying for export: %w", err)
	}
	defer rows.Close()

	var entries []ExportEntry
	for rows.Next() {
		var e ExportEntry
		if err := rows.Scan(&e.ID, &e.Type, &e.ContentEN, &e.ContentCN, &e.Paper, &e.ArxivID); err != nil {
			return nil, fmt.Errorf("scanning export row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// PaperByArxivID fetches a stored paper by its external identifier.
func (s *Store) PaperByArxivID(ctx context.Context, arxivID string) (*types.Paper, error) {
	var p types.Paper
	var processed int
	var createdAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, arxiv_id, title, pdf_url, raw_text_summary, is_processed, created_at
		 FROM papers WHERE arxiv_id = ?`, arxivID,
	).Scan(&p.ID, &p.ArxivID, &p.Title, &p.PDFURL, &p.RawText, &processed, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("paper %s: %w", arxivID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching paper %s: %w", arxivID, err)
	}
	p.Processed = processed != 0
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		p.CreatedAt = t
	}
	return &p, nil
}
