// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// PaperCandidate is a paper descriptor produced by the arXiv source
// fetcher before any paper-specific work has been done.
type PaperCandidate struct {
	// ArxivID is the stable external identifier used for deduplication
	// (e.g. "2301.07041v1", or "manual-<uuid>" for uploads).
	ArxivID string `json:"arxiv_id" yaml:"arxiv_id"`

	// Title is the paper title with whitespace collapsed.
	Title string `json:"title" yaml:"title"`

	// PDFURL is the URL of the PDF rendition.
	PDFURL string `json:"pdf_url" yaml:"pdf_url"`

	// Summary is the abstract text, used as fallback when full-text
	// extraction fails.
	Summary string `json:"summary" yaml:"summary"`
}

// Paper is a persisted paper record. Created once by the ingestion
// pipeline after successful extraction; never updated in place.
type Paper struct {
	// ID is the synthetic database key.
	ID int64 `json:"id" yaml:"id"`

	// ArxivID is the unique external identifier.
	ArxivID string `json:"arxiv_id" yaml:"arxiv_id"`

	// Title is the paper title.
	Title string `json:"title" yaml:"title"`

	// PDFURL is the source PDF URL.
	PDFURL string `json:"pdf_url" yaml:"pdf_url"`

	// RawText is the extracted full text, truncated for storage.
	RawText string `json:"raw_text_summary" yaml:"raw_text_summary"`

	// Processed reports whether the paper went through extraction.
	Processed bool `json:"is_processed" yaml:"is_processed"`

	// CreatedAt is the insertion timestamp.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}
