// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest sequences the paper-ingestion workflow: fetch, dedup,
// text acquisition, atom extraction, persistence. Each stage is a named,
// journaled step; one paper's failure never aborts its siblings.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/Toyhom/PaperInsight/pkg/types"
)

// storageTextLimit bounds the raw text kept on the paper row.
const storageTextLimit = 50000

// SourceFetcher queries the external search API for candidate papers.
type SourceFetcher interface {
	Fetch(ctx context.Context, query string, max int) ([]types.PaperCandidate, error)
}

// TextAcquirer obtains full text for a PDF URL.
type TextAcquirer interface {
	ExtractText(ctx context.Context, url string) (string, error)
}

// AtomExtractor turns paper text into research atoms.
type AtomExtractor interface {
	Extract(ctx context.Context, title, text string) ([]types.ExtractedAtom, error)
}

// PaperRepository persists papers and answers the dedup gate.
type PaperRepository interface {
	PaperExists(ctx context.Context, arxivID string) (bool, error)
	SavePaperWithAtoms(ctx context.Context, paper *types.Paper, atoms []types.ExtractedAtom) (int64, error)
}

// Orchestrator drives the ingestion pipeline. All collaborators are
// injected so tests can substitute doubles.
type Orchestrator struct {
	Fetcher SourceFetcher
	Texts   TextAcquirer
	Atoms   AtomExtractor
	Repo    PaperRepository
	Steps   StepRunner
}

// RunBatch ingests all papers matching query, sequentially, and returns
// one status entry per candidate. runID scopes the step journal so a
// restarted batch replays completed stages; cross-run idempotency comes
// from the dedup gate on the external identifier.
//
// A fetch failure is fatal to the whole call; every later failure is
// confined to its paper.
func (o *Orchestrator) RunBatch(ctx context.Context, runID, query string, max int, w io.Writer) (types.BatchResult, error) {
	raw, err := o.Steps.Step(ctx, "fetch-arxiv-daily", runID, func(ctx context.Context) (string, error) {
		candidates, err := o.Fetcher.Fetch(ctx, query, max)
		if err != nil {
			return "", err
		}
		data, err := json.Marshal(candidates)
		if err != nil {
			return "", fmt.Errorf("marshaling candidates: %w", err)
		}
		return string(data), nil
	})
	if err != nil {
		return types.BatchResult{}, fmt.Errorf("fetching candidates: %w", err)
	}

	var candidates []types.PaperCandidate
	if err := json.Unmarshal([]byte(raw), &candidates); err != nil {
		return types.BatchResult{}, fmt.Errorf("parsing journaled candidates: %w", err)
	}

	fmt.Fprintf(w, "fetched %d candidate(s) for %q\n", len(candidates), query)

	var result types.BatchResult
	for _, cand := range candidates {
		result.Results = append(result.Results, o.processPaper(ctx, runID, cand, w))
	}

	fmt.Fprintf(w, "\nprocessed: %d, skipped: %d, failed: %d\n",
		result.Processed(), result.Skipped(), result.Failed())

	return result, nil
}

// processPaper walks one candidate through dedup, acquisition,
// extraction, and persistence. Every error becomes a failed status for
// this paper only.
func (o *Orchestrator) processPaper(ctx context.Context, runID string, cand types.PaperCandidate, w io.Writer) types.PaperResult {
	key := runID + "/" + cand.ArxivID

	exists, err := o.Steps.Step(ctx, "check-exists", key, func(ctx context.Context) (string, error) {
		ok, err := o.Repo.PaperExists(ctx, cand.ArxivID)
		if err != nil {
			return "", err
		}
		return strconv.FormatBool(ok), nil
	})
	if err != nil {
		return o.failed(cand.ArxivID, err, w)
	}
	if exists == "true" {
		fmt.Fprintf(w, "skipped %s (already exists)\n", cand.ArxivID)
		return types.PaperResult{ArxivID: cand.ArxivID, Status: types.StatusSkipped}
	}

	// Batch path: an acquisition failure falls back to the abstract.
	rawText, err := o.Steps.Step(ctx, "parse-pdf", key, func(ctx context.Context) (string, error) {
		text, err := o.Texts.ExtractText(ctx, cand.PDFURL)
		if err != nil {
			fmt.Fprintf(w, "  warning: text extraction failed for %s, using abstract: %v\n", cand.ArxivID, err)
			return cand.Summary, nil
		}
		return text, nil
	})
	if err != nil {
		return o.failed(cand.ArxivID, err, w)
	}

	return o.extractAndSave(ctx, key, cand.ArxivID, cand.Title, cand.PDFURL, rawText, w)
}

// RunSingle ingests one already-uploaded paper. There is no fallback
// text here: an acquisition failure is fatal to the paper, because
// silently proceeding with empty text would persist garbage the user
// never supplied.
func (o *Orchestrator) RunSingle(ctx context.Context, runID, pdfURL, title, arxivID string, w io.Writer) types.PaperResult {
	key := runID + "/" + arxivID

	fmt.Fprintf(w, "processing upload %s (%s)\n", title, arxivID)

	rawText, err := o.Steps.Step(ctx, "parse-local-pdf", key, func(ctx context.Context) (string, error) {
		return o.Texts.ExtractText(ctx, pdfURL)
	})
	if err != nil {
		return o.failed(arxivID, err, w)
	}

	return o.extractAndSave(ctx, key, arxivID, title, pdfURL, rawText, w)
}

// extractAndSave runs the extraction and persistence stages shared by
// both entry points.
func (o *Orchestrator) extractAndSave(ctx context.Context, key, arxivID, title, pdfURL, rawText string, w io.Writer) types.PaperResult {
	atomsJSON, err := o.Steps.Step(ctx, "extract-atoms", key, func(ctx context.Context) (string, error) {
		atoms, err := o.Atoms.Extract(ctx, title, rawText)
		if err != nil {
			return "", err
		}
		data, err := json.Marshal(atoms)
		if err != nil {
			return "", fmt.Errorf("marshaling atoms: %w", err)
		}
		return string(data), nil
	})
	if err != nil {
		return o.failed(arxivID, err, w)
	}

	var atoms []types.ExtractedAtom
	if err := json.Unmarshal([]byte(atomsJSON), &atoms); err != nil {
		return o.failed(arxivID, fmt.Errorf("parsing journaled atoms: %w", err), w)
	}

	_, err = o.Steps.Step(ctx, "save-db", key, func(ctx context.Context) (string, error) {
		text := truncateText(rawText, storageTextLimit)
		paper := &types.Paper{
			ArxivID:   arxivID,
			Title:     title,
			PDFURL:    pdfURL,
			RawText:   text,
			Processed: true,
		}
		if _, err := o.Repo.SavePaperWithAtoms(ctx, paper, atoms); err != nil {
			return "", err
		}
		return "saved", nil
	})
	if err != nil {
		return o.failed(arxivID, err, w)
	}

	fmt.Fprintf(w, "processed %s (%d atoms)\n", arxivID, len(atoms))
	return types.PaperResult{ArxivID: arxivID, Status: types.StatusProcessed}
}

// truncateText caps s at limit bytes, backing up so a multi-byte rune
// is never split at the boundary.
func truncateText(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func (o *Orchestrator) failed(arxivID string, err error, w io.Writer) types.PaperResult {
	fmt.Fprintf(w, "failed  %s: %v\n", arxivID, err)
	return types.PaperResult{
		ArxivID: arxivID,
		Status:  types.StatusFailed,
		Error:   err.Error(),
	}
}
