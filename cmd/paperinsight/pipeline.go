// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"net/http"

	"github.com/Toyhom/PaperInsight/internal/arxiv"
	"github.com/Toyhom/PaperInsight/internal/extract"
	"github.com/Toyhom/PaperInsight/internal/ingest"
	"github.com/Toyhom/PaperInsight/internal/store"
	"github.com/Toyhom/PaperInsight/internal/textract"
	"github.com/Toyhom/PaperInsight/pkg/types"
)

// buildOrchestrator wires the ingestion pipeline against the store.
func buildOrchestrator(cfg types.PipelineConfig, st *store.Store) *ingest.Orchestrator {
	return &ingest.Orchestrator{
		Fetcher: &arxiv.Client{
			HTTPClient: &http.Client{Timeout: cfg.Crawler.Timeout},
			UserAgent:  cfg.Crawler.UserAgent,
		},
		Texts: textract.NewClient(cfg.Textract),
		Atoms: &extract.Extractor{
			Backend:    extract.NewOpenAIBackend(cfg.Extractor),
			MaxRetries: cfg.Extractor.MaxRetries,
		},
		Repo:  st,
		Steps: &ingest.JournaledRunner{Journal: st},
	}
}
