// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package api exposes the HTTP surface: synthesis streaming, crawler
// administration, uploads, atom search, and report retrieval.
package api

import (
	"context"
	"io"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/Toyhom/PaperInsight/internal/ingest"
	"github.com/Toyhom/PaperInsight/internal/synth"
	"github.com/Toyhom/PaperInsight/pkg/types"
)

// Synthesizer runs one synthesis call, streaming output through the
// sink.
type Synthesizer interface {
	Synthesize(ctx context.Context, userID string, atomIDs []int64, sink synth.StreamSink) (*types.SynthesisReport, error)
}

// Repository is the storage surface the handlers need.
type Repository interface {
	CrawlerSettings(ctx context.Context) (types.CrawlerSettings, error)
	PutCrawlerSettings(ctx context.Context, settings types.CrawlerSettings) error
	SearchAtoms(ctx context.Context, query string, limit int) ([]types.SourcedAtom, error)
	ReportByID(ctx context.Context, id string) (*types.SynthesisReport, error)
}

// Pipeline is the ingestion entry point pair. The orchestrator
// satisfies it.
type Pipeline interface {
	RunBatch(ctx context.Context, runID, query string, max int, w io.Writer) (types.BatchResult, error)
	RunSingle(ctx context.Context, runID, pdfURL, title, arxivID string, w io.Writer) types.PaperResult
}

// Server wires the handlers to their collaborators.
type Server struct {
	Synth    Synthesizer
	Repo     Repository
	Pipeline Pipeline
	Queue    *ingest.Queue

	// UploadsDir receives uploaded PDFs and is served at /uploads.
	UploadsDir string

	// PublicBaseURL prefixes upload URLs handed to the text-extraction
	// service, which fetches them back over HTTP.
	PublicBaseURL string

	// LogWriter receives pipeline progress lines. Defaults to stdout.
	LogWriter io.Writer

	router *gin.Engine
}

// Router builds the gin engine on first use.
func (s *Server) Router() *gin.Engine {
	if s.router != nil {
		return s.router
	}
	if s.LogWriter == nil {
		s.LogWriter = os.Stdout
	}

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := r.Group("/api")
	{
		apiGroup.POST("/synthesize", s.handleSynthesize)
		apiGroup.GET("/crawler/settings", s.handleGetCrawlerSettings)
		apiGroup.POST("/crawler/settings", s.handlePutCrawlerSettings)
		apiGroup.POST("/crawler/trigger", s.handleTriggerCrawler)
		apiGroup.POST("/upload", s.handleUpload)
		apiGroup.GET("/atoms/search", s.handleSearchAtoms)
		apiGroup.GET("/reports/:id", s.handleGetReport)
	}

	if s.UploadsDir != "" {
		r.Static("/uploads", s.UploadsDir)
	}

	s.router = r
	return r
}
