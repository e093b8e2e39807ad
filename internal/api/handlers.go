// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Toyhom/PaperInsight/internal/store"
	"github.com/Toyhom/PaperInsight/internal/synth"
	"github.com/Toyhom/PaperInsight/pkg/types"
)

const (
	defaultTriggerMax  = 5
	defaultSearchLimit = 20
)

type synthesizeRequest struct {
	AtomIDs []int64 `json:"atomIds"`
	UserID  string  `json:"userId"`
}

// sseStream writes synthesis output as server-sent events. Headers are
// written lazily on the first fragment so JSON error responses can
// still be sent before any streaming. The [DONE] sentinel goes out as
// soon as the stream completes; a stream that ends without it is a
// failure.
type sseStream struct {
	server  *Server
	c       *gin.Context
	started bool
}

func (w *sseStream) Fragment(content string) error {
	ctx := w.c.Request.Context()
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	w.start()
	payload, err := json.Marshal(gin.H{"content": content})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w.c.Writer, "data: %s\n\n", payload); err != nil {
		return err
	}
	w.c.Writer.Flush()
	return nil
}

func (w *sseStream) Done() error {
	w.start()
	if _, err := fmt.Fprint(w.c.Writer, "data: [DONE]\n\n"); err != nil {
		return err
	}
	w.c.Writer.Flush()
	return nil
}

func (w *sseStream) start() {
	if !w.started {
		w.server.writeStreamHeaders(w.c)
		w.started = true
	}
}

// handleSynthesize streams a synthesis as server-sent events.
func (s *Server) handleSynthesize(c *gin.Context) {
	var req synthesizeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AtomIDs == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid atomIds"})
		return
	}

	stream := &sseStream{server: s, c: c}

	_, err := s.Synth.Synthesize(c.Request.Context(), req.UserID, req.AtomIDs, stream)
	if err != nil {
		if stream.started {
			// Mid-stream failure: end without the sentinel.
			return
		}
		var verr *synth.ValidationError
		var qerr *synth.QuotaError
		switch {
		case errors.As(err, &verr):
			c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error()})
		case errors.As(err, &qerr):
			c.JSON(http.StatusForbidden, gin.H{"error": qerr.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
		}
	}
}

func (s *Server) writeStreamHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
}

func (s *Server) handleGetCrawlerSettings(c *gin.Context) {
	settings, err := s.Repo.CrawlerSettings(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch settings"})
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (s *Server) handlePutCrawlerSettings(c *gin.Context) {
	var settings types.CrawlerSettings
	if err := c.ShouldBindJSON(&settings); err != nil || settings.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid settings"})
		return
	}
	if settings.MaxResults <= 0 {
		settings.MaxResults = defaultTriggerMax
	}
	if err := s.Repo.PutCrawlerSettings(c.Request.Context(), settings); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save settings"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type triggerRequest struct {
	Query string `json:"query"`
	Max   int    `json:"max"`
}

// handleTriggerCrawler enqueues a manual batch. The batch runs on the
// single-consumer queue, not in the request.
func (s *Server) handleTriggerCrawler(c *gin.Context) {
	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query required"})
		return
	}
	if req.Max <= 0 {
		req.Max = defaultTriggerMax
	}

	runID := uuid.NewString()
	err := s.Queue.Enqueue(func(ctx context.Context) {
		if _, err := s.Pipeline.RunBatch(ctx, runID, req.Query, req.Max, s.LogWriter); err != nil {
			fmt.Fprintf(s.LogWriter, "batch %s: %v\n", runID, err)
		}
	})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Crawler triggered"})
}

// handleUpload accepts one PDF, stores it under the uploads directory,
// and enqueues the single-paper pipeline with a generated identifier.
// The stored file is served at /uploads so the text-extraction service
// can fetch it back by URL.
func (s *Server) handleUpload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	if !strings.EqualFold(filepath.Ext(file.Filename), ".pdf") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Only PDF files are allowed"})
		return
	}

	id := uuid.NewString()
	dest := filepath.Join(s.UploadsDir, id+".pdf")
	if err := c.SaveUploadedFile(file, dest); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload processing failed"})
		return
	}

	arxivID := "manual-" + id
	publicURL := strings.TrimSuffix(s.PublicBaseURL, "/") + "/uploads/" + id + ".pdf"
	title := file.Filename

	err = s.Queue.Enqueue(func(ctx context.Context) {
		s.Pipeline.RunSingle(ctx, arxivID, publicURL, title, arxivID, s.LogWriter)
	})
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"message":  "File accepted for processing",
		"arxiv_id": arxivID,
	})
}

func (s *Server) handleSearchAtoms(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query required"})
		return
	}
	limit := defaultSearchLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	atoms, err := s.Repo.SearchAtoms(c.Request.Context(), query, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}
	if atoms == nil {
		atoms = []types.SourcedAtom{}
	}
	c.JSON(http.StatusOK, gin.H{"atoms": atoms})
}

func (s *Server) handleGetReport(c *gin.Context) {
	report, err := s.Repo.ReportByID(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch report"})
		return
	}
	c.JSON(http.StatusOK, report)
}
