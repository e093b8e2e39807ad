// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Toyhom/PaperInsight/internal/api"
	"github.com/Toyhom/PaperInsight/internal/ingest"
	"github.com/Toyhom/PaperInsight/internal/store"
	"github.com/Toyhom/PaperInsight/internal/synth"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the scheduled crawler",
	Long: `Serve starts the HTTP API (synthesis streaming, uploads, crawler
administration, atom search) and the cron-scheduled daily crawl. The
crawl only runs when the persisted crawler settings have it enabled.

Ingestion work from all triggers runs on a single-consumer queue, one
batch at a time.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	// Optional .env for API keys and base URLs.
	_ = godotenv.Load()

	cfg := pipelineConfig()
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	st, err := store.Open(cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := os.MkdirAll(cfg.Server.UploadsDir, 0o755); err != nil {
		return fmt.Errorf("creating uploads directory: %w", err)
	}

	orch := buildOrchestrator(cfg, st)
	queue := ingest.NewQueue(16)

	server := &api.Server{
		Synth: &synth.Engine{
			Repo:     st,
			Streamer: synth.NewOpenAIStreamer(cfg.Synthesizer),
			Log:      os.Stderr,
		},
		Repo:          st,
		Pipeline:      orch,
		Queue:         queue,
		UploadsDir:    cfg.Server.UploadsDir,
		PublicBaseURL: cfg.Server.PublicBaseURL,
		LogWriter:     os.Stdout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := queue.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		c := cron.New()
		_, err := c.AddFunc(cfg.Crawler.Schedule, func() {
			scheduledCrawl(st, orch, queue)
		})
		if err != nil {
			return fmt.Errorf("cron schedule %q: %w", cfg.Crawler.Schedule, err)
		}
		c.Start()
		<-ctx.Done()
		<-c.Stop().Done()
		return nil
	})

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: server.Router(),
	}
	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "Listening on %s\n", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// scheduledCrawl enqueues the daily batch if the persisted settings
// have the crawler enabled. The run id is date-scoped, so a retriggered
// crawl on the same day replays completed steps instead of refetching.
func scheduledCrawl(st *store.Store, orch *ingest.Orchestrator, queue *ingest.Queue) {
	settings, err := st.CrawlerSettings(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "scheduled crawl: reading settings: %v\n", err)
		return
	}
	if !settings.Enabled {
		return
	}

	runID := "daily-" + time.Now().UTC().Format("2006-01-02")
	err = queue.Enqueue(func(ctx context.Context) {
		if _, err := orch.RunBatch(ctx, runID, settings.Query, settings.MaxResults, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "scheduled crawl %s: %v\n", runID, err)
		}
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "scheduled crawl: %v\n", err)
	}
}
