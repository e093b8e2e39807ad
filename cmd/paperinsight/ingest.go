// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Toyhom/PaperInsight/internal/store"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run one ingestion batch against arXiv",
	Long: `Ingest queries arXiv for candidate papers, skips papers already in the
database, extracts text and research atoms for the rest, and persists
them. One paper's failure does not abort the batch.

Pass --run-id to resume a partially completed batch: stages that already
finished for that run are replayed from the step journal instead of
being redone.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("query", "", "arXiv search query (default from config)")
	ingestCmd.Flags().Int("max", 0, "maximum papers to fetch (default from config)")
	ingestCmd.Flags().String("run-id", "", "identifier for resuming a partially completed batch")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()

	query, _ := cmd.Flags().GetString("query")
	if query == "" {
		query = cfg.Crawler.Query
	}
	max, _ := cmd.Flags().GetInt("max")
	if max <= 0 {
		max = cfg.Crawler.MaxResults
	}
	runID, _ := cmd.Flags().GetString("run-id")
	if runID == "" {
		runID = uuid.NewString()
	}

	st, err := store.Open(cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	o := buildOrchestrator(cfg, st)

	result, err := o.RunBatch(context.Background(), runID, query, max, os.Stdout)
	if err != nil {
		return err
	}
	if result.HasFailures() {
		return fmt.Errorf("%d paper(s) failed ingestion", result.Failed())
	}
	return nil
}
