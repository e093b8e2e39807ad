// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Toyhom/PaperInsight/internal/store"
	"github.com/Toyhom/PaperInsight/pkg/types"
)

var uploadCmd = &cobra.Command{
	Use:   "upload [pdf-url]",
	Short: "Ingest a single paper from a PDF URL",
	Long: `Upload runs the single-paper pipeline for one PDF URL: the text
extraction service fetches the PDF, atoms are extracted, and the paper
is persisted under a generated "manual-" identifier.

Unlike the batch path there is no fallback text: if extraction fails,
the paper is not persisted.`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().String("title", "", "display title (default: the URL's file name)")

	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()
	pdfURL := args[0]

	title, _ := cmd.Flags().GetString("title")
	if title == "" {
		title = path.Base(pdfURL)
	}

	st, err := store.Open(cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	o := buildOrchestrator(cfg, st)

	arxivID := "manual-" + uuid.NewString()
	result := o.RunSingle(context.Background(), arxivID, pdfURL, title, arxivID, os.Stdout)
	if result.Status == types.StatusFailed {
		return fmt.Errorf("upload failed: %s", result.Error)
	}
	return nil
}
