// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/yuin/goldmark"

	"github.com/Toyhom/PaperInsight/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the atom library or a synthesis report",
}

var exportAtomsCmd = &cobra.Command{
	Use:   "atoms",
	Short: "Dump all research atoms to YAML or JSON",
	RunE:  runExportAtoms,
}

var exportReportCmd = &cobra.Command{
	Use:   "report [id]",
	Short: "Print a synthesis report as Markdown or rendered HTML",
	Args:  cobra.ExactArgs(1),
	RunE:  runExportReport,
}

func init() {
	exportAtomsCmd.Flags().String("format", "yaml", "output format: yaml or json")
	exportReportCmd.Flags().Bool("html", false, "render the report Markdown to HTML")

	exportCmd.AddCommand(exportAtomsCmd)
	exportCmd.AddCommand(exportReportCmd)
	rootCmd.AddCommand(exportCmd)
}

func runExportAtoms(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()

	st, err := store.Open(cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "yaml":
		return st.ExportAtomsYAML(context.Background(), os.Stdout)
	case "json":
		return st.ExportAtomsJSON(context.Background(), os.Stdout)
	default:
		return fmt.Errorf("unknown format %q: use yaml or json", format)
	}
}

func runExportReport(cmd *cobra.Command, args []string) error {
	cfg := pipelineConfig()

	st, err := store.Open(cfg.Storage)
	if err != nil {
		return err
	}
	defer st.Close()

	report, err := st.ReportByID(context.Background(), args[0])
	if err != nil {
		return err
	}

	html, _ := cmd.Flags().GetBool("html")
	if !html {
		fmt.Println(report.ResultMarkdown)
		return nil
	}

	if err := goldmark.Convert([]byte(report.ResultMarkdown), os.Stdout); err != nil {
		return fmt.Errorf("rendering report %s: %w", report.ID, err)
	}
	return nil
}
