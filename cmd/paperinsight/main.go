// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the paperinsight CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Toyhom/PaperInsight/internal/secrets"
	"github.com/Toyhom/PaperInsight/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns fallback if set, else the secret value for key.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the paperinsight CLI.
var rootCmd = &cobra.Command{
	Use:   "paperinsight",
	Short: "Paper ingestion and research-atom synthesis",
	Long: `paperinsight ingests scientific papers from arXiv or direct upload,
extracts structured research atoms (Motivation / Idea / Method) from each
paper via an LLM, and synthesizes user-selected atom sets into new
research proposals.

Run a one-shot ingestion with "ingest", process a single PDF with
"upload", start the HTTP API and scheduled crawler with "serve", or dump
the atom library with "export".`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./paperinsight.yaml or ~/.config/paperinsight/config.yaml)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("paperinsight")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "paperinsight"))
		}
	}

	viper.SetEnvPrefix("PAPERINSIGHT")
	viper.AutomaticEnv()

	viper.SetDefault("crawler.query", "cat:cs.AI")
	viper.SetDefault("crawler.max_results", 5)
	viper.SetDefault("crawler.schedule", "0 0 * * *")
	viper.SetDefault("textract.service_url", "http://localhost:8000/")
	viper.SetDefault("extractor.model", "gpt-4o-mini")
	viper.SetDefault("synthesizer.model", "gpt-4")
	viper.SetDefault("storage.path", "data/paperinsight.db")
	viper.SetDefault("storage.quota_limit", 3)
	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.uploads_dir", "uploads")
	viper.SetDefault("server.public_base_url", "http://localhost:8080")

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// pipelineConfig assembles the full component configuration from viper
// and loaded secrets.
func pipelineConfig() types.PipelineConfig {
	http := types.HTTPConfig{
		Timeout:   60 * time.Second,
		UserAgent: "paperinsight/0.1",
	}
	return types.PipelineConfig{
		Crawler: types.CrawlerConfig{
			HTTPConfig: http,
			Query:      viper.GetString("crawler.query"),
			MaxResults: viper.GetInt("crawler.max_results"),
			Schedule:   viper.GetString("crawler.schedule"),
		},
		Textract: types.TextractConfig{
			HTTPConfig: http,
			ServiceURL: viper.GetString("textract.service_url"),
			MaxRetries: viper.GetInt("textract.max_retries"),
		},
		Extractor: types.AIConfig{
			Model:      viper.GetString("extractor.model"),
			APIKey:     secretDefault(secrets.ExtractorAPIKey, viper.GetString("extractor.api_key")),
			BaseURL:    viper.GetString("extractor.base_url"),
			MaxRetries: viper.GetInt("extractor.max_retries"),
		},
		Synthesizer: types.AIConfig{
			Model:      viper.GetString("synthesizer.model"),
			APIKey:     secretDefault(secrets.SynthesizerAPIKey, viper.GetString("synthesizer.api_key")),
			BaseURL:    viper.GetString("synthesizer.base_url"),
			MaxRetries: viper.GetInt("synthesizer.max_retries"),
		},
		Storage: types.StorageConfig{
			Path:       viper.GetString("storage.path"),
			QuotaLimit: viper.GetInt("storage.quota_limit"),
		},
		Server: types.ServerConfig{
			Addr:          viper.GetString("server.addr"),
			UploadsDir:    viper.GetString("server.uploads_dir"),
			PublicBaseURL: viper.GetString("server.public_base_url"),
		},
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
