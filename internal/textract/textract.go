// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package textract calls the external PDF-to-text service. The service
// is treated as unreliable; fallback policy belongs to the caller.
package textract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/Toyhom/PaperInsight/internal/httputil"
	"github.com/Toyhom/PaperInsight/pkg/types"
)

// Client posts PDF URLs to the text-extraction service and returns the
// extracted full text.
type Client struct {
	HTTPClient *http.Client
	ServiceURL string
	MaxRetries int
}

// NewClient builds a Client from config.
func NewClient(cfg types.TextractConfig) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: cfg.Timeout},
		ServiceURL: cfg.ServiceURL,
		MaxRetries: cfg.MaxRetries,
	}
}

type extractRequest struct {
	URL string `json:"url"`
}

type extractResponse struct {
	Text string `json:"text"`
}

// ExtractText sends url to the extraction service and returns the text.
// A service error, malformed response, or empty text is an error; the
// caller decides whether a fallback applies.
func (c *Client) ExtractText(ctx context.Context, url string) (string, error) {
	body, err := json.Marshal(extractRequest{URL: url})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.ServiceURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.DoWithRetry(ctx, c.HTTPClient, req, c.MaxRetries)
	if err != nil {
		return "", fmt.Errorf("text-extraction request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("text-extraction service returned HTTP %d", resp.StatusCode)
	}

	var er extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return "", fmt.Errorf("decoding text-extraction response: %w", err)
	}
	if er.Text == "" {
		return "", fmt.Errorf("text-extraction service returned empty text")
	}
	return er.Text, nil
}
