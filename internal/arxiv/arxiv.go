// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package arxiv fetches candidate papers from the arXiv search API.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"github.com/Toyhom/PaperInsight/internal/httputil"
	"github.com/Toyhom/PaperInsight/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

const (
	minResults = 1
	maxResults = 50
)

// Client queries the arXiv API and normalizes feed entries into
// candidate paper descriptors.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	MaxRetries int
}

// Fetch queries arXiv for the newest papers matching query and returns
// up to max candidates in feed order. A feed with no entries yields an
// empty slice; network and parse failures are fatal to the fetch.
func (c *Client) Fetch(ctx context.Context, query string, max int) ([]types.PaperCandidate, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty arXiv query")
	}
	if max < minResults {
		max = minResults
	}
	if max > maxResults {
		max = maxResults
	}

	// arXiv expects unencoded +AND+/+OR+ separators, so the URL is
	// assembled by hand rather than with url.Values.
	url := fmt.Sprintf("%s?search_query=%s&start=0&max_results=%d&sortBy=submittedDate&sortOrder=descending",
		arxivAPIBase, query, max)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)

	resp, err := httputil.DoWithRetry(ctx, c.HTTPClient, req, c.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	var feed arxivFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	var candidates []types.PaperCandidate
	for _, entry := range feed.Entries {
		arxivID := extractArxivID(entry.ID)
		if arxivID == "" {
			continue
		}
		candidates = append(candidates, types.PaperCandidate{
			ArxivID: arxivID,
			Title:   collapseWhitespace(entry.Title),
			PDFURL:  pdfURL(entry, arxivID),
			Summary: collapseWhitespace(entry.Summary),
		})
	}
	return candidates, nil
}

// arXiv Atom feed XML structures.
type arxivFeed struct {
	Entries []arxivEntry `xml:"entry"`
}

type arxivEntry struct {
	ID      string      `xml:"id"`
	Title   string      `xml:"title"`
	Summary string      `xml:"summary"`
	Links   []arxivLink `xml:"link"`
}

type arxivLink struct {
	Href  string `xml:"href,attr"`
	Rel   string `xml:"rel,attr"`
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
}

// pdfURL returns the href of the link explicitly flagged as the PDF
// rendition, or a constructed canonical URL when no such link exists.
func pdfURL(entry arxivEntry, arxivID string) string {
	for _, l := range entry.Links {
		if l.Title == "pdf" || l.Type == "application/pdf" {
			return l.Href
		}
	}
	return fmt.Sprintf("http://arxiv.org/pdf/%s.pdf", arxivID)
}

// extractArxivID pulls the identifier from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041v1"). The
// version suffix is kept: it is part of the stable dedup key.
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	return idURL[idx+len(prefix):]
}

// collapseWhitespace trims s and folds newlines and runs of spaces into
// single spaces. Feed titles and summaries arrive hard-wrapped.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
