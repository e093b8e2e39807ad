// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package arxiv

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <id>http://arxiv.org/abs/2301.07041v1</id>
    <title>Attention Is
  All You Need</title>
    <summary>We propose a new
  architecture.</summary>
    <link href="http://arxiv.org/abs/2301.07041v1" rel="alternate" type="text/html"/>
    <link title="pdf" href="http://arxiv.org/pdf/2301.07041v1" rel="related" type="application/pdf"/>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2302.00001v2</id>
    <title>Second Paper</title>
    <summary>Abstract two.</summary>
    <link href="http://arxiv.org/abs/2302.00001v2" rel="alternate" type="text/html"/>
  </entry>
</feed>`

func testClient(ts *httptest.Server) *Client {
	return &Client{
		HTTPClient: ts.Client(),
		UserAgent:  "paperinsight-test/0.1",
	}
}

func withServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(handler)
	old := arxivAPIBase
	arxivAPIBase = ts.URL
	t.Cleanup(func() {
		arxivAPIBase = old
		ts.Close()
	})
	return ts
}

func TestFetchParsesEntries(t *testing.T) {
	ts := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("sortBy"); got != "submittedDate" {
			t.Errorf("sortBy = %q, want submittedDate", got)
		}
		if got := q.Get("max_results"); got != "5" {
			t.Errorf("max_results = %q, want 5", got)
		}
		fmt.Fprint(w, sampleFeed)
	})

	candidates, err := testClient(ts).Fetch(context.Background(), "cat:cs.AI", 5)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("len(candidates) = %d, want 2", len(candidates))
	}

	first := candidates[0]
	if first.ArxivID != "2301.07041v1" {
		t.Errorf("ArxivID = %q, want 2301.07041v1", first.ArxivID)
	}
	if first.Title != "Attention Is All You Need" {
		t.Errorf("Title = %q, whitespace not collapsed", first.Title)
	}
	if first.Summary != "We propose a new architecture." {
		t.Errorf("Summary = %q, whitespace not collapsed", first.Summary)
	}
	// Link flagged as the PDF rendition is preferred.
	if first.PDFURL != "http://arxiv.org/pdf/2301.07041v1" {
		t.Errorf("PDFURL = %q, want flagged pdf link", first.PDFURL)
	}
}

func TestFetchConstructsCanonicalPDFURL(t *testing.T) {
	ts := withServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, sampleFeed)
	})

	candidates, err := testClient(ts).Fetch(context.Background(), "cat:cs.AI", 5)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	// Second entry has no pdf-flagged link.
	if got, want := candidates[1].PDFURL, "http://arxiv.org/pdf/2302.00001v2.pdf"; got != want {
		t.Errorf("PDFURL = %q, want %q", got, want)
	}
}

func TestFetchEmptyFeed(t *testing.T) {
	ts := withServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom"></feed>`)
	})

	candidates, err := testClient(ts).Fetch(context.Background(), "cat:cs.XX", 5)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("len(candidates) = %d, want 0", len(candidates))
	}
}

func TestFetchEmptyQuery(t *testing.T) {
	c := &Client{HTTPClient: &http.Client{Timeout: time.Second}}
	if _, err := c.Fetch(context.Background(), "  ", 5); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestFetchHTTPErrorIsFatal(t *testing.T) {
	ts := withServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := testClient(ts).Fetch(context.Background(), "cat:cs.AI", 5); err == nil {
		t.Fatal("expected error for HTTP 500")
	}
}

func TestFetchMalformedFeedIsFatal(t *testing.T) {
	ts := withServer(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "this is not xml")
	})

	_, err := testClient(ts).Fetch(context.Background(), "cat:cs.AI", 5)
	if err == nil || !strings.Contains(err.Error(), "parsing arXiv response") {
		t.Fatalf("err = %v, want parse error", err)
	}
}

func TestFetchCapsMaxResults(t *testing.T) {
	ts := withServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("max_results"); got != "50" {
			t.Errorf("max_results = %q, want capped at 50", got)
		}
		fmt.Fprint(w, sampleFeed)
	})

	if _, err := testClient(ts).Fetch(context.Background(), "cat:cs.AI", 500); err != nil {
		t.Fatalf("Fetch: %v", err)
	}
}

func TestExtractArxivID(t *testing.T) {
	tests := []struct {
		idURL string
		want  string
	}{
		{"http://arxiv.org/abs/2301.07041v1", "2301.07041v1"},
		{"https://arxiv.org/abs/cs/0501001v1", "cs/0501001v1"},
		{"http://example.com/nothing", ""},
	}
	for _, tt := range tests {
		if got := extractArxivID(tt.idURL); got != tt.want {
			t.Errorf("extractArxivID(%q) = %q, want %q", tt.idURL, got, tt.want)
		}
	}
}
