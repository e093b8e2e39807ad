// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// PaperStatus is the terminal state of one paper within a batch.
type PaperStatus string

const (
	StatusProcessed PaperStatus = "processed"
	StatusSkipped   PaperStatus = "skipped"
	StatusFailed    PaperStatus = "failed"
)

// PaperResult records the outcome of one paper's trip through the
// ingestion pipeline.
type PaperResult struct {
	ArxivID string      `json:"arxiv_id" yaml:"arxiv_id"`
	Status  PaperStatus `json:"status" yaml:"status"`
	Error   string      `json:"error,omitempty" yaml:"error,omitempty"`
}

// BatchResult holds the per-paper outcomes of one ingestion batch.
// A paper's failure never aborts its siblings, so every candidate
// appears here exactly once.
type BatchResult struct {
	Results []PaperResult `json:"results" yaml:"results"`
}

// Total returns the number of candidate papers in the batch.
func (r BatchResult) Total() int {
	return len(r.Results)
}

// Processed returns the number of papers that reached the processed state.
func (r BatchResult) Processed() int { return r.count(StatusProcessed) }

// Skipped returns the number of papers skipped by deduplication.
func (r BatchResult) Skipped() int { return r.count(StatusSkipped) }

// Failed returns the number of papers that failed a pipeline stage.
func (r BatchResult) Failed() int { return r.count(StatusFailed) }

// HasFailures reports whether any paper failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed() > 0
}

func (r BatchResult) count(s PaperStatus) int {
	n := 0
	for _, pr := range r.Results {
		if pr.Status == s {
			n++
		}
	}
	return n
}
