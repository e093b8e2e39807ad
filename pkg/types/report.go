// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// SynthesisReport is the persisted transcript of one synthesis call.
// Created exactly once after the stream completes; never mutated.
type SynthesisReport struct {
	// ID is a generated UUID.
	ID string `json:"id" yaml:"id"`

	// UserID is the acting user.
	UserID string `json:"user_id" yaml:"user_id"`

	// AtomIDs is the exact ordered list of input atom ids.
	AtomIDs []int64 `json:"input_atoms" yaml:"input_atoms"`

	// ResultMarkdown is the full synthesized markdown text.
	ResultMarkdown string `json:"result_markdown" yaml:"result_markdown"`

	// CreatedAt is the insertion timestamp.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// UsageQuota holds a user's synthesis-call counters. The check-then-
// increment sequence around it is deliberately not atomic; the limit is
// a soft limit.
type UsageQuota struct {
	UserID string `json:"user_id" yaml:"user_id"`
	Count  int    `json:"synthesis_count" yaml:"synthesis_count"`
	Limit  int    `json:"synthesis_limit" yaml:"synthesis_limit"`
}

// Exceeded reports whether the counter has reached the limit.
func (q UsageQuota) Exceeded() bool {
	return q.Count >= q.Limit
}

// CrawlerSettings is the singleton configuration consulted by the
// scheduled crawl trigger.
type CrawlerSettings struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Query      string `json:"query" yaml:"query"`
	MaxResults int    `json:"max_results" yaml:"max_results"`
}
