// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// AtomKind classifies a research atom. Exactly three kinds exist;
// extraction normalization never emits a fourth.
type AtomKind string

const (
	KindMotivation AtomKind = "Motivation"
	KindIdea       AtomKind = "Idea"
	KindMethod     AtomKind = "Method"
)

// AtomKinds lists the valid kinds in canonical order.
var AtomKinds = []AtomKind{KindMotivation, KindIdea, KindMethod}

// Valid reports whether k is one of the three enumerated kinds.
func (k AtomKind) Valid() bool {
	return k == KindMotivation || k == KindIdea || k == KindMethod
}

// ExtractedAtom is an atom as returned by extraction normalization,
// before it has been assigned a database identity.
type ExtractedAtom struct {
	Kind      AtomKind `json:"type" yaml:"type"`
	ContentEN string   `json:"content_en" yaml:"content_en"`
	ContentCN string   `json:"content_cn" yaml:"content_cn"`
}

// Atom is a persisted research atom. Each atom belongs to exactly one
// paper and is immutable after ingestion.
type Atom struct {
	ID        int64    `json:"id" yaml:"id"`
	PaperID   int64    `json:"paper_id" yaml:"paper_id"`
	Kind      AtomKind `json:"type" yaml:"type"`
	ContentEN string   `json:"content_en" yaml:"content_en"`
	ContentCN string   `json:"content_cn" yaml:"content_cn"`
}

// SourcedAtom pairs an atom with its parent paper's title for prompt
// construction and search results.
type SourcedAtom struct {
	Atom       `yaml:",inline"`
	PaperTitle string `json:"paper_title" yaml:"paper_title"`
}
