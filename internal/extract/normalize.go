// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"encoding/json"

	"github.com/Toyhom/PaperInsight/pkg/types"
)

// payloadShape tags the recognized response shapes, resolved in priority
// order: a populated atoms array wins, then the flat summary fields,
// then empty.
type payloadShape int

const (
	shapeAtomList payloadShape = iota
	shapeFlat
	shapeEmpty
)

// payload mirrors the fields the model may return. The schema asks for
// the atoms array; the flat fields absorb the common drift where the
// model flattens the summary into the top level.
type payload struct {
	Atoms []payloadAtom `json:"atoms"`

	Motivation   string `json:"motivation"`
	MotivationCN string `json:"motivation_cn"`
	Idea         string `json:"idea"`
	IdeaCN       string `json:"idea_cn"`
	Method       string `json:"method"`
	MethodCN     string `json:"method_cn"`
}

type payloadAtom struct {
	Type      string `json:"type"`
	ContentEN string `json:"content_en"`
	ContentCN string `json:"content_cn"`
}

func (p payload) shape() payloadShape {
	if len(p.Atoms) > 0 {
		return shapeAtomList
	}
	if p.Motivation != "" {
		return shapeFlat
	}
	return shapeEmpty
}

// Normalize parses a raw model response into a uniform atom list. A body
// that is not valid JSON is treated as an empty object: extraction
// degrades to zero atoms rather than failing the paper. Atoms with a
// kind outside the three enumerated values are dropped.
func Normalize(raw string) []types.ExtractedAtom {
	var p payload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		p = payload{}
	}

	switch p.shape() {
	case shapeAtomList:
		var atoms []types.ExtractedAtom
		for _, a := range p.Atoms {
			kind := types.AtomKind(a.Type)
			if !kind.Valid() {
				continue
			}
			atoms = append(atoms, types.ExtractedAtom{
				Kind:      kind,
				ContentEN: a.ContentEN,
				ContentCN: a.ContentCN,
			})
		}
		return atoms

	case shapeFlat:
		// Synthesize exactly three atoms in fixed order from the flat
		// fields, defaulting the Chinese translations to empty strings.
		return []types.ExtractedAtom{
			{Kind: types.KindMotivation, ContentEN: p.Motivation, ContentCN: p.MotivationCN},
			{Kind: types.KindIdea, ContentEN: p.Idea, ContentCN: p.IdeaCN},
			{Kind: types.KindMethod, ContentEN: p.Method, ContentCN: p.MethodCN},
		}

	default:
		return nil
	}
}
