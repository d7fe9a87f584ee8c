package embedding

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Analyzer extracts normalized terms from text using bleve's standard analyzer
// (unicode word segmentation, lower-casing, English stop words).
type Analyzer struct {
	mapping *mapping.IndexMappingImpl
}

// NewAnalyzer returns an Analyzer backed by a fresh bleve analysis cache.
func NewAnalyzer() *Analyzer {
	return &Analyzer{mapping: bleve.NewIndexMapping()}
}

// Terms returns the analyzed terms of text in order. When the analyzer drops every
// token (e.g. a stop-word-only phrase) the lower-cased words are returned instead.
func (a *Analyzer) Terms(text string) ([]string, error) {
	stream, err := a.mapping.AnalyzeText(standard.Name, []byte(text))
	if err != nil {
		return nil, fmt.Errorf("analyze text: %w", err)
	}
	terms := make([]string, 0, len(stream))
	for _, tok := range stream {
		if len(tok.Term) > 0 {
			terms = append(terms, string(tok.Term))
		}
	}
	if len(terms) == 0 {
		for _, w := range SplitWords(text) {
			terms = append(terms, strings.ToLower(w))
		}
	}
	return terms, nil
}
