// Package model holds the data types shared by every pipeline stage.
package model

import "strings"

// Document is a single review from the corpus. It is owned by the corpus
// loader and never modified by the pipeline.
type Document struct {
	ID        string   `json:"id"`
	Source    string   `json:"source"`    // Normalized outlet identifier (e.g., "Pitchfork")
	Genre     string   `json:"genre"`     // Normalized genre category
	Sentences []string `json:"sentences"` // Review text split into sentences, in order
}

// Tokens returns the whitespace token count over all sentences
func (d Document) Tokens() int {
	n := 0
	for _, s := range d.Sentences {
		n += len(strings.Fields(s))
	}
	return n
}

// SentenceSample references one sampled sentence of a document
type SentenceSample struct {
	DocumentID string `json:"document_id"`
	Source     string `json:"source"`
	Genre      string `json:"genre"`
	Index      int    `json:"index"` // Position in Document.Sentences (0-based)
	Text       string `json:"text"`
}
