package model

import (
	"fmt"
	"strings"
)

// Category is one of the fixed experiential domains
type Category string

const (
	CategoryBody   Category = "BODY"
	CategoryMemory Category = "MEMORY"
	CategoryPlace  Category = "PLACE"
	CategoryPerson Category = "PERSON"
)

// AllCategories returns every category in canonical order
func AllCategories() []Category {
	return []Category{CategoryBody, CategoryMemory, CategoryPlace, CategoryPerson}
}

// ParseCategory maps a label (any case) to a Category
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	switch c {
	case CategoryBody, CategoryMemory, CategoryPlace, CategoryPerson:
		return c, nil
	}
	return "", fmt.Errorf("unknown category: %q", s)
}

// Method records which extractor produced a mention
type Method string

const (
	MethodRule   Method = "RULE"
	MethodNeural Method = "NEURAL"
)

// RuleConfidence is the fixed score of every rule match
const RuleConfidence = 1.0

// Span is a half-open byte range [Start, End) into the sentence text
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Mention is a single extraction hit. Values are never modified after creation.
type Mention struct {
	Category      Category `json:"category"`
	Method        Method   `json:"method"`
	Score         float64  `json:"score"`
	Span          Span     `json:"span"`
	Text          string   `json:"text"`              // Matched surface text
	Pattern       string   `json:"pattern,omitempty"` // Rule name or backend name
	DocumentID    string   `json:"document_id"`
	SentenceIndex int      `json:"sentence_index"`
}

// SkippedSentence is a sentence whose extraction failed and was left out
type SkippedSentence struct {
	DocumentID    string `json:"document_id"`
	SentenceIndex int    `json:"sentence_index"`
	Method        Method `json:"method"`
	Reason        string `json:"reason"`
}
