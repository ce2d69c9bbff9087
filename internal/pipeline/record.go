package pipeline

import (
	"sort"

	"github.com/ppiankov/experia/internal/model"
)

// RecordBuilder accumulates mentions for one sampled document
type RecordBuilder struct {
	record model.DocumentExtractionRecord
}

// NewRecordBuilder starts a record for a document with n sampled sentences
func NewRecordBuilder(documentID, source, genre string, n int) *RecordBuilder {
	return &RecordBuilder{record: model.DocumentExtractionRecord{
		DocumentID: documentID,
		Source:     source,
		Genre:      genre,
		Sentences:  n,
	}}
}

// Add appends mentions from either extraction method
func (b *RecordBuilder) Add(mentions ...model.Mention) {
	b.record.Mentions = append(b.record.Mentions, mentions...)
}

// Skip records a sentence whose extraction failed
func (b *RecordBuilder) Skip(s model.SkippedSentence) {
	b.record.Skipped = append(b.record.Skipped, s)
}

// Finalize returns the record with presence flags and method provenance
// derived from the collected mentions. The builder must not be reused.
func (b *RecordBuilder) Finalize() model.DocumentExtractionRecord {
	r := b.record
	r.Present = make(map[model.Category]bool, len(model.AllCategories()))
	r.Methods = make(map[model.Category][]model.Method)

	for _, c := range model.AllCategories() {
		r.Present[c] = false
	}

	seen := make(map[model.Category]map[model.Method]bool)
	for _, m := range r.Mentions {
		r.Present[m.Category] = true
		if seen[m.Category] == nil {
			seen[m.Category] = make(map[model.Method]bool)
		}
		if !seen[m.Category][m.Method] {
			seen[m.Category][m.Method] = true
			r.Methods[m.Category] = append(r.Methods[m.Category], m.Method)
		}
	}
	for c := range r.Methods {
		sort.Slice(r.Methods[c], func(i, j int) bool { return r.Methods[c][i] < r.Methods[c][j] })
	}

	// Mentions in sentence order, rule before neural, then by offset
	sort.SliceStable(r.Mentions, func(i, j int) bool {
		a, c := r.Mentions[i], r.Mentions[j]
		if a.SentenceIndex != c.SentenceIndex {
			return a.SentenceIndex < c.SentenceIndex
		}
		if a.Method != c.Method {
			return a.Method == model.MethodRule
		}
		return a.Span.Start < c.Span.Start
	})

	return r
}
