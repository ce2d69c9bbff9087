package rules

import (
	"github.com/ppiankov/experia/internal/corpus"
	"github.com/ppiankov/experia/internal/model"
)

// Extractor applies a pattern set to sentences. It holds no mutable state
// and is safe for concurrent use.
type Extractor struct {
	minQuotedChars int
}

// NewExtractor creates a rule extractor. Matches inside quoted passages of at
// least minQuotedChars characters are ignored; zero disables the check.
func NewExtractor(minQuotedChars int) *Extractor {
	return &Extractor{minQuotedChars: minQuotedChars}
}

type spanKey struct {
	cat        model.Category
	start, end int
}

// Extract returns every rule match in the sentence. Identical spans within a
// category are reported once; overlapping but distinct spans are all kept.
func (e *Extractor) Extract(s model.SentenceSample, set *PatternSet) []model.Mention {
	if set == nil {
		return nil
	}

	var quoted [][2]int
	if e.minQuotedChars > 0 {
		quoted = corpus.QuotedSpans(s.Text, e.minQuotedChars)
	}

	var mentions []model.Mention
	seen := make(map[spanKey]bool)

	for _, p := range set.patterns {
		for _, loc := range p.Match(s.Text) {
			if corpus.InsideAny(loc[0], loc[1], quoted) {
				continue
			}
			key := spanKey{cat: p.Category, start: loc[0], end: loc[1]}
			if seen[key] {
				continue
			}
			seen[key] = true

			mentions = append(mentions, model.Mention{
				Category:      p.Category,
				Method:        model.MethodRule,
				Score:         model.RuleConfidence,
				Span:          model.Span{Start: loc[0], End: loc[1]},
				Text:          s.Text[loc[0]:loc[1]],
				Pattern:       p.Name,
				DocumentID:    s.DocumentID,
				SentenceIndex: s.Index,
			})
		}
	}

	return mentions
}
