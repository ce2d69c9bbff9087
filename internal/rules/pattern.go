// Package rules implements the deterministic lexical/syntactic extractor.
package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ppiankov/experia/internal/model"
)

// Pattern is a compiled, case-insensitive, word-bounded matcher for one category
type Pattern struct {
	Name     string
	Category model.Category
	re       *regexp.Regexp
}

// NewPhrasePattern compiles a literal phrase list. Longer phrases are tried
// first so "in my gut" wins over "gut" at the same position.
func NewPhrasePattern(name string, cat model.Category, phrases []string) (Pattern, error) {
	cleaned := make([]string, 0, len(phrases))
	seen := make(map[string]bool)
	for _, p := range phrases {
		p = strings.Join(strings.Fields(p), " ")
		if p == "" || seen[strings.ToLower(p)] {
			continue
		}
		seen[strings.ToLower(p)] = true
		cleaned = append(cleaned, p)
	}
	if len(cleaned) == 0 {
		return Pattern{}, fmt.Errorf("pattern %s: empty phrase list", name)
	}

	sort.SliceStable(cleaned, func(i, j int) bool { return len(cleaned[i]) > len(cleaned[j]) })

	alts := make([]string, len(cleaned))
	for i, p := range cleaned {
		// Inner spaces match any run of whitespace
		alts[i] = strings.ReplaceAll(regexp.QuoteMeta(p), " ", `\s+`)
	}

	return compile(name, cat, strings.Join(alts, "|"))
}

// NewTemplatePattern compiles a syntactic template written as a regular
// expression body, e.g. `(?:my|her)\s+(?:chest|heart)`.
func NewTemplatePattern(name string, cat model.Category, expr string) (Pattern, error) {
	if strings.TrimSpace(expr) == "" {
		return Pattern{}, fmt.Errorf("pattern %s: empty template", name)
	}
	return compile(name, cat, expr)
}

// compile anchors the body at the scan position and requires a non-word rune
// or end of text after it, so alternatives are retried until one ends on a
// word boundary
func compile(name string, cat model.Category, body string) (Pattern, error) {
	re, err := regexp.Compile(`(?i)^(` + body + `)(?:$|[^\p{L}\p{M}\p{N}_])`)
	if err != nil {
		return Pattern{}, fmt.Errorf("pattern %s: %w", name, err)
	}
	return Pattern{Name: name, Category: cat, re: re}, nil
}

// Match returns every non-overlapping match as [start, end) byte offsets.
// Matches start and end on word boundaries, where letters, marks and digits
// of any script are word characters.
func (p Pattern) Match(text string) [][2]int {
	var out [][2]int
	prev := ' '
	for i := 0; i < len(text); {
		if !isWordRune(prev) {
			if loc := p.re.FindStringSubmatchIndex(text[i:]); loc != nil && loc[3] > loc[2] {
				end := i + loc[3]
				out = append(out, [2]int{i, end})
				prev, _ = utf8.DecodeLastRuneInString(text[:end])
				i = end
				continue
			}
		}
		r, size := utf8.DecodeRuneInString(text[i:])
		prev = r
		i += size
	}
	return out
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsNumber(r)
}

// PatternSet groups the patterns of one lexicon variant
type PatternSet struct {
	Name     string
	patterns []Pattern
}

// NewPatternSet creates a pattern set; patterns keep their given order
func NewPatternSet(name string, patterns ...Pattern) *PatternSet {
	return &PatternSet{Name: name, patterns: patterns}
}

// Categories returns the categories covered by the set
func (s *PatternSet) Categories() []model.Category {
	seen := make(map[model.Category]bool)
	var cats []model.Category
	for _, c := range model.AllCategories() {
		for _, p := range s.patterns {
			if p.Category == c && !seen[c] {
				seen[c] = true
				cats = append(cats, c)
			}
		}
	}
	return cats
}
