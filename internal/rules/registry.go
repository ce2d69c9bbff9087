package rules

import "strings"

// Registry selects a pattern set from a document genre
type Registry struct {
	variants []variant
	fallback *PatternSet
}

type variant struct {
	set    *PatternSet
	genres map[string]bool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{}
}

// DefaultRegistry compiles the built-in lexicon
func DefaultRegistry() *Registry {
	r, err := DefaultLexicon().Build()
	if err != nil {
		// The built-in lexicon is static; a failure here is a programming error
		panic(err)
	}
	return r
}

// Register adds a pattern set selected by any of the given genres
func (r *Registry) Register(set *PatternSet, genres ...string) {
	v := variant{set: set, genres: make(map[string]bool, len(genres))}
	for _, g := range genres {
		v.genres[normalizeGenre(g)] = true
	}
	r.variants = append(r.variants, v)
}

// Select returns the pattern set for a genre, or the fallback
func (r *Registry) Select(genre string) *PatternSet {
	g := normalizeGenre(genre)
	for _, v := range r.variants {
		if v.genres[g] {
			return v.set
		}
	}
	return r.fallback
}

func normalizeGenre(g string) string {
	return strings.ToLower(strings.Join(strings.Fields(g), " "))
}
