package rules

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/experia/internal/model"
)

// Lexicon is the declarative form of all pattern-set variants
type Lexicon struct {
	Variants map[string]VariantLexicon `yaml:"variants"`
}

// VariantLexicon is one pattern-set variant and the genres that select it.
// A variant without genres is the fallback.
type VariantLexicon struct {
	Genres     []string                   `yaml:"genres,omitempty"`
	Categories map[string]CategoryLexicon `yaml:"categories"`
}

// CategoryLexicon holds literal phrases and syntactic templates for a category
type CategoryLexicon struct {
	Phrases   []string          `yaml:"phrases,omitempty"`
	Templates map[string]string `yaml:"templates,omitempty"` // name -> regular expression body
}

// DefaultVariant is the fallback variant name
const DefaultVariant = "default"

// possessive determiners used by the syntactic templates
const possessive = `(?:my|your|his|her|our|their)`

// DefaultLexicon returns the built-in lexicon: a general variant and a
// classical/opera variant that avoids instrument and notation vocabulary.
func DefaultLexicon() Lexicon {
	return Lexicon{Variants: map[string]VariantLexicon{
		DefaultVariant: {
			Categories: map[string]CategoryLexicon{
				string(model.CategoryBody): {
					Phrases: []string{
						"body", "chest", "in my gut", "physically", "gives me chills", "heart racing",
						"blood pumping", "ears", "mouth", "limbs", "gut", "goosebumps", "tears",
						"crying", "cry", "throat", "leg", "arm", "breath", "hand", "heart", "teeth",
						"nose", "eyes", "eye", "foot", "feet", "blood", "feeling", "hearing", "touch",
						"touching", "tasting", "taste it", "tongue", "lips", "shiver", "shivers",
						"sweat", "sweats", "shivering",
					},
					Templates: map[string]string{
						"possessive_body_part": possessive + `\s+(?:own\s+)?(?:chest|heart|gut|spine|skin|bones|ears|eyes|hands|feet|throat|stomach)`,
						"spine_tingle":         `(?:shivers?|chills?|tingles?)\s+(?:down|up)\s+(?:my|your|the)\s+spine`,
					},
				},
				string(model.CategoryMemory): {
					Phrases: []string{
						"reminds me of", "made me think of", "brings back memories", "takes me back to",
						"i remember", "childhood", "years ago", "i recall", "souvenir", "long time ago",
						"nostalgic", "nostalgia", "remembering", "memories of", "not forgotten",
						"not forget", "memory", "memories",
					},
					Templates: map[string]string{
						"when_young":     `(?:back\s+)?when\s+(?:i|we)\s+(?:was|were)\s+(?:young|younger|a\s+kid|kids|in\s+(?:high\s+)?school|in\s+college)`,
						"back_in_decade": `back\s+in\s+(?:the\s+)?(?:'|’)?\d{2,4}s`,
					},
				},
				string(model.CategoryPlace): {
					Phrases: []string{
						"in the car", "at home", "in my room", "on the road", "club", "stadium",
						"concert hall", "bedroom", "my car", "my bed", "chair", "house", "city",
						"hotel", "hospital", "school", "college", "university", "bar", "restaurant",
						"room",
					},
					Templates: map[string]string{
						"listening_setting": `(?:in|at|on)\s+(?:my|the|a)\s+(?:car|kitchen|bedroom|train|bus|subway|commute|gym|festival|gig|dorm)`,
					},
				},
				string(model.CategoryPerson): {
					Phrases: []string{
						"my friend", "my friends", "my partner", "my partners", "my dad", "my mom",
						"my mother", "my father", "my cousin", "my cousins", "my neighbour",
						"my neighbours", "my sibling", "my siblings", "my parent", "my parents",
						"my uncle", "my uncles", "my aunt", "my aunts", "my mate", "my mates",
						"my buddy", "my buddies", "my wife", "my husband", "people", "fans",
						"listeners", "singer", "singers", "artist", "artists",
					},
					Templates: map[string]string{
						"possessive_relation": `my\s+(?:best\s+|old\s+|little\s+|big\s+|younger\s+|older\s+)?(?:friend|friends|brother|sister|son|daughter|girlfriend|boyfriend|kids|family)`,
					},
				},
			},
		},
		"classical": {
			Genres: []string{"classical", "opera", "chamber music", "baroque", "choral", "early music", "contemporary classical"},
			Categories: map[string]CategoryLexicon{
				string(model.CategoryBody): {
					Phrases: []string{
						"chest", "in my gut", "physically", "gives me chills", "goosebumps", "tears",
						"weeping", "throat", "breath", "breathing", "lungs", "heart", "heart racing",
						"spine", "skin", "shiver", "shivers", "shivering", "trembling", "pulse",
					},
					Templates: map[string]string{
						"possessive_body_part": possessive + `\s+(?:own\s+)?(?:chest|heart|gut|spine|skin|throat|stomach)`,
						"spine_tingle":         `(?:shivers?|chills?|tingles?)\s+(?:down|up)\s+(?:my|your|the)\s+spine`,
					},
				},
				string(model.CategoryMemory): {
					Phrases: []string{
						"reminds me of", "made me think of", "brings back memories", "takes me back to",
						"i remember", "childhood", "years ago", "i recall", "long time ago", "nostalgic",
						"nostalgia", "remembering", "memories of", "first heard", "first time i heard",
						"memory", "memories",
					},
				},
				string(model.CategoryPlace): {
					Phrases: []string{
						"concert hall", "opera house", "recital hall", "in the car", "at home",
						"in my room", "church", "cathedral", "chapel", "auditorium", "living room",
						"festival",
					},
				},
				string(model.CategoryPerson): {
					Phrases: []string{
						"my friend", "my friends", "my partner", "my dad", "my mom", "my mother",
						"my father", "my parents", "my wife", "my husband", "audience", "listeners",
						"people", "fans",
					},
					Templates: map[string]string{
						"possessive_relation": `my\s+(?:best\s+|old\s+|late\s+)?(?:friend|friends|brother|sister|son|daughter|grandmother|grandfather|teacher|family)`,
					},
				},
			},
		},
	}}
}

// LoadLexicon reads a YAML lexicon file. Phrases are NFKC-normalized,
// lowercased and trimmed.
func LoadLexicon(path string) (Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Lexicon{}, fmt.Errorf("read lexicon: %w", err)
	}

	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return Lexicon{}, fmt.Errorf("parse lexicon: %w", err)
	}
	if len(lex.Variants) == 0 {
		return Lexicon{}, fmt.Errorf("lexicon %s defines no variants", path)
	}

	for name, v := range lex.Variants {
		for cat, cl := range v.Categories {
			for i, p := range cl.Phrases {
				cl.Phrases[i] = NormalizeTerm(p)
			}
			v.Categories[cat] = cl
		}
		lex.Variants[name] = v
	}

	return lex, nil
}

// NormalizeTerm folds a lexicon term to its canonical form
func NormalizeTerm(term string) string {
	return strings.TrimSpace(strings.ToLower(norm.NFKC.String(term)))
}

// Build compiles a lexicon into a genre registry
func (l Lexicon) Build() (*Registry, error) {
	names := make([]string, 0, len(l.Variants))
	for name := range l.Variants {
		names = append(names, name)
	}
	sort.Strings(names)

	registry := NewRegistry()
	for _, name := range names {
		v := l.Variants[name]
		set, err := v.compile(name)
		if err != nil {
			return nil, err
		}
		if covered := set.Categories(); len(covered) < len(model.AllCategories()) {
			slog.Warn("lexicon variant does not cover every category", "variant", name, "covered", covered)
		}
		if len(v.Genres) == 0 {
			if registry.fallback != nil {
				return nil, fmt.Errorf("lexicon: variants %q and %q both lack genres", registry.fallback.Name, name)
			}
			registry.fallback = set
			continue
		}
		registry.Register(set, v.Genres...)
	}

	if registry.fallback == nil {
		return nil, fmt.Errorf("lexicon: no fallback variant (a variant without genres is required)")
	}
	return registry, nil
}

// compile builds the variant's patterns in canonical category order, phrases
// before templates, templates sorted by name
func (v VariantLexicon) compile(name string) (*PatternSet, error) {
	byCat := make(map[model.Category]CategoryLexicon)
	for key, cl := range v.Categories {
		cat, err := model.ParseCategory(key)
		if err != nil {
			return nil, fmt.Errorf("lexicon variant %s: %w", name, err)
		}
		byCat[cat] = cl
	}

	var patterns []Pattern
	for _, cat := range model.AllCategories() {
		cl, ok := byCat[cat]
		if !ok {
			continue
		}
		if len(cl.Phrases) > 0 {
			p, err := NewPhrasePattern(string(cat)+"/phrases", cat, cl.Phrases)
			if err != nil {
				return nil, fmt.Errorf("lexicon variant %s: %w", name, err)
			}
			patterns = append(patterns, p)
		}

		tnames := make([]string, 0, len(cl.Templates))
		for tn := range cl.Templates {
			tnames = append(tnames, tn)
		}
		sort.Strings(tnames)
		for _, tn := range tnames {
			p, err := NewTemplatePattern(string(cat)+"/"+tn, cat, cl.Templates[tn])
			if err != nil {
				return nil, fmt.Errorf("lexicon variant %s: %w", name, err)
			}
			patterns = append(patterns, p)
		}
	}

	return NewPatternSet(name, patterns...), nil
}
