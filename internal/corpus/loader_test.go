package corpus

import (
	"strings"
	"testing"

	"github.com/ppiankov/experia/internal/model"
)

func TestLoad_SkipsIncompleteAndExcluded(t *testing.T) {
	input := `[
		{"review": "Great record. I loved it!", "source": "Pitchfork", "genre": "Rock"},
		{"review": "", "source": "Pitchfork", "genre": "Rock"},
		{"review": "No source here.", "genre": "Rock"},
		{"review": "Skanking all night.", "source": "Amazon", "genre": "Reggae"},
		{"id": "r-7", "review": "Smooth.", "source": "  Amazon ", "genre": " Jazz  "}
	]`

	cfg := model.DefaultConfig().Corpus
	docs, stats, err := Load(strings.NewReader(input), cfg)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(docs) != 2 {
		t.Fatalf("Expected 2 documents, got %d", len(docs))
	}
	if stats.MissingFields != 2 {
		t.Errorf("Expected 2 entries with missing fields, got %d", stats.MissingFields)
	}
	if stats.ExcludedGenre != 1 {
		t.Errorf("Expected 1 excluded genre entry, got %d", stats.ExcludedGenre)
	}

	if docs[0].ID != "#0" {
		t.Errorf("Expected positional id #0, got %q", docs[0].ID)
	}
	if len(docs[0].Sentences) != 2 {
		t.Errorf("Expected 2 sentences, got %v", docs[0].Sentences)
	}
	if docs[1].ID != "r-7" || docs[1].Source != "Amazon" || docs[1].Genre != "Jazz" {
		t.Errorf("Unexpected normalization: %+v", docs[1])
	}
}

func TestLoad_NumericID(t *testing.T) {
	input := `[{"id": 1234, "review": "Fine.", "source": "Amazon", "genre": "Pop"}]`
	docs, _, err := Load(strings.NewReader(input), model.CorpusConfig{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if docs[0].ID != "1234" {
		t.Errorf("Expected id 1234, got %q", docs[0].ID)
	}
}

func TestLoad_PositionalIDDoesNotCollide(t *testing.T) {
	input := `[
		{"id": "1", "review": "It hit me in the chest.", "source": "Amazon", "genre": "Pop"},
		{"review": "Plain and tidy.", "source": "Amazon", "genre": "Pop"}
	]`
	docs, _, err := Load(strings.NewReader(input), model.CorpusConfig{})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if docs[0].ID != "1" || docs[1].ID != "#1" {
		t.Errorf("Expected ids 1 and #1, got %q and %q", docs[0].ID, docs[1].ID)
	}
}

func TestLoad_DuplicateIDRejected(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"explicit", `[
			{"id": "r1", "review": "One.", "source": "Amazon", "genre": "Pop"},
			{"id": "r1", "review": "Two.", "source": "Amazon", "genre": "Pop"}
		]`},
		{"string and number", `[
			{"id": 7, "review": "One.", "source": "Amazon", "genre": "Pop"},
			{"id": "7", "review": "Two.", "source": "Amazon", "genre": "Pop"}
		]`},
		{"explicit matches positional", `[
			{"review": "One.", "source": "Amazon", "genre": "Pop"},
			{"id": "#0", "review": "Two.", "source": "Amazon", "genre": "Pop"}
		]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := Load(strings.NewReader(tt.input), model.CorpusConfig{})
			if err == nil {
				t.Fatal("Expected duplicate id error")
			}
			if !strings.Contains(err.Error(), "duplicate document id") {
				t.Errorf("Expected duplicate id in error, got %v", err)
			}
		})
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	_, _, err := Load(strings.NewReader(`{not json`), model.CorpusConfig{})
	if err == nil {
		t.Fatal("Expected error for malformed corpus")
	}
}

func TestRemoveQuoted(t *testing.T) {
	text := `The chorus goes "I will walk a thousand miles tonight" and it hits hard. A "short" quote stays.`
	got := RemoveQuoted(text, 15)

	if strings.Contains(got, "thousand miles") {
		t.Errorf("Expected lyric to be removed, got %q", got)
	}
	if !strings.Contains(got, `"short"`) {
		t.Errorf("Expected short quote to be kept, got %q", got)
	}
	if strings.Contains(got, "  ") {
		t.Errorf("Expected collapsed whitespace, got %q", got)
	}
}

func TestInsideAny(t *testing.T) {
	spans := [][2]int{{10, 30}}
	if !InsideAny(12, 20, spans) {
		t.Error("Expected [12,20) to be inside [10,30)")
	}
	if InsideAny(25, 35, spans) {
		t.Error("Expected [25,35) to straddle the span")
	}
}

func TestStripHTML(t *testing.T) {
	got := StripHTML(`<p>Loud &amp; clear.</p><script>var x = 1;</script><p>Second.</p>`)
	if got != "Loud & clear. Second." {
		t.Errorf("Unexpected text: %q", got)
	}

	plain := "No markup here."
	if StripHTML(plain) != plain {
		t.Error("Expected plain text to pass through unchanged")
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"terminators", "One. Two! Three? Four", []string{"One.", "Two!", "Three?", "Four"}},
		{"no split without space", "Version 2.0 is out. Yes.", []string{"Version 2.0 is out.", "Yes."}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitSentences(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Sentence %d: expected %q, got %q", i, tt.want[i], got[i])
				}
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	// U+FB01 (ligature fi) folds to "fi" under NFKC
	if got := Normalize("ﬁne   day"); got != "fine day" {
		t.Errorf("Expected %q, got %q", "fine day", got)
	}
}
