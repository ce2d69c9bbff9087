package sample

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/ppiankov/experia/internal/model"
)

// makeDoc builds a document with the given number of 4-word sentences
func makeDoc(id, source, genre string, sentences int) model.Document {
	d := model.Document{ID: id, Source: source, Genre: genre}
	for i := 0; i < sentences; i++ {
		d.Sentences = append(d.Sentences, fmt.Sprintf("Sentence %d of %s.", i, id))
	}
	return d
}

func testConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.SampleSizePerSource = 10
	cfg.SentencesPerDocument = 3
	cfg.TokenWindow = model.Window{Min: 8, Max: 40}
	return cfg
}

func testCorpus() []model.Document {
	var docs []model.Document
	for i := 0; i < 30; i++ {
		docs = append(docs, makeDoc(fmt.Sprintf("b-%02d", i), "Outlet-B", "Rock", 6))
	}
	for i := 0; i < 5; i++ {
		docs = append(docs, makeDoc(fmt.Sprintf("a-%02d", i), "Outlet-A", "Jazz", 4))
	}
	return docs
}

func TestSampler_Deterministic(t *testing.T) {
	cfg := testConfig()
	docs := testCorpus()

	first, err := NewSampler(cfg).Draw(docs)
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	second, err := NewSampler(cfg).Draw(docs)
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}

	if !reflect.DeepEqual(first.Sentences, second.Sentences) {
		t.Error("Expected identical sentence selections for the same seed")
	}
	if !reflect.DeepEqual(first.Documents, second.Documents) {
		t.Error("Expected identical document selections for the same seed")
	}
}

func TestSampler_IndependentOfCorpusOrder(t *testing.T) {
	cfg := testConfig()
	docs := testCorpus()

	reversed := make([]model.Document, len(docs))
	for i, d := range docs {
		reversed[len(docs)-1-i] = d
	}

	a, err := NewSampler(cfg).Draw(docs)
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	b, err := NewSampler(cfg).Draw(reversed)
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}

	if !reflect.DeepEqual(a.Sentences, b.Sentences) {
		t.Error("Expected corpus order not to affect the sample")
	}
}

func TestSampler_DifferentSeedsDiffer(t *testing.T) {
	docs := testCorpus()

	cfg1 := testConfig()
	cfg2 := testConfig()
	cfg2.Seed = 7

	a, _ := NewSampler(cfg1).Draw(docs)
	b, _ := NewSampler(cfg2).Draw(docs)

	if reflect.DeepEqual(a.Documents, b.Documents) {
		t.Error("Expected different seeds to produce different samples")
	}
}

func TestSampler_Shortfall(t *testing.T) {
	cfg := testConfig()
	sample, err := NewSampler(cfg).Draw(testCorpus())
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}

	var outletA *StratumReport
	for i := range sample.Strata {
		if sample.Strata[i].Source == "Outlet-A" {
			outletA = &sample.Strata[i]
		}
	}
	if outletA == nil {
		t.Fatal("Expected a report for Outlet-A")
	}
	if outletA.Drawn != 5 || !outletA.Shortfall {
		t.Errorf("Expected all 5 documents with shortfall flag, got %+v", *outletA)
	}
	if len(sample.Errors) != 0 {
		t.Errorf("Expected shortfall not to be an error, got %v", sample.Errors)
	}

	count := 0
	for _, d := range sample.Documents {
		if d.Source == "Outlet-A" {
			count++
		}
	}
	if count != 5 {
		t.Errorf("Expected 5 Outlet-A documents, got %d", count)
	}
}

func TestSampler_SentencesPerDocument(t *testing.T) {
	cfg := testConfig()
	docs := []model.Document{
		makeDoc("long", "S", "Pop", 6),
		makeDoc("short", "S", "Pop", 2),
	}
	// "short" has 8 tokens, "long" 24; both inside the window
	sample, err := NewSampler(cfg).Draw(docs)
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}

	for _, d := range sample.Documents {
		seen := make(map[int]bool)
		for _, idx := range d.Sentences {
			if seen[idx] {
				t.Errorf("Document %s: sentence %d drawn twice", d.DocumentID, idx)
			}
			seen[idx] = true
		}
		switch d.DocumentID {
		case "long":
			if len(d.Sentences) != 3 {
				t.Errorf("Expected 3 sentences from long document, got %d", len(d.Sentences))
			}
		case "short":
			if len(d.Sentences) != 2 {
				t.Errorf("Expected all 2 sentences from short document, got %d", len(d.Sentences))
			}
		}
	}

	// Samples reference the untouched sentence text
	for _, s := range sample.Sentences {
		if !strings.Contains(s.Text, s.DocumentID) {
			t.Errorf("Sentence %q does not belong to %s", s.Text, s.DocumentID)
		}
	}
}

func TestSampler_SentenceLengthFilter(t *testing.T) {
	cfg := testConfig()
	cfg.TokenWindow = model.Window{Min: 0, Max: 1000}
	doc := model.Document{
		ID:     "d",
		Source: "S",
		Sentences: []string{
			"Too short.",
			"This sentence is comfortably long enough.",
			strings.Repeat("word ", 80),
		},
	}

	sample, err := NewSampler(cfg).Draw([]model.Document{doc})
	if err != nil {
		t.Fatalf("Draw failed: %v", err)
	}
	if len(sample.Sentences) != 1 || sample.Sentences[0].Index != 1 {
		t.Errorf("Expected only sentence 1 to be eligible, got %+v", sample.Sentences)
	}
}

func TestSampler_EmptyStratum(t *testing.T) {
	cfg := testConfig()
	cfg.Sources = []string{"Outlet-A", "Outlet-C"}

	sample, err := NewSampler(cfg).Draw(testCorpus())
	if err != nil {
		t.Fatalf("Expected run to continue for other strata, got %v", err)
	}
	if len(sample.Errors) != 1 {
		t.Fatalf("Expected 1 sampling error, got %d", len(sample.Errors))
	}

	var serr *model.SamplingError
	if !errors.As(sample.Errors[0], &serr) {
		t.Fatalf("Expected *model.SamplingError, got %T", sample.Errors[0])
	}
	if serr.Source != "Outlet-C" {
		t.Errorf("Expected stratum Outlet-C in error, got %q", serr.Source)
	}
}

func TestSampler_AllStrataEmpty(t *testing.T) {
	cfg := testConfig()
	cfg.TokenWindow = model.Window{Min: 500, Max: 600}

	_, err := NewSampler(cfg).Draw(testCorpus())
	if err == nil {
		t.Fatal("Expected error when no stratum qualifies")
	}
	var serr *model.SamplingError
	if !errors.As(err, &serr) {
		t.Errorf("Expected wrapped SamplingError, got %v", err)
	}
}

func TestSampler_EmptyCorpus(t *testing.T) {
	if _, err := NewSampler(testConfig()).Draw(nil); err == nil {
		t.Fatal("Expected error for empty corpus")
	}
}

func TestDrawWithoutReplacement(t *testing.T) {
	rng := newRand(1)
	got := drawWithoutReplacement(rng, 10, 4)
	if len(got) != 4 {
		t.Fatalf("Expected 4 indexes, got %d", len(got))
	}
	seen := make(map[int]bool)
	for _, i := range got {
		if i < 0 || i >= 10 || seen[i] {
			t.Errorf("Invalid or repeated index %d in %v", i, got)
		}
		seen[i] = true
	}

	if got := drawWithoutReplacement(rng, 3, 5); len(got) != 3 {
		t.Errorf("Expected k capped at n, got %v", got)
	}
}
