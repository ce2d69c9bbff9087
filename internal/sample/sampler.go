// Package sample draws the reproducible stratified sentence sample.
package sample

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/experia/internal/model"
)

// StratumReport describes how one source stratum was sampled
type StratumReport struct {
	Source     string `json:"source"`
	Candidates int    `json:"candidates"` // Documents from this source
	Qualifying int    `json:"qualifying"` // Documents inside the token window
	Requested  int    `json:"requested"`
	Drawn      int    `json:"drawn"`
	Shortfall  bool   `json:"shortfall"` // Fewer qualifying documents than requested
}

// SampledDocument is a drawn document and the sentences chosen from it
type SampledDocument struct {
	DocumentID string `json:"document_id"`
	Source     string `json:"source"`
	Genre      string `json:"genre"`
	Sentences  []int  `json:"sentences"` // Sentence indexes in draw order
}

// Sample is the output of one sampling run
type Sample struct {
	Seed      int64                  `json:"seed"`
	Documents []SampledDocument      `json:"documents"`
	Sentences []model.SentenceSample `json:"sentences"` // Grouped by document, draw order
	Strata    []StratumReport        `json:"strata"`
	Errors    []error                `json:"-"` // One *model.SamplingError per empty stratum
}

// Sampler draws documents per source and sentences per document
type Sampler struct {
	cfg *model.Config
}

// NewSampler creates a sampler bound to a run configuration
func NewSampler(cfg *model.Config) *Sampler {
	return &Sampler{cfg: cfg}
}

// Draw samples the corpus. Strata without qualifying documents are reported in
// Sample.Errors and skipped; Draw fails only when no stratum can be sampled.
func (s *Sampler) Draw(docs []model.Document) (*Sample, error) {
	bySource := make(map[string][]model.Document)
	for _, d := range docs {
		bySource[d.Source] = append(bySource[d.Source], d)
	}

	var sources []string
	for _, src := range s.cfg.Sources {
		sources = append(sources, strings.Join(strings.Fields(src), " "))
	}
	if len(sources) == 0 {
		for src := range bySource {
			sources = append(sources, src)
		}
		sort.Strings(sources)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("sampling: corpus is empty")
	}

	// One generator per run; strata consume it in a fixed order
	rng := newRand(s.cfg.Seed)

	out := &Sample{Seed: s.cfg.Seed}
	for _, src := range sources {
		candidates := bySource[src]
		pool := s.qualifying(candidates)

		report := StratumReport{
			Source:     src,
			Candidates: len(candidates),
			Qualifying: len(pool),
			Requested:  s.cfg.SampleSizePerSource,
		}

		if len(pool) == 0 {
			err := &model.SamplingError{
				Source:     src,
				Candidates: len(candidates),
				MinTokens:  s.cfg.TokenWindow.Min,
				MaxTokens:  s.cfg.TokenWindow.Max,
			}
			slog.Warn("stratum skipped", "source", src, "err", err)
			out.Errors = append(out.Errors, err)
			out.Strata = append(out.Strata, report)
			continue
		}

		for _, idx := range drawWithoutReplacement(rng, len(pool), s.cfg.SampleSizePerSource) {
			doc := pool[idx]
			picked := s.pickSentences(rng, doc)

			out.Documents = append(out.Documents, SampledDocument{
				DocumentID: doc.ID,
				Source:     doc.Source,
				Genre:      doc.Genre,
				Sentences:  picked,
			})
			for _, si := range picked {
				out.Sentences = append(out.Sentences, model.SentenceSample{
					DocumentID: doc.ID,
					Source:     doc.Source,
					Genre:      doc.Genre,
					Index:      si,
					Text:       doc.Sentences[si],
				})
			}
			report.Drawn++
		}

		report.Shortfall = report.Drawn < report.Requested
		if report.Shortfall {
			slog.Info("stratum shortfall", "source", src, "qualifying", report.Qualifying, "requested", report.Requested)
		}
		out.Strata = append(out.Strata, report)
	}

	if len(out.Errors) == len(sources) {
		return out, fmt.Errorf("sampling: no stratum could be sampled: %w", errors.Join(out.Errors...))
	}

	return out, nil
}

// qualifying filters a stratum to the token window and orders it by id so the
// draw does not depend on corpus file order
func (s *Sampler) qualifying(docs []model.Document) []model.Document {
	pool := make([]model.Document, 0, len(docs))
	for _, d := range docs {
		n := d.Tokens()
		if n >= s.cfg.TokenWindow.Min && n <= s.cfg.TokenWindow.Max {
			pool = append(pool, d)
		}
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })
	return pool
}

// pickSentences draws up to k candidate sentences from a document
func (s *Sampler) pickSentences(rng *rand.Rand, doc model.Document) []int {
	var eligible []int
	for i, sent := range doc.Sentences {
		n := utf8.RuneCountInString(sent)
		if n > s.cfg.SentenceChars.Min && n < s.cfg.SentenceChars.Max {
			eligible = append(eligible, i)
		}
	}

	picked := make([]int, 0, s.cfg.SentencesPerDocument)
	for _, idx := range drawWithoutReplacement(rng, len(eligible), s.cfg.SentencesPerDocument) {
		picked = append(picked, eligible[idx])
	}
	return picked
}

// drawWithoutReplacement returns min(k, n) distinct indexes in [0, n) using a
// partial Fisher-Yates shuffle
func drawWithoutReplacement(rng *rand.Rand, n, k int) []int {
	if k > n {
		k = n
	}
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + rng.IntN(n-i)
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm[:k]
}

func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), 0x9e3779b97f4a7c15))
}
