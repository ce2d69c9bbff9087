// Package pipeline orchestrates sampling, hybrid extraction, merging and
// rate stabilization.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/experia/internal/model"
	"github.com/ppiankov/experia/internal/ner"
	"github.com/ppiankov/experia/internal/rules"
	"github.com/ppiankov/experia/internal/sample"
	"github.com/ppiankov/experia/internal/stabilize"
	"github.com/ppiankov/experia/internal/worker"
)

// Pipeline runs one complete extraction pass over a corpus
type Pipeline struct {
	sampler    *sample.Sampler
	rules      *rules.Extractor
	registry   *rules.Registry
	neural     *ner.Extractor // nil when the neural pass is disabled
	stabilizer *stabilize.Stabilizer
	config     *model.Config
	progress   bool
}

// Option configures a Pipeline
type Option func(*Pipeline)

// WithNeural enables the neural pass
func WithNeural(e *ner.Extractor) Option {
	return func(p *Pipeline) { p.neural = e }
}

// WithRegistry replaces the built-in rule lexicon
func WithRegistry(r *rules.Registry) Option {
	return func(p *Pipeline) { p.registry = r }
}

// WithProgress prints stage banners to stderr
func WithProgress(on bool) Option {
	return func(p *Pipeline) { p.progress = on }
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config, opts ...Option) *Pipeline {
	p := &Pipeline{
		sampler:    sample.NewSampler(cfg),
		rules:      rules.NewExtractor(cfg.Corpus.MinQuotedChars),
		stabilizer: stabilize.New(cfg),
		config:     cfg,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.registry == nil {
		p.registry = rules.DefaultRegistry()
	}
	return p
}

// Result is the outcome of a run
type Result struct {
	RunID     string                           `json:"run_id"`
	StartedAt time.Time                        `json:"started_at"`
	Duration  string                           `json:"duration"`
	Backend   string                           `json:"backend"`
	Sample    *sample.Sample                   `json:"sample"`
	Records   []model.DocumentExtractionRecord `json:"records"`
	Estimates []model.BootstrapEstimate        `json:"estimates"`
	Skipped   []model.SkippedSentence          `json:"skipped"`
}

// Run samples docs, extracts mentions with both methods, merges them per
// document and stabilizes prevalence per stratum. Neural failures on single
// sentences are recorded and never abort the run.
func (p *Pipeline) Run(ctx context.Context, docs []model.Document) (*Result, error) {
	started := time.Now()
	result := &Result{
		RunID:     uuid.New().String(),
		StartedAt: started.UTC(),
		Backend:   model.BackendNone,
	}
	if p.neural != nil {
		result.Backend = p.neural.Backend()
	}

	// 1. Sample
	p.banner("Sampling %d documents per source (seed %d)...\n", p.config.SampleSizePerSource, p.config.Seed)
	smp, err := p.sampler.Draw(docs)
	if err != nil {
		return nil, fmt.Errorf("sample: %w", err)
	}
	result.Sample = smp
	for _, st := range smp.Strata {
		slog.Info("stratum sampled",
			"source", st.Source,
			"qualifying", st.Qualifying,
			"requested", st.Requested,
			"drawn", st.Drawn,
			"shortfall", st.Shortfall)
	}

	// 2. Rule pass
	p.banner("Rule extraction over %d sentences...\n", len(smp.Sentences))
	ruleMentions := p.extractRules(smp.Sentences)

	// 3. Neural pass
	var outcomes []ner.Outcome
	if p.neural != nil {
		p.banner("Neural extraction (%s) over %d sentences...\n", p.neural.Backend(), len(smp.Sentences))
		outcomes = p.neural.ExtractBatch(ctx, smp.Sentences, p.config.Neural.Concurrency)
	}

	// 4. Merge
	result.Records, result.Skipped = p.merge(smp, ruleMentions, outcomes)

	// 5. Stabilize
	p.banner("Bootstrapping %d iterations per stratum and category...\n", p.config.BootstrapIterations)
	result.Estimates = p.stabilizer.Estimate(result.Records, failedStrata(smp)...)

	result.Duration = time.Since(started).Round(time.Millisecond).String()
	slog.Info("run complete",
		"run_id", result.RunID,
		"documents", len(result.Records),
		"sentences", len(smp.Sentences),
		"skipped", len(result.Skipped),
		"duration", result.Duration)

	return result, nil
}

type ruleJob struct {
	extractor *rules.Extractor
	set       *rules.PatternSet
	sentence  model.SentenceSample
}

type ruleResult struct {
	mentions []model.Mention
}

func (r ruleResult) GetError() error { return nil }

func (j ruleJob) Execute(_ context.Context) worker.Result {
	return ruleResult{mentions: j.extractor.Extract(j.sentence, j.set)}
}

// extractRules runs the rule extractor on every sentence, in sampled order
func (p *Pipeline) extractRules(sentences []model.SentenceSample) [][]model.Mention {
	jobs := make([]worker.Job, len(sentences))
	for i, s := range sentences {
		jobs[i] = ruleJob{extractor: p.rules, set: p.registry.Select(s.Genre), sentence: s}
	}

	results := worker.Run(p.config.WorkerCount(), jobs)
	out := make([][]model.Mention, len(results))
	for i, r := range results {
		out[i] = r.(ruleResult).mentions
	}
	return out
}

// merge builds one record per sampled document. ruleMentions and outcomes are
// indexed like smp.Sentences, which holds each document's sentences as a
// contiguous run in smp.Documents order. Records are keyed by position so two
// documents never share a builder.
func (p *Pipeline) merge(smp *sample.Sample, ruleMentions [][]model.Mention, outcomes []ner.Outcome) ([]model.DocumentExtractionRecord, []model.SkippedSentence) {
	records := make([]model.DocumentExtractionRecord, 0, len(smp.Documents))
	var skipped []model.SkippedSentence

	i := 0
	for _, d := range smp.Documents {
		b := NewRecordBuilder(d.DocumentID, d.Source, d.Genre, len(d.Sentences))
		for end := i + len(d.Sentences); i < end && i < len(smp.Sentences); i++ {
			s := smp.Sentences[i]
			b.Add(ruleMentions[i]...)

			if outcomes == nil {
				continue
			}
			o := outcomes[i]
			if o.Err != nil {
				skip := model.SkippedSentence{
					DocumentID:    s.DocumentID,
					SentenceIndex: s.Index,
					Method:        model.MethodNeural,
					Reason:        reason(o.Err),
				}
				b.Skip(skip)
				skipped = append(skipped, skip)
				slog.Warn("neural extraction failed, sentence skipped",
					"doc", s.DocumentID, "sentence", s.Index, "err", o.Err)
				continue
			}
			b.Add(o.Mentions...)
		}
		records = append(records, b.Finalize())
	}
	return records, skipped
}

// failedStrata lists sources that could not be sampled so their estimates
// are reported as undefined rather than silently missing
func failedStrata(smp *sample.Sample) []model.Stratum {
	var strata []model.Stratum
	for _, err := range smp.Errors {
		var se *model.SamplingError
		if errors.As(err, &se) {
			strata = append(strata, model.Stratum{Source: se.Source})
		}
	}
	return strata
}

func reason(err error) string {
	var ee *model.ExtractionError
	if errors.As(err, &ee) && ee.Err != nil {
		return ee.Err.Error()
	}
	return err.Error()
}

func (p *Pipeline) banner(format string, args ...interface{}) {
	if p.progress {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
