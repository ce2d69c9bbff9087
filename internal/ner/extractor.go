package ner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/ppiankov/experia/internal/cache"
	"github.com/ppiankov/experia/internal/model"
	"github.com/ppiankov/experia/internal/worker"
)

// Extractor turns raw model predictions into gated Mentions. It never
// retries; a failed sentence is reported as an ExtractionError.
type Extractor struct {
	model     Model
	modelID   string
	labels    []Label
	base      float64
	threshold map[model.Category]float64
	blockers  bool
	limiter   *worker.Limiter
	cache     cache.Cache
	cacheTTL  time.Duration
}

// Option configures an Extractor
type Option func(*Extractor)

// WithLimiter rate-limits model calls
func WithLimiter(l *worker.Limiter) Option {
	return func(e *Extractor) { e.limiter = l }
}

// WithCache stores raw predictions between runs
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(e *Extractor) {
		e.cache = c
		e.cacheTTL = ttl
	}
}

// WithLabels overrides the label descriptions sent to the model
func WithLabels(labels []Label) Option {
	return func(e *Extractor) { e.labels = labels }
}

// NewExtractor wraps m with the thresholds from cfg
func NewExtractor(m Model, cfg *model.Config, opts ...Option) *Extractor {
	e := &Extractor{
		model:     m,
		modelID:   cfg.Neural.Model,
		labels:    DefaultLabels(),
		base:      cfg.BaseThreshold,
		threshold: make(map[model.Category]float64),
		blockers:  cfg.Neural.Blockers,
	}
	for _, cat := range model.AllCategories() {
		e.threshold[cat] = cfg.Threshold(cat)
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Backend returns the wrapped model name
func (e *Extractor) Backend() string {
	return e.model.Name()
}

// Extract runs the model on one sentence. A prediction survives only when
// its score clears both the base and the category threshold.
func (e *Extractor) Extract(ctx context.Context, s model.SentenceSample) ([]model.Mention, error) {
	preds, err := e.predict(ctx, s.Text)
	if err != nil {
		return nil, e.fail(s, err)
	}

	var mentions []model.Mention
	for _, p := range preds {
		cat, err := validate(p, s.Text)
		if err != nil {
			return nil, e.fail(s, err)
		}

		if p.Score < e.base || p.Score < e.threshold[cat] {
			continue
		}

		text := s.Text[p.Start:p.End]
		if e.blockers && blocked(cat, text) {
			slog.Debug("neural prediction blocked", "doc", s.DocumentID, "category", cat, "text", text)
			continue
		}

		mentions = append(mentions, model.Mention{
			Category:      cat,
			Method:        model.MethodNeural,
			Score:         p.Score,
			Span:          model.Span{Start: p.Start, End: p.End},
			Text:          text,
			Pattern:       e.model.Name(),
			DocumentID:    s.DocumentID,
			SentenceIndex: s.Index,
		})
	}

	return mentions, nil
}

// predict returns raw predictions, from the cache when possible
func (e *Extractor) predict(ctx context.Context, text string) ([]Prediction, error) {
	key := e.cacheKey(text)
	if e.cache != nil {
		if data, ok := e.cache.Get(key); ok {
			var preds []Prediction
			if err := json.Unmarshal(data, &preds); err == nil {
				return preds, nil
			}
		}
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx, e.model.Name()); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	preds, err := e.model.Predict(ctx, PredictRequest{
		Text:      text,
		Labels:    e.labels,
		Threshold: e.base,
	})
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if data, err := json.Marshal(preds); err == nil {
			if err := e.cache.Set(key, data, e.cacheTTL); err != nil {
				slog.Warn("prediction cache write failed", "err", err)
			}
		}
	}
	return preds, nil
}

func (e *Extractor) cacheKey(text string) string {
	parts := []string{e.model.Name(), e.modelID, strconv.FormatFloat(e.base, 'f', -1, 64)}
	for _, l := range e.labels {
		parts = append(parts, string(l.Name)+"="+l.Description)
	}
	return cache.PredictionKey(append(parts, text)...)
}

func (e *Extractor) fail(s model.SentenceSample, err error) error {
	return &model.ExtractionError{
		DocumentID:    s.DocumentID,
		SentenceIndex: s.Index,
		Backend:       e.model.Name(),
		Err:           err,
	}
}

// validate rejects predictions that cannot be trusted as-is. No attempt is
// made to repair spans.
func validate(p Prediction, text string) (model.Category, error) {
	cat, err := model.ParseCategory(p.Label)
	if err != nil {
		return "", fmt.Errorf("malformed prediction: %w", err)
	}
	if math.IsNaN(p.Score) || p.Score < 0 || p.Score > 1 {
		return "", fmt.Errorf("malformed prediction: score %v outside [0,1]", p.Score)
	}
	if p.Start < 0 || p.End > len(text) || p.Start >= p.End {
		return "", fmt.Errorf("malformed prediction: span [%d,%d) invalid for sentence of length %d", p.Start, p.End, len(text))
	}
	if p.Text != "" && !strings.EqualFold(strings.TrimSpace(text[p.Start:p.End]), strings.TrimSpace(p.Text)) {
		return "", fmt.Errorf("malformed prediction: span text %q does not match %q", text[p.Start:p.End], p.Text)
	}
	return cat, nil
}

// Outcome is the result of extracting one sentence in a batch
type Outcome struct {
	Sentence model.SentenceSample
	Mentions []model.Mention
	Err      error
}

// GetError implements worker.Result
func (o Outcome) GetError() error {
	return o.Err
}

type sentenceJob struct {
	ctx      context.Context
	e        *Extractor
	sentence model.SentenceSample
}

func (j sentenceJob) Execute(_ context.Context) worker.Result {
	mentions, err := j.e.Extract(j.ctx, j.sentence)
	return Outcome{Sentence: j.sentence, Mentions: mentions, Err: err}
}

// ExtractBatch runs Extract over sentences with bounded concurrency.
// Failures are returned per sentence and never abort the batch.
func (e *Extractor) ExtractBatch(ctx context.Context, sentences []model.SentenceSample, concurrency int) []Outcome {
	jobs := make([]worker.Job, len(sentences))
	for i, s := range sentences {
		jobs[i] = sentenceJob{ctx: ctx, e: e, sentence: s}
	}

	results := worker.Run(concurrency, jobs)
	outcomes := make([]Outcome, len(results))
	for i, r := range results {
		outcomes[i] = r.(Outcome)
	}
	return outcomes
}
