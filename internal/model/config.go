package model

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Config is the immutable run configuration threaded through every stage.
// Stages receive it by value or pointer and never modify it.
type Config struct {
	Seed                 int64              `yaml:"seed" mapstructure:"seed"`
	SampleSizePerSource  int                `yaml:"sample_size_per_source" mapstructure:"sample_size_per_source"`
	SentencesPerDocument int                `yaml:"sentences_per_document" mapstructure:"sentences_per_document"`
	TokenWindow          Window             `yaml:"token_window" mapstructure:"token_window"`
	SentenceChars        Window             `yaml:"sentence_chars" mapstructure:"sentence_chars"` // Exclusive bounds on candidate sentence length
	Sources              []string           `yaml:"sources" mapstructure:"sources"`               // Strata to sample; empty means every source in the corpus
	BaseThreshold        float64            `yaml:"base_threshold" mapstructure:"base_threshold"`
	CategoryThresholds   map[string]float64 `yaml:"category_thresholds" mapstructure:"category_thresholds"`
	BootstrapIterations  int                `yaml:"bootstrap_iterations" mapstructure:"bootstrap_iterations"`
	Stabilizer           StabilizerConfig   `yaml:"stabilizer" mapstructure:"stabilizer"`
	Neural               NeuralConfig       `yaml:"neural" mapstructure:"neural"`
	Cache                CacheConfig        `yaml:"cache" mapstructure:"cache"`
	Corpus               CorpusConfig       `yaml:"corpus" mapstructure:"corpus"`
	LexiconPath          string             `yaml:"lexicon_path" mapstructure:"lexicon_path"`
	Workers              int                `yaml:"workers" mapstructure:"workers"` // 0 means one per CPU
}

// Window is an integer range [Min, Max]
type Window struct {
	Min int `yaml:"min" mapstructure:"min"`
	Max int `yaml:"max" mapstructure:"max"`
}

// StabilizerConfig controls bootstrap estimation
type StabilizerConfig struct {
	Alpha   float64 `yaml:"alpha" mapstructure:"alpha"`
	GroupBy string  `yaml:"group_by" mapstructure:"group_by"` // "source_genre" or "source"
}

// Stabilizer grouping modes
const (
	GroupBySourceGenre = "source_genre"
	GroupBySource      = "source"
)

// NeuralConfig selects and tunes the few-shot NER backend
type NeuralConfig struct {
	Backend     string            `yaml:"backend" mapstructure:"backend"` // "gliner", "openai", "ollama", "anthropic", "none"
	Model       string            `yaml:"model" mapstructure:"model"`
	BaseURL     string            `yaml:"base_url" mapstructure:"base_url"`
	APIKey      string            `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Timeout     time.Duration     `yaml:"timeout" mapstructure:"timeout"`
	Concurrency int               `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit" mapstructure:"rate_limit"`
	Blockers    bool              `yaml:"blockers" mapstructure:"blockers"`       // Drop pronoun PERSON and instrument BODY predictions
	Labels      map[string]string `yaml:"labels,omitempty" mapstructure:"labels"` // Category description overrides for prompting
	HTTPProxy   string            `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy  string            `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// Neural backends
const (
	BackendGLiNER    = "gliner"
	BackendOpenAI    = "openai"
	BackendOllama    = "ollama"
	BackendAnthropic = "anthropic"
	BackendNone      = "none"
)

// RateLimitConfig limits neural calls; zero RequestsPerSecond disables it
type RateLimitConfig struct {
	RequestsPerSecond float64            `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int                `yaml:"burst" mapstructure:"burst"`
	Backends          map[string]float64 `yaml:"backends,omitempty" mapstructure:"backends"` // Per-backend requests per second, e.g. openai: 3
}

// CacheConfig controls the prediction cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// CorpusConfig controls corpus cleaning
type CorpusConfig struct {
	ExcludedGenres []string `yaml:"excluded_genres" mapstructure:"excluded_genres"`
	MinQuotedChars int      `yaml:"min_quoted_chars" mapstructure:"min_quoted_chars"` // Quoted spans at least this long are treated as lyrics
	StripHTML      bool     `yaml:"strip_html" mapstructure:"strip_html"`
}

// DefaultConfig returns the configuration used for the published analysis
func DefaultConfig() *Config {
	return &Config{
		Seed:                 42,
		SampleSizePerSource:  200,
		SentencesPerDocument: 3,
		TokenWindow:          Window{Min: 450, Max: 650},
		SentenceChars:        Window{Min: 10, Max: 300},
		BaseThreshold:        0.45,
		CategoryThresholds: map[string]float64{
			string(CategoryBody):   0.50,
			string(CategoryMemory): 0.60,
			string(CategoryPlace):  0.65,
			string(CategoryPerson): 0.65,
		},
		BootstrapIterations: 1000,
		Stabilizer: StabilizerConfig{
			Alpha:   0.05,
			GroupBy: GroupBySourceGenre,
		},
		Neural: NeuralConfig{
			Backend:     BackendGLiNER,
			Model:       "urchade/gliner_small-v2.1",
			BaseURL:     "http://localhost:8001",
			Timeout:     30 * time.Second,
			Concurrency: 4,
			RateLimit:   RateLimitConfig{Burst: 5},
			Blockers:    true,
		},
		Cache: CacheConfig{
			Enabled:   false,
			Dir:       ".experia-cache",
			MemoryTTL: time.Hour,
			DiskTTL:   30 * 24 * time.Hour,
		},
		Corpus: CorpusConfig{
			ExcludedGenres: []string{"Blues", "Global", "Reggae", "New Age", "Latin Music"},
			MinQuotedChars: 15,
			StripHTML:      true,
		},
	}
}

// WorkerCount resolves Workers, using one worker per CPU when unset
func (c *Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// CategoryThreshold returns the configured override for a category.
// Keys are matched case-insensitively since config loaders may fold case.
func (c *Config) CategoryThreshold(cat Category) (float64, bool) {
	for k, v := range c.CategoryThresholds {
		if strings.EqualFold(k, string(cat)) {
			return v, true
		}
	}
	return 0, false
}

// Threshold returns the effective neural cut-off for a category:
// the larger of the base threshold and the category override.
func (c *Config) Threshold(cat Category) float64 {
	t := c.BaseThreshold
	if ct, ok := c.CategoryThreshold(cat); ok && ct > t {
		t = ct
	}
	return t
}

// Validate checks the configuration before any work starts
func (c *Config) Validate() error {
	var errs []error
	bad := func(field, format string, args ...interface{}) {
		errs = append(errs, &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)})
	}

	if c.SampleSizePerSource <= 0 {
		bad("sample_size_per_source", "must be positive, got %d", c.SampleSizePerSource)
	}
	if c.SentencesPerDocument <= 0 {
		bad("sentences_per_document", "must be positive, got %d", c.SentencesPerDocument)
	}
	if c.TokenWindow.Min < 0 || c.TokenWindow.Max < c.TokenWindow.Min {
		bad("token_window", "invalid range [%d,%d]", c.TokenWindow.Min, c.TokenWindow.Max)
	}
	if c.SentenceChars.Min < 0 || c.SentenceChars.Max <= c.SentenceChars.Min+1 {
		bad("sentence_chars", "invalid exclusive range (%d,%d)", c.SentenceChars.Min, c.SentenceChars.Max)
	}
	seenSources := make(map[string]bool, len(c.Sources))
	for _, src := range c.Sources {
		key := strings.Join(strings.Fields(src), " ")
		if key == "" {
			bad("sources", "empty source name")
			continue
		}
		if seenSources[key] {
			bad("sources", "duplicate source %q", key)
		}
		seenSources[key] = true
	}
	if c.BaseThreshold < 0 || c.BaseThreshold > 1 {
		bad("base_threshold", "must be in [0,1], got %.2f", c.BaseThreshold)
	}

	seen := make(map[Category]bool)
	for k, v := range c.CategoryThresholds {
		cat, err := ParseCategory(k)
		if err != nil {
			bad("category_thresholds", "%v", err)
			continue
		}
		if seen[cat] {
			bad("category_thresholds", "duplicate entry for %s", cat)
		}
		seen[cat] = true
		if v < 0 || v > 1 {
			bad("category_thresholds."+string(cat), "must be in [0,1], got %.2f", v)
		} else if v < c.BaseThreshold {
			bad("category_thresholds."+string(cat), "%.2f is below base_threshold %.2f and would have no effect", v, c.BaseThreshold)
		}
	}

	if c.BootstrapIterations <= 0 {
		bad("bootstrap_iterations", "must be positive, got %d", c.BootstrapIterations)
	}
	if c.Stabilizer.Alpha <= 0 || c.Stabilizer.Alpha >= 1 {
		bad("stabilizer.alpha", "must be in (0,1), got %.3f", c.Stabilizer.Alpha)
	}
	switch c.Stabilizer.GroupBy {
	case GroupBySourceGenre, GroupBySource:
	default:
		bad("stabilizer.group_by", "unknown mode %q (supported: %s, %s)", c.Stabilizer.GroupBy, GroupBySourceGenre, GroupBySource)
	}

	switch strings.ToLower(c.Neural.Backend) {
	case BackendGLiNER, BackendOpenAI, BackendOllama, BackendAnthropic, BackendNone:
	default:
		bad("neural.backend", "unknown backend %q (supported: gliner, openai, ollama, anthropic, none)", c.Neural.Backend)
	}
	if c.Workers < 0 {
		bad("workers", "must not be negative, got %d", c.Workers)
	}
	if c.Neural.Concurrency < 0 {
		bad("neural.concurrency", "must not be negative, got %d", c.Neural.Concurrency)
	}
	if c.Neural.RateLimit.RequestsPerSecond < 0 {
		bad("neural.rate_limit.requests_per_second", "must not be negative")
	}
	for key := range c.Neural.Labels {
		if _, err := ParseCategory(key); err != nil {
			bad("neural.labels", "%v", err)
		}
	}
	for name, rps := range c.Neural.RateLimit.Backends {
		if rps < 0 {
			bad("neural.rate_limit.backends."+name, "must not be negative, got %.2f", rps)
		}
	}

	return errors.Join(errs...)
}
