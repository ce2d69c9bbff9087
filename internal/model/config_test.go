package model

import (
	"errors"
	"runtime"
	"strings"
	"testing"
)

func TestDefaultConfig_Valid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got %v", err)
	}
}

func TestConfig_Threshold(t *testing.T) {
	cfg := DefaultConfig()

	tests := map[Category]float64{
		CategoryBody:   0.50,
		CategoryMemory: 0.60,
		CategoryPlace:  0.65,
		CategoryPerson: 0.65,
	}
	for cat, want := range tests {
		if got := cfg.Threshold(cat); got != want {
			t.Errorf("Threshold(%s) = %.2f, expected %.2f", cat, got, want)
		}
	}

	// Keys may arrive lowercased from config loaders
	cfg.CategoryThresholds = map[string]float64{"place": 0.8}
	if got := cfg.Threshold(CategoryPlace); got != 0.8 {
		t.Errorf("Expected case-insensitive lookup to give 0.80, got %.2f", got)
	}
	if got := cfg.Threshold(CategoryBody); got != cfg.BaseThreshold {
		t.Errorf("Expected base threshold for unset category, got %.2f", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"category below base", func(c *Config) { c.CategoryThresholds["BODY"] = 0.30 }, "category_thresholds.BODY"},
		{"category above one", func(c *Config) { c.CategoryThresholds["PLACE"] = 1.5 }, "category_thresholds.PLACE"},
		{"unknown category", func(c *Config) { c.CategoryThresholds["MOOD"] = 0.7 }, "category_thresholds"},
		{"duplicate category", func(c *Config) { c.CategoryThresholds["body"] = 0.7 }, "category_thresholds"},
		{"base out of range", func(c *Config) { c.BaseThreshold = -0.1 }, "base_threshold"},
		{"zero sample size", func(c *Config) { c.SampleSizePerSource = 0 }, "sample_size_per_source"},
		{"zero sentences", func(c *Config) { c.SentencesPerDocument = 0 }, "sentences_per_document"},
		{"inverted token window", func(c *Config) { c.TokenWindow = Window{Min: 650, Max: 450} }, "token_window"},
		{"empty sentence window", func(c *Config) { c.SentenceChars = Window{Min: 10, Max: 11} }, "sentence_chars"},
		{"zero iterations", func(c *Config) { c.BootstrapIterations = 0 }, "bootstrap_iterations"},
		{"alpha out of range", func(c *Config) { c.Stabilizer.Alpha = 1 }, "stabilizer.alpha"},
		{"unknown group_by", func(c *Config) { c.Stabilizer.GroupBy = "genre" }, "stabilizer.group_by"},
		{"unknown backend", func(c *Config) { c.Neural.Backend = "spacy" }, "neural.backend"},
		{"duplicate source", func(c *Config) { c.Sources = []string{"Pitchfork", "Amazon", " Pitchfork "} }, "sources"},
		{"empty source", func(c *Config) { c.Sources = []string{"Pitchfork", "  "} }, "sources"},
		{"unknown label category", func(c *Config) { c.Neural.Labels = map[string]string{"mood": "x"} }, "neural.labels"},
		{"negative backend rate", func(c *Config) { c.Neural.RateLimit.Backends = map[string]float64{"openai": -1} }, "neural.rate_limit.backends.openai"},
		{"negative workers", func(c *Config) { c.Workers = -2 }, "workers"},
		{"negative concurrency", func(c *Config) { c.Neural.Concurrency = -1 }, "neural.concurrency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Expected ConfigError, got %T", err)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("Expected error to mention %s, got %v", tt.field, err)
			}
		})
	}
}

func TestConfig_WorkerCount(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Workers != 0 {
		t.Errorf("Expected machine-independent default of 0 workers, got %d", cfg.Workers)
	}
	if cfg.WorkerCount() != runtime.NumCPU() {
		t.Errorf("Expected %d workers when unset, got %d", runtime.NumCPU(), cfg.WorkerCount())
	}
	cfg.Workers = 3
	if cfg.WorkerCount() != 3 {
		t.Errorf("Expected 3 workers, got %d", cfg.WorkerCount())
	}
}

func TestConfig_ValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SampleSizePerSource = 0
	cfg.BootstrapIterations = -5

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Expected validation error")
	}
	for _, field := range []string{"sample_size_per_source", "bootstrap_iterations"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("Expected joined error to mention %s, got %v", field, err)
		}
	}
}

func TestParseCategory(t *testing.T) {
	if c, err := ParseCategory(" memory "); err != nil || c != CategoryMemory {
		t.Errorf("Expected MEMORY, got %q, %v", c, err)
	}
	if _, err := ParseCategory("MOOD"); err == nil {
		t.Error("Expected error for unknown category")
	}
}

func TestDocument_Tokens(t *testing.T) {
	d := Document{Sentences: []string{"one two  three", "four\tfive"}}
	if got := d.Tokens(); got != 5 {
		t.Errorf("Expected 5 tokens, got %d", got)
	}
}

func TestExtractionError_Unwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := &ExtractionError{DocumentID: "d1", SentenceIndex: 2, Backend: "gliner", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("Expected ExtractionError to unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "d1") || !strings.Contains(err.Error(), "sentence 2") {
		t.Errorf("Unexpected message: %v", err)
	}
}
