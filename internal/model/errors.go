package model

import "fmt"

// SamplingError reports a stratum with no documents inside the token window
type SamplingError struct {
	Source     string
	Candidates int // Documents in the stratum before filtering
	MinTokens  int
	MaxTokens  int
}

func (e *SamplingError) Error() string {
	return fmt.Sprintf("sampling: stratum %q has no qualifying documents (%d candidates, token window [%d,%d])",
		e.Source, e.Candidates, e.MinTokens, e.MaxTokens)
}

// ExtractionError reports a failed extraction for a single sentence
type ExtractionError struct {
	DocumentID    string
	SentenceIndex int
	Backend       string
	Err           error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction: %s failed on document %s sentence %d: %v",
		e.Backend, e.DocumentID, e.SentenceIndex, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// ConfigError reports an invalid configuration value
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}
