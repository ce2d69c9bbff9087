package ner

import (
	"fmt"
	"strings"

	"github.com/ppiankov/experia/internal/model"
)

// NewModel creates a backend from configuration. The "none" backend returns
// a nil Model and disables neural extraction.
func NewModel(cfg model.NeuralConfig) (Model, error) {
	switch strings.ToLower(cfg.Backend) {
	case model.BackendGLiNER:
		return NewGLiNERModel(cfg)

	case model.BackendOpenAI:
		return NewOpenAIModel(cfg)

	case model.BackendOllama:
		return NewOllamaModel(cfg)

	case model.BackendAnthropic:
		return NewAnthropicModel(cfg)

	case model.BackendNone, "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown neural backend: %s (supported: gliner, openai, ollama, anthropic, none)", cfg.Backend)
	}
}
