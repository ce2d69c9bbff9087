// Package ner adapts frozen few-shot NER backends to the extraction pipeline.
// Everything backend-specific is decoded into Prediction at this boundary.
package ner

import (
	"context"
	"fmt"
	"strings"

	"github.com/ppiankov/experia/internal/model"
)

// Model is a frozen few-shot entity recognizer
type Model interface {
	// Name identifies the backend in mentions, logs and cache keys
	Name() string

	// Predict returns raw predictions for one sentence
	Predict(ctx context.Context, req PredictRequest) ([]Prediction, error)
}

// Label is a category name plus the description given to the model
type Label struct {
	Name        model.Category `json:"name"`
	Description string         `json:"description"`
}

// PredictRequest is the input for a single sentence
type PredictRequest struct {
	Text      string
	Labels    []Label
	Threshold float64 // Hint only; the adapter applies its own gating
}

// Prediction is a raw model output. Start and End are byte offsets into the
// request text.
type Prediction struct {
	Label string  `json:"label"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// DefaultLabels returns the category descriptions used for few-shot prompting
func DefaultLabels() []Label {
	return []Label{
		{
			Name:        model.CategoryBody,
			Description: "bodily references, encompassing both affective and sensory dimensions.",
		},
		{
			Name:        model.CategoryMemory,
			Description: "references to temporal or mnemonic dimensions, including past events, recollections, or nostalgic framing.",
		},
		{
			Name:        model.CategoryPlace,
			Description: "spatial locations or situational settings where listening occurs (e.g., home, car, bedroom, college, venue).",
		},
		{
			Name:        model.CategoryPerson,
			Description: "people or social roles involved in the listening experience (e.g., singer, listeners, fans, artist).",
		},
	}
}

// ConfiguredLabels returns the default labels with descriptions replaced by
// the non-empty entries of overrides, keyed by category name
func ConfiguredLabels(overrides map[string]string) ([]Label, error) {
	labels := DefaultLabels()
	for key, desc := range overrides {
		cat, err := model.ParseCategory(key)
		if err != nil {
			return nil, fmt.Errorf("label description: %w", err)
		}
		desc = strings.TrimSpace(desc)
		if desc == "" {
			continue
		}
		for i := range labels {
			if labels[i].Name == cat {
				labels[i].Description = desc
			}
		}
	}
	return labels, nil
}

func labelNames(labels []Label) []string {
	names := make([]string, len(labels))
	for i, l := range labels {
		names[i] = string(l.Name)
	}
	return names
}
