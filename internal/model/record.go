package model

// DocumentExtractionRecord aggregates every mention found in a document's
// sampled sentences, from both extraction methods.
type DocumentExtractionRecord struct {
	DocumentID string                `json:"document_id"`
	Source     string                `json:"source"`
	Genre      string                `json:"genre"`
	Sentences  int                   `json:"sentences"` // Number of sampled sentences
	Mentions   []Mention             `json:"mentions"`
	Present    map[Category]bool     `json:"present"`
	Methods    map[Category][]Method `json:"methods,omitempty"` // Distinct methods that found each category
	Skipped    []SkippedSentence     `json:"skipped,omitempty"`
}

// Has reports whether the category is present in the document
func (r DocumentExtractionRecord) Has(c Category) bool {
	return r.Present[c]
}

// Stratum is the (source, genre) partition used for rate estimates.
// Genre is empty when estimates are grouped by source only.
type Stratum struct {
	Source string `json:"source"`
	Genre  string `json:"genre,omitempty"`
}

func (s Stratum) String() string {
	if s.Genre == "" {
		return s.Source
	}
	return s.Source + "/" + s.Genre
}

// RateInterval holds the prevalence estimates for a defined BootstrapEstimate
type RateInterval struct {
	SampleMean    float64 `json:"sample_mean"`    // Mean of the observed presence flags
	ResampledMean float64 `json:"resampled_mean"` // Mean of the bootstrap means
	Lower         float64 `json:"ci_lower"`
	Upper         float64 `json:"ci_upper"`
}

// BootstrapEstimate is the stabilized prevalence of a category in a stratum.
// Rate is nil exactly when Undefined is true (no documents in the stratum).
type BootstrapEstimate struct {
	Stratum    Stratum       `json:"stratum"`
	Category   Category      `json:"category"`
	N          int           `json:"n"`
	Iterations int           `json:"iterations"`
	Seed       uint64        `json:"seed"` // Stream seed used for this pair
	Alpha      float64       `json:"alpha"`
	Undefined  bool          `json:"undefined"`
	Rate       *RateInterval `json:"rate,omitempty"`
}
