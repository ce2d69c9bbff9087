// Package corpus turns the raw review dump into immutable model.Document values.
package corpus

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/ppiankov/experia/internal/model"
)

// rawReview is one entry of the corpus JSON array
type rawReview struct {
	ID     json.RawMessage `json:"id,omitempty"`
	Review string          `json:"review"`
	Source string          `json:"source"`
	Genre  string          `json:"genre"`
}

// Stats summarizes what the loader kept and dropped
type Stats struct {
	Total         int `json:"total"`
	Kept          int `json:"kept"`
	MissingFields int `json:"missing_fields"`
	ExcludedGenre int `json:"excluded_genre"`
	LyricsRemoved int `json:"lyrics_removed"`
}

// LoadFile reads a JSON corpus file
func LoadFile(path string, cfg model.CorpusConfig) ([]model.Document, Stats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("open corpus: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Load(f, cfg)
}

// Load decodes a JSON array of reviews and cleans each one.
// Entries without review text or source are skipped.
func Load(r io.Reader, cfg model.CorpusConfig) ([]model.Document, Stats, error) {
	var raw []rawReview
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, Stats{}, fmt.Errorf("decode corpus: %w", err)
	}

	excluded := make(map[string]bool, len(cfg.ExcludedGenres))
	for _, g := range cfg.ExcludedGenres {
		excluded[strings.ToLower(strings.TrimSpace(g))] = true
	}

	stats := Stats{Total: len(raw)}
	docs := make([]model.Document, 0, len(raw))
	firstSeen := make(map[string]int, len(raw))

	for i, item := range raw {
		source := NormalizeLabel(item.Source)
		genre := NormalizeLabel(item.Genre)
		if strings.TrimSpace(item.Review) == "" || source == "" {
			stats.MissingFields++
			continue
		}
		if excluded[strings.ToLower(genre)] {
			stats.ExcludedGenre++
			continue
		}

		text := item.Review
		if cfg.MinQuotedChars > 0 {
			if len(QuotedSpans(text, cfg.MinQuotedChars)) > 0 {
				stats.LyricsRemoved++
				text = RemoveQuoted(text, cfg.MinQuotedChars)
			}
		}
		if cfg.StripHTML {
			text = StripHTML(text)
		}
		text = Normalize(text)

		id := documentID(item.ID, i)
		if prev, dup := firstSeen[id]; dup {
			return nil, Stats{}, fmt.Errorf("decode corpus: duplicate document id %q (entries %d and %d)", id, prev, i)
		}
		firstSeen[id] = i

		docs = append(docs, model.Document{
			ID:        id,
			Source:    source,
			Genre:     genre,
			Sentences: SplitSentences(text),
		})
	}

	stats.Kept = len(docs)
	slog.Debug("corpus loaded",
		"total", stats.Total,
		"kept", stats.Kept,
		"missing_fields", stats.MissingFields,
		"excluded_genre", stats.ExcludedGenre,
		"lyrics_removed", stats.LyricsRemoved)

	return docs, stats, nil
}

// NormalizeLabel trims a source or genre label and collapses inner whitespace
func NormalizeLabel(s string) string {
	return collapseSpace(s)
}

// documentID uses the entry's own id when present, else "#" and its array
// position
func documentID(raw json.RawMessage, index int) string {
	if len(raw) > 0 {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil && n != "" {
			return n.String()
		}
	}
	return "#" + strconv.Itoa(index)
}
