package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/ppiankov/experia/internal/model"
	"github.com/ppiankov/experia/internal/pipeline"
)

// ContextWords is the number of words kept on each side of a rule span
const ContextWords = 3

var estimateHeader = []string{
	"source", "genre", "category", "n", "iterations", "alpha",
	"sample_mean", "resampled_mean", "ci_lower", "ci_upper", "undefined",
}

// WriteEstimates writes one CSV row per (stratum, category). Rate columns are
// empty for undefined estimates.
func WriteEstimates(w io.Writer, estimates []model.BootstrapEstimate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(estimateHeader); err != nil {
		return err
	}

	for _, e := range estimates {
		row := []string{
			e.Stratum.Source,
			e.Stratum.Genre,
			string(e.Category),
			strconv.Itoa(e.N),
			strconv.Itoa(e.Iterations),
			formatFloat(e.Alpha),
			"", "", "", "",
			strconv.FormatBool(e.Undefined),
		}
		if e.Rate != nil {
			row[6] = formatFloat(e.Rate.SampleMean)
			row[7] = formatFloat(e.Rate.ResampledMean)
			row[8] = formatFloat(e.Rate.Lower)
			row[9] = formatFloat(e.Rate.Upper)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

var spanHeader = []string{
	"run_id", "document_id", "source", "genre", "sentence_index", "category",
	"method", "score", "pattern", "start", "end", "text", "context",
}

// WriteSpans writes every mention with its surrounding text. Rule mentions
// carry a few words of context; neural mentions carry the whole sentence.
func WriteSpans(w io.Writer, result *pipeline.Result) error {
	type sentenceKey struct {
		doc   string
		index int
	}
	texts := make(map[sentenceKey]string)
	if result.Sample != nil {
		for _, s := range result.Sample.Sentences {
			texts[sentenceKey{s.DocumentID, s.Index}] = s.Text
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(spanHeader); err != nil {
		return err
	}

	for _, r := range result.Records {
		for _, m := range r.Mentions {
			text := texts[sentenceKey{m.DocumentID, m.SentenceIndex}]
			context := text
			if m.Method == model.MethodRule {
				context = WordContext(text, m.Span, ContextWords)
			}

			row := []string{
				result.RunID,
				m.DocumentID,
				r.Source,
				r.Genre,
				strconv.Itoa(m.SentenceIndex),
				string(m.Category),
				string(m.Method),
				formatFloat(m.Score),
				m.Pattern,
				strconv.Itoa(m.Span.Start),
				strconv.Itoa(m.Span.End),
				m.Text,
				context,
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

// WordContext returns the span with up to n words on either side
func WordContext(text string, span model.Span, n int) string {
	if span.Start < 0 || span.End > len(text) || span.Start > span.End {
		return ""
	}

	before := strings.Fields(text[:span.Start])
	if len(before) > n {
		before = before[len(before)-n:]
	}
	after := strings.Fields(text[span.End:])
	if len(after) > n {
		after = after[:n]
	}

	parts := make([]string, 0, 3)
	if len(before) > 0 {
		parts = append(parts, strings.Join(before, " "))
	}
	parts = append(parts, text[span.Start:span.End])
	if len(after) > 0 {
		parts = append(parts, strings.Join(after, " "))
	}
	return strings.Join(parts, " ")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
