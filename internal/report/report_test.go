package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/experia/internal/model"
	"github.com/ppiankov/experia/internal/pipeline"
	"github.com/ppiankov/experia/internal/sample"
)

func testResult() *pipeline.Result {
	text := "Late at night the bass sits deep in my chest and stays there."
	start := strings.Index(text, "my chest")

	return &pipeline.Result{
		RunID:   "run-1",
		Backend: "gliner",
		Sample: &sample.Sample{
			Seed:      42,
			Documents: []sample.SampledDocument{{DocumentID: "d1", Source: "Outlet-A", Genre: "Rock", Sentences: []int{0}}},
			Sentences: []model.SentenceSample{{DocumentID: "d1", Source: "Outlet-A", Genre: "Rock", Index: 0, Text: text}},
			Strata: []sample.StratumReport{
				{Source: "Outlet-A", Candidates: 5, Qualifying: 5, Requested: 10, Drawn: 5, Shortfall: true},
				{Source: "Outlet-C", Candidates: 2},
			},
		},
		Records: []model.DocumentExtractionRecord{{
			DocumentID: "d1",
			Source:     "Outlet-A",
			Genre:      "Rock",
			Sentences:  1,
			Present:    map[model.Category]bool{model.CategoryBody: true},
			Mentions: []model.Mention{
				{Category: model.CategoryBody, Method: model.MethodRule, Score: 1, Span: model.Span{Start: start, End: start + 8}, Text: "my chest", Pattern: "BODY/possessive_body_part", DocumentID: "d1"},
				{Category: model.CategoryBody, Method: model.MethodNeural, Score: 0.72, Span: model.Span{Start: start + 3, End: start + 8}, Text: "chest", Pattern: "gliner", DocumentID: "d1"},
			},
		}},
		Estimates: []model.BootstrapEstimate{
			{Stratum: model.Stratum{Source: "Outlet-A", Genre: "Rock"}, Category: model.CategoryBody, N: 1, Iterations: 1000, Alpha: 0.05,
				Rate: &model.RateInterval{SampleMean: 1, ResampledMean: 1, Lower: 1, Upper: 1}},
			{Stratum: model.Stratum{Source: "Outlet-C"}, Category: model.CategoryBody, Iterations: 1000, Alpha: 0.05, Undefined: true},
		},
	}
}

func TestWordContext(t *testing.T) {
	text := "one two three four five six seven eight"
	start := strings.Index(text, "five")

	got := WordContext(text, model.Span{Start: start, End: start + 4}, 3)
	if got != "two three four five six seven eight" {
		t.Errorf("Unexpected context: %q", got)
	}

	got = WordContext(text, model.Span{Start: 0, End: 3}, 3)
	if got != "one two three four" {
		t.Errorf("Unexpected context at start: %q", got)
	}

	if got := WordContext(text, model.Span{Start: 5, End: 99}, 3); got != "" {
		t.Errorf("Expected empty context for invalid span, got %q", got)
	}
}

func TestWriteEstimates(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteEstimates(&buf, testResult().Estimates); err != nil {
		t.Fatalf("WriteEstimates failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d", len(rows))
	}
	if rows[1][6] != "1.0000" || rows[1][10] != "false" {
		t.Errorf("Unexpected defined row: %v", rows[1])
	}
	if rows[2][6] != "" || rows[2][10] != "true" {
		t.Errorf("Expected empty rate cells for undefined row, got %v", rows[2])
	}
}

func TestWriteSpans(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSpans(&buf, testResult()); err != nil {
		t.Fatalf("WriteSpans failed: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header + 2 rows, got %d", len(rows))
	}

	ruleRow, neuralRow := rows[1], rows[2]
	if ruleRow[12] != "sits deep in my chest and stays there." {
		t.Errorf("Unexpected rule context: %q", ruleRow[12])
	}
	if !strings.HasPrefix(neuralRow[12], "Late at night") {
		t.Errorf("Expected full sentence context for neural row, got %q", neuralRow[12])
	}
	if ruleRow[0] != "run-1" || ruleRow[6] != "RULE" || neuralRow[7] != "0.7200" {
		t.Errorf("Unexpected rows: %v / %v", ruleRow, neuralRow)
	}
}

func TestRenderer_Render(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	paths, err := NewRenderer(dir).Render(testResult())
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if len(paths) != 3 {
		t.Fatalf("Expected 3 files, got %d", len(paths))
	}

	data, err := os.ReadFile(filepath.Join(dir, ResultsFile))
	if err != nil {
		t.Fatalf("Failed to read results: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Invalid JSON: %v", err)
	}
	if decoded["run_id"] != "run-1" {
		t.Errorf("Expected run_id run-1, got %v", decoded["run_id"])
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	RenderSummary(&buf, testResult())
	out := buf.String()

	for _, want := range []string{
		"run-1",
		"Outlet-A: drew 5 of 10 requested",
		"Outlet-C: no qualifying documents",
		"BODY     present in 1 of 1 documents",
		"100.0%",
		"undefined",
		"95% CI",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected summary to contain %q\n%s", want, out)
		}
	}
}
