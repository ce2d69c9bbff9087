package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/ppiankov/experia/internal/model"
	"github.com/ppiankov/experia/internal/pipeline"
)

const rule = "═══════════════════════════════════════════════════════════"

// RenderSummary prints the sampling and prevalence overview
func RenderSummary(w io.Writer, result *pipeline.Result) {
	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintf(w, "  Experiential Domain Prevalence\n")
	fmt.Fprintf(w, "%s\n\n", rule)

	fmt.Fprintf(w, "  Run:        %s\n", result.RunID)
	fmt.Fprintf(w, "  Backend:    %s\n", result.Backend)
	if result.Sample != nil {
		fmt.Fprintf(w, "  Seed:       %d\n", result.Sample.Seed)
		fmt.Fprintf(w, "  Documents:  %d\n", len(result.Sample.Documents))
		fmt.Fprintf(w, "  Sentences:  %d\n", len(result.Sample.Sentences))
	}
	fmt.Fprintf(w, "  Skipped:    %d\n", len(result.Skipped))
	if result.Duration != "" {
		fmt.Fprintf(w, "  Duration:   %s\n", result.Duration)
	}
	fmt.Fprintln(w)

	if result.Sample != nil {
		for _, st := range result.Sample.Strata {
			switch {
			case st.Drawn == 0:
				fmt.Fprintf(w, "  ✗ %s: no qualifying documents (%d candidates)\n", st.Source, st.Candidates)
			case st.Shortfall:
				fmt.Fprintf(w, "  ⚠ %s: drew %d of %d requested\n", st.Source, st.Drawn, st.Requested)
			default:
				fmt.Fprintf(w, "  ✓ %s: drew %d\n", st.Source, st.Drawn)
			}
		}
		fmt.Fprintln(w)
	}

	counts := CategoryCounts(result.Records)
	for _, c := range model.AllCategories() {
		fmt.Fprintf(w, "  %-8s present in %d of %d documents\n", c, counts[c], len(result.Records))
	}
	fmt.Fprintln(w)

	level := 95.0
	if len(result.Estimates) > 0 {
		level = (1 - result.Estimates[0].Alpha) * 100
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "  STRATUM\tCATEGORY\tN\tRATE\t%.0f%% CI\n", level)
	for _, e := range result.Estimates {
		rate, ci := "undefined", "-"
		if e.Rate != nil {
			rate = percent(e.Rate.SampleMean)
			ci = fmt.Sprintf("[%s, %s]", percent(e.Rate.Lower), percent(e.Rate.Upper))
		}
		fmt.Fprintf(tw, "  %s\t%s\t%d\t%s\t%s\n", e.Stratum, e.Category, e.N, rate, ci)
	}
	_ = tw.Flush()

	fmt.Fprintf(w, "\n%s\n\n", rule)
}

// CategoryCounts returns how many records contain each category
func CategoryCounts(records []model.DocumentExtractionRecord) map[model.Category]int {
	counts := make(map[model.Category]int, len(model.AllCategories()))
	for _, r := range records {
		for _, c := range model.AllCategories() {
			if r.Has(c) {
				counts[c]++
			}
		}
	}
	return counts
}

func percent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}
