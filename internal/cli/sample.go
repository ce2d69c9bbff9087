package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/experia/internal/corpus"
	"github.com/ppiankov/experia/internal/sample"
)

var sampleOut string

// sampleCmd represents the sample command
var sampleCmd = &cobra.Command{
	Use:   "sample <corpus.json>",
	Short: "Draw the stratified sentence sample without extraction",
	Long: `Sample loads the corpus and draws the same seeded stratified sample a run
would use, then writes it as JSON. Use it to inspect or archive the sample.

Example:
  experia sample reviews.json --seed 7 --out sample.json`,
	Args: cobra.ExactArgs(1),
	RunE: runSample,
}

func init() {
	rootCmd.AddCommand(sampleCmd)

	sampleCmd.Flags().StringVar(&sampleOut, "out", "", "output JSON path (default: stdout)")
	addSamplingFlags(sampleCmd)
}

func runSample(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	docs, _, err := corpus.NewFetcher(time.Minute, "Experia/"+Version, 0).Open(cmd.Context(), args[0], cfg.Corpus)
	if err != nil {
		return err
	}

	smp, err := sample.NewSampler(cfg).Draw(docs)
	if err != nil {
		return err
	}
	for _, e := range smp.Errors {
		fmt.Fprintf(os.Stderr, "⚠ %v\n", e)
	}
	for _, st := range smp.Strata {
		if st.Shortfall {
			fmt.Fprintf(os.Stderr, "⚠ %s: drew %d of %d requested\n", st.Source, st.Drawn, st.Requested)
		}
	}

	data, err := json.MarshalIndent(smp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal sample: %w", err)
	}
	data = append(data, '\n')

	if sampleOut == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(sampleOut, data, 0644); err != nil {
		return fmt.Errorf("write sample: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Wrote %d sentences from %d documents to %s\n", len(smp.Sentences), len(smp.Documents), sampleOut)
	return nil
}
