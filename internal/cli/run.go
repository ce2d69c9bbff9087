package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/experia/internal/cache"
	"github.com/ppiankov/experia/internal/corpus"
	"github.com/ppiankov/experia/internal/model"
	"github.com/ppiankov/experia/internal/ner"
	"github.com/ppiankov/experia/internal/pipeline"
	"github.com/ppiankov/experia/internal/report"
	"github.com/ppiankov/experia/internal/rules"
	"github.com/ppiankov/experia/internal/worker"
)

var (
	outputDir   string
	runTimeout  time.Duration
	userAgent   string
	noSummary   bool
	seed        int64
	sampleSize  int
	sentences   int
	iterations  int
	groupBy     string
	backend     string
	neuralModel string
	neuralURL   string
	concurrency int
	workers     int
	lexiconPath string
	useCache    bool
	httpProxy   string
	httpsProxy  string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run <corpus.json>",
	Short: "Sample, extract and estimate prevalence for a review corpus",
	Long: `Run executes the full analysis:
- Load and clean the corpus (lyrics removed, HTML stripped, genres excluded)
- Draw a seeded stratified sample of documents and sentences per source
- Tag BODY, MEMORY, PLACE and PERSON with the rule and neural extractors
- Merge mentions per document and record skipped sentences
- Bootstrap prevalence per stratum and category

The corpus is a JSON array of {id, review, source, genre} objects, read from a
file or an http(s) URL.

Example:
  experia run reviews.json
  experia run reviews.json --backend none --out-dir ./results
  experia run https://example.com/reviews.json --backend openai --model gpt-4o-mini`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	// Output flags
	runCmd.Flags().StringVar(&outputDir, "out-dir", "./experia-out", "output directory for results")
	runCmd.Flags().BoolVar(&noSummary, "no-summary", false, "do not print the summary table")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 2*time.Hour, "overall run timeout")
	runCmd.Flags().StringVar(&userAgent, "ua", "Experia/"+Version+" (+https://github.com/ppiankov/experia)", "HTTP User-Agent for remote corpora")

	addSamplingFlags(runCmd)

	// Extraction flags
	runCmd.Flags().StringVar(&backend, "backend", "", "neural backend (gliner, openai, ollama, anthropic, none)")
	runCmd.Flags().StringVar(&neuralModel, "model", "", "neural model name")
	runCmd.Flags().StringVar(&neuralURL, "neural-url", "", "neural backend base URL")
	runCmd.Flags().IntVar(&concurrency, "concurrency", 0, "concurrent neural calls")
	runCmd.Flags().StringVar(&lexiconPath, "lexicon", "", "YAML lexicon overriding the built-in patterns")
	runCmd.Flags().BoolVar(&useCache, "cache", false, "cache raw neural predictions")
	runCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	runCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")

	// Estimation flags
	runCmd.Flags().IntVar(&iterations, "iterations", 0, "bootstrap iterations")
	runCmd.Flags().StringVar(&groupBy, "group-by", "", "estimate strata (source_genre, source)")
	runCmd.Flags().IntVar(&workers, "workers", 0, "worker goroutines for rule extraction and bootstrap")
}

// addSamplingFlags registers the flags shared by run and sample
func addSamplingFlags(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().IntVar(&sampleSize, "sample-size", 0, "documents per source")
	cmd.Flags().IntVar(&sentences, "sentences", 0, "sentences per document")
}

// applyFlags overrides configuration with flags the user set explicitly
func applyFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	if changed("seed") {
		cfg.Seed = seed
	}
	if changed("sample-size") {
		cfg.SampleSizePerSource = sampleSize
	}
	if changed("sentences") {
		cfg.SentencesPerDocument = sentences
	}
	if changed("backend") {
		cfg.Neural.Backend = backend
	}
	if changed("model") {
		cfg.Neural.Model = neuralModel
	}
	if changed("neural-url") {
		cfg.Neural.BaseURL = neuralURL
	}
	if changed("concurrency") {
		cfg.Neural.Concurrency = concurrency
	}
	if changed("lexicon") {
		cfg.LexiconPath = lexiconPath
	}
	if changed("cache") {
		cfg.Cache.Enabled = useCache
	}
	if changed("http-proxy") {
		cfg.Neural.HTTPProxy = httpProxy
	}
	if changed("https-proxy") {
		cfg.Neural.HTTPSProxy = httpsProxy
	}
	if changed("iterations") {
		cfg.BootstrapIterations = iterations
	}
	if changed("group-by") {
		cfg.Stabilizer.GroupBy = groupBy
	}
	if changed("workers") {
		cfg.Workers = workers
	}
}

func runRun(cmd *cobra.Command, args []string) error {
	location := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if env := fillAPIKey(&cfg.Neural); env != "" && cfg.Neural.APIKey == "" {
		return fmt.Errorf("%s environment variable not set", env)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Experia Run\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Corpus:       %s\n", location)
	fmt.Fprintf(os.Stderr, "  Seed:         %d\n", cfg.Seed)
	fmt.Fprintf(os.Stderr, "  Per source:   %d documents x %d sentences\n", cfg.SampleSizePerSource, cfg.SentencesPerDocument)
	fmt.Fprintf(os.Stderr, "  Backend:      %s\n", cfg.Neural.Backend)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	// Load corpus
	fmt.Fprintf(os.Stderr, "⚙️  Loading corpus...\n")
	docs, stats, err := corpus.NewFetcher(time.Minute, userAgent, 0).Open(ctx, location, cfg.Corpus)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Loaded %d of %d reviews (%d excluded by genre, %d incomplete, %d with lyrics removed)\n",
		stats.Kept, stats.Total, stats.ExcludedGenre, stats.MissingFields, stats.LyricsRemoved)

	// Build pipeline
	opts := []pipeline.Option{pipeline.WithProgress(true)}

	if cfg.LexiconPath != "" {
		lex, err := rules.LoadLexicon(cfg.LexiconPath)
		if err != nil {
			return err
		}
		registry, err := lex.Build()
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithRegistry(registry))
	}

	neural, err := buildNeural(ctx, cfg)
	if err != nil {
		return fmt.Errorf("neural backend: %w", err)
	}
	if neural != nil {
		opts = append(opts, pipeline.WithNeural(neural))
	}

	result, err := pipeline.NewPipeline(cfg, opts...).Run(ctx, docs)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	// Render outputs
	paths, err := report.NewRenderer(outputDir).Render(result)
	if err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	for _, p := range paths {
		fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", p)
	}

	if !noSummary {
		report.RenderSummary(os.Stdout, result)
	}
	return nil
}

// buildNeural wires the configured backend with its limiter and cache.
// It returns nil when the neural pass is disabled.
func buildNeural(ctx context.Context, cfg *model.Config) (*ner.Extractor, error) {
	m, err := ner.NewModel(cfg.Neural)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, nil
	}

	if g, ok := m.(*ner.GLiNERModel); ok {
		if err := g.IsAvailable(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: GLiNER sidecar check failed, sentences will be skipped: %v\n", err)
		}
	}

	opts := []ner.Option{
		ner.WithLimiter(worker.NewBackendLimiter(cfg.Neural.RateLimit)),
	}
	if len(cfg.Neural.Labels) > 0 {
		labels, err := ner.ConfiguredLabels(cfg.Neural.Labels)
		if err != nil {
			return nil, err
		}
		opts = append(opts, ner.WithLabels(labels))
	}
	if c := cache.New(cfg.Cache); c != nil {
		opts = append(opts, ner.WithCache(c, cfg.Cache.DiskTTL))
	}

	return ner.NewExtractor(m, cfg, opts...), nil
}
