package cli

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/experia/internal/model"
)

// Version is the CLI release
const Version = "0.1.0"

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "experia",
	Short: "Experia - experiential domain prevalence in music reviews",
	Long: `Experia measures how often music reviews refer to the listener's body,
memories, places and people.

It draws a reproducible stratified sample of review sentences, tags
BODY, MEMORY, PLACE and PERSON mentions with a deterministic rule pass and
a few-shot neural pass, merges both per document, and reports prevalence per
source and genre with bootstrap confidence intervals.`,
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Display the version number of Experia.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("experia v%s\n", Version)
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $HOME/.experia/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Bind flags to viper
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(versionCmd)
}

// initConfig reads in config file and ENV variables
func initConfig() {
	registerDefaults()

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			return
		}

		// Search for config in home directory
		viper.AddConfigPath(home + "/.experia")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read in environment variables that match EXPERIA_* (EXPERIA_NEURAL_BACKEND, ...)
	viper.SetEnvPrefix("EXPERIA")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
	}
}

// registerDefaults exposes every default key to viper so environment
// variables can override keys that no config file sets
func registerDefaults() {
	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return
	}

	defaults := viper.New()
	defaults.SetConfigType("yaml")
	if err := defaults.ReadConfig(bytes.NewReader(data)); err != nil {
		return
	}
	for _, key := range defaults.AllKeys() {
		viper.SetDefault(key, defaults.Get(key))
	}
}

// loadConfig merges defaults, config file and environment into a Config
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	fillAPIKey(&cfg.Neural)
	return cfg, nil
}

// apiKeyEnv names the environment variable holding a backend's API key
func apiKeyEnv(backend string) string {
	switch strings.ToLower(backend) {
	case model.BackendOpenAI:
		return "OPENAI_API_KEY"
	case model.BackendAnthropic:
		return "ANTHROPIC_API_KEY"
	}
	return ""
}

// fillAPIKey reads an unset key from the backend's environment variable and
// returns the variable name, or "" for backends without a key
func fillAPIKey(cfg *model.NeuralConfig) string {
	env := apiKeyEnv(cfg.Backend)
	if env != "" && cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(env)
	}
	return env
}

func setupLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
