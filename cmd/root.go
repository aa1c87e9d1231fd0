package cmd

import (
	"errors"
	"io/fs"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/resume-matcher/internal/filtering"
	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/observability"
)

const (
	app = "resume-matcher"
)

type Config struct {
	Profile         string                 `mapstructure:"profile"`
	SummaryFile     string                 `mapstructure:"summary-file"`
	Output          string                 `mapstructure:"output"`
	Store           *StoreConfig           `mapstructure:"store"`
	Filters         *filtering.Config      `mapstructure:"filters"`
	AI              *AIConfig              `mapstructure:"ai"`
	Matching        *matching.Config       `mapstructure:"matching"`
	Recommendations *RecommendationsConfig `mapstructure:"recommendations"`
	Telemetry       *observability.Config  `mapstructure:"telemetry"`
}

type StoreConfig struct {
	Driver string       `mapstructure:"driver"`
	DSN    string       `mapstructure:"dsn"`
	Path   string       `mapstructure:"path"`
	Cache  *CacheConfig `mapstructure:"cache"`
}

type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	TTL     time.Duration `mapstructure:"ttl"`
	// Refresh drops the cached pool before the first fetch.
	Refresh bool          `mapstructure:"refresh"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile        string         `mapstructure:"api-key-file"`
	Model             string         `mapstructure:"model"`
	Temperature       float32        `mapstructure:"temperature"`
	TopP              float32        `mapstructure:"top-p"`
	TopK              float32        `mapstructure:"top-k"`
	MaxOutputTokens   int32          `mapstructure:"max-output-tokens"`
	RequestsPerSecond float64        `mapstructure:"requests-per-second"`
	CircuitBreaker    *BreakerConfig `mapstructure:"circuit-breaker"`
}

type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"max-requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	MinRequests      uint32        `mapstructure:"min-requests"`
	FailureThreshold float64       `mapstructure:"failure-threshold"`
}

type RecommendationsConfig struct {
	Enabled                       bool `mapstructure:"enabled"`
	matching.RecommendationConfig `mapstructure:",squash"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-matcher scores a résumé against a pool of job listings with Gemini",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	envBindings := map[string]string{
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"store.dsn":              "DATABASE_URL",
		"store.cache.url":        "REDIS_URL",
	}
	for key, env := range envBindings {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults()
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-matcher.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().StringP("output", "o", "", "write results to this file instead of stdout")
	rootCmd.PersistentFlags().StringP("profile", "p", "", "structured résumé profile (JSON)")
	rootCmd.PersistentFlags().String("summary-file", "", "plain text résumé summary")
	rootCmd.PersistentFlags().Bool("refresh-cache", false, "drop the cached listing pool and read the store again")
	rootCmd.PersistentFlags().String("trace-exporter", observability.ExporterNone, "trace exporter (none, stdout, otlp)")
	rootCmd.PersistentFlags().String("metrics-addr", "", "serve Prometheus metrics on this address while running")
	rootCmd.PersistentFlags().String("metrics-file", "", "write Prometheus metrics to this file on exit")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("profile", rootCmd.PersistentFlags().Lookup("profile"))
	viper.BindPFlag("summary-file", rootCmd.PersistentFlags().Lookup("summary-file"))
	viper.BindPFlag("store.cache.refresh", rootCmd.PersistentFlags().Lookup("refresh-cache"))
	viper.BindPFlag("telemetry.tracing.exporter", rootCmd.PersistentFlags().Lookup("trace-exporter"))
	viper.BindPFlag("telemetry.metrics.addr", rootCmd.PersistentFlags().Lookup("metrics-addr"))
	viper.BindPFlag("telemetry.metrics.file", rootCmd.PersistentFlags().Lookup("metrics-file"))
}

func setDefaults() {
	defaults := matching.DefaultConfig()

	viper.SetDefault("store.driver", "postgres")
	viper.SetDefault("store.cache.url", "redis://localhost:6379/0")
	viper.SetDefault("store.cache.ttl", "10m")

	viper.SetDefault("ai.provider", "gemini")
	viper.SetDefault("ai.gemini.model", "gemini-2.0-flash")
	viper.SetDefault("ai.gemini.temperature", 0.3)
	viper.SetDefault("ai.gemini.top-p", 0.8)
	viper.SetDefault("ai.gemini.top-k", 40)
	viper.SetDefault("ai.gemini.max-output-tokens", 4096)
	viper.SetDefault("ai.gemini.circuit-breaker.enabled", true)
	viper.SetDefault("ai.gemini.circuit-breaker.max-requests", 1)
	viper.SetDefault("ai.gemini.circuit-breaker.interval", "60s")
	viper.SetDefault("ai.gemini.circuit-breaker.timeout", "30s")
	viper.SetDefault("ai.gemini.circuit-breaker.min-requests", 3)
	viper.SetDefault("ai.gemini.circuit-breaker.failure-threshold", 0.6)

	viper.SetDefault("matching.top-n", defaults.TopN)
	viper.SetDefault("matching.workers", defaults.Workers)
	viper.SetDefault("matching.call-timeout", defaults.CallTimeout.String())
	viper.SetDefault("matching.max-log-length", defaults.MaxLogLength)
	viper.SetDefault("matching.skill-keys", defaults.SkillKeys)

	viper.SetDefault("recommendations.enabled", true)
	viper.SetDefault("recommendations.invalid-score-policy", string(defaults.Recommendations.InvalidScorePolicy))
	viper.SetDefault("recommendations.default-score", defaults.Recommendations.DefaultScore)

	viper.SetDefault("telemetry.tracing.exporter", observability.ExporterNone)
	viper.SetDefault("telemetry.tracing.sample-rate", 1.0)
}

func initConfig() {
	// A missing .env file is fine; a broken one is not.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env file: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Defaults and environment are enough when no file was asked for.
		if cfgFile == "" && errors.As(err, &notFound) {
			return
		}
		log.Fatal(err)
	}
}

func getConfig() (*Config, error) {
	var config *Config
	err := viper.Unmarshal(&config)
	if err != nil {
		return config, err
	}

	if config.Matching == nil {
		defaults := matching.DefaultConfig()
		config.Matching = &defaults
	}
	if config.Recommendations != nil {
		config.Matching.Recommendations = config.Recommendations.RecommendationConfig
	}

	return config, nil
}
