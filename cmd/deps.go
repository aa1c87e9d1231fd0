package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-matcher/internal/ai/gemini"
	"github.com/spigell/resume-matcher/internal/filtering"
	"github.com/spigell/resume-matcher/internal/listing"
	"github.com/spigell/resume-matcher/internal/logger"
	"github.com/spigell/resume-matcher/internal/matching"
	"github.com/spigell/resume-matcher/internal/observability"
	"github.com/spigell/resume-matcher/internal/secrets"
)

// env holds everything a command needs once configuration is loaded.
type env struct {
	config   *Config
	logger   *zap.Logger
	shutdown observability.Shutdown
}

func setup() *env {
	log, err := logger.New(logger.Options{
		JSON:  viper.GetBool("json"),
		Debug: viper.GetBool("debug"),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "creating a logger: %s\n", err)
		os.Exit(1)
	}

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(redacted(config), "", "  ")
	log.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	telemetry := observability.Config{}
	if config.Telemetry != nil {
		telemetry = *config.Telemetry
	}
	shutdown, err := observability.Start(context.Background(), telemetry, observability.Options{
		Service: app,
		Version: version,
		Logger:  log,
	})
	if err != nil {
		log.Fatal("starting telemetry", zap.Error(err))
	}

	return &env{config: config, logger: log, shutdown: shutdown}
}

// close flushes telemetry. Commands defer it right after setup.
func (e *env) close() {
	ctx, cancel := context.WithTimeout(context.Background(), observability.ShutdownTimeout)
	defer cancel()

	if err := e.shutdown(ctx); err != nil {
		e.logger.Warn("stopping telemetry", zap.Error(err))
	}
	_ = e.logger.Sync()
}

// redacted hides connection strings that may carry credentials.
func redacted(config *Config) Config {
	out := *config
	if config.Store != nil {
		store := *config.Store
		if store.DSN != "" {
			store.DSN = "<redacted>"
		}
		if store.Cache != nil {
			cache := *store.Cache
			if cache.URL != "" {
				cache.URL = "<redacted>"
			}
			store.Cache = &cache
		}
		out.Store = &store
	}
	return out
}

// newRepository opens the configured listing store. The returned func
// releases its connections.
func newRepository(ctx context.Context, cfg *StoreConfig, log *zap.Logger) (*listing.Repository, func(), error) {
	if cfg == nil {
		return nil, nil, errors.New("store configuration is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	var (
		store   listing.Store
		closers []func()
	)

	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "postgres", "postgresql", "":
		if strings.TrimSpace(cfg.DSN) == "" {
			return nil, nil, errors.New("store.dsn is not configured (set DATABASE_URL)")
		}
		pg, err := listing.NewPostgresStore(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		store = pg
		closers = append(closers, pg.Close)
	case "sqlite":
		db, err := listing.OpenSQLite(ctx, cfg.Path)
		if err != nil {
			return nil, nil, err
		}
		store = db
		closers = append(closers, func() { _ = db.Close() })
	case "file":
		if strings.TrimSpace(cfg.Path) == "" {
			return nil, nil, errors.New("store.path is required for the file driver")
		}
		store = listing.NewFileStore(cfg.Path)
	default:
		return nil, nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}

	if cfg.Cache != nil && cfg.Cache.Enabled {
		opts, err := redis.ParseURL(cfg.Cache.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing redis url: %w", err)
		}
		client := redis.NewClient(opts)
		closers = append(closers, func() { _ = client.Close() })
		cached := listing.NewCachedStore(store, client, cfg.Cache.TTL, log)
		if cfg.Cache.Refresh {
			if err := cached.Invalidate(ctx); err != nil {
				log.Warn("dropping listing cache", zap.Error(err))
			} else {
				log.Info("listing cache dropped")
			}
		}
		store = cached
		log.Info("listing cache enabled", zap.Duration("ttl", cfg.Cache.TTL))
	}

	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	return listing.NewRepository(store, log), closeAll, nil
}

func newModel(ctx context.Context, cfg *AIConfig, log *zap.Logger) (*gemini.Generator, error) {
	if cfg == nil || cfg.Gemini == nil {
		return nil, errors.New("ai.gemini configuration is required")
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.Provider {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name: "gemini api key",
		File: cfg.Gemini.APIKeyFile,
		Env:  "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (or set ai.gemini.api-key-file / GEMINI_API_KEY_FILE)", err)
	}

	opts := gemini.DefaultOptions()
	opts.APIKey = apiKey
	if model := strings.TrimSpace(cfg.Gemini.Model); model != "" {
		opts.Model = model
	}
	opts.Temperature = cfg.Gemini.Temperature
	opts.TopP = cfg.Gemini.TopP
	opts.TopK = cfg.Gemini.TopK
	opts.MaxOutputTokens = cfg.Gemini.MaxOutputTokens
	opts.RequestsPerSecond = cfg.Gemini.RequestsPerSecond
	if b := cfg.Gemini.CircuitBreaker; b != nil {
		opts.Breaker = gemini.BreakerOptions{
			Enabled:          b.Enabled,
			MaxRequests:      b.MaxRequests,
			Interval:         b.Interval,
			Timeout:          b.Timeout,
			MinRequests:      b.MinRequests,
			FailureThreshold: b.FailureThreshold,
		}
	}

	return gemini.NewGenerator(ctx, opts, logger.WithCommonFields(log, gemini.Provider, opts.Model))
}

func newService(ctx context.Context, config *Config, log *zap.Logger) (*matching.Service, error) {
	model, err := newModel(ctx, config.AI, log)
	if err != nil {
		return nil, fmt.Errorf("building gemini model: %w", err)
	}

	return matching.New(model, *config.Matching, logger.WithCommonFields(log, gemini.Provider, model.Model()))
}

func loadProfile(path string) (matching.Profile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("profile path is not configured (set profile or pass --profile)")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile: %w", err)
	}

	var profile matching.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("decoding profile %q: %w", path, err)
	}
	return profile, nil
}

// loadSummary returns "" when no summary file is configured.
func loadSummary(path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading summary: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// writeOutput prints v as indented JSON to path, or to stdout when path is empty.
func writeOutput(path string, v any) error {
	if path = strings.TrimSpace(path); path == "" {
		return encodeJSON(os.Stdout, v)
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	return encodeAndClose(file, v)
}

// encodeAndClose writes v to w and closes it. A close error is reported
// only when encoding succeeded.
func encodeAndClose(w io.WriteCloser, v any) (err error) {
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing output file: %w", cerr)
		}
	}()
	return encodeJSON(w, v)
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("skip-filter", nil, "disable a filter by name (exclude_file, companies, experience_levels)")
}

// fetchFiltered loads the listing pool and runs the configured filters over
// it. It also returns the filters that ran. The returned func releases the
// store.
func fetchFiltered(ctx context.Context, cmd *cobra.Command, e *env) ([]*listing.JobListing, []filtering.Filter, func()) {
	repo, closeStore, err := newRepository(ctx, e.config.Store, e.logger)
	if err != nil {
		e.logger.Fatal("opening listing store", zap.Error(err))
	}

	pool, err := repo.FetchListings(ctx)
	if err != nil {
		closeStore()
		e.logger.Fatal("fetching listings", zap.Error(err))
	}

	steps := filtering.Default()
	skipped, _ := cmd.Flags().GetStringSlice("skip-filter")
	for _, name := range skipped {
		if !filtering.DisableByName(steps, name, "skip-filter flag is set") {
			e.logger.Warn("unknown filter", zap.String("name", name))
		}
	}

	filtered, err := filtering.Run(ctx, e.config.Filters, filtering.Deps{Logger: e.logger}, steps, &listing.Listings{Items: pool})
	if err != nil {
		closeStore()
		e.logger.Fatal("filtering failed", zap.Error(err))
	}

	return filtered.Items, steps, closeStore
}
