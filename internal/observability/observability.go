// Package observability installs the process-wide trace pipeline and exposes
// the Prometheus registry filled by internal/metrics.
package observability

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
)

// Config selects where traces and metrics go. The zero value exports nothing.
type Config struct {
	Tracing TracingConfig `mapstructure:"tracing"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// Options identify the process to the exporters.
type Options struct {
	Service string
	Version string
	// TraceOutput receives spans from the stdout exporter. Defaults to stderr
	// so that results printed on stdout stay parseable.
	TraceOutput io.Writer
	Logger      *zap.Logger
}

// Shutdown flushes and stops whatever Start installed.
type Shutdown func(ctx context.Context) error

// Start installs tracing and the metrics endpoint. The returned Shutdown
// stops the endpoint, flushes pending spans and writes the metrics file.
func Start(ctx context.Context, cfg Config, opts Options) (Shutdown, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.TraceOutput == nil {
		opts.TraceOutput = os.Stderr
	}

	var stops []Shutdown

	stopTracing, err := setupTracing(ctx, cfg.Tracing, opts)
	if err != nil {
		return nil, err
	}
	stops = append(stops, stopTracing)

	stopServer, err := serveMetrics(cfg.Metrics.Addr, opts.Logger)
	if err != nil {
		_ = stopTracing(ctx)
		return nil, err
	}
	stops = append([]Shutdown{stopServer}, stops...)

	if cfg.Metrics.File != "" {
		path := cfg.Metrics.File
		stops = append(stops, func(context.Context) error {
			if err := WriteMetricsFile(path); err != nil {
				return err
			}
			opts.Logger.Debug("metrics written", zap.String("filename", path))
			return nil
		})
	}

	return func(ctx context.Context) error {
		var errs []error
		for _, stop := range stops {
			errs = append(errs, stop(ctx))
		}
		return errors.Join(errs...)
	}, nil
}

// ShutdownTimeout bounds how long a Shutdown may take at process exit.
const ShutdownTimeout = 5 * time.Second

func noop(context.Context) error { return nil }
