package observability

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const metricsPath = "/metrics"

type MetricsConfig struct {
	// Addr serves the registry on /metrics while the command runs.
	Addr string `mapstructure:"addr"`
	// File receives the registry in the text exposition format on shutdown.
	File string `mapstructure:"file"`
}

// WriteMetricsFile dumps the default registry to path.
func WriteMetricsFile(path string) error {
	if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("writing metrics file: %w", err)
	}
	return nil
}

func metricsHandler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(metricsPath, promhttp.Handler())
	return mux
}

func serveMetrics(addr string, logger *zap.Logger) (Shutdown, error) {
	if addr == "" {
		return noop, nil
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listening for metrics on %s: %w", addr, err)
	}

	server := &http.Server{
		Handler:           metricsHandler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", zap.Error(err))
		}
	}()

	logger.Info("serving metrics", zap.String("address", "http://"+listener.Addr().String()+metricsPath))

	return server.Shutdown, nil
}
