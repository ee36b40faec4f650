// Command allyd polls the Danfoss Ally cloud API on a fixed interval and
// fans the room-temperature readings out to the configured sinks. It
// serves /health, /metrics, and /devices over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bgaechter/danfoss-ally-go/ally"
	"github.com/bgaechter/danfoss-ally-go/internal/config"
	"github.com/bgaechter/danfoss-ally-go/internal/poller"
	"github.com/bgaechter/danfoss-ally-go/internal/server"
	"github.com/bgaechter/danfoss-ally-go/internal/sink"
	"github.com/bgaechter/danfoss-ally-go/internal/telemetry"
)

const shutdownTimeout = 5 * time.Second

func main() {
	envFile := flag.String("env-file", "", "load configuration from this .env file")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		slog.Error("configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	client, err := buildClient(cfg, logger)
	if err != nil {
		logger.Error("configure client", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Fail fast on bad credentials instead of looping on auth errors.
	if err := client.GetToken(ctx); err != nil {
		logger.Error("initial token fetch failed", "error", err)
		os.Exit(1)
	}

	sinks, err := buildSinks(cfg, logger)
	if err != nil {
		logger.Error("configure sinks", "error", err)
		os.Exit(1)
	}
	defer closeSinks(sinks, logger)

	p := poller.New(client, poller.Options{
		Interval: cfg.PollInterval,
		Logger:   logger,
		Sinks:    sinks,
	})

	registry := telemetry.NewRegistry(telemetry.NewCollector(p))

	mux := http.NewServeMux()
	mux.HandleFunc("/health", server.HealthHandler)
	mux.Handle("/metrics", server.MetricsHandler(registry))
	mux.Handle("/devices", server.DevicesHandler(p))

	httpServer := server.NewHTTPServer(cfg.HTTPAddr, mux)
	go func() {
		logger.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "error", err)
			stop()
		}
	}()

	if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("poller stopped", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
}

func buildClient(cfg *config.Config, logger *slog.Logger) (*ally.Client, error) {
	opts := []ally.Option{ally.WithLogger(logger)}
	if cfg.BaseURL != "" {
		opts = append(opts, ally.WithBaseURL(cfg.BaseURL))
	}

	if cfg.TokenCache.Enabled() {
		store, err := buildTokenStore(cfg.TokenCache)
		if err != nil {
			return nil, err
		}
		opts = append(opts, ally.WithTokenStore(store))
	}

	return ally.New(cfg.Credentials, opts...)
}

func buildTokenStore(cfg config.TokenCacheConfig) (ally.TokenStore, error) {
	if cfg.FilePath != "" {
		return &ally.FileTokenStore{Path: cfg.FilePath}, nil
	}
	return ally.NewS3TokenStore(cfg.S3Endpoint, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3Prefix)
}

func buildSinks(cfg *config.Config, logger *slog.Logger) ([]sink.Sink, error) {
	sinks := []sink.Sink{sink.NewLogSink(logger)}

	if cfg.MQTT.Broker != "" {
		mqttSink, err := sink.NewMQTTSink(cfg.MQTT)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, mqttSink)
	}
	if cfg.Influx.URL != "" {
		sinks = append(sinks, sink.NewInfluxSink(cfg.Influx))
	}

	return sinks, nil
}

func closeSinks(sinks []sink.Sink, logger *slog.Logger) {
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			logger.Warn("close sink", "name", s.Name(), "error", err)
		}
	}
}
