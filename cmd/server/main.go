package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	apihttp "filmsearch/searchservice/internal/api/http"
	"filmsearch/searchservice/internal/app"
	"filmsearch/searchservice/internal/metrics"
	"filmsearch/searchservice/internal/telemetry"
)

const serviceName = "filmsearch"

func main() {
	cfg := app.LoadConfig()
	logger := app.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), telemetry.Options{
		ServiceName: serviceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TraceRatio,
	})
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", serviceName),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("environment", cfg.Environment),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("catalogBaseURL", cfg.CatalogBaseURL),
		slog.Bool("hasCatalogKey", cfg.CatalogAPIKey != ""),
		slog.Duration("catalogTimeout", cfg.CatalogTimeout),
		slog.Int("cacheEntries", cfg.CacheEntries),
		slog.Duration("pacing", cfg.Pacing),
		slog.Duration("cooldown", cfg.Cooldown),
		slog.Any("posterHosts", cfg.PosterHosts),
	)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	searchService, err := app.NewSearchService(cfg, logger)
	if err != nil {
		logger.Error("catalog client setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	handler := apihttp.NewServer(searchService,
		apihttp.WithLogger(logger),
		apihttp.WithPosterHosts(cfg.PosterHosts),
		apihttp.WithRateLimit(float64(cfg.RateLimitRPS)),
	).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Discovery runs make paced catalog calls and can take several seconds.
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("film search service started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("film search service stopped")
}
