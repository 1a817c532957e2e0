package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"retail-insights/internal/config"
	"retail-insights/internal/ingest"
	"retail-insights/internal/middleware"
	"retail-insights/internal/observability"
	"retail-insights/internal/server"
	"retail-insights/internal/services"
)

const (
	version           = "1.0.0"
	sampleLoadTimeout = 30 * time.Second
	sampleReportID    = "sample"
)

type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	metrics   *observability.Metrics
	store     *services.Store
	analytics *services.Analytics
	handler   http.Handler
}

// newApp wires the store, analytics and HTTP stack from cfg.
func newApp(cfg *config.Config, logger *slog.Logger) *app {
	metrics := observability.NewMetrics()

	store := services.NewStore(cfg.Storage.MaxReports, cfg.Storage.ReportTTL, logger)
	store.SetHooks(services.StoreHooks{
		OnSize:  metrics.SetStoredReports,
		OnEvict: metrics.AddEvicted,
	})

	parser := ingest.NewParser(ingest.Options{
		MaxRows:       cfg.Analysis.MaxRows,
		MaxUnzipBytes: cfg.Analysis.MaxUnzipBytes,
	}, logger)
	analytics := services.NewAnalytics(parser, cfg.Analysis.ForecastHorizon, logger).WithObserver(metrics)

	srv := server.NewServer(server.Options{
		Store:          store,
		Analytics:      analytics,
		MaxUploadBytes: cfg.Analysis.MaxUploadBytes,
		Metrics:        metrics.Handler(),
	}, logger)

	rateLimiter := middleware.NewRateLimiter(cfg.Security)

	middlewareChain := middleware.Chain(
		middleware.Recovery(logger),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Tracing(logger),
		middleware.SecurityHeaders(),
		middleware.CORS(cfg.Security),
		middleware.CrossOrigin(cfg.Security, logger),
		middleware.TrustedProxy(cfg.Security),
		middleware.RateLimit(rateLimiter, logger),
		middleware.Metrics(metrics),
	)

	return &app{
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
		store:     store,
		analytics: analytics,
		handler:   middlewareChain(srv),
	}
}

// loadSample builds a report from the configured sample file and stores it
// under a fixed ID, replacing any copy restored from the snapshot.
func (a *app) loadSample(ctx context.Context) error {
	path := a.cfg.SampleFile
	if path == "" {
		return nil
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open sample file: %w", err)
	}
	defer file.Close()

	ctx, cancel := context.WithTimeout(ctx, sampleLoadTimeout)
	defer cancel()

	report, err := a.analytics.Analyze(ctx, filepath.Base(path), file, 0)
	if err != nil {
		return err
	}

	a.store.Delete(sampleReportID)
	report.ID = sampleReportID
	a.store.Put(report)
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"version", version,
		"config", cfg,
	)

	a := newApp(cfg, logger)

	start := time.Now()
	restored, err := a.store.Load(cfg.Storage.SnapshotFile)
	if err != nil {
		logger.Warn("ignoring unreadable report snapshot", "error", err, "path", cfg.Storage.SnapshotFile)
	} else if restored > 0 {
		logger.Info("restored reports from snapshot", "reports", restored, "duration", time.Since(start))
	}

	if err := a.loadSample(context.Background()); err != nil {
		logger.Error("failed to load sample file", "error", err, "path", cfg.SampleFile)
		os.Exit(1)
	} else if cfg.SampleFile != "" {
		logger.Info("sample report ready", "path", "/reports/"+sampleReportID)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.store.StartJanitor(ctx, cfg.Storage.JanitorEvery); err != nil {
		logger.Error("failed to start report janitor", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:         cfg.Address(),
		Handler:      a.handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	gracefulServer := server.NewGracefulServer(httpServer, logger, cfg)

	gracefulServer.RegisterShutdownHook(func(ctx context.Context) error {
		logger.Info("stopping report janitor")
		a.store.Stop()
		return a.store.Save(cfg.Storage.SnapshotFile)
	})

	logger.Info("starting graceful server")
	if err := gracefulServer.ListenAndServe(ctx); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("application stopped gracefully")
}
