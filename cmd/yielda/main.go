package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/yield-assistant-go/internal/config"
	"github.com/boddenberg/yield-assistant-go/internal/domain"
	"github.com/boddenberg/yield-assistant-go/internal/export"
	"github.com/boddenberg/yield-assistant-go/internal/handler"
	"github.com/boddenberg/yield-assistant-go/internal/infra/cache"
	"github.com/boddenberg/yield-assistant-go/internal/infra/observability"
	"github.com/boddenberg/yield-assistant-go/internal/infra/ocr"
	"github.com/boddenberg/yield-assistant-go/internal/infra/resilience"
	"github.com/boddenberg/yield-assistant-go/internal/infra/statestore"
	"github.com/boddenberg/yield-assistant-go/internal/service"
	"github.com/boddenberg/yield-assistant-go/internal/syncer"
	"github.com/boddenberg/yield-assistant-go/internal/upload"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("state_store_url", cfg.StateStoreURL),
		zap.String("ocr_service_url", cfg.OCRServiceURL),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("debounce_window", cfg.DebounceWindow),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("cache_ttl", cfg.CacheTTL),
	)

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "yield-assistant")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.ExportConcurrency,
	}

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	store := statestore.NewClient(httpClient, cfg.StateStoreURL,
		resilience.NewCircuitBreaker("statestore"), resilienceCfg, logger, metrics)
	scanner := ocr.NewClient(httpClient, cfg.OCRServiceURL,
		resilience.NewCircuitBreaker("ocr"), resilienceCfg, logger, metrics)

	// --- Synchronizer ---
	syn := syncer.New(logger, store, metrics, cfg.DebounceWindow, cfg.SaveTimeout)
	initCtx, cancelInit := context.WithTimeout(context.Background(), cfg.HTTPTimeout)
	if err := syn.Init(initCtx); err != nil {
		// Keep serving: mutations stay gated until POST /v1/reload succeeds.
		logger.Warn("initial state load failed", zap.Error(err))
	}
	cancelInit()

	// --- Upload workflow ---
	workflow := upload.NewWorkflow(logger, scanner, syn, upload.NewPreviewStore(), metrics)

	// --- Export engine ---
	ledgerCache := cache.New[domain.AccountState](cfg.CacheTTL)
	exporter := export.NewService(logger, store, syn, ledgerCache, metrics, cfg.ExportConcurrency)

	// --- Service & router ---
	trk := service.NewTracker(logger, syn, workflow, exporter, metrics)
	router := handler.NewRouter(trk, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	// Flush debounced saves and release staged uploads before exit.
	trk.Close()

	logger.Info("server stopped")
}
