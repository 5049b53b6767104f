package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"paperduel/internal/config"
	"paperduel/internal/httpapi"
	"paperduel/internal/marketdata"
	"paperduel/internal/store"
	"paperduel/internal/strategy"
	"paperduel/internal/util"
)

func main() {
	// Load config.
	cfgPath := "config/paperduel.yaml"
	if p := os.Getenv("PAPERDUEL_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadOrDefault(cfgPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	// Setup logging.
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
	util.SetDefault(logger)

	// Bar source: CSV files per asset, with a parquet cache.
	csvPaths := make(map[string]string, len(cfg.Assets))
	for symbol, asset := range cfg.Assets {
		csvPaths[symbol] = asset.DataFile
	}
	cache := marketdata.NewParquetCache(cfg.Storage.DataDir)
	source := marketdata.NewSource(csvPaths, cache, logger)

	// Run store.
	runs, err := store.Open(cfg.Storage.Backend, cfg.Storage.RunsDir, cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening run store: %v", err)
	}
	if closer, ok := runs.(*store.SQLiteStore); ok {
		defer closer.Close()
	}

	srv := httpapi.NewServer(source, runs, strategy.NewDefaultRegistry(), cfg, logger)

	httpServer := &http.Server{
		Addr:    cfg.Addr(),
		Handler: srv.Handler(),
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	go func() {
		logger.Info("paperduel server listening", "addr", httpServer.Addr,
			"store", cfg.Storage.Backend, "assets", len(cfg.Assets))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down paperduel server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
