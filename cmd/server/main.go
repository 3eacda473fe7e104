// Template matching server - perceptual hashing, template storage, and match streaming
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/templatehash/platform/internal/config"
	"github.com/templatehash/platform/internal/fetch"
	"github.com/templatehash/platform/internal/match"
	"github.com/templatehash/platform/internal/server"
	"github.com/templatehash/platform/internal/store"
	"github.com/templatehash/platform/internal/store/jsonfile"
	"github.com/templatehash/platform/internal/store/sqlitedb"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	cfg := config.Load()

	// Open the template store on the configured backend
	var persist store.Persistence
	switch cfg.DataBackend {
	case "sqlite":
		db, err := sqlitedb.Open(cfg.DataPath)
		if err != nil {
			slog.Error("failed to open sqlite store", "path", cfg.DataPath, "error", err)
			os.Exit(1)
		}
		defer func() { _ = db.Close() }()
		persist = db
	default:
		persist = jsonfile.New(cfg.DataPath)
	}

	st, err := store.Open(persist)
	if err != nil {
		slog.Error("failed to load templates", "backend", cfg.DataBackend, "path", cfg.DataPath, "error", err)
		os.Exit(1)
	}
	slog.Info("template store ready", "backend", cfg.DataBackend, "templates", st.Count())

	engine := match.NewEngine(st)
	fetcher := fetch.New(cfg.FetchTimeout, cfg.MaxUploadBytes)

	srv := server.New(st, engine, fetcher, cfg)

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		slog.Info("template matching server starting", "http", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
