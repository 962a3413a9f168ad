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

	"github.com/joho/godotenv"

	"knowledge-assistant/internal/bootstrap"
	"knowledge-assistant/internal/config"
	"knowledge-assistant/internal/loader"
	httptransport "knowledge-assistant/internal/transport/http"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("load .env failed", "err", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config failed", "err", err)
		os.Exit(1)
	}
	bootstrap.SetupLogging(cfg.App.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		slog.Error("bootstrap failed", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			slog.Error("close resources failed", "err", err)
		}
	}()

	if cfg.Loader.Watch {
		startWatcher(ctx, app)
	}

	router := httptransport.NewRouter(app)
	server := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", server.Addr, "indexed_chunks", app.Index.Len())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "err", err)
	}
}

func startWatcher(ctx context.Context, app *bootstrap.App) {
	dir := app.Config.Loader.DocumentsDir
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("create documents dir failed", "dir", dir, "err", err)
		return
	}
	w, err := loader.NewWatcher(dir, app.Loader, app.IngestDocument)
	if err != nil {
		slog.Error("start document watcher failed", "err", err)
		return
	}
	if err := w.Sync(ctx, indexedSources(app)); err != nil {
		slog.Warn("sync documents dir failed", "dir", dir, "err", err)
	}
	go func() {
		defer w.Close()
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("document watcher stopped", "err", err)
		}
	}()
}

func indexedSources(app *bootstrap.App) func(string) bool {
	sources := make(map[string]struct{})
	for _, d := range app.Index.Documents(nil) {
		sources[d.Source] = struct{}{}
	}
	return func(source string) bool {
		_, ok := sources[source]
		return ok
	}
}
