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

	"senyas/internal/api"
	"senyas/internal/config"
	"senyas/internal/service/ai"
	"senyas/internal/service/assistant"
	"senyas/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load(os.Getenv("SENYAS_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(newLogger(cfg.BasicConfig.LogLevel))
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	generator, err := ai.NewService(ctx, cfg.Provider)
	if err != nil {
		slog.Error("failed to init generation client", "error", err)
		os.Exit(1)
	}
	dispatcher := assistant.NewService(generator)

	uploads, err := storage.NewUploadStore(cfg.UploadDir(), cfg.BasicConfig.MaxUploadBytes)
	if err != nil {
		slog.Error("failed to init upload store", "error", err)
		os.Exit(1)
	}
	catalog, err := storage.OpenCatalog(ctx, cfg)
	if err != nil {
		slog.Error("failed to open upload catalog", "driver", cfg.Catalog.Driver, "error", err)
		os.Exit(1)
	}
	defer catalog.Close()

	handler := api.NewHandler(dispatcher, uploads, catalog, cfg.BasicConfig.PublicDir)
	router := api.NewRouter(handler, cfg.AllowedOrigin())

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("server is running", "addr", srv.Addr, "origin", cfg.AllowedOrigin(), "catalog", cfg.Catalog.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}
	slog.Info("server stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
}
