package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"chart-signal/api/internal/app"
	"chart-signal/api/internal/config"
	"chart-signal/api/internal/handle"
	"chart-signal/api/internal/httpserver"
	"chart-signal/api/internal/logging"
	"chart-signal/api/internal/metrics"
)

func main() {
	cfg := config.Load()

	logCloser, err := logging.Setup(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		slog.Error("log setup failed", "error", err)
		os.Exit(1)
	}
	defer logCloser.Close()

	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, true)
	if err != nil {
		slog.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	opts := httpserver.Options{}
	if a.Journal != nil {
		opts.Health = a.DB
		go app.RunPurge(ctx, a.Journal, cfg.JournalMaxDays)
	}

	h := handle.New(a.Service, a.History, handle.WithMaxUploadBytes(int64(cfg.MaxUploadMB)<<20))
	slog.Info("signal-proxy starting",
		"engines", a.Engines.Names(),
		"default_engine", a.Manager.Default().Name(),
		"journal", a.Journal != nil)

	if err := httpserver.Serve(ctx, ":"+cfg.Port, httpserver.NewRouter(h, opts)); err != nil {
		slog.Error("http server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("signal-proxy stopped")
}
