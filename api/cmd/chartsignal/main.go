package main

import (
	"context"
	"log/slog"
	"os"

	"chart-signal/api/internal/app"
	"chart-signal/api/internal/cli"
	"chart-signal/api/internal/config"
	"chart-signal/api/internal/logging"
)

func main() {
	cfg := config.Load()

	// stdout belongs to the rendered result, so logs go to stderr and stay
	// quiet unless LOG_LEVEL asks for more.
	level := "warn"
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level = v
	}
	slog.SetDefault(logging.New(os.Stderr, level))

	cli.Run(func() (cli.Analyzer, error) {
		a, err := app.New(context.Background(), cfg, false)
		if err != nil {
			return nil, err
		}
		return a.Service, nil
	})
}
