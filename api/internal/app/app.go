// Package app assembles engines, the optional journal and the analysis
// service from a Config. Every binary starts here.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"chart-signal/api/internal/analysis"
	"chart-signal/api/internal/analysis/gemini"
	"chart-signal/api/internal/analysis/gpt"
	"chart-signal/api/internal/analysis/stub"
	"chart-signal/api/internal/config"
	"chart-signal/api/internal/service"
	"chart-signal/api/internal/store"
)

const purgeInterval = 6 * time.Hour

// History is satisfied by the journal; it stays a nil interface when the
// journal is disabled.
type History interface {
	Recent(ctx context.Context, chatID int64, limit int) ([]store.Entry, error)
}

type App struct {
	Config  *config.Config
	Engines *analysis.Engines
	Manager *analysis.Manager
	Service *service.Service

	// DB, Journal and History are nil without a DSN.
	DB      *sql.DB
	Journal *store.JournalRepo
	History History
}

// NewEngines registers every engine. Keys are not needed here: each engine
// reads its credential on every call.
func NewEngines(cfg *config.Config) (*analysis.Engines, *analysis.Manager, error) {
	engines := &analysis.Engines{
		Gemini: gemini.New(config.GeminiCredential(), cfg.GeminiModel),
		OpenAI: gpt.New(config.OpenAICredential(), cfg.OpenAIModel, gpt.WithBaseURL(cfg.OpenAIBaseURL)),
		Stub:   stub.New(),
	}
	def, err := engines.GetEngine(cfg.DefaultEngine)
	if err != nil {
		return nil, nil, fmt.Errorf("DEFAULT_ENGINE: %w", err)
	}
	return engines, analysis.NewManager(def), nil
}

// New builds the service. withJournal=false skips the database even when a
// DSN is configured (the CLI does this).
func New(ctx context.Context, cfg *config.Config, withJournal bool) (*App, error) {
	engines, manager, err := NewEngines(cfg)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Engines: engines, Manager: manager}

	var journal service.Journal
	if withJournal && cfg.DatabaseDSN != "" {
		db, err := store.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		repo := store.NewJournalRepo(db)
		if err := repo.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("journal migrate: %w", err)
		}
		slog.Info("journal enabled", "db", config.SafeDSNSummary(cfg.DatabaseDSN))
		a.DB, a.Journal, a.History = db, repo, repo
		journal = repo
	} else {
		slog.Info("journal disabled")
	}

	a.Service = service.New(engines, manager, journal)
	return a, nil
}

// Close releases the database, if any.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

type purger interface {
	PurgeOlderThan(ctx context.Context, olderThan time.Duration) (int64, error)
}

// RunPurge deletes journal rows older than maxDays now and then every
// purgeInterval, until ctx is done. maxDays <= 0 keeps rows forever.
func RunPurge(ctx context.Context, p purger, maxDays int) {
	if p == nil || maxDays <= 0 {
		return
	}
	age := time.Duration(maxDays) * 24 * time.Hour
	purge := func() {
		n, err := p.PurgeOlderThan(ctx, age)
		if err != nil {
			slog.Error("journal purge failed", "error", err)
			return
		}
		if n > 0 {
			slog.Info("journal purged", "rows", n, "max_days", maxDays)
		}
	}

	purge()
	t := time.NewTicker(purgeInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			purge()
		}
	}
}
