package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"chart-signal/api/internal/analysis"
	"chart-signal/api/internal/metrics"
	"chart-signal/api/internal/store"
	"chart-signal/api/internal/util"
)

const (
	SourceHTTP     = "http"
	SourceTelegram = "telegram"
	SourceCLI      = "cli"
)

var ErrNoEngine = errors.New("no analysis engine configured")

// Journal receives one entry per finished analysis.
type Journal interface {
	Record(ctx context.Context, e store.Entry) error
}

type Request struct {
	Image analysis.Image
	// Engine names a registry engine; empty means the chat's current engine.
	Engine string
	Model  string
	ChatID int64
	Source string
}

type Outcome struct {
	ID       string
	Engine   string
	Model    string
	Result   analysis.Result
	Warnings []string
	Duration time.Duration
}

type Service struct {
	Engines *analysis.Engines
	Manager *analysis.Manager
	Journal Journal
}

func New(engines *analysis.Engines, manager *analysis.Manager, journal Journal) *Service {
	return &Service{Engines: engines, Manager: manager, Journal: journal}
}

// Resolve picks the engine for req and applies the model override.
func (s *Service) Resolve(req Request) (analysis.Engine, error) {
	var (
		eng analysis.Engine
		err error
	)
	switch {
	case req.Engine != "" && s.Engines != nil:
		eng, err = s.Engines.GetEngine(req.Engine)
		if err != nil {
			return nil, err
		}
	case s.Manager != nil:
		eng = s.Manager.Get(req.ChatID)
	}
	if eng == nil {
		return nil, ErrNoEngine
	}
	if req.Model != "" {
		if ms, ok := eng.(analysis.ModelSwitcher); ok {
			eng = ms.WithModel(req.Model)
		}
	}
	return eng, nil
}

// Analyze runs exactly one engine call. Errors come back unchanged so callers
// can tell a ConfigurationError from an AnalysisError.
func (s *Service) Analyze(ctx context.Context, req Request) (Outcome, error) {
	eng, err := s.Resolve(req)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{
		ID:     uuid.NewString(),
		Engine: eng.Name(),
		Model:  eng.GetModel(),
	}

	metrics.InFlight.Inc()
	start := time.Now()
	res, err := eng.Analyze(ctx, req.Image)
	out.Duration = time.Since(start)
	metrics.InFlight.Dec()

	outcome := metrics.OutcomeSuccess
	switch {
	case analysis.IsConfigurationError(err):
		outcome = metrics.OutcomeConfigErr
	case err != nil:
		outcome = metrics.OutcomeAnalysisErr
	}
	metrics.ObserveAnalysis(out.Engine, outcome, out.Duration)

	entry := store.Entry{
		ID:        out.ID,
		CreatedAt: start,
		ChatID:    req.ChatID,
		Source:    req.Source,
		ImageHash: util.SHA256Hex(req.Image.Data),
		MIME:      req.Image.MIMEType,
		Engine:    out.Engine,
		Model:     out.Model,
		Duration:  out.Duration,
	}

	if err != nil {
		slog.Warn("analysis failed",
			"id", out.ID, "engine", out.Engine, "model", out.Model,
			"source", req.Source, "chat_id", req.ChatID,
			"outcome", outcome, "took", out.Duration, "error", err)
		entry.Status = store.StatusFailed
		entry.Error = analysis.UserFacing(err)
		s.record(ctx, entry)
		return Outcome{}, err
	}

	out.Result = res
	out.Warnings = res.Inconsistencies()
	metrics.SignalsTotal.WithLabelValues(string(res.Signal), string(res.SignalType)).Inc()
	if len(out.Warnings) > 0 {
		metrics.InconsistentTotal.WithLabelValues(out.Engine).Inc()
	}

	slog.Info("analysis done",
		"id", out.ID, "engine", out.Engine, "model", out.Model,
		"source", req.Source, "chat_id", req.ChatID,
		"signal", res.Signal, "signal_type", res.SignalType, "confidence", res.Confidence,
		"pair", res.Pair, "timeframe", res.Timeframe,
		"warnings", len(out.Warnings), "took", out.Duration)

	entry.Status = store.StatusSuccess
	entry.Result = &res
	entry.Warnings = out.Warnings
	s.record(ctx, entry)
	return out, nil
}

// record never fails the analysis: the result is already in hand.
func (s *Service) record(ctx context.Context, e store.Entry) {
	if s.Journal == nil {
		return
	}
	if err := s.Journal.Record(context.WithoutCancel(ctx), e); err != nil {
		metrics.JournalErrorsTotal.Inc()
		slog.Error("journal write failed", "id", e.ID, "error", err)
	}
}
