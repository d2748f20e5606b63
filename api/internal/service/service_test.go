package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chart-signal/api/internal/analysis"
	"chart-signal/api/internal/analysis/stub"
	"chart-signal/api/internal/store"
)

type memJournal struct {
	mu      sync.Mutex
	entries []store.Entry
	err     error
}

func (j *memJournal) Record(_ context.Context, e store.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, e)
	return j.err
}

type scriptedEngine struct {
	name   string
	model  string
	result analysis.Result
	err    error
	calls  int
}

func (e *scriptedEngine) Name() string     { return e.name }
func (e *scriptedEngine) GetModel() string { return e.model }
func (e *scriptedEngine) Analyze(context.Context, analysis.Image) (analysis.Result, error) {
	e.calls++
	return e.result, e.err
}

var chart = analysis.Image{Data: []byte("chart"), MIMEType: analysis.MIMEPNG}

func TestAnalyzeWithStub(t *testing.T) {
	j := &memJournal{}
	st := stub.New()
	svc := New(&analysis.Engines{Stub: st}, analysis.NewManager(st), j)

	out, err := svc.Analyze(context.Background(), Request{Image: chart, Source: SourceHTTP})
	require.NoError(t, err)
	_, perr := uuid.Parse(out.ID)
	assert.NoError(t, perr)
	assert.Equal(t, "stub", out.Engine)
	assert.Equal(t, "stub-v1", out.Model)
	assert.True(t, out.Result.Signal.Valid())
	assert.Empty(t, out.Warnings)

	require.Len(t, j.entries, 1)
	e := j.entries[0]
	assert.Equal(t, out.ID, e.ID)
	assert.Equal(t, store.StatusSuccess, e.Status)
	assert.Equal(t, SourceHTTP, e.Source)
	assert.Len(t, e.ImageHash, 64)
	require.NotNil(t, e.Result)
	assert.Equal(t, out.Result, *e.Result)
}

func TestAnalyzeReportsWarnings(t *testing.T) {
	eng := &scriptedEngine{name: "gemini", model: "m", result: analysis.Result{
		Signal:         analysis.SignalCall,
		SignalType:     analysis.SignalTypeNonMTG,
		Confidence:     70,
		Trend:          analysis.TrendUp,
		MTGInstruction: analysis.InstructionNonMTG,
	}}
	svc := New(nil, analysis.NewManager(eng), nil)

	out, err := svc.Analyze(context.Background(), Request{Image: chart})
	require.NoError(t, err)
	assert.Len(t, out.Warnings, 1)
	assert.Contains(t, out.Warnings[0], "NON_MTG confidence 70")
	assert.Equal(t, 70, out.Result.Confidence, "result is served unchanged")
}

func TestAnalyzePassesTypedErrors(t *testing.T) {
	cfgErr := &analysis.ConfigurationError{Key: "API_KEY"}
	anaErr := analysis.NewAnalysisError("gemini", errors.New("HTTP 500"))

	for name, want := range map[string]error{"config": cfgErr, "analysis": anaErr} {
		t.Run(name, func(t *testing.T) {
			j := &memJournal{}
			eng := &scriptedEngine{name: "gemini", model: "m", err: want}
			svc := New(nil, analysis.NewManager(eng), j)

			out, err := svc.Analyze(context.Background(), Request{Image: chart, ChatID: 7, Source: SourceTelegram})
			require.Error(t, err)
			assert.Same(t, want, err)
			assert.Equal(t, Outcome{}, out)

			require.Len(t, j.entries, 1)
			assert.Equal(t, store.StatusFailed, j.entries[0].Status)
			assert.Equal(t, analysis.UserFacing(want), j.entries[0].Error)
			assert.Equal(t, int64(7), j.entries[0].ChatID)
			assert.Nil(t, j.entries[0].Result)
		})
	}
}

func TestJournalFailureDoesNotFailAnalysis(t *testing.T) {
	j := &memJournal{err: errors.New("db down")}
	st := stub.New()
	svc := New(nil, analysis.NewManager(st), j)

	_, err := svc.Analyze(context.Background(), Request{Image: chart})
	require.NoError(t, err)
	assert.Len(t, j.entries, 1)
}

func TestResolve(t *testing.T) {
	gem := &scriptedEngine{name: "gemini", model: "g"}
	st := stub.New()
	mgr := analysis.NewManager(gem)
	mgr.Set(99, st)
	svc := New(&analysis.Engines{Gemini: gem, Stub: st}, mgr, nil)

	e, err := svc.Resolve(Request{ChatID: 1})
	require.NoError(t, err)
	assert.Equal(t, "gemini", e.Name())

	e, err = svc.Resolve(Request{ChatID: 99})
	require.NoError(t, err)
	assert.Equal(t, "stub", e.Name())

	e, err = svc.Resolve(Request{Engine: "stub"})
	require.NoError(t, err)
	assert.Equal(t, "stub", e.Name())

	_, err = svc.Resolve(Request{Engine: "claude"})
	assert.ErrorIs(t, err, analysis.ErrUnknownEngine)

	_, err = New(nil, nil, nil).Resolve(Request{})
	assert.ErrorIs(t, err, ErrNoEngine)
}

func TestEachCallHitsTheEngine(t *testing.T) {
	eng := &scriptedEngine{name: "gemini", model: "m", result: analysis.Result{
		Signal: analysis.SignalNeutral, SignalType: analysis.SignalTypeNA, Trend: analysis.TrendSideways,
		MTGInstruction: analysis.InstructionNoTrade,
	}}
	svc := New(nil, analysis.NewManager(eng), &memJournal{})
	for i := 0; i < 3; i++ {
		_, err := svc.Analyze(context.Background(), Request{Image: chart})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, eng.calls, "no caching of results")
}
