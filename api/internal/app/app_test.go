package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chart-signal/api/internal/analysis"
	"chart-signal/api/internal/config"
	"chart-signal/api/internal/service"
)

func testConfig(engine string) *config.Config {
	return &config.Config{
		GeminiModel:   "gemini-2.5-flash",
		OpenAIModel:   "gpt-4o-mini",
		DefaultEngine: engine,
	}
}

func TestNewEnginesDefault(t *testing.T) {
	engines, manager, err := NewEngines(testConfig("gpt"))
	require.NoError(t, err)
	assert.Equal(t, []string{"gemini", "gpt", "stub"}, engines.Names())
	assert.Equal(t, "gpt", manager.Default().Name())
	assert.Equal(t, "gpt-4o-mini", manager.Get(42).GetModel())
}

func TestNewEnginesUnknownDefault(t *testing.T) {
	_, _, err := NewEngines(testConfig("claude"))
	assert.ErrorIs(t, err, analysis.ErrUnknownEngine)
}

func TestNewWithoutJournal(t *testing.T) {
	cfg := testConfig("stub")
	cfg.DatabaseDSN = "postgres://never-dialed"

	a, err := New(context.Background(), cfg, false)
	require.NoError(t, err)
	assert.Nil(t, a.DB)
	assert.Nil(t, a.Journal)
	assert.Nil(t, a.History)
	assert.NoError(t, a.Close())

	out, err := a.Service.Analyze(context.Background(), service.Request{
		Image: analysis.Image{Data: []byte("chart"), MIMEType: analysis.MIMEPNG},
	})
	require.NoError(t, err)
	assert.Equal(t, "stub", out.Engine)
}

func TestMissingKeyIsNotAStartupError(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")

	a, err := New(context.Background(), testConfig("gemini"), false)
	require.NoError(t, err)

	_, err = a.Service.Analyze(context.Background(), service.Request{
		Image: analysis.Image{Data: []byte("chart"), MIMEType: analysis.MIMEPNG},
	})
	assert.True(t, analysis.IsConfigurationError(err))
}

type countingPurger struct {
	mu    sync.Mutex
	calls int
	age   time.Duration
	err   error
}

func (p *countingPurger) PurgeOlderThan(_ context.Context, olderThan time.Duration) (int64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.age = olderThan
	return 3, p.err
}

func TestRunPurge(t *testing.T) {
	p := &countingPurger{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	RunPurge(ctx, p, 7)
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, 7*24*time.Hour, p.age)

	failing := &countingPurger{err: errors.New("db down")}
	RunPurge(ctx, failing, 1)
	assert.Equal(t, 1, failing.calls)

	disabled := &countingPurger{}
	RunPurge(context.Background(), disabled, 0)
	assert.Zero(t, disabled.calls)
}
