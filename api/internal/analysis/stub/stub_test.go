package stub

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chart-signal/api/internal/analysis"
)

func TestAnalyzeIsDeterministic(t *testing.T) {
	e := New()
	img := analysis.Image{Data: []byte("chart-bytes"), MIMEType: analysis.MIMEPNG}

	a, err := e.Analyze(context.Background(), img)
	require.NoError(t, err)
	b, err := e.Analyze(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAnalyzeFollowsProtocol(t *testing.T) {
	e := New()
	seen := map[analysis.Signal]bool{}
	for i := 0; i < 200; i++ {
		img := analysis.Image{Data: []byte(fmt.Sprintf("chart-%d", i)), MIMEType: analysis.MIMEPNG}
		r, err := e.Analyze(context.Background(), img)
		require.NoError(t, err)
		assert.Empty(t, r.Inconsistencies(), "input %d: %+v", i, r)
		seen[r.Signal] = true
	}
	assert.Len(t, seen, 3, "all signal classes should be produced")
}

func TestAnalyzeEmptyImage(t *testing.T) {
	_, err := New().Analyze(context.Background(), analysis.Image{MIMEType: analysis.MIMEPNG})
	require.Error(t, err)
	assert.True(t, analysis.IsAnalysisError(err))
}

func TestAnalyzeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Analyze(ctx, analysis.Image{Data: []byte("x"), MIMEType: analysis.MIMEPNG})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
