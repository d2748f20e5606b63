package stub

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"chart-signal/api/internal/analysis"
)

// Engine is a deterministic, no-network engine for CI, demos and local
// end-to-end runs. The answer depends only on the image bytes and always
// follows the signal protocol, so front-ends render every result class.
type Engine struct{}

func New() *Engine { return &Engine{} }

func (e *Engine) Name() string     { return "stub" }
func (e *Engine) GetModel() string { return "stub-v1" }

func (e *Engine) WithModel(string) analysis.Engine { return e }

func (e *Engine) Analyze(ctx context.Context, img analysis.Image) (analysis.Result, error) {
	if err := ctx.Err(); err != nil {
		return analysis.Result{}, analysis.NewAnalysisError(e.Name(), err)
	}
	if len(img.Data) == 0 {
		return analysis.Result{}, analysis.NewAnalysisError(e.Name(), fmt.Errorf("stub: empty image"))
	}
	raw, err := Answer(img.Data)
	if err != nil {
		return analysis.Result{}, analysis.NewAnalysisError(e.Name(), err)
	}
	r, err := analysis.Decode(raw)
	if err != nil {
		return analysis.Result{}, analysis.NewAnalysisError(e.Name(), err)
	}
	return r, nil
}

var pairs = []string{"EUR/USD", "GBP/USD", "USD/JPY", "AUD/CAD", "EUR/JPY"}
var timeframes = []string{"M1", "M5", "M15"}

// Answer renders the JSON text the stub "model" returns for data.
func Answer(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	short := hex.EncodeToString(sum[:4])

	var (
		signal     analysis.Signal
		signalType analysis.SignalType
		trend      analysis.Trend
		confidence int
	)
	switch sum[0] % 5 {
	case 0:
		signal, signalType, trend = analysis.SignalCall, analysis.SignalTypeNonMTG, analysis.TrendUp
		confidence = analysis.SniperMinConfidence + int(sum[1])%(analysis.SniperMaxConfidence-analysis.SniperMinConfidence+1)
	case 1:
		signal, signalType, trend = analysis.SignalPut, analysis.SignalTypeNonMTG, analysis.TrendDown
		confidence = analysis.SniperMinConfidence + int(sum[1])%(analysis.SniperMaxConfidence-analysis.SniperMinConfidence+1)
	case 2:
		signal, signalType, trend = analysis.SignalCall, analysis.SignalTypeMTG1Step, analysis.TrendUp
		confidence = analysis.FortressMinConfidence + int(sum[1])%(analysis.FortressMaxConfidence-analysis.FortressMinConfidence+1)
	case 3:
		signal, signalType, trend = analysis.SignalPut, analysis.SignalTypeMTG1Step, analysis.TrendDown
		confidence = analysis.FortressMinConfidence + int(sum[1])%(analysis.FortressMaxConfidence-analysis.FortressMinConfidence+1)
	default:
		signal, signalType, trend = analysis.SignalNeutral, analysis.SignalTypeNA, analysis.TrendSideways
		confidence = 30 + int(sum[1])%40
	}

	base := 1.0 + float64(sum[2])/1000
	out := map[string]any{
		"signal":              signal,
		"signalType":          signalType,
		"confidence":          confidence,
		"trend":               trend,
		"support":             fmt.Sprintf("%.4f", base),
		"resistance":          fmt.Sprintf("%.4f", base+0.0045),
		"logic":               fmt.Sprintf("Stub analysis %s: %s with %s trend.", short, signal, trend),
		"previousCandlePower": []string{"Strong bullish", "Weak bullish", "Doji", "Weak bearish", "Strong bearish"}[sum[3]%5],
		"pair":                pairs[int(sum[4])%len(pairs)],
		"timeframe":           timeframes[int(sum[5])%len(timeframes)],
		"mtgInstruction":      analysis.ExpectedInstruction(signal, signalType),
	}
	b, err := json.Marshal(out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
