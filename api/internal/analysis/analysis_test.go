package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eurusdCall = `{
  "signal": "CALL",
  "signalType": "NON_MTG",
  "confidence": 97,
  "trend": "UPTREND",
  "support": "1.1000",
  "resistance": "1.1050",
  "logic": "Trend is strong UP. Price rejected EMA 20.",
  "previousCandlePower": "Strong bullish",
  "pair": "EUR/USD",
  "timeframe": "M1",
  "mtgInstruction": "DO NOT USE MARTINGALE. If trade loses, STOP. Wait for next signal."
}`

func TestDecodeReturnsTypedResultUnchanged(t *testing.T) {
	r, err := Decode(eurusdCall)
	require.NoError(t, err)
	assert.Equal(t, Result{
		Signal:              SignalCall,
		SignalType:          SignalTypeNonMTG,
		Confidence:          97,
		Trend:               TrendUp,
		Support:             "1.1000",
		Resistance:          "1.1050",
		Logic:               "Trend is strong UP. Price rejected EMA 20.",
		PreviousCandlePower: "Strong bullish",
		Pair:                "EUR/USD",
		Timeframe:           "M1",
		MTGInstruction:      InstructionNonMTG,
	}, r)
	assert.Empty(t, r.Inconsistencies())
}

func TestDecodeToleratesCodeFences(t *testing.T) {
	r, err := Decode("```json\n" + eurusdCall + "\n```")
	require.NoError(t, err)
	assert.Equal(t, SignalCall, r.Signal)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	withField := func(name string, v any) string {
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(eurusdCall), &m))
		if v == nil {
			delete(m, name)
		} else {
			m[name] = v
		}
		b, err := json.Marshal(m)
		require.NoError(t, err)
		return string(b)
	}

	cases := map[string]string{
		"empty":           "  ",
		"not json":        "The chart shows an uptrend, CALL.",
		"array":           `[1,2,3]`,
		"missing pair":    withField("pair", nil),
		"bad signal":      withField("signal", "BUY"),
		"bad signalType":  withField("signalType", "MTG_2_STEP"),
		"bad trend":       withField("trend", "UP"),
		"string conf":     withField("confidence", "97"),
		"fraction conf":   withField("confidence", 97.5),
		"null resistance": `{"signal":"NEUTRAL","signalType":"N/A","confidence":0,"trend":"SIDEWAYS","support":"-","resistance":null,"logic":"-","previousCandlePower":"-","pair":"-","timeframe":"-","mtgInstruction":"No trade."}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			r, err := Decode(body)
			require.Error(t, err)
			assert.Equal(t, Result{}, r)
		})
	}
}

func TestDecodeReportsAllMissingFields(t *testing.T) {
	_, err := Decode(`{"signal":"CALL"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signalType")
	assert.Contains(t, err.Error(), "mtgInstruction")
	assert.NotContains(t, err.Error(), "signal,")
}

func TestSchemaDeclaresEveryFieldRequired(t *testing.T) {
	assert.Equal(t, []string{
		"signal", "signalType", "confidence", "trend", "support", "resistance",
		"logic", "previousCandlePower", "pair", "timeframe", "mtgInstruction",
	}, RequiredFields())

	var schema struct {
		Type                 string `json:"type"`
		AdditionalProperties bool   `json:"additionalProperties"`
		Required             []string
		Properties           map[string]struct {
			Type string   `json:"type"`
			Enum []string `json:"enum"`
		}
	}
	require.NoError(t, json.Unmarshal(JSONSchemaRaw(), &schema))
	assert.Equal(t, "object", schema.Type)
	assert.False(t, schema.AdditionalProperties)
	assert.Len(t, schema.Properties, 11)
	assert.Equal(t, "integer", schema.Properties["confidence"].Type)
	assert.Equal(t, []string{"CALL", "PUT", "NEUTRAL"}, schema.Properties["signal"].Enum)
	assert.Equal(t, []string{"NON_MTG", "MTG_1_STEP", "N/A"}, schema.Properties["signalType"].Enum)
	assert.Equal(t, []string{"UPTREND", "DOWNTREND", "SIDEWAYS"}, schema.Properties["trend"].Enum)
	assert.Empty(t, schema.Properties["logic"].Enum)
}

func TestExpectedInstruction(t *testing.T) {
	assert.Equal(t, InstructionNoTrade, ExpectedInstruction(SignalNeutral, SignalTypeNA))
	assert.Equal(t, InstructionNoTrade, ExpectedInstruction(SignalNeutral, SignalTypeNonMTG))
	assert.Equal(t, InstructionNonMTG, ExpectedInstruction(SignalPut, SignalTypeNonMTG))
	assert.Equal(t,
		"If the first trade loses, IMMEDIATELY place a PUT trade again on the next candle (Double Investment).",
		ExpectedInstruction(SignalPut, SignalTypeMTG1Step))
	assert.Empty(t, ExpectedInstruction(SignalCall, SignalTypeNA))
}

func TestInstructionMatches(t *testing.T) {
	assert.True(t, InstructionMatches(SignalNeutral, SignalTypeNA, "No trade."))
	assert.True(t, InstructionMatches(SignalNeutral, SignalTypeNA, "no trade"))
	assert.False(t, InstructionMatches(SignalNeutral, SignalTypeNA, InstructionNonMTG))
	assert.True(t, InstructionMatches(SignalCall, SignalTypeNonMTG, InstructionNonMTG))
	assert.True(t, InstructionMatches(SignalCall, SignalTypeMTG1Step, InstructionMTG))
	assert.True(t, InstructionMatches(SignalCall, SignalTypeMTG1Step, ExpectedInstruction(SignalCall, SignalTypeMTG1Step)))
	assert.False(t, InstructionMatches(SignalCall, SignalTypeMTG1Step, InstructionNonMTG))
}

func TestInconsistencies(t *testing.T) {
	r, err := Decode(eurusdCall)
	require.NoError(t, err)

	mtg := r
	mtg.SignalType = SignalTypeMTG1Step
	mtg.Confidence = 99
	got := mtg.Inconsistencies()
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "MTG_1_STEP confidence 99")
	assert.Contains(t, got[1], "mtgInstruction does not match")

	neutral := Result{Signal: SignalNeutral, SignalType: SignalTypeNonMTG, Confidence: 140, Trend: TrendSideways, MTGInstruction: "No trade."}
	got = neutral.Inconsistencies()
	require.Len(t, got, 2)
	assert.Contains(t, got[0], "outside 0-100")
	assert.Contains(t, got[1], "expected N/A")

	na := r
	na.SignalType = SignalTypeNA
	assert.Equal(t, []string{"CALL signal carries signalType N/A"}, na.Inconsistencies())
}

func TestErrors(t *testing.T) {
	cause := errors.New("rpc error: code = Unavailable")
	err := error(NewAnalysisError("gemini", cause))
	assert.Equal(t, UserMessage, err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsAnalysisError(err))
	assert.False(t, IsConfigurationError(err))
	assert.Equal(t, UserMessage, UserFacing(err))

	cfgErr := error(&ConfigurationError{Key: "GEMINI_API_KEY"})
	assert.True(t, IsConfigurationError(cfgErr))
	assert.Equal(t, "GEMINI_API_KEY environment variable not set", UserFacing(cfgErr))
	assert.Equal(t, UserMessage, UserFacing(errors.New("boom")))
	assert.Empty(t, UserFacing(nil))
}

func TestEnvCredentialReadsAtCallTime(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("API_KEY", "")
	cred := EnvCredential("GEMINI_API_KEY", "API_KEY")

	_, err := cred()
	var ce *ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "GEMINI_API_KEY", ce.Key)

	t.Setenv("API_KEY", "fallback")
	key, err := cred()
	require.NoError(t, err)
	assert.Equal(t, "fallback", key)

	t.Setenv("GEMINI_API_KEY", " primary ")
	key, err = cred()
	require.NoError(t, err)
	assert.Equal(t, "primary", key)

	_, err = StaticCredential("OPENAI_API_KEY", "")()
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "OPENAI_API_KEY", ce.Key)
}

type namedEngine struct{ name string }

func (n namedEngine) Name() string     { return n.name }
func (n namedEngine) GetModel() string { return n.name + "-model" }
func (n namedEngine) Analyze(_ context.Context, _ Image) (Result, error) {
	return Result{}, nil
}

func TestEnginesAndManager(t *testing.T) {
	g, s := namedEngine{"gemini"}, namedEngine{"stub"}
	engs := &Engines{Gemini: g, Stub: s}

	e, err := engs.GetEngine(" Gemini ")
	require.NoError(t, err)
	assert.Equal(t, "gemini", e.Name())

	_, err = engs.GetEngine("gpt")
	assert.ErrorContains(t, err, "not configured")
	assert.ErrorIs(t, err, ErrUnknownEngine)
	_, err = engs.GetEngine("claude")
	assert.ErrorContains(t, err, "unknown llm_name")
	assert.ErrorIs(t, err, ErrUnknownEngine)
	assert.Equal(t, []string{"gemini", "stub"}, engs.Names())

	m := NewManager(g)
	assert.Equal(t, "gemini", m.Get(42).Name())
	m.Set(42, s)
	assert.Equal(t, "stub", m.Get(42).Name())
	assert.Equal(t, "gemini", m.Get(7).Name())
	assert.Equal(t, "gemini", m.Default().Name())
}

func TestImageEncoding(t *testing.T) {
	img := Image{Data: []byte("abc"), MIMEType: MIMEPNG}
	assert.Equal(t, "YWJj", img.Base64())
	assert.Equal(t, "data:image/png;base64,YWJj", img.DataURL())
	assert.True(t, IsSupportedMIME(" IMAGE/WEBP "))
	assert.False(t, IsSupportedMIME("image/gif"))
}
