package gpt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chart-signal/api/internal/analysis"
)

const neutralAnswer = `{"signal":"NEUTRAL","signalType":"N/A","confidence":40,"trend":"SIDEWAYS",
"support":"150.10","resistance":"150.40","logic":"Choppy range, no clean level.",
"previousCandlePower":"Doji","pair":"USD/JPY","timeframe":"M1","mtgInstruction":"No trade."}`

type fakeAPI struct {
	srv      *httptest.Server
	calls    atomic.Int32
	lastBody map[string]any
	lastAuth string
	status   int
	content  string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	f := &fakeAPI{status: http.StatusOK, content: neutralAnswer}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.lastAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		_ = json.NewDecoder(r.Body).Decode(&f.lastBody)

		w.Header().Set("Content-Type", "application/json")
		if f.status != http.StatusOK {
			w.WriteHeader(f.status)
			_, _ = w.Write([]byte(`{"error":{"message":"upstream exploded","type":"server_error"}}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []any{map[string]any{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": f.content},
			}},
		})
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) engine(cred analysis.Credential) *Engine {
	return New(cred, "", WithBaseURL(f.srv.URL+"/v1"), WithHTTPClient(f.srv.Client()))
}

var jpeg = analysis.Image{Data: []byte{0xff, 0xd8, 0xff, 0xe0, 1, 2, 3}, MIMEType: analysis.MIMEJPEG}

func TestAnalyzeNeutral(t *testing.T) {
	api := newFakeAPI(t)
	e := api.engine(analysis.StaticCredential("OPENAI_API_KEY", "sk-test"))

	r, err := e.Analyze(context.Background(), jpeg)
	require.NoError(t, err)
	assert.Equal(t, analysis.SignalNeutral, r.Signal)
	assert.Equal(t, analysis.SignalTypeNA, r.SignalType)
	assert.Equal(t, analysis.InstructionNoTrade, r.MTGInstruction)
	assert.Empty(t, r.Inconsistencies())
	assert.Equal(t, "Bearer sk-test", api.lastAuth)
	assert.EqualValues(t, 1, api.calls.Load())
}

func TestAnalyzeRequestShape(t *testing.T) {
	api := newFakeAPI(t)
	e := api.engine(analysis.StaticCredential("OPENAI_API_KEY", "sk-test"))

	_, err := e.Analyze(context.Background(), jpeg)
	require.NoError(t, err)

	body := api.lastBody
	assert.Equal(t, DefaultModel, body["model"])

	msgs := body["messages"].([]any)
	require.Len(t, msgs, 1)
	content := msgs[0].(map[string]any)["content"].([]any)
	require.Len(t, content, 2)

	img := content[0].(map[string]any)
	assert.Equal(t, "image_url", img["type"])
	url := img["image_url"].(map[string]any)["url"].(string)
	assert.True(t, strings.HasPrefix(url, "data:image/jpeg;base64,"), url)
	assert.Equal(t, jpeg.DataURL(), url)

	txt := content[1].(map[string]any)
	assert.Equal(t, analysis.Prompt, txt["text"])

	rf := body["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", rf["type"])
	js := rf["json_schema"].(map[string]any)
	assert.Equal(t, true, js["strict"])
	schema := js["schema"].(map[string]any)
	assert.Len(t, schema["required"], len(analysis.Fields))
	assert.Equal(t, false, schema["additionalProperties"])
}

func TestAnalyzeMissingKey(t *testing.T) {
	api := newFakeAPI(t)
	e := api.engine(analysis.StaticCredential("OPENAI_API_KEY", ""))

	r, err := e.Analyze(context.Background(), jpeg)
	require.Error(t, err)
	assert.True(t, analysis.IsConfigurationError(err))
	assert.Equal(t, "OPENAI_API_KEY environment variable not set", err.Error())
	assert.Equal(t, analysis.Result{}, r)
	assert.Zero(t, api.calls.Load())
}

func TestAnalyzeUpstreamError(t *testing.T) {
	api := newFakeAPI(t)
	api.status = http.StatusBadRequest
	e := api.engine(analysis.StaticCredential("OPENAI_API_KEY", "sk"))

	r, err := e.Analyze(context.Background(), jpeg)
	require.Error(t, err)
	assert.True(t, analysis.IsAnalysisError(err))
	assert.Equal(t, analysis.UserMessage, err.Error())
	assert.Equal(t, analysis.Result{}, r)
	assert.EqualValues(t, 1, api.calls.Load())
}

func TestAnalyzeBadContent(t *testing.T) {
	api := newFakeAPI(t)
	api.content = "Sorry, I cannot read this chart."
	e := api.engine(analysis.StaticCredential("OPENAI_API_KEY", "sk"))

	_, err := e.Analyze(context.Background(), jpeg)
	require.Error(t, err)
	assert.True(t, analysis.IsAnalysisError(err))

	api.content = neutralAnswer
	r, err := e.Analyze(context.Background(), jpeg)
	require.NoError(t, err)
	assert.Equal(t, "USD/JPY", r.Pair)
}

func TestWithModel(t *testing.T) {
	e := New(analysis.StaticCredential("OPENAI_API_KEY", "sk"), "  ")
	assert.Equal(t, DefaultModel, e.GetModel())
	o := e.WithModel("gpt-4o")
	assert.Equal(t, "gpt-4o", o.GetModel())
	assert.Equal(t, DefaultModel, e.GetModel())
}
