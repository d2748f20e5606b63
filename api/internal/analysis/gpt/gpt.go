package gpt

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"chart-signal/api/internal/analysis"
)

const (
	DefaultModel = "gpt-4o-mini"
	schemaName   = "chart_signal"
)

type Engine struct {
	Model      string
	credential analysis.Credential
	baseURL    string
	httpc      *http.Client
}

type Option func(*Engine)

// WithBaseURL points the client at an OpenAI compatible endpoint.
func WithBaseURL(u string) Option {
	return func(e *Engine) { e.baseURL = strings.TrimRight(strings.TrimSpace(u), "/") }
}

func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) { e.httpc = c }
}

func New(cred analysis.Credential, model string, opts ...Option) *Engine {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	e := &Engine{
		Model:      model,
		credential: cred,
		httpc:      &http.Client{},
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) Name() string     { return "gpt" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) WithModel(model string) analysis.Engine {
	cp := *e
	if m := strings.TrimSpace(model); m != "" {
		cp.Model = m
	}
	return &cp
}

func (e *Engine) client(key string) *openai.Client {
	cfg := openai.DefaultConfig(key)
	if e.baseURL != "" {
		cfg.BaseURL = e.baseURL
	}
	if e.httpc != nil {
		cfg.HTTPClient = e.httpc
	}
	return openai.NewClientWithConfig(cfg)
}

// Analyze sends one chat completion with the prompt and the chart as a data
// URL and decodes the structured answer.
func (e *Engine) Analyze(ctx context.Context, img analysis.Image) (analysis.Result, error) {
	key, err := e.credential()
	if err != nil {
		return analysis.Result{}, err
	}

	resp, err := e.client(key).CreateChatCompletion(ctx, e.request(img))
	if err != nil {
		return e.fail(fmt.Errorf("openai analyze: %w", err))
	}
	if len(resp.Choices) == 0 {
		return e.fail(fmt.Errorf("openai analyze: %w (no choices)", analysis.ErrEmptyResponse))
	}
	msg := resp.Choices[0].Message
	if strings.TrimSpace(msg.Refusal) != "" {
		return e.fail(fmt.Errorf("openai analyze: refused: %s", msg.Refusal))
	}

	r, err := analysis.Decode(msg.Content)
	if err != nil {
		return e.fail(fmt.Errorf("openai analyze: %w", err))
	}
	return r, nil
}

func (e *Engine) request(img analysis.Image) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: e.Model,
		Messages: []openai.ChatCompletionMessage{{
			Role: openai.ChatMessageRoleUser,
			MultiContent: []openai.ChatMessagePart{
				{
					Type: openai.ChatMessagePartTypeImageURL,
					ImageURL: &openai.ChatMessageImageURL{
						URL:    img.DataURL(),
						Detail: openai.ImageURLDetailHigh,
					},
				},
				{
					Type: openai.ChatMessagePartTypeText,
					Text: analysis.Prompt,
				},
			},
		}},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schemaName,
				Schema: analysis.JSONSchemaRaw(),
				Strict: true,
			},
		},
	}
}

func (e *Engine) fail(err error) (analysis.Result, error) {
	slog.Error("chart analysis failed", "engine", e.Name(), "model", e.Model, "error", err)
	return analysis.Result{}, analysis.NewAnalysisError(e.Name(), err)
}
