package gemini

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"chart-signal/api/internal/analysis"
)

const DefaultModel = "gemini-2.5-flash"

// generator is the part of *genai.GenerativeModel the engine uses.
type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// dialer opens a configured model for a single call.
type dialer func(ctx context.Context, apiKey, model string) (generator, io.Closer, error)

type Engine struct {
	Model      string
	credential analysis.Credential
	dial       dialer
}

func New(cred analysis.Credential, model string) *Engine {
	model = strings.TrimSpace(model)
	if model == "" {
		model = DefaultModel
	}
	return &Engine{
		Model:      model,
		credential: cred,
		dial:       dialSDK,
	}
}

func (e *Engine) Name() string     { return "gemini" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) WithModel(model string) analysis.Engine {
	cp := *e
	if m := strings.TrimSpace(model); m != "" {
		cp.Model = m
	}
	return &cp
}

// Analyze sends the chart and the fixed prompt in one GenerateContent call.
// There is no retry: a failed call is re-initiated by the user.
func (e *Engine) Analyze(ctx context.Context, img analysis.Image) (analysis.Result, error) {
	key, err := e.credential()
	if err != nil {
		return analysis.Result{}, err
	}

	m, closer, err := e.dial(ctx, key, e.Model)
	if err != nil {
		return e.fail(fmt.Errorf("gemini: new client: %w", err))
	}
	defer closer.Close()

	resp, err := m.GenerateContent(ctx,
		&genai.Blob{MIMEType: img.MIMEType, Data: img.Data},
		genai.Text(analysis.Prompt),
	)
	if err != nil {
		return e.fail(fmt.Errorf("gemini analyze: %w", err))
	}
	txt := firstText(resp)
	if txt == "" {
		return e.fail(fmt.Errorf("gemini analyze: %w (%s)", analysis.ErrEmptyResponse, finishReason(resp)))
	}

	r, err := analysis.Decode(txt)
	if err != nil {
		return e.fail(fmt.Errorf("gemini analyze: %w", err))
	}
	return r, nil
}

func (e *Engine) fail(err error) (analysis.Result, error) {
	slog.Error("chart analysis failed", "engine", e.Name(), "model", e.Model, "error", err)
	return analysis.Result{}, analysis.NewAnalysisError(e.Name(), err)
}

func dialSDK(ctx context.Context, apiKey, model string) (generator, io.Closer, error) {
	cl, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, nil, err
	}
	m := cl.GenerativeModel(model)
	if m == nil {
		_ = cl.Close()
		return nil, nil, fmt.Errorf("gemini: model is nil")
	}
	configure(m)
	return m, cl, nil
}

// configure asks for strict JSON matching the declared result schema.
func configure(m *genai.GenerativeModel) {
	m.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   ResponseSchema(),
	}
}

// ResponseSchema is analysis.Fields in the SDK's schema type.
func ResponseSchema() *genai.Schema {
	props := make(map[string]*genai.Schema, len(analysis.Fields))
	for _, f := range analysis.Fields {
		s := &genai.Schema{Type: genai.TypeString}
		if f.Kind == analysis.KindInteger {
			s.Type = genai.TypeInteger
		}
		if len(f.Enum) > 0 {
			s.Format = "enum"
			s.Enum = append([]string(nil), f.Enum...)
		}
		props[f.Name] = s
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   analysis.RequiredFields(),
	}
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if t, ok := p.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			return s
		}
	}
	return ""
}

func finishReason(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return "no response"
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != genai.BlockReasonUnspecified {
		return "blocked: " + resp.PromptFeedback.BlockReason.String()
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		return "finish: " + resp.Candidates[0].FinishReason.String()
	}
	return "no candidates"
}
