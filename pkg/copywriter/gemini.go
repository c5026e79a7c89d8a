package copywriter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/profepj/profepj/pkg/logger"
	"github.com/profepj/profepj/pkg/metrics"
)

// ContentGenerator is the slice of the genai models API used here.
// *genai.Models satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

var _ Generator = (*Gemini)(nil)

// Gemini generates copy with a Gemini model in JSON mode.
type Gemini struct {
	models  ContentGenerator
	model   string
	temp    float32
	maxOut  int32
	timeout time.Duration
	log     *slog.Logger
}

type GeminiOption func(*Gemini)

func WithGeminiLogger(l *slog.Logger) GeminiOption {
	return func(g *Gemini) {
		if l != nil {
			g.log = l
		}
	}
}

// NewGeminiClient builds the SDK client for cfg.
func NewGeminiClient(ctx context.Context, cfg Config) (*genai.Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return client, nil
}

func NewGemini(models ContentGenerator, cfg Config, opts ...GeminiOption) *Gemini {
	if models == nil {
		panic("copywriter: ContentGenerator is required")
	}
	g := &Gemini{
		models:  models,
		model:   cfg.Model,
		temp:    cfg.Temperature,
		maxOut:  cfg.MaxTokens,
		timeout: cfg.Timeout,
		log:     slog.Default(),
	}
	if g.model == "" {
		g.model = "gemini-2.0-flash"
	}
	for _, opt := range opts {
		opt(g)
	}
	g.log = g.log.With(logger.Component("copywriter.gemini"))
	return g
}

func (g *Gemini) HomeGreeting(ctx context.Context, in GreetingInput) (*Greeting, error) {
	var out Greeting
	if err := g.generate(ctx, FlowGreeting, greetingPrompt(in), objectSchema("greetingTitle", "greetingSubtitle"), &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Title) == "" {
		return nil, ErrInvalidOutput
	}
	return &out, nil
}

func (g *Gemini) DopamineFeedback(ctx context.Context, in FeedbackInput) (*Feedback, error) {
	var out Feedback
	if err := g.generate(ctx, FlowFeedback, feedbackPrompt(in), objectSchema("message"), &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Message) == "" {
		return nil, ErrInvalidOutput
	}
	return &out, nil
}

func (g *Gemini) DASAlert(ctx context.Context, in DASAlertInput) (*DASAlert, error) {
	var out DASAlert
	if err := g.generate(ctx, FlowDASAlert, dasAlertPrompt(in), objectSchema("alertMessage"), &out); err != nil {
		return nil, err
	}
	if strings.TrimSpace(out.Message) == "" {
		return nil, ErrInvalidOutput
	}
	return &out, nil
}

func (g *Gemini) generate(ctx context.Context, flow, prompt string, schema *genai.Schema, dst any) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr(g.temp),
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
	if g.maxOut > 0 {
		cfg.MaxOutputTokens = g.maxOut
	}

	start := time.Now()
	result, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
	if err != nil {
		metrics.ObserveCopy(flow, "error", time.Since(start))
		g.log.WarnContext(ctx, "gemini request failed",
			slog.String("flow", flow),
			logger.Error(err))
		return errors.Join(ErrGenerateFailed, err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		metrics.ObserveCopy(flow, "empty", time.Since(start))
		return ErrEmptyResponse
	}
	if err := json.Unmarshal([]byte(stripFence(text)), dst); err != nil {
		metrics.ObserveCopy(flow, "invalid", time.Since(start))
		return errors.Join(ErrInvalidOutput, err)
	}

	metrics.ObserveCopy(flow, "ok", time.Since(start))
	return nil
}

func objectSchema(fields ...string) *genai.Schema {
	props := make(map[string]*genai.Schema, len(fields))
	for _, f := range fields {
		props[f] = &genai.Schema{Type: genai.TypeString}
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   fields,
	}
}

// stripFence removes a markdown code fence some models wrap JSON in.
func stripFence(s string) string {
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
