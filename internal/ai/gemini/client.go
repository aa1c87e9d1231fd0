package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/spigell/resume-matcher/internal/metrics"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	Provider     = "gemini"
	defaultModel = "gemini-2.0-flash"
)

// ErrEmptyResponse is returned when the API answers without any text.
var ErrEmptyResponse = errors.New("gemini api returned empty response")

// Options configures a Generator. Zero sampling values leave the API defaults in place.
type Options struct {
	APIKey          string
	Model           string
	Temperature     float32
	TopP            float32
	TopK            float32
	MaxOutputTokens int32
	// RequestsPerSecond limits calls across all goroutines sharing the generator.
	// Zero disables the limiter.
	RequestsPerSecond float64
	Breaker           BreakerOptions
}

// DefaultOptions mirrors the sampling settings the matcher prompts were tuned for.
func DefaultOptions() Options {
	return Options{
		Model:           defaultModel,
		Temperature:     0.3,
		TopP:            0.8,
		TopK:            40,
		MaxOutputTokens: 4096,
		Breaker:         DefaultBreakerOptions(),
	}
}

// contentModels is satisfied by genai.Client.Models.
type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator wraps the Google GenAI client and implements ai.TextModel.
type Generator struct {
	models    contentModels
	modelName string
	config    *genai.GenerateContentConfig
	limiter   *rate.Limiter
	breaker   *breaker
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, opts Options, logger *zap.Logger) (*Generator, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return newGenerator(client.Models, opts, logger), nil
}

func newGenerator(models contentModels, opts Options, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}

	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}

	config := &genai.GenerateContentConfig{MaxOutputTokens: opts.MaxOutputTokens}
	if opts.Temperature > 0 {
		config.Temperature = ptr(opts.Temperature)
	}
	if opts.TopP > 0 {
		config.TopP = ptr(opts.TopP)
	}
	if opts.TopK > 0 {
		config.TopK = ptr(opts.TopK)
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return &Generator{
		models:    models,
		modelName: model,
		config:    config,
		limiter:   limiter,
		breaker:   newBreaker(model, opts.Breaker, logger),
		logger:    logger,
		tracer:    otel.Tracer("resume-matcher/ai/gemini"),
	}
}

// Invoke sends the prompt to Gemini and returns the joined textual response.
// The caller owns the deadline.
func (g *Generator) Invoke(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	ctx, span := g.tracer.Start(ctx, "gemini.generate_content", trace.WithAttributes(
		attribute.String("ai.model", g.modelName),
		attribute.Int("ai.prompt_length", utf8.RuneCountInString(prompt)),
	))
	defer span.End()

	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "rate limiter")
			return "", fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}

	start := time.Now()
	output, err := g.breaker.execute(func() (string, error) {
		return g.generateContent(ctx, prompt)
	})
	metrics.ModelCallDuration.WithLabelValues(g.modelName).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		g.logger.Debug("gemini call failed",
			zap.Error(err),
			zap.String("breaker_state", g.breaker.state()),
		)
		return "", err
	}

	span.SetAttributes(attribute.Int("ai.response_length", utf8.RuneCountInString(output)))
	return output, nil
}

func (g *Generator) generateContent(ctx context.Context, prompt string) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.modelName, genai.Text(prompt), g.config)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyResponse
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", ErrEmptyResponse
	}

	return output, nil
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.modelName
}

func ptr[T any](v T) *T {
	return &v
}
