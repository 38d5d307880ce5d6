package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	genai "github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"

	"docassist/internal/domain"
	"docassist/internal/retry"
)

// GeminiConfig configures the hosted Gemini generator.
type GeminiConfig struct {
	APIKey       string
	Model        string
	Temperature  float32
	Timeout      time.Duration
	MaxRetries   int
	RequestsPerS float64
}

// Gemini generates text with Google's Gemini API. Calls are rate limited,
// bounded by a per-call timeout and retried on transient failures.
type Gemini struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	limiter *rate.Limiter
	timeout time.Duration
	policy  retry.Policy
	log     *zap.Logger
}

func NewGemini(ctx context.Context, cfg GeminiConfig, log *zap.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing Gemini API key", domain.ErrConfiguration)
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-1.5-flash"
	}
	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)

	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	policy := retry.Default
	if cfg.MaxRetries > 0 {
		policy.Attempts = cfg.MaxRetries
	}
	limit := rate.Inf
	if cfg.RequestsPerS > 0 {
		limit = rate.Limit(cfg.RequestsPerS)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Gemini{
		client:  client,
		model:   model,
		limiter: rate.NewLimiter(limit, 1),
		timeout: cfg.Timeout,
		policy:  policy,
		log:     log,
	}, nil
}

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	attempt := 0
	err := retry.Do(ctx, g.policy, func(ctx context.Context) error {
		attempt++
		text, err := g.generateOnce(ctx, prompt)
		if err != nil {
			if domain.IsTransient(err) {
				g.log.Warn("gemini generate failed", zap.Int("attempt", attempt), zap.Error(err))
			}
			return err
		}
		out = text
		return nil
	})
	return out, err
}

func (g *Gemini) generateOnce(ctx context.Context, prompt string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.model.GenerateContent(callCtx, genai.Text(prompt))
	if err != nil {
		return "", Classify("gemini generate", err)
	}
	return responseText(resp)
}

// Close releases the underlying gRPC connection.
func (g *Gemini) Close() error { return g.client.Close() }

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("gemini returned no candidates")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			sb.WriteString(string(textPart))
		}
	}
	return sb.String(), nil
}
