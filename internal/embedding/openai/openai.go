package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"docassist/internal/domain"
	"docassist/internal/retry"
)

// Client is an OpenAI-compatible embeddings client implementing the Embedder interface.
type Client struct {
	baseURL   string
	apiKey    string
	model     string
	batchSize int
	client    *http.Client
	policy    retry.Policy
	log       *zap.Logger

	mu        sync.Mutex
	dimension int
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	BatchSize  int
	Dimension  int
	MaxRetries int
}

// NewClient creates a new embeddings client using the provided configuration.
func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing OpenAI API key", domain.ErrConfiguration)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 32
	}
	policy := retry.Default
	if cfg.MaxRetries > 0 {
		policy.Attempts = cfg.MaxRetries
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		batchSize: cfg.BatchSize,
		client:    &http.Client{Timeout: cfg.Timeout},
		policy:    policy,
		log:       log,
		dimension: cfg.Dimension,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai" }

// Dimension returns the configured dimension, or the one observed on the first response.
func (c *Client) Dimension() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dimension
}

func (c *Client) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := c.embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

type embeddingsRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (c *Client) embed(ctx context.Context, texts []string) ([][]float32, error) {
	data, err := json.Marshal(embeddingsRequest{Input: texts, Model: c.model})
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/embeddings", c.baseURL)

	var out [][]float32
	attempt := 0
	err = retry.Do(ctx, c.policy, func(ctx context.Context) error {
		attempt++
		vecs, err := c.post(ctx, url, data, len(texts))
		if err != nil {
			if domain.IsTransient(err) {
				c.log.Warn("openai embeddings failed, retrying", zap.Int("attempt", attempt), zap.Error(err))
			}
			return err
		}
		out = vecs
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if c.dimension == 0 && len(out) > 0 {
		c.dimension = len(out[0])
	}
	c.mu.Unlock()
	return out, nil
}

func (c *Client) post(ctx context.Context, url string, body []byte, want int) ([][]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: openai embeddings: %v", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		// Respect Retry-After if provided
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(time.Duration(secs) * time.Second):
			}
		}
		return nil, fmt.Errorf("%w: openai embeddings: %s", domain.ErrRateLimited, resp.Status)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: openai embeddings: %s", domain.ErrServiceUnavailable, resp.Status)
	case resp.StatusCode >= 300:
		return nil, fmt.Errorf("openai embeddings failed: %s", resp.Status)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading openai response: %v", domain.ErrServiceUnavailable, err)
	}
	var parsed embeddingsResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, fmt.Errorf("decoding openai response: %w", err)
	}
	if len(parsed.Data) != want {
		return nil, fmt.Errorf("openai returned %d embeddings for %d inputs", len(parsed.Data), want)
	}
	out := make([][]float32, want)
	for i, d := range parsed.Data {
		idx := d.Index
		if idx < 0 || idx >= want {
			idx = i
		}
		out[idx] = d.Embedding
	}
	return out, nil
}
