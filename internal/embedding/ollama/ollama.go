package ollama

import (
	"context"
	"fmt"
	"time"

	"github.com/ollama/ollama/api"
	"go.uber.org/zap"

	"docassist/internal/llm"
	"docassist/internal/retry"
)

// Embedder generates embeddings using the Ollama API.
type Embedder struct {
	client    *api.Client
	model     string
	dimension int
	timeout   time.Duration
	batchSize int
	policy    retry.Policy
	log       *zap.Logger
}

func NewEmbedder(client *api.Client, model string, dimension int, log *zap.Logger) *Embedder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Embedder{
		client:    client,
		model:     model,
		dimension: dimension,
		timeout:   30 * time.Second,
		batchSize: 32,
		policy:    retry.Default,
		log:       log,
	}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "ollama:" + e.model }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := e.embed(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("failed to embed chunks %d-%d: %w", start, end-1, err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *Embedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	var resp *api.EmbedResponse
	err := retry.Do(ctx, e.policy, func(ctx context.Context) error {
		// Create a context with timeout
		ctxWithTimeout, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		var err error
		resp, err = e.client.Embed(ctxWithTimeout, &api.EmbedRequest{Model: e.model, Input: texts})
		if err != nil {
			err = llm.Classify("ollama embed", err)
			e.log.Warn("ollama embed failed", zap.Error(err))
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}
	return resp.Embeddings, nil
}
