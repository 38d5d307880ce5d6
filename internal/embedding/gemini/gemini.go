package gemini

import (
	"context"
	"fmt"

	genai "github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"docassist/internal/domain"
	"docassist/internal/llm"
	"docassist/internal/retry"
)

// maxBatch is the largest batch the embedding endpoint accepts.
const maxBatch = 100

// Embedder calls Gemini's embedding model, using the retrieval task types
// so documents and queries land in the same space.
type Embedder struct {
	client    *genai.Client
	docs      *genai.EmbeddingModel
	queries   *genai.EmbeddingModel
	model     string
	dimension int
	policy    retry.Policy
	log       *zap.Logger
}

func New(ctx context.Context, apiKey, model string, dimension int, log *zap.Logger) (*Embedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: missing Gemini API key", domain.ErrConfiguration)
	}
	if model == "" {
		model = "text-embedding-004"
	}
	if dimension <= 0 {
		dimension = 768
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	docs := client.EmbeddingModel(model)
	docs.TaskType = genai.TaskTypeRetrievalDocument
	queries := client.EmbeddingModel(model)
	queries.TaskType = genai.TaskTypeRetrievalQuery
	if log == nil {
		log = zap.NewNop()
	}
	return &Embedder{
		client:    client,
		docs:      docs,
		queries:   queries,
		model:     model,
		dimension: dimension,
		policy:    retry.Default,
		log:       log,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "gemini:" + e.model }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := start + maxBatch
		if end > len(texts) {
			end = len(texts)
		}
		batch := e.docs.NewBatch()
		for _, t := range texts[start:end] {
			batch.AddContent(genai.Text(t))
		}
		var res *genai.BatchEmbedContentsResponse
		err := retry.Do(ctx, e.policy, func(ctx context.Context) error {
			var err error
			res, err = e.docs.BatchEmbedContents(ctx, batch)
			if err != nil {
				err = llm.Classify("gemini embed", err)
				e.log.Warn("gemini batch embed failed", zap.Int("batch_start", start), zap.Error(err))
			}
			return err
		})
		if err != nil {
			return nil, err
		}
		if len(res.Embeddings) != end-start {
			return nil, fmt.Errorf("gemini returned %d embeddings for %d inputs", len(res.Embeddings), end-start)
		}
		for _, emb := range res.Embeddings {
			out = append(out, emb.Values)
		}
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var res *genai.EmbedContentResponse
	err := retry.Do(ctx, e.policy, func(ctx context.Context) error {
		var err error
		res, err = e.queries.EmbedContent(ctx, genai.Text(text))
		return llm.Classify("gemini embed", err)
	})
	if err != nil {
		return nil, err
	}
	if res.Embedding == nil {
		return nil, fmt.Errorf("gemini returned no embedding")
	}
	return res.Embedding.Values, nil
}

// Close releases the underlying client.
func (e *Embedder) Close() error { return e.client.Close() }
