package pinecone

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"go.uber.org/zap"
	"google.golang.org/protobuf/types/known/structpb"

	"docassist/internal/domain"
	"docassist/internal/llm"
)

// indexAPI is the part of *pinecone.IndexConnection the store uses.
type indexAPI interface {
	UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error)
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
	DeleteAllVectorsInNamespace(ctx context.Context) error
	DescribeIndexStats(ctx context.Context) (*pinecone.DescribeIndexStatsResponse, error)
}

type Config struct {
	APIKey       string
	Index        string
	Namespace    string
	Cloud        string
	Region       string
	Metric       string
	ReadyTimeout time.Duration
}

// Storage keeps chunk vectors in a serverless Pinecone index. Init creates
// the index when it is missing and waits until it is ready.
type Storage struct {
	client       *pinecone.Client
	cfg          Config
	index        indexAPI
	pollInterval time.Duration
	log          *zap.Logger
}

func NewStorage(cfg Config, log *zap.Logger) (*Storage, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing Pinecone API key", domain.ErrConfiguration)
	}
	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create pinecone client: %w", err)
	}
	if cfg.Index == "" {
		cfg.Index = "my-embeddings-index"
	}
	if cfg.ReadyTimeout == 0 {
		cfg.ReadyTimeout = 2 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Storage{client: client, cfg: cfg, pollInterval: time.Second, log: log}, nil
}

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	idx, err := s.findIndex(ctx)
	if err != nil {
		return err
	}
	if idx == nil {
		s.log.Info("creating pinecone index", zap.String("index", s.cfg.Index), zap.Int("dimension", dimension))
		dim := int32(dimension)
		metric := pinecone.IndexMetric(s.cfg.Metric)
		idx, err = s.client.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
			Name:      s.cfg.Index,
			Dimension: &dim,
			Metric:    &metric,
			Cloud:     pinecone.Cloud(s.cfg.Cloud),
			Region:    s.cfg.Region,
		})
		if err != nil {
			return llm.Classify("pinecone create index", err)
		}
	}
	if idx, err = s.waitReady(ctx, idx); err != nil {
		return err
	}
	if idx.Dimension != nil && int(*idx.Dimension) != dimension {
		return fmt.Errorf("%w: pinecone index %q has dimension %d, embedder produces %d",
			domain.ErrConfiguration, s.cfg.Index, *idx.Dimension, dimension)
	}
	conn, err := s.client.Index(pinecone.NewIndexConnParams{Host: idx.Host, Namespace: s.cfg.Namespace})
	if err != nil {
		return llm.Classify("pinecone connect", err)
	}
	s.index = conn
	return nil
}

func (s *Storage) findIndex(ctx context.Context) (*pinecone.Index, error) {
	indexes, err := s.client.ListIndexes(ctx)
	if err != nil {
		return nil, llm.Classify("pinecone list indexes", err)
	}
	for _, idx := range indexes {
		if idx.Name == s.cfg.Index {
			return idx, nil
		}
	}
	return nil, nil
}

func (s *Storage) waitReady(ctx context.Context, idx *pinecone.Index) (*pinecone.Index, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadyTimeout)
	defer cancel()
	for idx.Status == nil || !idx.Status.Ready {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: pinecone index %q not ready", domain.ErrServiceUnavailable, s.cfg.Index)
		case <-time.After(s.pollInterval):
		}
		var err error
		if idx, err = s.client.DescribeIndex(ctx, s.cfg.Index); err != nil {
			return nil, llm.Classify("pinecone describe index", err)
		}
	}
	return idx, nil
}

func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if s.index == nil {
		return errors.New("pinecone store not initialised")
	}
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	if len(chunks) == 0 {
		return nil
	}
	batch := make([]*pinecone.Vector, len(chunks))
	for i, ch := range chunks {
		md, err := structpb.NewStruct(map[string]any{
			"document_id": ch.DocumentID,
			"chunk_id":    ch.ChunkID,
			"source":      ch.Source,
			"index":       ch.Index,
			"offset":      ch.Offset,
			"text":        ch.Text,
		})
		if err != nil {
			return fmt.Errorf("chunk %s metadata: %w", ch.ChunkID, err)
		}
		values := vectors[i]
		batch[i] = &pinecone.Vector{Id: ch.ChunkID, Values: &values, Metadata: md}
	}
	n, err := s.index.UpsertVectors(ctx, batch)
	if err != nil {
		return llm.Classify("pinecone upsert", err)
	}
	s.waitForCount(ctx, int(n))
	return nil
}

// waitForCount polls index stats until they report at least want vectors.
// Pinecone is eventually consistent, so a fresh upsert may not be queryable
// yet. Giving up is not an error.
func (s *Storage) waitForCount(ctx context.Context, want int) {
	deadline := time.Now().Add(10 * s.pollInterval)
	for time.Now().Before(deadline) {
		n, err := s.Count(ctx)
		if err == nil && n >= want {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(s.pollInterval):
		}
	}
	s.log.Debug("pinecone vector count not yet visible", zap.Int("want", want))
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if s.index == nil {
		return nil, errors.New("pinecone store not initialised")
	}
	if topK <= 0 {
		topK = 5
	}
	resp, err := s.index.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(topK),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, llm.Classify("pinecone query", err)
	}
	results := make([]domain.SearchResult, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		if m == nil || m.Vector == nil {
			continue
		}
		results = append(results, domain.SearchResult{Chunk: chunkFromVector(m.Vector), Score: float64(m.Score)})
	}
	return results, nil
}

func (s *Storage) Clear(ctx context.Context) error {
	if s.index == nil {
		return errors.New("pinecone store not initialised")
	}
	if err := s.index.DeleteAllVectorsInNamespace(ctx); err != nil {
		return llm.Classify("pinecone delete all", err)
	}
	return nil
}

// Count returns the vector count of the configured namespace.
func (s *Storage) Count(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, errors.New("pinecone store not initialised")
	}
	stats, err := s.index.DescribeIndexStats(ctx)
	if err != nil {
		return 0, llm.Classify("pinecone stats", err)
	}
	if ns, ok := stats.Namespaces[s.cfg.Namespace]; ok && ns != nil {
		return int(ns.VectorCount), nil
	}
	if s.cfg.Namespace == "" {
		return int(stats.TotalVectorCount), nil
	}
	return 0, nil
}

func chunkFromVector(v *pinecone.Vector) domain.Chunk {
	ch := domain.Chunk{ChunkID: v.Id}
	if v.Metadata == nil {
		return ch
	}
	f := v.Metadata.GetFields()
	ch.DocumentID = f["document_id"].GetStringValue()
	if id := f["chunk_id"].GetStringValue(); id != "" {
		ch.ChunkID = id
	}
	ch.Source = f["source"].GetStringValue()
	ch.Text = f["text"].GetStringValue()
	ch.Index = int(f["index"].GetNumberValue())
	ch.Offset = int(f["offset"].GetNumberValue())
	return ch
}
