package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"docassist/internal/domain"
	"docassist/internal/llm"
)

// pointNamespace derives stable point IDs from chunk IDs, so re-upserting a
// chunk overwrites its point.
var pointNamespace = uuid.MustParse("6f1d3b7e-2a47-4c1e-9d0b-5d3c2f8a9e10")

// Storage keeps chunks in a Qdrant collection over gRPC.
// It assumes cosine distance and creates the collection if missing.
type Storage struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
}

func NewStorage(cfg Config) (*Storage, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: qdrant url is required", domain.ErrConfiguration)
	}
	raw := cfg.URL
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse qdrant url: %v", domain.ErrConfiguration, err)
	}
	port := 6334
	if u.Port() != "" {
		if port, err = strconv.Atoi(u.Port()); err != nil {
			return nil, fmt.Errorf("%w: invalid qdrant port: %v", domain.ErrConfiguration, err)
		}
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   u.Hostname(),
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}
	collection := cfg.Collection
	if collection == "" {
		collection = "documents"
	}
	return &Storage{client: client, collection: collection}, nil
}

func (s *Storage) Init(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.dimension = dimension
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return llm.Classify("qdrant", err)
	}
	if exists {
		return nil
	}
	return s.create(ctx)
}

func (s *Storage) create(ctx context.Context) error {
	err := s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return llm.Classify("qdrant create collection", err)
	}
	return nil
}

func (s *Storage) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return errors.New("chunks and vectors length mismatch")
	}
	if len(chunks) == 0 {
		return nil
	}
	points := make([]*qdrant.PointStruct, len(chunks))
	for i, ch := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(uuid.NewSHA1(pointNamespace, []byte(ch.ChunkID)).String()),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"document_id": ch.DocumentID,
				"chunk_id":    ch.ChunkID,
				"source":      ch.Source,
				"index":       ch.Index,
				"offset":      ch.Offset,
				"text":        ch.Text,
			}),
		}
	}
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return llm.Classify("qdrant upsert", err)
	}
	return nil
}

func (s *Storage) Search(ctx context.Context, vector []float32, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	limit := uint64(topK)
	points, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, llm.Classify("qdrant search", err)
	}
	results := make([]domain.SearchResult, 0, len(points))
	for _, p := range points {
		results = append(results, domain.SearchResult{Chunk: chunkFromPayload(p.Payload), Score: float64(p.Score)})
	}
	return results, nil
}

// Clear drops the collection and recreates it empty.
func (s *Storage) Clear(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return llm.Classify("qdrant delete collection", err)
	}
	if s.dimension == 0 {
		return nil
	}
	return s.create(ctx)
}

// Count returns the exact number of points in the collection.
func (s *Storage) Count(ctx context.Context) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, llm.Classify("qdrant count", err)
	}
	return int(n), nil
}

func (s *Storage) Close() error { return s.client.Close() }

func chunkFromPayload(payload map[string]*qdrant.Value) domain.Chunk {
	return domain.Chunk{
		DocumentID: payload["document_id"].GetStringValue(),
		ChunkID:    payload["chunk_id"].GetStringValue(),
		Source:     payload["source"].GetStringValue(),
		Text:       payload["text"].GetStringValue(),
		Index:      int(payload["index"].GetIntegerValue()),
		Offset:     int(payload["offset"].GetIntegerValue()),
	}
}
