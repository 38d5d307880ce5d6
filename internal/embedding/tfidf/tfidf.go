package tfidf

import (
	"context"
	"errors"
	"hash/fnv"
	"math"
	"sync"

	"docassist/internal/textutil"
)

// Embedder is a TF-IDF vectorizer that hashes terms into a fixed number of
// buckets, so its vectors fit a store created with that dimension.
// Terms never seen by Prepare get an IDF of 1.
type Embedder struct {
	mu        sync.RWMutex
	idf       map[uint32]float64
	dimension int
}

// NewEmbedder creates an embedder producing vectors of the given dimension.
func NewEmbedder(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = 768
	}
	return &Embedder{idf: make(map[uint32]float64), dimension: dimension}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "tfidf" }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Prepare computes IDF values over the whole corpus.
func (e *Embedder) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus for TF-IDF prepare")
	}
	df := make(map[uint32]int)
	for _, text := range corpus {
		seen := make(map[uint32]struct{})
		for _, tok := range textutil.ContentWords(text) {
			b := e.bucket(tok)
			if _, ok := seen[b]; ok {
				continue
			}
			seen[b] = struct{}{}
			df[b]++
		}
	}
	if len(df) == 0 {
		return errors.New("no tokens found in corpus; ensure tokenizer supports your language")
	}
	n := float64(len(corpus))
	idf := make(map[uint32]float64, len(df))
	for b, count := range df {
		// Smoothed IDF
		idf[b] = math.Log((1+n)/(1+float64(count))) + 1.0
	}
	e.mu.Lock()
	e.idf = idf
	e.mu.Unlock()
	return nil
}

func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.embed(text), nil
}

func (e *Embedder) embed(text string) []float32 {
	vec := make([]float32, e.dimension)
	tokens := textutil.ContentWords(text)
	if len(tokens) == 0 {
		return vec
	}
	tf := make(map[uint32]int)
	for _, tok := range tokens {
		tf[e.bucket(tok)]++
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	weights := make([]float64, e.dimension)
	norm := 0.0
	for b, count := range tf {
		idf, ok := e.idf[b]
		if !ok {
			idf = 1.0
		}
		w := float64(count) / float64(len(tokens)) * idf
		weights[b] = w
		norm += w * w
	}
	// L2 normalize
	norm = math.Sqrt(norm)
	for b, w := range weights {
		if w != 0 {
			vec[b] = float32(w / norm)
		}
	}
	return vec
}

func (e *Embedder) bucket(term string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(term))
	return h.Sum32() % uint32(e.dimension)
}
