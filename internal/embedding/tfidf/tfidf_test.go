package tfidf

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestEmbedder_RanksRelatedTextHigher(t *testing.T) {
	e := NewEmbedder(256)
	corpus := []string{
		"The refund policy allows returns within thirty days.",
		"Our office opens at nine and closes at five.",
		"Shipping takes three business days.",
	}
	require.NoError(t, e.Prepare(corpus))

	docs, err := e.EmbedDocuments(context.Background(), corpus)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	q, err := e.EmbedQuery(context.Background(), "what is the refund policy for returns")
	require.NoError(t, err)
	assert.Len(t, q, 256)

	assert.Greater(t, cosine(q, docs[0]), cosine(q, docs[1]))
	assert.Greater(t, cosine(q, docs[0]), cosine(q, docs[2]))
}

func TestEmbedder_VectorsAreUnitLength(t *testing.T) {
	e := NewEmbedder(64)
	v, err := e.EmbedQuery(context.Background(), "unprepared embedders still work")
	require.NoError(t, err)
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, norm, 1e-5)
}

func TestEmbedder_StopwordsOnlyIsZeroVector(t *testing.T) {
	e := NewEmbedder(32)
	v, err := e.EmbedQuery(context.Background(), "the and of")
	require.NoError(t, err)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestEmbedder_PrepareRejectsEmptyCorpus(t *testing.T) {
	assert.Error(t, NewEmbedder(8).Prepare(nil))
	assert.Error(t, NewEmbedder(8).Prepare([]string{"the of"}))
}
