package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docassist/internal/domain"
)

func TestStorage_SearchOrdersByScore(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, 2))
	chunks := []domain.Chunk{{ChunkID: "a", Text: "east"}, {ChunkID: "b", Text: "north"}, {ChunkID: "c", Text: "north-east"}}
	require.NoError(t, s.Upsert(ctx, chunks, [][]float32{{1, 0}, {0, 1}, {1, 1}}))

	res, err := s.Search(ctx, []float32{0, 2}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, "north", res[0].Chunk.Text)
	assert.InDelta(t, 1.0, res[0].Score, 1e-9)
	assert.Equal(t, "north-east", res[1].Chunk.Text)
	assert.GreaterOrEqual(t, res[0].Score, res[1].Score)
}

func TestStorage_UpsertReplacesByChunkID(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, 2))
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{{ChunkID: "a", Text: "old"}}, [][]float32{{1, 0}}))
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{{ChunkID: "a", Text: "new"}}, [][]float32{{0, 1}}))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	res, err := s.Search(ctx, []float32{0, 1}, 5)
	require.NoError(t, err)
	assert.Equal(t, "new", res[0].Chunk.Text)
}

func TestStorage_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	assert.Error(t, s.Init(ctx, 0))
	require.NoError(t, s.Init(ctx, 3))
	assert.Error(t, s.Upsert(ctx, []domain.Chunk{{ChunkID: "a"}}, nil))
	assert.Error(t, s.Upsert(ctx, []domain.Chunk{{ChunkID: "a"}}, [][]float32{{1}}))
}

func TestStorage_ClearAndEmptySearch(t *testing.T) {
	ctx := context.Background()
	s := NewStorage()
	require.NoError(t, s.Init(ctx, 1))
	require.NoError(t, s.Upsert(ctx, []domain.Chunk{{ChunkID: "a"}}, [][]float32{{1}}))
	require.NoError(t, s.Clear(ctx))

	res, err := s.Search(ctx, []float32{1}, 3)
	require.NoError(t, err)
	assert.Empty(t, res)
}
