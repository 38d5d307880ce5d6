package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"docassist/internal/chunker"
	"docassist/internal/cleaner"
	"docassist/internal/domain"
	"docassist/internal/embedding/tfidf"
	"docassist/internal/ingest"
	"docassist/internal/llm"
	"docassist/internal/summarizer"
	"docassist/internal/vectorstore/memory"
)

type echoGenerator struct{ prompts []string }

func (g *echoGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return "grounded answer", nil
}

// flakyStore fails every upsert whose first chunk index is in failAt.
type flakyStore struct {
	*memory.Storage
	failAt map[int]bool
}

func (f *flakyStore) Upsert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) > 0 && f.failAt[chunks[0].Index] {
		return domain.ErrServiceUnavailable
	}
	return f.Storage.Upsert(ctx, chunks, vectors)
}

func newService(t *testing.T, store domain.VectorStore, gen domain.Generator, batch int) (*RAGService, *ingest.Library) {
	t.Helper()
	root := t.TempDir()
	lib := ingest.NewLibrary(filepath.Join(root, "raw"), filepath.Join(root, "processed"))
	svc := NewRAGService(lib, cleaner.NormalizeOnly{}, chunker.NewRecursiveChunker(60, 10, nil),
		tfidf.NewEmbedder(128), store, summarizer.NewFrequencySummarizer(), llm.NewAnswerer(gen, nil),
		Options{TopK: 2, BatchSize: batch, SummaryMaxSentences: 1}, zap.NewNop())
	require.NoError(t, svc.Init(context.Background()))
	return svc, lib
}

const handbook = "Refunds are issued within five business days.\n\n" +
	"The office opens at nine in the morning.\n\n" +
	"Parking permits are available from reception."

func TestIngestFile_IndexesAndAnswers(t *testing.T) {
	ctx := context.Background()
	gen := &echoGenerator{}
	svc, lib := newService(t, memory.NewStorage(), gen, 50)

	rep, err := svc.IngestFile(ctx, "handbook.txt", []byte(handbook))
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Chunks)
	assert.Equal(t, 3, rep.Upserted)
	assert.Zero(t, rep.Failed)
	assert.NotEmpty(t, rep.Summary)
	assert.True(t, strings.HasPrefix(rep.DocumentID, "handbook-"))

	st, err := lib.Stats()
	require.NoError(t, err)
	assert.Equal(t, []string{"handbook.txt"}, st.RawFiles)
	assert.Equal(t, []string{"handbook_cleaned.txt"}, st.ProcessedFiles)

	hits, err := svc.Query(ctx, "when are refunds issued", 0)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Contains(t, hits[0].Chunk.Text, "Refunds")
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}

	ans, err := svc.Answer(ctx, "when are refunds issued")
	require.NoError(t, err)
	assert.Equal(t, "grounded answer", ans.Text)
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Refunds are issued")
}

func TestAnswer_NoMatchesGivesNoContextAnswer(t *testing.T) {
	gen := &echoGenerator{}
	svc, _ := newService(t, memory.NewStorage(), gen, 50)

	ans, err := svc.Answer(context.Background(), "What are the main points in the document?")
	require.NoError(t, err)
	assert.True(t, ans.NoContext)
	assert.Equal(t, llm.NoContextAnswer, ans.Text)
	assert.Empty(t, gen.prompts)
}

func TestIngestFile_TracksFailedBatches(t *testing.T) {
	store := &flakyStore{Storage: memory.NewStorage(), failAt: map[int]bool{1: true}}
	svc, _ := newService(t, store, &echoGenerator{}, 1)

	rep, err := svc.IngestFile(context.Background(), "handbook.txt", []byte(handbook))
	require.NoError(t, err)
	assert.Equal(t, 2, rep.Upserted)
	assert.Equal(t, 1, rep.Failed)
}

func TestIngestFile_AllBatchesFailing(t *testing.T) {
	store := &flakyStore{Storage: memory.NewStorage(), failAt: map[int]bool{0: true, 1: true, 2: true}}
	svc, _ := newService(t, store, &echoGenerator{}, 1)

	_, err := svc.IngestFile(context.Background(), "handbook.txt", []byte(handbook))
	assert.True(t, errors.Is(err, domain.ErrServiceUnavailable))
}

func TestIngestFile_RejectsUnsupportedAndEmpty(t *testing.T) {
	svc, _ := newService(t, memory.NewStorage(), &echoGenerator{}, 50)

	_, err := svc.IngestFile(context.Background(), "sheet.xlsx", []byte("x"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	_, err = svc.IngestFile(context.Background(), "blank.txt", []byte("  \n\n "))
	assert.ErrorIs(t, err, domain.ErrExtraction)
}

func TestClearAndStats(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, memory.NewStorage(), &echoGenerator{}, 50)
	_, err := svc.IngestFile(ctx, "handbook.txt", []byte(handbook))
	require.NoError(t, err)

	st, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.True(t, st.VectorsKnown)
	assert.Equal(t, 3, st.Vectors)
	assert.Equal(t, "tfidf", st.Embedder)

	require.NoError(t, svc.Clear(ctx))
	st, err = svc.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Vectors)
	assert.Empty(t, st.RawFiles)
}

func TestDocumentID(t *testing.T) {
	id := documentID("Quarterly Report (Final).pdf")
	assert.True(t, strings.HasPrefix(id, "quarterly-report-final-"))
	assert.Equal(t, id, documentID("Quarterly Report (Final).pdf"))
	assert.NotEqual(t, id, documentID("Quarterly Report (Final).docx"))
	assert.True(t, strings.HasPrefix(documentID("Ω.txt"), "doc-"))
}
