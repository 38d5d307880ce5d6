package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"docassist/internal/cleaner"
	"docassist/internal/domain"
	"docassist/internal/ingest"
	"docassist/internal/llm"
	"docassist/internal/textutil"
)

// Counter is implemented by stores that can report how many vectors they hold.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

// IngestReport describes the outcome of one uploaded file.
type IngestReport struct {
	DocumentID    string `json:"document_id"`
	Source        string `json:"source"`
	RawPath       string `json:"raw_path"`
	ProcessedPath string `json:"processed_path"`
	Characters    int    `json:"characters"`
	Chunks        int    `json:"chunks"`
	Upserted      int    `json:"upserted"`
	Failed        int    `json:"failed"`
	Summary       string `json:"summary"`
}

// Status is a snapshot of what has been indexed.
type Status struct {
	ingest.Stats
	Vectors      int    `json:"vectors"`
	VectorsKnown bool   `json:"vectors_known"`
	Embedder     string `json:"embedder"`
}

type Options struct {
	TopK                int
	BatchSize           int
	SummaryMaxSentences int
}

// RAGService runs the document pipeline: extract, clean, chunk, embed,
// upsert, and answers questions against the indexed chunks.
type RAGService struct {
	library    *ingest.Library
	cleaner    cleaner.Cleaner
	chunker    domain.Chunker
	embedder   domain.Embedder
	store      domain.VectorStore
	summarizer domain.Summarizer
	answerer   *llm.Answerer
	opts       Options
	log        *zap.Logger

	// mu serializes ingest and clear. indexed holds every chunk so that
	// corpus-dependent embedders can re-embed after Prepare.
	mu      sync.Mutex
	indexed []domain.Chunk
}

func NewRAGService(library *ingest.Library, cl cleaner.Cleaner, chunker domain.Chunker, embedder domain.Embedder,
	store domain.VectorStore, summarizer domain.Summarizer, answerer *llm.Answerer, opts Options, log *zap.Logger) *RAGService {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.SummaryMaxSentences <= 0 {
		opts.SummaryMaxSentences = 3
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &RAGService{
		library:    library,
		cleaner:    cl,
		chunker:    chunker,
		embedder:   embedder,
		store:      store,
		summarizer: summarizer,
		answerer:   answerer,
		opts:       opts,
		log:        log,
	}
}

// Init prepares the vector store for the embedder's dimension.
func (s *RAGService) Init(ctx context.Context) error {
	if err := s.store.Init(ctx, s.embedder.Dimension()); err != nil {
		return fmt.Errorf("init vector store: %w", err)
	}
	return nil
}

// IngestFile runs one uploaded file through the pipeline. A batch that fails
// to embed or upsert is counted in Failed; the call only errors when nothing
// could be indexed.
func (s *RAGService) IngestFile(ctx context.Context, name string, data []byte) (IngestReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report := IngestReport{Source: filepath.Base(name)}
	text, err := ingest.Extract(data, name)
	if err != nil {
		return report, err
	}
	if report.RawPath, err = s.library.SaveRaw(name, data); err != nil {
		return report, fmt.Errorf("save upload: %w", err)
	}
	s.log.Info("file saved", zap.String("path", report.RawPath), zap.Int("bytes", len(data)))

	cleaned, err := s.cleaner.Clean(ctx, text)
	if err != nil {
		return report, fmt.Errorf("clean text: %w", err)
	}
	report.Characters = len(cleaned)
	if report.ProcessedPath, err = s.library.SaveProcessed(name, cleaned); err != nil {
		return report, fmt.Errorf("save cleaned text: %w", err)
	}
	s.log.Info("text cleaned", zap.Int("raw_chars", len(text)), zap.Int("clean_chars", len(cleaned)))

	doc := domain.Document{ID: documentID(report.Source), Source: report.Source, Content: cleaned}
	report.DocumentID = doc.ID
	chunks, err := s.chunker.Chunk(doc)
	if err != nil {
		return report, fmt.Errorf("chunk document: %w", err)
	}
	if len(chunks) == 0 {
		return report, fmt.Errorf("%w: %s contains no text", domain.ErrExtraction, report.Source)
	}
	report.Chunks = len(chunks)
	s.log.Info("document chunked", zap.String("document", doc.ID), zap.Int("chunks", len(chunks)))

	pending := chunks
	if p, ok := s.embedder.(domain.Preparer); ok {
		all := append(withoutDocument(s.indexed, doc.ID), chunks...)
		corpus := make([]string, len(all))
		for i, ch := range all {
			corpus[i] = ch.Text
		}
		if err := p.Prepare(corpus); err != nil {
			return report, fmt.Errorf("prepare embedder: %w", err)
		}
		pending = all
	}

	upserted, failed, firstErr := s.upsertBatches(ctx, pending)
	report.Failed = failed
	report.Upserted = upserted
	if upserted == 0 && firstErr != nil {
		return report, firstErr
	}
	s.indexed = append(withoutDocument(s.indexed, doc.ID), chunks...)
	s.log.Info("chunks upserted", zap.String("document", doc.ID), zap.Int("upserted", upserted), zap.Int("failed", failed))

	if summary, err := s.summarizer.Summarize(cleaned, s.opts.SummaryMaxSentences); err != nil {
		s.log.Warn("summary failed", zap.Error(err))
	} else {
		report.Summary = summary
	}
	return report, nil
}

func (s *RAGService) upsertBatches(ctx context.Context, chunks []domain.Chunk) (upserted, failed int, firstErr error) {
	for start := 0; start < len(chunks); start += s.opts.BatchSize {
		end := start + s.opts.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		err := s.upsertBatch(ctx, batch)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return upserted, failed + len(chunks) - start, err
			}
			s.log.Warn("batch failed", zap.Int("from", start), zap.Int("to", end-1), zap.Error(err))
			failed += len(batch)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		upserted += len(batch)
	}
	return upserted, failed, firstErr
}

func (s *RAGService) upsertBatch(ctx context.Context, batch []domain.Chunk) error {
	texts := make([]string, len(batch))
	for i, ch := range batch {
		texts[i] = ch.Text
	}
	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}
	if err := s.store.Upsert(ctx, batch, vectors); err != nil {
		return fmt.Errorf("upsert: %w", err)
	}
	return nil
}

// Query returns the topK chunks most similar to question, best first.
func (s *RAGService) Query(ctx context.Context, question string, topK int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = s.opts.TopK
	}
	vec, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	results, err := s.store.Search(ctx, vec, topK)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	// A non-positive cosine score shares nothing with the question.
	for len(results) > 0 && results[len(results)-1].Score <= 0 {
		results = results[:len(results)-1]
	}
	for _, r := range results {
		s.log.Debug("hit", zap.Float64("score", r.Score), zap.String("source", r.Chunk.Source),
			zap.String("preview", textutil.Preview(r.Chunk.Text, 80)))
	}
	return results, nil
}

// Answer retrieves context for question and asks the answerer.
func (s *RAGService) Answer(ctx context.Context, question string) (llm.Answer, error) {
	results, err := s.Query(ctx, question, s.opts.TopK)
	if err != nil {
		return llm.Answer{}, err
	}
	return s.answerer.Answer(ctx, question, results)
}

// Clear deletes every vector and every stored file.
func (s *RAGService) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear vector store: %w", err)
	}
	if err := s.library.Clear(); err != nil {
		return fmt.Errorf("clear library: %w", err)
	}
	s.indexed = nil
	s.log.Info("all data cleared")
	return nil
}

func (s *RAGService) Stats(ctx context.Context) (Status, error) {
	st, err := s.library.Stats()
	if err != nil {
		return Status{}, err
	}
	out := Status{Stats: st, Embedder: s.embedder.Name()}
	if c, ok := s.store.(Counter); ok {
		n, err := c.Count(ctx)
		if err != nil {
			s.log.Warn("vector count unavailable", zap.Error(err))
		} else {
			out.Vectors, out.VectorsKnown = n, true
		}
	}
	return out, nil
}

func withoutDocument(chunks []domain.Chunk, docID string) []domain.Chunk {
	out := make([]domain.Chunk, 0, len(chunks))
	for _, ch := range chunks {
		if ch.DocumentID != docID {
			out = append(out, ch)
		}
	}
	return out
}

var unsafeIDRe = regexp.MustCompile(`[^a-z0-9]+`)

// documentID is a readable, ASCII-only ID stable for a given file name.
func documentID(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	stem = strings.Trim(unsafeIDRe.ReplaceAllString(strings.ToLower(stem), "-"), "-")
	if len(stem) > 40 {
		stem = stem[:40]
	}
	if stem == "" {
		stem = "doc"
	}
	return stem + "-" + hashString(name)
}

func hashString(s string) string {
	h := sha1.Sum([]byte(s))
	return hex.EncodeToString(h[:4])
}
