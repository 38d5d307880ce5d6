package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"docassist/internal/booking"
	"docassist/internal/bookings"
	"docassist/internal/chunker"
	"docassist/internal/cleaner"
	"docassist/internal/config"
	"docassist/internal/domain"
	geminiemb "docassist/internal/embedding/gemini"
	ollamaemb "docassist/internal/embedding/ollama"
	"docassist/internal/embedding/openai"
	"docassist/internal/embedding/tfidf"
	"docassist/internal/llm"
	"docassist/internal/vectorstore/memory"
	"docassist/internal/vectorstore/pinecone"
	"docassist/internal/vectorstore/qdrant"
)

// closers releases clients in reverse order of creation.
type closers struct {
	names []string
	fns   []func() error
}

func (c *closers) add(name string, fn func() error) {
	c.names = append(c.names, name)
	c.fns = append(c.fns, fn)
}

func (c *closers) closeAll(log *zap.Logger) {
	for i := len(c.fns) - 1; i >= 0; i-- {
		if err := c.fns[i](); err != nil {
			log.Warn("close failed", zap.String("component", c.names[i]), zap.Error(err))
		}
	}
}

func buildGenerator(ctx context.Context, cfg *config.AppConfig, secrets config.Secrets, zl *zap.Logger, c *closers) domain.Generator {
	timeout := time.Duration(cfg.LLM.TimeoutSecs) * time.Second
	switch cfg.LLM.Type {
	case "gemini":
		g, err := llm.NewGemini(ctx, llm.GeminiConfig{
			APIKey:       secrets.LLMKey,
			Model:        cfg.LLM.Model,
			Temperature:  cfg.LLM.Temperature,
			Timeout:      timeout,
			MaxRetries:   cfg.LLM.MaxRetries,
			RequestsPerS: cfg.LLM.RequestsPerS,
		}, zl)
		if err != nil {
			log.Fatalf("gemini init failed: %v", err)
		}
		c.add("gemini", g.Close)
		return g
	case "ollama":
		client, err := llm.OllamaClient(cfg.LLM.OllamaHost)
		if err != nil {
			log.Fatalf("ollama client init failed: %v", err)
		}
		return llm.NewOllama(client, cfg.LLM.Model, cfg.LLM.Temperature, timeout, zl)
	default:
		log.Fatalf("unknown llm: %s", cfg.LLM.Type)
	}
	return nil
}

func buildEmbedder(ctx context.Context, cfg *config.AppConfig, secrets config.Secrets, zl *zap.Logger, c *closers) domain.Embedder {
	dim := cfg.VectorStore.Dimension
	switch cfg.Embedder.Type {
	case "gemini":
		e, err := geminiemb.New(ctx, secrets.LLMKey, cfg.Embedder.Model, dim, zl)
		if err != nil {
			log.Fatalf("gemini embedder init failed: %v", err)
		}
		c.add("gemini embedder", e.Close)
		return e
	case "openai":
		oc := cfg.Embedder.OpenAI
		client, err := openai.NewClient(openai.Config{
			BaseURL:    oc.BaseURL,
			APIKey:     secrets.OpenAIKey,
			Model:      oc.Model,
			Timeout:    time.Duration(oc.TimeoutSecs) * time.Second,
			BatchSize:  oc.BatchSize,
			Dimension:  dim,
			MaxRetries: cfg.LLM.MaxRetries,
		}, zl)
		if err != nil {
			log.Fatalf("openai embedder init failed: %v", err)
		}
		return client
	case "ollama":
		client, err := llm.OllamaClient(cfg.LLM.OllamaHost)
		if err != nil {
			log.Fatalf("ollama client init failed: %v", err)
		}
		return ollamaemb.NewEmbedder(client, cfg.Embedder.Model, dim, zl)
	case "tfidf":
		return tfidf.NewEmbedder(dim)
	default:
		log.Fatalf("unknown embedder: %s", cfg.Embedder.Type)
	}
	return nil
}

func buildVectorStore(cfg *config.AppConfig, secrets config.Secrets, zl *zap.Logger, c *closers) domain.VectorStore {
	switch cfg.VectorStore.Type {
	case "memory":
		return memory.NewStorage()
	case "pinecone":
		pc := cfg.VectorStore.Pinecone
		st, err := pinecone.NewStorage(pinecone.Config{
			APIKey:       secrets.PineconeKey,
			Index:        pc.Index,
			Namespace:    pc.Namespace,
			Cloud:        pc.Cloud,
			Region:       pc.Region,
			Metric:       pc.Metric,
			ReadyTimeout: time.Duration(pc.ReadyTimeout) * time.Second,
		}, zl)
		if err != nil {
			log.Fatalf("pinecone init failed: %v", err)
		}
		return st
	case "qdrant":
		qc := cfg.VectorStore.Qdrant
		st, err := qdrant.NewStorage(qdrant.Config{
			URL:        qc.URL,
			APIKey:     secrets.QdrantKey,
			Collection: qc.Collection,
		})
		if err != nil {
			log.Fatalf("qdrant init failed: %v", err)
		}
		c.add("qdrant", st.Close)
		return st
	default:
		log.Fatalf("unknown vector store: %s", cfg.VectorStore.Type)
	}
	return nil
}

func buildChunker(cfg *config.AppConfig) domain.Chunker {
	ch, err := chunker.New(cfg.Chunker)
	if err != nil {
		log.Fatalf("chunker init failed: %v", err)
	}
	return ch
}

func buildCleaner(cfg *config.AppConfig, gen domain.Generator, zl *zap.Logger) cleaner.Cleaner {
	if cfg.Cleaner.SkipLLM {
		return cleaner.NormalizeOnly{}
	}
	return cleaner.NewLLMCleaner(gen, cfg.Cleaner.MaxPieceSize, zl)
}

func buildClassifier(cfg *config.AppConfig, gen domain.Generator, zl *zap.Logger) booking.Classifier {
	switch cfg.Intent.Type {
	case "keyword":
		return booking.KeywordClassifier{}
	case "llm":
		return &booking.FallbackClassifier{
			Primary:   booking.NewLLMClassifier(gen),
			Secondary: booking.KeywordClassifier{},
			Log:       zl,
		}
	default:
		log.Fatalf("unknown intent classifier: %s", cfg.Intent.Type)
	}
	return nil
}

func buildRecorder(ctx context.Context, cfg *config.AppConfig, zl *zap.Logger, c *closers) bookings.Recorder {
	var recs bookings.Multi
	if dsn := cfg.Recorder.PostgresDSN; dsn != "" {
		pg, err := bookings.NewPGRecorder(ctx, dsn)
		if err != nil {
			log.Fatalf("booking database init failed: %v", err)
		}
		c.add("postgres", func() error { pg.Close(); return nil })
		recs = append(recs, pg)
	}
	if brokers := cfg.Recorder.KafkaBrokers; len(brokers) > 0 {
		k := bookings.NewKafkaRecorder(brokers, cfg.Recorder.KafkaTopic)
		c.add("kafka", k.Close)
		recs = append(recs, k)
	}
	if len(recs) == 0 {
		return bookings.Nop{}
	}
	zl.Info("booking recorders enabled", zap.Int("count", len(recs)))
	return recs
}
