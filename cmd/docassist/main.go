package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"docassist/internal/booking"
	"docassist/internal/chat"
	"docassist/internal/config"
	"docassist/internal/httpapi"
	"docassist/internal/ingest"
	"docassist/internal/llm"
	"docassist/internal/logger"
	"docassist/internal/service"
	"docassist/internal/session"
	"docassist/internal/summarizer"
	"docassist/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, mode string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ./config.yaml or ~/.config/docassist/config.yaml if not provided)")
	flag.StringVar(&mode, "mode", "tui", "Interface to run: tui or http")
	flag.Parse()
	if mode != "tui" && mode != "http" {
		log.Fatalf("unknown mode %q (want tui or http)", mode)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	secrets, err := config.LoadSecrets(cfg, os.Getenv)
	if err != nil {
		log.Fatalf("%v", err)
	}

	zl, err := logger.New(cfg.Log, mode == "tui")
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &closers{}
	defer c.closeAll(zl)

	gen := buildGenerator(ctx, cfg, secrets, zl, c)
	emb := buildEmbedder(ctx, cfg, secrets, zl, c)
	store := buildVectorStore(cfg, secrets, zl, c)
	ch := buildChunker(cfg)
	cl := buildCleaner(cfg, gen, zl)

	library := ingest.NewLibrary(cfg.Library.RawDir, cfg.Library.ProcessedDir)
	svc := service.NewRAGService(library, cl, ch, emb, store, summarizer.NewFrequencySummarizer(),
		llm.NewAnswerer(gen, zl), service.Options{
			TopK:                cfg.Retrieval.TopK,
			BatchSize:           cfg.VectorStore.BatchSize,
			SummaryMaxSentences: cfg.Summarizer.MaxSentences,
		}, zl)
	if err := svc.Init(ctx); err != nil {
		log.Fatalf("failed to initialize vector store: %v", err)
	}

	policy, err := booking.NewPolicy(cfg.Booking)
	if err != nil {
		log.Fatalf("invalid booking config: %v", err)
	}
	classifier := buildClassifier(cfg, gen, zl)
	recorder := buildRecorder(ctx, cfg, zl, c)
	orch := chat.NewOrchestrator(policy, classifier, svc, recorder, chat.Options{
		HistoryMessages: cfg.Chat.HistoryMessages,
		HistoryTokens:   cfg.Chat.HistoryTokens,
	}, zl)

	zl.Info("docassist started",
		zap.String("mode", mode),
		zap.String("llm", cfg.LLM.Type),
		zap.String("embedder", emb.Name()),
		zap.String("vector_store", cfg.VectorStore.Type),
		zap.String("intent", cfg.Intent.Type),
	)

	switch mode {
	case "http":
		sessions, err := session.NewStore(cfg.Sessions)
		if err != nil {
			log.Fatalf("failed to init session store: %v", err)
		}
		c.add("sessions", sessions.Close)
		srv := httpapi.NewServer(orch, svc, sessions, httpapi.Options{
			RatePerMinute: cfg.HTTP.RatePerMinute,
			MaxUploadMB:   cfg.HTTP.MaxUploadMB,
		}, zl)
		if err := srv.Run(ctx, cfg.HTTP.Address); err != nil {
			zl.Error("http server failed", zap.Error(err))
		}
	default:
		m := tui.New(ctx, orch, svc, chat.NewState("tui"))
		if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
			zl.Error("tui exited", zap.Error(err))
		}
	}
}
