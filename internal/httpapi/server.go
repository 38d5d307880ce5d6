package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"docassist/internal/chat"
	"docassist/internal/service"
	"docassist/internal/session"
)

// ChatHandler runs one conversation turn.
type ChatHandler interface {
	Handle(ctx context.Context, st *chat.State, msg string) (chat.Reply, error)
}

// Documents is the document pipeline as seen by the API.
type Documents interface {
	IngestFile(ctx context.Context, name string, data []byte) (service.IngestReport, error)
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (service.Status, error)
}

type Options struct {
	RatePerMinute int
	MaxUploadMB   int
}

// Server is the JSON chat API.
type Server struct {
	chat     ChatHandler
	docs     Documents
	sessions session.Store
	opts     Options
	log      *zap.Logger
}

func NewServer(chat ChatHandler, docs Documents, sessions session.Store, opts Options, log *zap.Logger) *Server {
	if opts.MaxUploadMB <= 0 {
		opts.MaxUploadMB = 20
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{chat: chat, docs: docs, sessions: sessions, opts: opts, log: log}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(s.log))
	router.MaxMultipartMemory = int64(s.opts.MaxUploadMB) << 20

	router.GET("/healthz", s.health)

	api := router.Group("/api")
	if s.opts.RatePerMinute > 0 {
		api.Use(rateLimit(s.opts.RatePerMinute, s.log))
	}
	api.POST("/chat", s.postChat)
	api.DELETE("/chat/:id", s.clearChat)
	api.POST("/documents", s.uploadDocuments)
	api.DELETE("/documents", s.clearDocuments)
	api.GET("/status", s.status)
	return router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("http server listening", zap.String("addr", addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		s.log.Info("http server stopped")
		return nil
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
