package httpapi

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"docassist/internal/chat"
	"docassist/internal/domain"
	"docassist/internal/service"
	"docassist/internal/session"
)

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message" binding:"required"`
}

type chatResponse struct {
	SessionID string     `json:"session_id"`
	Reply     chat.Reply `json:"reply"`
}

type uploadResult struct {
	File   string                `json:"file"`
	Report *service.IngestReport `json:"report,omitempty"`
	Error  string                `json:"error,omitempty"`
}

func (s *Server) postChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	ctx := c.Request.Context()
	st, err := session.Load(ctx, s.sessions, req.SessionID)
	if err != nil {
		s.log.Error("load session", zap.String("session", req.SessionID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load conversation"})
		return
	}

	reply, err := s.chat.Handle(ctx, st, req.Message)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if reply.Retryable {
		c.JSON(http.StatusServiceUnavailable, chatResponse{SessionID: st.ID, Reply: reply})
		return
	}

	if err := s.sessions.Update(ctx, st); err != nil {
		if errors.Is(err, session.ErrVersionConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "conversation changed concurrently, please resend"})
			return
		}
		s.log.Error("save session", zap.String("session", st.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not save conversation"})
		return
	}
	c.JSON(http.StatusOK, chatResponse{SessionID: st.ID, Reply: reply})
}

func (s *Server) clearChat(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	st, err := s.sessions.Get(ctx, id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if st == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
		return
	}
	st.ClearHistory()
	if err := s.sessions.Update(ctx, st); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared", "session_id": id})
}

func (s *Server) uploadDocuments(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expected multipart form with one or more \"file\" parts"})
		return
	}
	files := form.File["file"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files uploaded"})
		return
	}

	results := make([]uploadResult, 0, len(files))
	var firstErr error
	for _, fh := range files {
		res := uploadResult{File: fh.Filename}
		report, err := s.ingest(c, fh)
		if err != nil {
			s.log.Warn("upload failed", zap.String("file", fh.Filename), zap.Error(err))
			res.Error = err.Error()
			if firstErr == nil {
				firstErr = err
			}
		} else {
			res.Report = &report
		}
		results = append(results, res)
	}
	status := http.StatusOK
	if firstErr != nil && !anySucceeded(results) {
		status = statusFor(firstErr)
	}
	c.JSON(status, gin.H{"results": results})
}

func (s *Server) ingest(c *gin.Context, fh *multipart.FileHeader) (service.IngestReport, error) {
	limit := int64(s.opts.MaxUploadMB) << 20
	if fh.Size > limit {
		return service.IngestReport{}, fmt.Errorf("%w: %s is larger than %d MB", domain.ErrExtraction, fh.Filename, s.opts.MaxUploadMB)
	}
	f, err := fh.Open()
	if err != nil {
		return service.IngestReport{}, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return service.IngestReport{}, err
	}
	return s.docs.IngestFile(c.Request.Context(), fh.Filename, data)
}

func (s *Server) clearDocuments(c *gin.Context) {
	if c.Query("confirm") != "true" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "this deletes all embeddings and files; repeat with ?confirm=true"})
		return
	}
	if err := s.docs.Clear(c.Request.Context()); err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

func (s *Server) status(c *gin.Context) {
	st, err := s.docs.Stats(c.Request.Context())
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, st)
}

func anySucceeded(results []uploadResult) bool {
	for _, r := range results {
		if r.Report != nil {
			return true
		}
	}
	return false
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, domain.ErrExtraction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrServiceUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
