package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wuwenbin0122/feedback-relay/internal/db"
	"github.com/wuwenbin0122/feedback-relay/internal/metrics"
	"github.com/wuwenbin0122/feedback-relay/internal/relay"
	"github.com/wuwenbin0122/feedback-relay/internal/utils"
)

const relayChunkSize = 4 * 1024

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "authorization, x-client-info, apikey, content-type",
}

// Response headers that describe the upstream connection rather than the
// relayed payload.
var hopHeaders = map[string]struct{}{
	"Connection":          {},
	"Keep-Alive":          {},
	"Proxy-Authenticate":  {},
	"Proxy-Authorization": {},
	"Te":                  {},
	"Trailer":             {},
	"Transfer-Encoding":   {},
	"Upgrade":             {},
	"Content-Length":      {},
}

type feedbackRelay interface {
	Open(ctx context.Context, promptID string) (*http.Response, error)
}

type Handler struct {
	relay  feedbackRelay
	logger *zap.Logger
}

func NewHandler(feedback feedbackRelay, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{relay: feedback, logger: logger}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	for _, path := range []string{"/", "/feedback"} {
		router.OPTIONS(path, h.handlePreflight)
		router.POST(path, h.handleFeedback)
	}

	// Callers may post to any path.
	router.NoRoute(func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodOptions:
			h.handlePreflight(c)
		case http.MethodPost:
			h.handleFeedback(c)
		default:
			writeError(c, http.StatusNotFound, "not found", errors.New(c.Request.Method+" "+c.Request.URL.Path))
		}
	})
}

type feedbackRequest struct {
	PromptID string `json:"prompt_id" binding:"required"`
}

func (h *Handler) handlePreflight(c *gin.Context) {
	setCORSHeaders(c)
	c.String(http.StatusOK, "ok")
}

func (h *Handler) handleFeedback(c *gin.Context) {
	setCORSHeaders(c)

	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.RecordOutcome(metrics.OutcomeInvalidRequest)
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	ctx := c.Request.Context()
	resp, err := h.relay.Open(ctx, req.PromptID)
	if err != nil {
		switch {
		case errors.Is(err, relay.ErrInvalidRequest):
			metrics.RecordOutcome(metrics.OutcomeInvalidRequest)
			writeError(c, http.StatusBadRequest, "invalid payload", err)
		case errors.Is(err, db.ErrPromptNotFound):
			metrics.RecordOutcome(metrics.OutcomeNotFound)
			writeError(c, http.StatusNotFound, "prompt not found", err)
		case errors.Is(err, relay.ErrUpstream):
			metrics.RecordOutcome(metrics.OutcomeUpstreamError)
			h.logger.Error("upstream completion call failed", zap.String("request_id", utils.RequestID(c)), zap.Error(err))
			writeError(c, http.StatusBadGateway, "completion request failed", err)
		default:
			metrics.RecordOutcome(metrics.OutcomeStoreError)
			h.logger.Error("prompt lookup failed", zap.String("request_id", utils.RequestID(c)), zap.Error(err))
			writeError(c, http.StatusInternalServerError, "failed to load prompt", err)
		}
		return
	}
	defer resp.Body.Close()

	metrics.RecordOutcome(metrics.OutcomeRelayed)

	start := time.Now()
	written, err := relayResponse(c, resp)
	metrics.RelayedBytesTotal.Add(float64(written))
	if err != nil {
		// Headers are already sent; the stream simply ends early.
		h.logger.Warn("relay stream interrupted",
			zap.String("request_id", utils.RequestID(c)),
			zap.Int64("bytes", written),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
	}
}

// relayResponse copies the upstream status, headers and body to the caller,
// flushing after every chunk so tokens reach the caller as they arrive.
func relayResponse(c *gin.Context, resp *http.Response) (int64, error) {
	header := c.Writer.Header()
	for key, values := range resp.Header {
		if _, skip := hopHeaders[http.CanonicalHeaderKey(key)]; skip {
			continue
		}
		header.Del(key)
		for _, value := range values {
			header.Add(key, value)
		}
	}
	setCORSHeaders(c)

	c.Status(resp.StatusCode)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()

	buf := make([]byte, relayChunkSize)
	var written int64
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := c.Writer.Write(buf[:n]); err != nil {
				return written, err
			}
			c.Writer.Flush()
			written += int64(n)
		}
		if errors.Is(readErr, io.EOF) {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

func setCORSHeaders(c *gin.Context) {
	for key, value := range corsHeaders {
		c.Header(key, value)
	}
}

func writeError(c *gin.Context, status int, message string, err error) {
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}
