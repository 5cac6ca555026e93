package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wuwenbin0122/feedback-relay/internal/db"
	"github.com/wuwenbin0122/feedback-relay/internal/metrics"
	"github.com/wuwenbin0122/feedback-relay/internal/models"
)

var ErrInvalidRequest = errors.New("invalid feedback request")

// Relay turns a prompt id into an upstream completion stream. It keeps no
// per-request state and is safe for concurrent use.
type Relay struct {
	store     db.PromptStore
	forwarder Forwarder
	driver    string
	logger    *zap.Logger
}

func New(store db.PromptStore, forwarder Forwarder, driver string, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{store: store, forwarder: forwarder, driver: driver, logger: logger}
}

// Prepare resolves the stored conversation for promptID and builds the
// completion request. Store errors are returned unchanged; unusable stored
// content is replaced by the fallback notice.
func (r *Relay) Prepare(ctx context.Context, promptID string) (models.CompletionRequest, error) {
	promptID = strings.TrimSpace(promptID)
	if promptID == "" {
		return models.CompletionRequest{}, fmt.Errorf("%w: prompt_id is required", ErrInvalidRequest)
	}

	start := time.Now()
	raw, err := r.store.PromptMessages(ctx, promptID)
	metrics.StoreLookupDuration.WithLabelValues(r.driver).Observe(time.Since(start).Seconds())
	if err != nil {
		return models.CompletionRequest{}, fmt.Errorf("resolve prompt %s: %w", promptID, err)
	}

	messages, err := DecodeMessages(raw)
	if err != nil {
		reason := "malformed"
		if errors.Is(err, ErrNoMessages) {
			reason = "empty"
		}
		metrics.FallbackMessagesTotal.WithLabelValues(reason).Inc()
		r.logger.Warn("stored messages unusable, forwarding fallback notice",
			zap.String("prompt_id", promptID),
			zap.Error(err),
		)
		messages = FallbackMessages()
	}

	return NewCompletionRequest(messages), nil
}

// Open prepares the completion request and forwards it. The caller owns the
// returned response body.
func (r *Relay) Open(ctx context.Context, promptID string) (*http.Response, error) {
	req, err := r.Prepare(ctx, promptID)
	if err != nil {
		return nil, err
	}

	resp, err := r.forwarder.Forward(ctx, req)
	if err != nil {
		return nil, err
	}

	metrics.RecordUpstreamStatus(resp.StatusCode)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Warn("upstream returned non-success status, relaying as-is",
			zap.String("prompt_id", promptID),
			zap.Int("status", resp.StatusCode),
		)
	}

	return resp, nil
}
