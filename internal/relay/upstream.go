package relay

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/wuwenbin0122/feedback-relay/internal/models"
	"github.com/wuwenbin0122/feedback-relay/internal/utils"
)

const completionsPath = "/chat/completions"

var ErrUpstream = errors.New("upstream completion call failed")

// Forwarder posts a completion request and hands back the raw response
// with its body unread.
type Forwarder interface {
	Forward(ctx context.Context, req models.CompletionRequest) (*http.Response, error)
}

// UpstreamClient talks to an OpenAI-compatible chat completion API.
type UpstreamClient struct {
	client *resty.Client
	apiKey string
}

func NewUpstreamClient(cfg utils.UpstreamConfig) (*UpstreamClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("upstream: base url is required")
	}

	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("upstream: api key is required")
	}

	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 10 * time.Second
	}

	// No overall client timeout: a streamed completion lasts as long as the
	// model keeps producing tokens. Only connection setup is bounded.
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: 2 * time.Minute,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
	}

	client := resty.New().
		SetTransport(transport).
		SetCookieJar(nil).
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json")

	return &UpstreamClient{client: client, apiKey: apiKey}, nil
}

func (u *UpstreamClient) Forward(ctx context.Context, req models.CompletionRequest) (*http.Response, error) {
	resp, err := u.client.R().
		SetContext(ctx).
		SetAuthToken(u.apiKey).
		// identity keeps the relayed bytes exactly what the caller can read
		SetHeader("Accept-Encoding", "identity").
		SetBody(req).
		SetDoNotParseResponse(true).
		Post(completionsPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	raw := resp.RawResponse
	if raw == nil || raw.Body == nil {
		return nil, fmt.Errorf("%w: empty response", ErrUpstream)
	}

	return raw, nil
}
