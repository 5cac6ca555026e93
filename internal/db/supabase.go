package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/wuwenbin0122/feedback-relay/internal/utils"
)

const (
	supabasePromptsPath = "/rest/v1/prompts"
	// PostgREST answers 406 for this media type unless exactly one row matches.
	pgrstSingleObject = "application/vnd.pgrst.object+json"
)

// Supabase reads prompts through the project's PostgREST endpoint.
type Supabase struct {
	client *resty.Client
}

type supabaseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

func NewSupabase(cfg utils.SupabaseConfig) (*Supabase, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("supabase: url is required")
	}
	if strings.TrimSpace(cfg.AnonKey) == "" {
		return nil, fmt.Errorf("supabase: anon key is required")
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetCookieJar(nil).
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("apikey", cfg.AnonKey).
		SetAuthToken(cfg.AnonKey).
		SetHeader("X-Client-Info", "feedback-relay")

	return &Supabase{client: client}, nil
}

func (s *Supabase) PromptMessages(ctx context.Context, promptID string) (json.RawMessage, error) {
	var row struct {
		Messages json.RawMessage `json:"messages"`
	}
	var apiErr supabaseError

	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Accept", pgrstSingleObject).
		SetQueryParam("id", "eq."+promptID).
		SetQueryParam("select", "messages").
		SetResult(&row).
		SetError(&apiErr).
		Get(supabasePromptsPath)
	if err != nil {
		return nil, fmt.Errorf("supabase: query prompt: %w", err)
	}

	if resp.IsError() {
		// PGRST116: the single-object request matched zero (or many) rows.
		if resp.StatusCode() == http.StatusNotAcceptable && apiErr.Code == "PGRST116" {
			return nil, fmt.Errorf("supabase: prompt %s: %w", promptID, ErrPromptNotFound)
		}
		return nil, fmt.Errorf("supabase: query prompt (%d): %w", resp.StatusCode(), apiErr.asError(resp.String()))
	}

	return row.Messages, nil
}

func (s *Supabase) Close(context.Context) error {
	return nil
}

func (e supabaseError) asError(raw string) error {
	message := strings.TrimSpace(e.Message)
	if message == "" {
		message = strings.TrimSpace(raw)
	}
	if len(message) > 256 {
		message = message[:256]
	}
	if e.Code != "" {
		return fmt.Errorf("%s: %s", e.Code, message)
	}
	if message == "" {
		return errors.New("empty error response")
	}
	return errors.New(message)
}
