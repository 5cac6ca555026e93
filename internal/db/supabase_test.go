package db

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wuwenbin0122/feedback-relay/internal/utils"
)

func newTestSupabase(t *testing.T, handler http.HandlerFunc) *Supabase {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := NewSupabase(utils.SupabaseConfig{URL: server.URL + "/", AnonKey: "anon-key"})
	if err != nil {
		t.Fatalf("failed to create supabase store: %v", err)
	}
	return store
}

func TestSupabasePromptMessages(t *testing.T) {
	store := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if r.URL.Path != "/rest/v1/prompts" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("id"); got != "eq.abc" {
			t.Errorf("unexpected id filter %q", got)
		}
		if got := r.URL.Query().Get("select"); got != "messages" {
			t.Errorf("unexpected select %q", got)
		}
		if got := r.Header.Get("apikey"); got != "anon-key" {
			t.Errorf("unexpected apikey header %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer anon-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if got := r.Header.Get("Accept"); got != pgrstSingleObject {
			t.Errorf("unexpected accept header %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"messages":[{"role":"user","content":"why did I fail?"}]}`))
	})

	raw, err := store.PromptMessages(context.Background(), "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != `[{"role":"user","content":"why did I fail?"}]` {
		t.Fatalf("unexpected raw messages %s", raw)
	}
}

func TestSupabaseDoesNotCarryCookiesBetweenLookups(t *testing.T) {
	var cookies []string
	store := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		cookies = append(cookies, r.Header.Get("Cookie"))
		http.SetCookie(w, &http.Cookie{Name: "sb-session", Value: "first", Path: "/"})
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"messages":null}`))
	})

	for _, id := range []string{"first", "second"} {
		if _, err := store.PromptMessages(context.Background(), id); err != nil {
			t.Fatalf("lookup %s: unexpected error: %v", id, err)
		}
	}

	if len(cookies) != 2 || cookies[0] != "" || cookies[1] != "" {
		t.Fatalf("expected no cookies on lookups, got %q", cookies)
	}
}

func TestSupabasePromptMessagesNull(t *testing.T) {
	store := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"messages":null}`))
	})

	raw, err := store.PromptMessages(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(raw) != "null" {
		t.Fatalf("expected null messages, got %s", raw)
	}
}

func TestSupabasePromptNotFound(t *testing.T) {
	store := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotAcceptable)
		w.Write([]byte(`{"code":"PGRST116","details":"The result contains 0 rows","message":"JSON object requested, multiple (or no) rows returned"}`))
	})

	_, err := store.PromptMessages(context.Background(), "nope")
	if !errors.Is(err, ErrPromptNotFound) {
		t.Fatalf("expected ErrPromptNotFound, got %v", err)
	}
}

func TestSupabaseQueryFailure(t *testing.T) {
	store := newTestSupabase(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"42501","message":"permission denied for table prompts"}`))
	})

	_, err := store.PromptMessages(context.Background(), "abc")
	if err == nil {
		t.Fatalf("expected error")
	}
	if errors.Is(err, ErrPromptNotFound) {
		t.Fatalf("store failure must not be reported as not found")
	}
}

func TestNewSupabaseRequiresCredentials(t *testing.T) {
	if _, err := NewSupabase(utils.SupabaseConfig{AnonKey: "key"}); err == nil {
		t.Fatalf("expected error for missing url")
	}
	if _, err := NewSupabase(utils.SupabaseConfig{URL: "https://example.supabase.co"}); err == nil {
		t.Fatalf("expected error for missing anon key")
	}
}
