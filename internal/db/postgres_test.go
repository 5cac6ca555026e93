package db

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/wuwenbin0122/feedback-relay/internal/models"
	"github.com/wuwenbin0122/feedback-relay/internal/utils"
)

func TestPostgresPromptMessagesIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	cfg := utils.PostgresConfig{
		DSN:            dsn,
		ConnectTimeout: 5 * time.Second,
	}

	ctx := context.Background()
	store, err := NewPostgres(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to connect to postgres: %v", err)
	}
	defer store.Close(ctx)

	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema failed: %v", err)
	}

	withMessages := uuid.NewString()
	err = store.InsertPrompt(ctx, models.PromptRecord{
		ID:              withMessages,
		Messages:        json.RawMessage(`[{"role":"user","content":"why did I fail?"}]`),
		RequirementName: "Testing",
		Status:          models.PromptStatusNotStarted,
	})
	if err != nil {
		t.Fatalf("failed to insert prompt: %v", err)
	}
	defer store.Pool.Exec(ctx, "DELETE FROM prompts WHERE id = $1", withMessages)

	withoutMessages := uuid.NewString()
	if err := store.InsertPrompt(ctx, models.PromptRecord{ID: withoutMessages, Status: models.PromptStatusNotStarted}); err != nil {
		t.Fatalf("failed to insert prompt: %v", err)
	}
	defer store.Pool.Exec(ctx, "DELETE FROM prompts WHERE id = $1", withoutMessages)

	raw, err := store.PromptMessages(ctx, withMessages)
	if err != nil {
		t.Fatalf("failed to fetch prompt: %v", err)
	}
	var messages []models.ChatMessage
	if err := json.Unmarshal(raw, &messages); err != nil {
		t.Fatalf("decode messages: %v", err)
	}
	if len(messages) != 1 || messages[0].Role != "user" {
		t.Fatalf("unexpected messages: %+v", messages)
	}

	raw, err = store.PromptMessages(ctx, withoutMessages)
	if err != nil {
		t.Fatalf("failed to fetch prompt: %v", err)
	}
	if raw != nil {
		t.Fatalf("expected nil messages for NULL column, got %s", raw)
	}

	if _, err := store.PromptMessages(ctx, uuid.NewString()); !errors.Is(err, ErrPromptNotFound) {
		t.Fatalf("expected ErrPromptNotFound, got %v", err)
	}
}
