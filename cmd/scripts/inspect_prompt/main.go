package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/wuwenbin0122/feedback-relay/internal/db"
	"github.com/wuwenbin0122/feedback-relay/internal/relay"
	"github.com/wuwenbin0122/feedback-relay/internal/utils"
)

// Prints the completion request the relay would forward for a prompt id.
func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: inspect_prompt <prompt-id>")
		os.Exit(2)
	}

	_ = godotenv.Load()
	logger := utils.Logger()
	defer logger.Sync()

	cfg, err := utils.LoadStoreConfig()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	if err := run(context.Background(), cfg, os.Args[1], os.Stdout); err != nil {
		logger.Fatal("inspect prompt", zap.String("prompt_id", os.Args[1]), zap.Error(err))
	}
}

func run(ctx context.Context, cfg utils.StoreConfig, promptID string, out io.Writer) error {
	store, err := db.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	raw, err := store.PromptMessages(ctx, promptID)
	if err != nil {
		return err
	}

	return describe(raw, out)
}

func describe(raw json.RawMessage, out io.Writer) error {
	messages, usedFallback := relay.ResolveMessages(raw)
	if usedFallback {
		if _, err := relay.DecodeMessages(raw); err != nil {
			fmt.Fprintf(out, "fallback: %v\n", err)
		}
	}

	body, err := json.MarshalIndent(relay.NewCompletionRequest(messages), "", "  ")
	if err != nil {
		return fmt.Errorf("encode completion request: %w", err)
	}
	_, err = fmt.Fprintln(out, string(body))
	return err
}
