package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/wuwenbin0122/feedback-relay/internal/db"
	"github.com/wuwenbin0122/feedback-relay/internal/models"
	"github.com/wuwenbin0122/feedback-relay/internal/utils"
)

// Inserts one graded prompt into the configured postgres or mongo store and
// prints its id. Pass "null" as the only argument to seed a record without
// messages, which the relay answers with the fallback notice.
func main() {
	_ = godotenv.Load()
	logger := utils.Logger()
	defer logger.Sync()

	cfg, err := utils.LoadStoreConfig()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	record, err := sampleRecord(os.Args[1:])
	if err != nil {
		logger.Fatal("build sample prompt", zap.Error(err))
	}

	if err := run(context.Background(), cfg, record); err != nil {
		logger.Fatal("seed prompt", zap.String("driver", cfg.Driver), zap.Error(err))
	}

	fmt.Println(record.ID)
}

func sampleRecord(args []string) (models.PromptRecord, error) {
	record := models.PromptRecord{
		ID:              uuid.NewString(),
		RequirementName: "ArrayListTest",
		Reason:          "2 tests failed",
		Grade:           "6.00/10.00",
		Status:          models.PromptStatusNotStarted,
	}

	if len(args) > 0 && args[0] == "null" {
		return record, nil
	}

	messages := []models.ChatMessage{
		{
			Role:    models.RoleSystem,
			Content: "You are an AI teaching assistant. Explain the autograder output below to the student without giving away the solution. Respond in markdown only.",
			Name:    "Instructor",
		},
		{
			Role:    models.RoleUser,
			Content: "Here is the output from running the autograder on my submission:\n```\nArrayListTest > testRemove FAILED\n    expected: <3> but was: <4>\n```",
			Name:    "Student",
		},
	}
	raw, err := json.Marshal(messages)
	if err != nil {
		return record, fmt.Errorf("encode messages: %w", err)
	}
	record.Messages = raw

	return record, nil
}

// run owns the store connection so it is closed on every path.
func run(ctx context.Context, cfg utils.StoreConfig, record models.PromptRecord) error {
	switch cfg.Driver {
	case utils.StoreDriverPostgres:
		store, err := db.NewPostgres(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close(ctx)

		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		if err := store.InsertPrompt(ctx, record); err != nil {
			return fmt.Errorf("insert prompt: %w", err)
		}
	case utils.StoreDriverMongo:
		store, err := db.NewMongo(ctx, cfg.Mongo)
		if err != nil {
			return fmt.Errorf("connect mongo: %w", err)
		}
		defer store.Close(ctx)

		if err := store.EnsureCollections(ctx); err != nil {
			return fmt.Errorf("ensure collections: %w", err)
		}
		if err := store.InsertPrompt(ctx, record); err != nil {
			return fmt.Errorf("insert prompt: %w", err)
		}
	default:
		return fmt.Errorf("seeding is only supported for the postgres and mongo drivers, got %q", cfg.Driver)
	}

	return nil
}
