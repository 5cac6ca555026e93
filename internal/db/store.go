package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wuwenbin0122/feedback-relay/internal/utils"
)

var ErrPromptNotFound = errors.New("prompt not found")

// PromptStore is the read side of the prompts collection. PromptMessages
// returns the raw messages value of a single record; a JSON null or an
// absent attribute is returned as nil with no error.
type PromptStore interface {
	PromptMessages(ctx context.Context, promptID string) (json.RawMessage, error)
	Close(ctx context.Context) error
}

// Open connects the backend selected by cfg.Driver.
func Open(ctx context.Context, cfg utils.StoreConfig) (PromptStore, error) {
	switch cfg.Driver {
	case utils.StoreDriverSupabase:
		return NewSupabase(cfg.Supabase)
	case utils.StoreDriverPostgres:
		pg, err := NewPostgres(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		if err := pg.Ping(ctx); err != nil {
			pg.Close(ctx)
			return nil, fmt.Errorf("postgres: ping: %w", err)
		}
		return pg, nil
	case utils.StoreDriverMongo:
		return NewMongo(ctx, cfg.Mongo)
	default:
		return nil, fmt.Errorf("store: unsupported driver %q", cfg.Driver)
	}
}
