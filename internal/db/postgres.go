package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wuwenbin0122/feedback-relay/internal/models"
	"github.com/wuwenbin0122/feedback-relay/internal/utils"
)

type Postgres struct {
	Pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, cfg utils.PostgresConfig) (*Postgres, error) {
	dsn := cfg.BuildDSN()
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns >= 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckPeriod > 0 {
		poolConfig.HealthCheckPeriod = cfg.HealthCheckPeriod
	}

	ctx, cancel := context.WithTimeout(ctx, timeoutOrDefault(cfg.ConnectTimeout))
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	return &Postgres{Pool: pool}, nil
}

func (p *Postgres) Close(context.Context) error {
	if p == nil || p.Pool == nil {
		return nil
	}
	p.Pool.Close()
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	if p == nil || p.Pool == nil {
		return fmt.Errorf("postgres: pool not initialised")
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return p.Pool.Ping(ctx)
}

// EnsureSchema creates the prompts table used by the grader and the relay.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if p == nil || p.Pool == nil {
		return fmt.Errorf("postgres: pool not initialised")
	}

	stmt := strings.Join([]string{
		"CREATE TABLE IF NOT EXISTS prompts (",
		"    id TEXT PRIMARY KEY,",
		"    messages JSONB,",
		"    requirement_name TEXT NOT NULL DEFAULT '',",
		"    reason TEXT NOT NULL DEFAULT '',",
		"    grade TEXT NOT NULL DEFAULT '',",
		"    status TEXT NOT NULL DEFAULT 'not_started',",
		"    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()",
		")",
	}, "\n")

	if _, err := p.Pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("postgres: ensure schema: %w", err)
	}

	return nil
}

func (p *Postgres) PromptMessages(ctx context.Context, promptID string) (json.RawMessage, error) {
	if p == nil || p.Pool == nil {
		return nil, fmt.Errorf("postgres: pool not initialised")
	}

	// Scanned as text: shape checks belong to the relay, not to pgx.
	var messages *string
	const query = `SELECT messages::text FROM prompts WHERE id = $1`
	if err := p.Pool.QueryRow(ctx, query, promptID).Scan(&messages); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("postgres: prompt %s: %w", promptID, ErrPromptNotFound)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable {
			return nil, fmt.Errorf("postgres: prompts table missing, run EnsureSchema: %w", err)
		}
		return nil, fmt.Errorf("postgres: query prompt: %w", err)
	}

	if messages == nil {
		return nil, nil
	}
	return json.RawMessage(*messages), nil
}

// InsertPrompt stores a grader-produced record. The relay never calls it.
func (p *Postgres) InsertPrompt(ctx context.Context, record models.PromptRecord) error {
	if p == nil || p.Pool == nil {
		return fmt.Errorf("postgres: pool not initialised")
	}

	var messages any
	if len(record.Messages) > 0 {
		messages = string(record.Messages)
	}

	const stmt = `INSERT INTO prompts (id, messages, requirement_name, reason, grade, status) VALUES ($1, $2::jsonb, $3, $4, $5, $6)`
	if _, err := p.Pool.Exec(ctx, stmt, record.ID, messages, record.RequirementName, record.Reason, record.Grade, record.Status); err != nil {
		return fmt.Errorf("postgres: insert prompt: %w", err)
	}

	return nil
}

func timeoutOrDefault(value time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return 10 * time.Second
}
