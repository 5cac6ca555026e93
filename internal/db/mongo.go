package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/wuwenbin0122/feedback-relay/internal/models"
	"github.com/wuwenbin0122/feedback-relay/internal/utils"
)

type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
	Prompts  *mongo.Collection
}

func NewMongo(ctx context.Context, cfg utils.MongoConfig) (*Mongo, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo: uri is required")
	}

	clientOpts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		clientOpts.SetServerSelectionTimeout(cfg.ConnectTimeout)
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeoutOrDefault(cfg.ConnectTimeout))
	defer cancel()

	client, err := mongo.Connect(dialCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}

	if err := client.Ping(dialCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	database := client.Database(cfg.Database)
	return &Mongo{
		Client:   client,
		Database: database,
		Prompts:  database.Collection("prompts"),
	}, nil
}

func (m *Mongo) Close(ctx context.Context) error {
	if m == nil || m.Client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return m.Client.Disconnect(ctx)
}

func (m *Mongo) EnsureCollections(ctx context.Context) error {
	if m == nil || m.Database == nil {
		return fmt.Errorf("mongo: database not initialised")
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := m.Prompts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "status", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("mongo: ensure prompt index: %w", err)
	}

	return nil
}

func (m *Mongo) PromptMessages(ctx context.Context, promptID string) (json.RawMessage, error) {
	if m == nil || m.Prompts == nil {
		return nil, fmt.Errorf("mongo: database not initialised")
	}

	opts := options.FindOne().SetProjection(bson.D{{Key: "_id", Value: 0}, {Key: "messages", Value: 1}})

	var doc bson.Raw
	if err := m.Prompts.FindOne(ctx, bson.M{"_id": promptID}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("mongo: prompt %s: %w", promptID, ErrPromptNotFound)
		}
		return nil, fmt.Errorf("mongo: query prompt: %w", err)
	}

	return messagesFromBSON(doc)
}

// messagesFromBSON renders the messages attribute as relaxed extended JSON,
// which for strings, arrays and documents is plain JSON.
func messagesFromBSON(doc bson.Raw) (json.RawMessage, error) {
	if _, err := doc.LookupErr("messages"); err != nil {
		return nil, nil
	}

	extJSON, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return nil, fmt.Errorf("mongo: render prompt messages: %w", err)
	}

	var wrapper struct {
		Messages json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(extJSON, &wrapper); err != nil {
		return nil, fmt.Errorf("mongo: render prompt messages: %w", err)
	}

	return wrapper.Messages, nil
}

// InsertPrompt stores a grader-produced record. The relay never calls it.
func (m *Mongo) InsertPrompt(ctx context.Context, record models.PromptRecord) error {
	if m == nil || m.Prompts == nil {
		return fmt.Errorf("mongo: database not initialised")
	}

	messages, err := messagesToBSON(record.Messages)
	if err != nil {
		return fmt.Errorf("mongo: insert prompt: %w", err)
	}

	_, err = m.Prompts.InsertOne(ctx, bson.M{
		"_id":              record.ID,
		"messages":         messages,
		"requirement_name": record.RequirementName,
		"reason":           record.Reason,
		"grade":            record.Grade,
		"status":           record.Status,
		"created_at":       time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("mongo: insert prompt: %w", err)
	}

	return nil
}

// messagesToBSON stores any JSON value as-is, matching the jsonb column.
func messagesToBSON(raw json.RawMessage) (any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}
	return decoded, nil
}
