package main

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/wuwenbin0122/feedback-relay/internal/models"
	"github.com/wuwenbin0122/feedback-relay/internal/utils"
)

func TestSampleRecord(t *testing.T) {
	record, err := sampleRecord(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var messages []models.ChatMessage
	if err := json.Unmarshal(record.Messages, &messages); err != nil {
		t.Fatalf("decode messages: %v", err)
	}
	if len(messages) != 2 || messages[0].Role != models.RoleSystem || messages[1].Role != models.RoleUser {
		t.Fatalf("unexpected messages: %+v", messages)
	}
	if record.Status != models.PromptStatusNotStarted || record.ID == "" {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestSampleRecordWithoutMessages(t *testing.T) {
	record, err := sampleRecord([]string{"null"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Messages != nil {
		t.Fatalf("expected no messages, got %s", record.Messages)
	}
}

func TestRunRejectsSupabaseDriver(t *testing.T) {
	record, err := sampleRecord(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err = run(context.Background(), utils.StoreConfig{Driver: utils.StoreDriverSupabase}, record)
	if err == nil || !strings.Contains(err.Error(), "supabase") {
		t.Fatalf("expected unsupported driver error, got %v", err)
	}
}
