package models

import "encoding/json"

const (
	PromptStatusNotStarted = "not_started"
	PromptStatusStarted    = "started"
	PromptStatusCompleted  = "completed"
)

// PromptRecord is a row of the prompts collection written by the grader.
// Messages is kept raw: stored content is not trusted to have the
// ChatMessage shape.
type PromptRecord struct {
	ID              string          `json:"id"`
	Messages        json.RawMessage `json:"messages"`
	RequirementName string          `json:"requirement_name"`
	Reason          string          `json:"reason"`
	Grade           string          `json:"grade"`
	Status          string          `json:"status"`
}
