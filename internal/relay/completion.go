package relay

import "github.com/wuwenbin0122/feedback-relay/internal/models"

const (
	CompletionModel       = "gpt-3.5-turbo"
	CompletionTemperature = 0.51
	CompletionTopP        = 0.96
)

// NewCompletionRequest pairs the fixed sampling configuration with the
// conversation to forward. An empty conversation is replaced by the
// fallback so the upstream never receives an empty message list.
func NewCompletionRequest(messages []models.ChatMessage) models.CompletionRequest {
	if len(messages) == 0 {
		messages = FallbackMessages()
	}

	return models.CompletionRequest{
		Model:            CompletionModel,
		Temperature:      CompletionTemperature,
		TopP:             CompletionTopP,
		N:                1,
		FrequencyPenalty: 0,
		PresencePenalty:  0,
		Stream:           true,
		Messages:         messages,
	}
}
