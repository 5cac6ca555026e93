package models

// CompletionRequest is the body posted to the upstream chat completion
// endpoint. Every field is always serialized, zero penalties included.
type CompletionRequest struct {
	Model            string        `json:"model"`
	Temperature      float64       `json:"temperature"`
	TopP             float64       `json:"top_p"`
	N                int           `json:"n"`
	FrequencyPenalty float64       `json:"frequency_penalty"`
	PresencePenalty  float64       `json:"presence_penalty"`
	Stream           bool          `json:"stream"`
	Messages         []ChatMessage `json:"messages"`
}
