package models

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is a single entry of a conversation in the shape accepted by
// OpenAI-compatible chat completion APIs.
type ChatMessage struct {
	Role    string `json:"role" bson:"role"`
	Content string `json:"content" bson:"content"`
	Name    string `json:"name,omitempty" bson:"name,omitempty"`
}

// ValidRole reports whether role may appear in a forwarded conversation.
func ValidRole(role string) bool {
	switch role {
	case RoleSystem, RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}
