package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/wuwenbin0122/feedback-relay/internal/models"
)

const fallbackNotice = "- You are an AI teaching assistant at UNC, Charlotte.\n" +
	"- The course uses a computer program is used to generate a prompt, then the prompt is shared with you.\n" +
	"- This prompt is helpful explanation of errors or assignment grading feedback.\n" +
	"- The explanation/feedback is what the user - a Student - is here for.\n" +
	"- However, something has gone wrong with the program that was to generate this prompt and now you cannot help the student. Please explain this to the student.\n" +
	"- **Note: The student cannot respond, so do not expect him to**.\n" +
	"> Respond in markdown syntax only."

var (
	ErrNoMessages        = errors.New("messages absent or empty")
	ErrMalformedMessages = errors.New("messages malformed")
)

// FallbackMessages returns the notice forwarded when a stored conversation
// is unusable. A fresh slice is returned on every call.
func FallbackMessages() []models.ChatMessage {
	return []models.ChatMessage{{Role: models.RoleSystem, Content: fallbackNotice}}
}

// wireMessage uses pointers so absent and JSON null fields can be told
// apart from empty strings.
type wireMessage struct {
	Role    *string `json:"role"`
	Content *string `json:"content"`
	Name    *string `json:"name"`
}

// DecodeMessages validates a stored messages value. It fails unless raw is
// a non-empty JSON array whose every element is an object with a known
// role and string content.
func DecodeMessages(raw json.RawMessage) ([]models.ChatMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrNoMessages
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(trimmed, &elements); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessages, err)
	}
	if len(elements) == 0 {
		return nil, ErrNoMessages
	}

	messages := make([]models.ChatMessage, 0, len(elements))
	for i, element := range elements {
		element = bytes.TrimSpace(element)
		if len(element) == 0 || element[0] != '{' {
			return nil, fmt.Errorf("%w: element %d is not an object", ErrMalformedMessages, i)
		}

		var wire wireMessage
		if err := json.Unmarshal(element, &wire); err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrMalformedMessages, i, err)
		}
		if wire.Role == nil || !models.ValidRole(*wire.Role) {
			return nil, fmt.Errorf("%w: element %d has no valid role", ErrMalformedMessages, i)
		}
		if wire.Content == nil {
			return nil, fmt.Errorf("%w: element %d has no content", ErrMalformedMessages, i)
		}

		msg := models.ChatMessage{Role: *wire.Role, Content: *wire.Content}
		if wire.Name != nil {
			msg.Name = *wire.Name
		}
		messages = append(messages, msg)
	}

	return messages, nil
}

// ResolveMessages never fails: any decode error yields FallbackMessages.
// The second result reports whether the fallback was used.
func ResolveMessages(raw json.RawMessage) ([]models.ChatMessage, bool) {
	messages, err := DecodeMessages(raw)
	if err != nil {
		return FallbackMessages(), true
	}
	return messages, false
}
