package models

import "strings"

// Role identifies who authored a transcript entry
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message represents a chat message for TUI display.
// Messages are values: once appended to a transcript they are never changed.
type Message struct {
	Role    Role
	Content string
}

// NewUserMessage creates a user message from raw input, trimming surrounding whitespace
func NewUserMessage(raw string) Message {
	return Message{Role: RoleUser, Content: strings.TrimSpace(raw)}
}

// NewAssistantMessage creates an assistant message
func NewAssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// IsUser reports whether the message was authored by the user
func (m Message) IsUser() bool {
	return m.Role == RoleUser
}

// IsAssistant reports whether the message was authored by the assistant
func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}
