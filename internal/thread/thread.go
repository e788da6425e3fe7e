// Package thread manages chat threads and their message history.
package thread

import (
	"time"

	"github.com/google/uuid"
)

// DefaultTitle is assigned to a thread until its first user message
// replaces it.
const DefaultTitle = "New chat"

// Role identifies who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleUser, RoleAssistant, RoleTool, RoleSystem:
		return true
	}
	return false
}

// Thread is one conversation owned by a user.
type Thread struct {
	ID           uuid.UUID `json:"id"`
	UserID       string    `json:"userId"`
	Title        string    `json:"title"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Message is one entry in a thread's ordered history. Sequence numbers
// start at 1 and are dense within a thread; ordering by sequence number
// reconstructs the conversation exactly.
type Message struct {
	ID             uuid.UUID `json:"id"`
	ThreadID       uuid.UUID `json:"threadId"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	ToolName       *string   `json:"toolName,omitempty"`
	ToolCallID     *string   `json:"toolCallId,omitempty"`
	SequenceNumber int       `json:"sequenceNumber"`
	CreatedAt      time.Time `json:"createdAt"`
}

// TitleMaxLength caps thread titles derived from the first user message.
const TitleMaxLength = 60

// TitleFromMessage derives a thread title from the first user message,
// truncated to TitleMaxLength runes.
func TitleFromMessage(message string) string {
	runes := []rune(message)
	if len(runes) <= TitleMaxLength {
		return message
	}
	return string(runes[:TitleMaxLength])
}
