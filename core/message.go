package core

// Role identifies the conversational author category of a ChatMessage.
type Role string

const (
	// RoleUser marks content originating from the caller (the task itself).
	RoleUser Role = "user"
	// RoleAssistant marks content produced by a participant or the manager.
	RoleAssistant Role = "assistant"
	// RoleSystem marks framework-authored context such as plans and status.
	RoleSystem Role = "system"
)

// ChatMessage is the unit of conversational content exchanged between the
// manager and participants. After creation it should be treated as immutable.
// Name identifies the producing participant and is empty for user and system
// messages.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

// NewUserMessage creates a user-authored message, typically the task.
func NewUserMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleUser, Content: content}
}

// NewAssistantMessage creates a message authored by the named participant.
func NewAssistantMessage(name, content string) ChatMessage {
	return ChatMessage{Role: RoleAssistant, Name: name, Content: content}
}

// NewSystemMessage creates a framework-authored message.
func NewSystemMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleSystem, Content: content}
}
