package ports

import "time"

// Role identifies who produced a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// ParseRole maps a stored string to a role. Unknown values fall back to
// user; stored conversations from older builds must keep loading.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return Role(s)
	default:
		return RoleUser
	}
}

// DisplayName returns the label used when formatting context blocks.
func (r Role) DisplayName() string {
	switch r {
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	case RoleTool:
		return "Tool"
	default:
		return "User"
	}
}

// ConversationTurn is one message in a conversation. Immutable once
// created; ordering within a conversation is by CreatedAt.
type ConversationTurn struct {
	ID        string        `json:"id"`
	Role      Role          `json:"role"`
	Text      string        `json:"text"`
	Mode      AssistantMode `json:"mode,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

// NewTurn builds a turn with the given id. Mode is only meaningful on
// user turns and stays empty elsewhere.
func NewTurn(id string, role Role, text string, mode AssistantMode) ConversationTurn {
	return ConversationTurn{
		ID:        id,
		Role:      role,
		Text:      text,
		Mode:      mode,
		CreatedAt: time.Now(),
	}
}
