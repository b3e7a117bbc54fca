package storage

import (
	"context"
	"errors"
	"time"

	core "ari/internal/assistant/ports"
)

// ErrNotFound is returned when a conversation id does not exist.
var ErrNotFound = errors.New("conversation not found")

// ConversationStore persists conversations and their artifacts. The
// orchestration core never writes storage directly; the coordinator is
// the only caller.
type ConversationStore interface {
	// Create creates a new conversation
	Create(ctx context.Context, title string) (*Conversation, error)

	// Get retrieves a conversation by ID
	Get(ctx context.Context, id string) (*Conversation, error)

	// Save persists the full conversation state
	Save(ctx context.Context, conv *Conversation) error

	// AppendTurn adds one turn and persists
	AppendTurn(ctx context.Context, id string, turn core.ConversationTurn) error

	// SaveArtifact materializes an accepted suggestion
	SaveArtifact(ctx context.Context, id string, artifact core.Artifact) error

	// List returns conversation IDs with optional limit/offset pagination.
	List(ctx context.Context, limit int, offset int) ([]string, error)

	// Delete removes a conversation
	Delete(ctx context.Context, id string) error
}

// Conversation is one thread of turns plus its saved artifacts.
type Conversation struct {
	ID          string                  `json:"id"`
	Title       string                  `json:"title"`
	Turns       []core.ConversationTurn `json:"turns"`
	Artifacts   []core.Artifact         `json:"artifacts,omitempty"`
	Preferences core.Preferences        `json:"preferences"`
	Metadata    map[string]string       `json:"metadata,omitempty"`
	CreatedAt   time.Time               `json:"created_at"`
	UpdatedAt   time.Time               `json:"updated_at"`
}

// MessageCount returns the number of user+assistant turns, the signal
// the mood engine bands on.
func (c *Conversation) MessageCount() int {
	n := 0
	for _, t := range c.Turns {
		if t.Role == core.RoleUser || t.Role == core.RoleAssistant {
			n++
		}
	}
	return n
}

// LastUserMode returns the classified mode of the most recent user turn,
// or empty when no user turn exists.
func (c *Conversation) LastUserMode() core.AssistantMode {
	for i := len(c.Turns) - 1; i >= 0; i-- {
		if c.Turns[i].Role == core.RoleUser {
			return c.Turns[i].Mode
		}
	}
	return ""
}
