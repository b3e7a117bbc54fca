package assistant

import (
	"sync"
	"time"

	"ari/internal/assistant/ports"
)

// baseEvent carries the fields shared by every domain event.
type baseEvent struct {
	Type           string    `json:"type"`
	ConversationID string    `json:"conversation_id,omitempty"`
	At             time.Time `json:"at"`
}

func (e baseEvent) EventType() string         { return e.Type }
func (e baseEvent) Timestamp() time.Time      { return e.At }
func (e baseEvent) GetConversationID() string { return e.ConversationID }

func newBase(eventType, conversationID string) baseEvent {
	return baseEvent{Type: eventType, ConversationID: conversationID, At: time.Now()}
}

// StateChangeEvent is emitted on every engine phase transition.
type StateChangeEvent struct {
	baseEvent
	State ports.EngineState `json:"state"`
}

// StreamSnapshotEvent carries one cumulative streaming snapshot. Text
// replaces whatever the consumer displayed before; it never appends.
type StreamSnapshotEvent struct {
	baseEvent
	Text string `json:"text"`
}

// TurnCreatedEvent is emitted after a turn is appended to a conversation.
type TurnCreatedEvent struct {
	baseEvent
	Turn ports.ConversationTurn `json:"turn"`
}

// ArtifactSavedEvent is emitted after a suggestion is materialized.
type ArtifactSavedEvent struct {
	baseEvent
	Artifact ports.Artifact `json:"artifact"`
}

// MoodChangedEvent is emitted whenever the mood overlay is re-evaluated.
type MoodChangedEvent struct {
	baseEvent
	Mood     ports.Mood             `json:"mood"`
	Guidance string                 `json:"guidance,omitempty"`
	Actions  []ports.CoachingAction `json:"actions,omitempty"`
}

const (
	EventStateChange    = "state_change"
	EventStreamSnapshot = "stream_snapshot"
	EventTurnCreated    = "turn_created"
	EventArtifactSaved  = "artifact_saved"
	EventMoodChanged    = "mood_changed"
)

// eventFanout delivers events to registered listeners in registration
// order. Listener callbacks run on the publishing goroutine and must not
// block.
type eventFanout struct {
	mu        sync.RWMutex
	listeners []ports.EventListener
}

func (f *eventFanout) Add(listener ports.EventListener) {
	if listener == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, listener)
}

func (f *eventFanout) Publish(event ports.Event) {
	f.mu.RLock()
	listeners := f.listeners
	f.mu.RUnlock()
	for _, l := range listeners {
		l.OnEvent(event)
	}
}
