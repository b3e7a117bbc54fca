package ports

import "time"

// Event is a domain event emitted while a conversation is driven.
// Concrete event types live in the assistant package.
type Event interface {
	EventType() string
	Timestamp() time.Time
	GetConversationID() string
}

// EventListener consumes events (used by the SSE/WebSocket layers).
type EventListener interface {
	OnEvent(event Event)
}

// EventListenerFunc adapts a function to the EventListener interface.
type EventListenerFunc func(event Event)

func (f EventListenerFunc) OnEvent(event Event) { f(event) }
