package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"ari/internal/assistant"
	"ari/internal/assistant/ports"
)

const (
	clientBuffer      = 100
	heartbeatInterval = 30 * time.Second
)

// Broadcaster fans domain events out to connected SSE clients. Slow
// clients drop events rather than block the engine: streaming snapshots
// are cumulative, so a dropped snapshot is made up for by the next one.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[chan ports.Event]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{clients: make(map[chan ports.Event]struct{})}
}

// OnEvent implements ports.EventListener.
func (b *Broadcaster) OnEvent(event ports.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients {
		select {
		case ch <- event:
		default:
		}
	}
}

func (b *Broadcaster) register() chan ports.Event {
	ch := make(chan ports.Event, clientBuffer)
	b.mu.Lock()
	b.clients[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broadcaster) unregister(ch chan ports.Event) {
	b.mu.Lock()
	delete(b.clients, ch)
	b.mu.Unlock()
}

// ClientCount reports connected SSE clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// handleSSE streams engine and coordinator events as Server-Sent Events,
// one `event:`/`data:` frame per event, with comment heartbeats to keep
// intermediaries from closing the connection.
func (s *Server) handleSSE(c *gin.Context) {
	w := c.Writer
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	ch := s.broadcaster.register()
	defer s.broadcaster.unregister(ch)
	s.metrics.IncrementActiveStreams(c.Request.Context())
	defer s.metrics.DecrementActiveStreams(c.Request.Context())

	fmt.Fprintf(w, "event: connected\ndata: {\"state\":%q}\n\n", s.coordinator.Engine().State().Phase)
	flusher.Flush()

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-ch:
			data, err := serializeEvent(event)
			if err != nil {
				s.logger.Error("serialize event: %v", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.EventType(), data); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}

// serializeEvent renders one event as a JSON object with the shared
// fields flattened in, so every frame looks the same to clients.
func serializeEvent(event ports.Event) ([]byte, error) {
	payload := map[string]any{
		"event_type": event.EventType(),
		"timestamp":  event.Timestamp().Format(time.RFC3339),
	}
	if id := event.GetConversationID(); id != "" {
		payload["conversation_id"] = id
	}

	switch e := event.(type) {
	case assistant.StateChangeEvent:
		payload["state"] = e.State
	case assistant.StreamSnapshotEvent:
		payload["text"] = e.Text
	case assistant.TurnCreatedEvent:
		payload["turn"] = e.Turn
	case assistant.ArtifactSavedEvent:
		payload["artifact"] = e.Artifact
	case assistant.MoodChangedEvent:
		payload["mood"] = e.Mood
		payload["guidance"] = e.Guidance
		payload["actions"] = e.Actions
	}
	return json.Marshal(payload)
}
