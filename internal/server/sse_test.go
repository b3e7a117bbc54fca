package server

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"ari/internal/assistant"
	"ari/internal/assistant/ports"
)

func TestBroadcaster_FanOutToRegisteredClients(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster()
	first := b.register()
	second := b.register()
	defer b.unregister(first)
	defer b.unregister(second)

	if b.ClientCount() != 2 {
		t.Fatalf("ClientCount() = %d, want 2", b.ClientCount())
	}

	b.OnEvent(assistant.StreamSnapshotEvent{Text: "partial"})

	for _, ch := range []chan ports.Event{first, second} {
		select {
		case event := <-ch:
			snap, ok := event.(assistant.StreamSnapshotEvent)
			if !ok || snap.Text != "partial" {
				t.Fatalf("unexpected event %+v", event)
			}
		case <-time.After(time.Second):
			t.Fatal("client did not receive the event")
		}
	}
}

func TestBroadcaster_SlowClientDropsInsteadOfBlocking(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster()
	ch := b.register()
	defer b.unregister(ch)

	// Overfill the client buffer; OnEvent must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < clientBuffer*2; i++ {
			b.OnEvent(assistant.StreamSnapshotEvent{Text: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("OnEvent blocked on a slow client")
	}
	if len(ch) != clientBuffer {
		t.Fatalf("expected a full buffer of %d, got %d", clientBuffer, len(ch))
	}
}

func TestSerializeEvent_FlattensSharedFields(t *testing.T) {
	t.Parallel()

	event := assistant.MoodChangedEvent{
		Mood:     ports.MoodFocused,
		Guidance: "Let's stay on track.",
		Actions:  []ports.CoachingAction{{Label: "Make a checklist", Kind: ports.ActionCreateChecklist}},
	}

	data, err := serializeEvent(event)
	if err != nil {
		t.Fatalf("serializeEvent() error = %v", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload["mood"] != "focused" {
		t.Errorf("mood = %v", payload["mood"])
	}
	if _, ok := payload["timestamp"]; !ok {
		t.Error("missing timestamp")
	}
	if guidance, _ := payload["guidance"].(string); !strings.Contains(guidance, "track") {
		t.Errorf("guidance = %v", payload["guidance"])
	}
}

func TestSerializeEvent_StateChange(t *testing.T) {
	t.Parallel()

	data, err := serializeEvent(assistant.StateChangeEvent{State: ports.EngineState{Phase: ports.PhaseStreaming, PartialText: "hi"}})
	if err != nil {
		t.Fatalf("serializeEvent() error = %v", err)
	}
	if !strings.Contains(string(data), `"streaming"`) {
		t.Fatalf("expected streaming phase in payload: %s", data)
	}
}
