package ports

import "context"

// StreamDelta is one increment of streamed provider output. Delta carries
// newly generated text only; the engine accumulates deltas into the
// cumulative snapshots it exposes. Final marks the end of the stream.
type StreamDelta struct {
	Delta string `json:"delta"`
	Final bool   `json:"final"`
}

// StreamFunc receives deltas in order. Returning an error stops the
// stream; the provider must not call it again after Final.
type StreamFunc func(delta StreamDelta) error

// Responder is the single-shot capability of a generation provider.
type Responder interface {
	// Respond sends one prompt and returns the full response text
	Respond(ctx context.Context, prompt Prompt) (string, error)

	// Model returns the model identifier
	Model() string
}

// Streamer is the streaming capability. Implementations deliver deltas on
// the calling goroutine or their own; fn must tolerate either. A stream
// is finite and not restartable.
type Streamer interface {
	Responder

	// StreamRespond sends one prompt and delivers output through fn
	StreamRespond(ctx context.Context, prompt Prompt, fn StreamFunc) error
}

// Prompt is the assembled input for one provider call.
type Prompt struct {
	System string `json:"system"`
	User   string `json:"user"`
}

// UsageReporter is implemented by providers that report token accounting
// after a call completes.
type UsageReporter interface {
	LastUsage() TokenUsage
}
