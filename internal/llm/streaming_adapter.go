package llm

import (
	"context"

	"ari/internal/assistant/ports"
)

// streamingAdapter wraps a Responder that lacks native streaming support and
// synthesizes the delta callback protocol from a single Respond call.
type streamingAdapter struct {
	base ports.Responder
}

var _ ports.Streamer = (*streamingAdapter)(nil)

// EnsureStreamer guarantees the returned client implements ports.Streamer by
// wrapping non-streaming implementations with a fallback adapter.
func EnsureStreamer(client ports.Responder) ports.Streamer {
	if client == nil {
		return nil
	}
	if streamer, ok := client.(ports.Streamer); ok {
		return streamer
	}
	return &streamingAdapter{base: client}
}

func (a *streamingAdapter) Respond(ctx context.Context, prompt ports.Prompt) (string, error) {
	return a.base.Respond(ctx, prompt)
}

func (a *streamingAdapter) Model() string {
	return a.base.Model()
}

// StreamRespond delivers the full response as a single delta followed by the
// final marker.
func (a *streamingAdapter) StreamRespond(ctx context.Context, prompt ports.Prompt, fn ports.StreamFunc) error {
	text, err := a.base.Respond(ctx, prompt)
	if err != nil {
		return err
	}

	if text != "" {
		if err := fn(ports.StreamDelta{Delta: text}); err != nil {
			return err
		}
	}
	return fn(ports.StreamDelta{Final: true})
}

// LastUsage reports usage from the wrapped client when it tracks any.
func (a *streamingAdapter) LastUsage() ports.TokenUsage {
	if reporter, ok := a.base.(ports.UsageReporter); ok {
		return reporter.LastUsage()
	}
	return ports.TokenUsage{}
}
