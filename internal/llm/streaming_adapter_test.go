package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"ari/internal/assistant/ports"
)

// respondOnlyClient implements ports.Responder without streaming support.
type respondOnlyClient struct {
	text string
	err  error
}

func (c *respondOnlyClient) Respond(ctx context.Context, prompt ports.Prompt) (string, error) {
	return c.text, c.err
}

func (c *respondOnlyClient) Model() string { return "respond-only" }

func TestEnsureStreamerReturnsNativeStreamers(t *testing.T) {
	mock := NewMockClient("hello")
	require.Equal(t, ports.Streamer(mock), EnsureStreamer(mock))
}

func TestEnsureStreamerSynthesizesDeltas(t *testing.T) {
	client := EnsureStreamer(&respondOnlyClient{text: "whole answer"})

	var deltas []ports.StreamDelta
	err := client.StreamRespond(context.Background(), ports.Prompt{User: "hi"}, func(delta ports.StreamDelta) error {
		deltas = append(deltas, delta)
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, []ports.StreamDelta{{Delta: "whole answer"}, {Final: true}}, deltas)
}

func TestEnsureStreamerEmitsOnlyFinalForEmptyText(t *testing.T) {
	client := EnsureStreamer(&respondOnlyClient{text: ""})

	var deltas []ports.StreamDelta
	err := client.StreamRespond(context.Background(), ports.Prompt{User: "hi"}, func(delta ports.StreamDelta) error {
		deltas = append(deltas, delta)
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, []ports.StreamDelta{{Final: true}}, deltas)
}

func TestEnsureStreamerPropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	client := EnsureStreamer(&respondOnlyClient{err: boom})

	err := client.StreamRespond(context.Background(), ports.Prompt{User: "hi"}, func(ports.StreamDelta) error {
		t.Fatal("callback should not run on error")
		return nil
	})

	require.ErrorIs(t, err, boom)
}

func TestMockClientConsumesResponsesInOrder(t *testing.T) {
	mock := NewMockClient("first", "second")

	one, err := mock.Respond(context.Background(), ports.Prompt{User: "a"})
	require.NoError(t, err)
	two, err := mock.Respond(context.Background(), ports.Prompt{User: "b"})
	require.NoError(t, err)
	three, err := mock.Respond(context.Background(), ports.Prompt{User: "c"})
	require.NoError(t, err)

	require.Equal(t, "first", one)
	require.Equal(t, "second", two)
	require.Equal(t, "second", three)
	require.Equal(t, 3, mock.CallCount())
	require.Len(t, mock.Prompts(), 3)
}

func TestMockClientStreamsInChunks(t *testing.T) {
	mock := NewMockClient("abcdef")
	mock.ChunkSize = 4

	var deltas []ports.StreamDelta
	err := mock.StreamRespond(context.Background(), ports.Prompt{User: "hi"}, func(delta ports.StreamDelta) error {
		deltas = append(deltas, delta)
		return nil
	})

	require.NoError(t, err)
	require.Equal(t, []ports.StreamDelta{{Delta: "abcd"}, {Delta: "ef"}, {Final: true}}, deltas)
}

func TestMockClientHonorsCancelledContext(t *testing.T) {
	mock := NewMockClient("anything")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mock.Respond(ctx, ports.Prompt{User: "hi"})
	require.ErrorIs(t, err, context.Canceled)
}
