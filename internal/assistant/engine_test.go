package assistant

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"ari/internal/assistant/ports"
	arierrors "ari/internal/errors"
	"ari/internal/llm"
	"ari/internal/prompts"
)

func newTestLoader(t *testing.T) *prompts.Loader {
	t.Helper()
	loader, err := prompts.NewLoader()
	if err != nil {
		t.Fatalf("NewLoader() error = %v", err)
	}
	return loader
}

// blockingProvider parks StreamRespond until its context is cancelled or
// release is closed, optionally emitting deltas first.
type blockingProvider struct {
	deltas  []string
	started chan struct{}
	release chan struct{}
}

func newBlockingProvider(deltas ...string) *blockingProvider {
	return &blockingProvider{
		deltas:  deltas,
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (p *blockingProvider) Model() string { return "blocking-model" }

func (p *blockingProvider) Respond(ctx context.Context, prompt ports.Prompt) (string, error) {
	close(p.started)
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-p.release:
		return strings.Join(p.deltas, ""), nil
	}
}

func (p *blockingProvider) StreamRespond(ctx context.Context, prompt ports.Prompt, fn ports.StreamFunc) error {
	close(p.started)
	for _, d := range p.deltas {
		if err := fn(ports.StreamDelta{Delta: d}); err != nil {
			return err
		}
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.release:
		return fn(ports.StreamDelta{Final: true})
	}
}

// recordingListener captures events for assertions.
type recordingListener struct {
	mu     sync.Mutex
	events []ports.Event
}

func (l *recordingListener) OnEvent(event ports.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, event)
}

func (l *recordingListener) snapshots() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.events {
		if snap, ok := e.(StreamSnapshotEvent); ok {
			out = append(out, snap.Text)
		}
	}
	return out
}

func TestEngine_GenerateAccumulatesCumulativeSnapshots(t *testing.T) {
	t.Parallel()

	mock := llm.NewMockClient("Here is a short draft for you.")
	mock.ChunkSize = 5
	listener := &recordingListener{}
	engine := NewEngine(mock, newTestLoader(t), WithEventListener(listener))

	result, err := engine.Generate(context.Background(), "write an email", ports.ModeWrite, nil, ports.DefaultPreferences(), "")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if result.Text != "Here is a short draft for you." {
		t.Fatalf("unexpected result text %q", result.Text)
	}

	snaps := listener.snapshots()
	if len(snaps) < 2 {
		t.Fatalf("expected multiple streaming snapshots, got %d", len(snaps))
	}
	for i := 1; i < len(snaps); i++ {
		if !strings.HasPrefix(snaps[i], snaps[i-1]) {
			t.Fatalf("snapshot %d %q does not extend %q: snapshots must be cumulative", i, snaps[i], snaps[i-1])
		}
	}
	if snaps[len(snaps)-1] != result.Text {
		t.Fatalf("final snapshot %q != result text %q", snaps[len(snaps)-1], result.Text)
	}

	if got := engine.State().Phase; got != ports.PhaseIdle {
		t.Fatalf("expected idle after delivery, got %s", got)
	}
	if engine.StreamingText() != "" {
		t.Fatal("expected streamed text cleared after delivery")
	}
}

func TestEngine_ArtifactSuggestionByMode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		mode ports.AssistantMode
		kind ports.ArtifactKind
		want bool
	}{
		{ports.ModeWrite, ports.ArtifactDraft, true},
		{ports.ModeSummarize, ports.ArtifactSummary, true},
		{ports.ModePlan, ports.ArtifactPlan, true},
		{ports.ModeExplain, "", false},
		{ports.ModeBrainstorm, "", false},
		{ports.ModeGeneral, "", false},
	}

	for _, tc := range cases {
		engine := NewEngine(llm.NewMockClient("Some generated content.\nWith a second line."), newTestLoader(t))
		result, err := engine.Generate(context.Background(), "anything", tc.mode, nil, ports.DefaultPreferences(), "")
		if err != nil {
			t.Fatalf("Generate(%s) error = %v", tc.mode, err)
		}
		if tc.want {
			if result.Suggestion == nil {
				t.Fatalf("mode %s: expected a suggestion", tc.mode)
			}
			if result.Suggestion.Kind != tc.kind {
				t.Fatalf("mode %s: expected kind %s, got %s", tc.mode, tc.kind, result.Suggestion.Kind)
			}
			if result.Suggestion.Title != "Some generated content." {
				t.Fatalf("mode %s: unexpected title %q", tc.mode, result.Suggestion.Title)
			}
		} else if result.Suggestion != nil {
			t.Fatalf("mode %s: expected no suggestion, got %+v", tc.mode, result.Suggestion)
		}
	}
}

func TestEngine_CancelBeforeFirstDelta(t *testing.T) {
	t.Parallel()

	provider := newBlockingProvider()
	engine := NewEngine(provider, newTestLoader(t))

	type outcome struct {
		result *ports.GenerationResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		result, err := engine.Generate(context.Background(), "hello", ports.ModeGeneral, nil, ports.DefaultPreferences(), "")
		done <- outcome{result, err}
	}()

	<-provider.started
	engine.Cancel()

	select {
	case got := <-done:
		if got.err != nil {
			t.Fatalf("cancelled Generate() error = %v", got.err)
		}
		if got.result != nil {
			t.Fatalf("cancelled Generate() result = %+v, want nil", got.result)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Generate did not return after Cancel")
	}

	if !engine.Cancelled() {
		t.Fatal("expected Cancelled() true")
	}
	if engine.StreamingText() != "" {
		t.Fatalf("expected empty streamed text, got %q", engine.StreamingText())
	}
	if got := engine.State().Phase; got != ports.PhaseIdle {
		t.Fatalf("expected idle, got %s", got)
	}
}

func TestEngine_CancelWhenIdleIsNoOp(t *testing.T) {
	t.Parallel()

	engine := NewEngine(llm.NewMockClient(), newTestLoader(t))
	engine.Cancel()

	if engine.Cancelled() {
		t.Fatal("Cancel when idle must not mark the engine cancelled")
	}
	if got := engine.State().Phase; got != ports.PhaseIdle {
		t.Fatalf("expected idle, got %s", got)
	}
}

func TestEngine_ProviderFailureBecomesReadableText(t *testing.T) {
	t.Parallel()

	mock := llm.NewMockClient()
	mock.Err = &arierrors.TransientError{Err: errors.New("connection refused")}
	engine := NewEngine(mock, newTestLoader(t))

	result, err := engine.Generate(context.Background(), "hello", ports.ModeWrite, nil, ports.DefaultPreferences(), "")
	if err != nil {
		t.Fatalf("Generate() error = %v, failures must surface as text", err)
	}
	if result == nil || result.Text == "" {
		t.Fatal("expected a human-readable failure message")
	}
	if result.Suggestion != nil {
		t.Fatal("failed generation must not suggest an artifact")
	}
	if got := engine.State().Phase; got != ports.PhaseIdle {
		t.Fatalf("expected idle after failure, got %s", got)
	}
}

func TestEngine_SecondGenerateWhileBusyFailsFast(t *testing.T) {
	t.Parallel()

	provider := newBlockingProvider()
	engine := NewEngine(provider, newTestLoader(t))

	go func() {
		_, _ = engine.Generate(context.Background(), "first", ports.ModeGeneral, nil, ports.DefaultPreferences(), "")
	}()
	<-provider.started

	_, err := engine.Generate(context.Background(), "second", ports.ModeGeneral, nil, ports.DefaultPreferences(), "")
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	engine.Cancel()
}

func TestEngine_PromptLayout(t *testing.T) {
	t.Parallel()

	mock := llm.NewMockClient("ok")
	engine := NewEngine(mock, newTestLoader(t), WithHistoryWindow(10))

	var history []ports.ConversationTurn
	for i := 0; i < 12; i++ {
		role := ports.RoleUser
		if i%2 == 1 {
			role = ports.RoleAssistant
		}
		history = append(history, ports.NewTurn("", role, "message "+string(rune('a'+i)), ""))
	}

	_, err := engine.Generate(context.Background(), "final question", ports.ModeExplain, history, ports.DefaultPreferences(), "page 12 of the textbook")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	sent := mock.Prompts()
	if len(sent) != 1 {
		t.Fatalf("expected one prompt, got %d", len(sent))
	}
	user := sent[0].User

	if strings.Contains(user, "message a") || strings.Contains(user, "message b") {
		t.Fatal("history window must drop turns past the last 10")
	}
	if !strings.Contains(user, "User: message c") {
		t.Fatalf("missing oldest in-window turn:\n%s", user)
	}
	if !strings.Contains(user, "Assistant: message l") {
		t.Fatalf("missing newest history turn:\n%s", user)
	}
	if !strings.Contains(user, "Reference material:\n\npage 12 of the textbook") {
		t.Fatalf("attachment block missing or unlabeled:\n%s", user)
	}
	if !strings.HasSuffix(user, "final question") {
		t.Fatalf("user input must come last:\n%s", user)
	}
	if strings.Index(user, "message c") > strings.Index(user, "message l") {
		t.Fatal("context turns must be oldest first")
	}
	if sent[0].System == "" {
		t.Fatal("expected a system prompt for explain mode")
	}
}

func TestEngine_TransformFailureReturnsErrorFlavoredString(t *testing.T) {
	t.Parallel()

	mock := llm.NewMockClient()
	mock.Err = errors.New("boom")
	engine := NewEngine(mock, newTestLoader(t))

	// Existing behavior: the caller cannot distinguish a failed transform
	// from a successful one; pinned here on purpose.
	text, err := engine.Transform(context.Background(), "some content", ports.TransformShorten, ports.DefaultPreferences())
	if err != nil {
		t.Fatalf("Transform() error = %v, want nil", err)
	}
	if !strings.Contains(text, "couldn't finish that transform") {
		t.Fatalf("expected error-flavored text, got %q", text)
	}
}

func TestEngine_TransformRejectsOverlap(t *testing.T) {
	t.Parallel()

	provider := newBlockingProvider("done")
	engine := NewEngine(provider, newTestLoader(t))

	go func() {
		_, _ = engine.Transform(context.Background(), "content", ports.TransformBullets, ports.DefaultPreferences())
	}()
	<-provider.started

	if !engine.IsTransforming() {
		t.Fatal("expected IsTransforming true while a transform is in flight")
	}
	if engine.IsGenerating() {
		t.Fatal("transform must not raise the chat-streaming flag")
	}
	_, err := engine.Transform(context.Background(), "other", ports.TransformQuiz, ports.DefaultPreferences())
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	close(provider.release)
}

func TestEngine_TransformCacheReusesResults(t *testing.T) {
	t.Parallel()

	mock := llm.NewMockClient("• one\n• two")
	engine := NewEngine(mock, newTestLoader(t), WithTransformCache(16, time.Minute))

	first, err := engine.Transform(context.Background(), "one two", ports.TransformBullets, ports.DefaultPreferences())
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	second, err := engine.Transform(context.Background(), "one two", ports.TransformBullets, ports.DefaultPreferences())
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	if first != second {
		t.Fatalf("expected identical cached result, got %q vs %q", first, second)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected one provider call, got %d", mock.CallCount())
	}
}
