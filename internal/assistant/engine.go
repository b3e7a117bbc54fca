// Package assistant holds the response-orchestration core: the Engine
// drives one cancellable streaming generation at a time against a
// provider port, and the Coordinator sequences full conversation turns
// around it (classification, mood updates, persistence handoff).
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"ari/internal/assistant/ports"
	arierrors "ari/internal/errors"
	"ari/internal/llm"
	"ari/internal/logging"
	"ari/internal/observability"
	"ari/internal/prompts"
	"ari/internal/token"
)

// ErrBusy is returned when a second Generate (or a second Transform)
// is attempted while one is already in flight on the same engine.
var ErrBusy = errors.New("engine busy: a request is already in flight")

const (
	defaultHistoryWindow   = 10
	defaultContextTokenCap = 3000
	artifactTitleLimit     = 60
)

// Engine is the generation orchestrator. It owns the state machine for
// one in-flight generation, accumulates provider deltas into cumulative
// streaming snapshots, and proposes an artifact from the completed text.
//
// State and streamed text are guarded by an RWMutex because server
// handlers and CLI spinners read them while the provider goroutine
// writes. One Engine serves one conversation surface at a time.
type Engine struct {
	provider    ports.Streamer
	transformer ports.Streamer
	prompts     *prompts.Loader
	logger      logging.Logger
	metrics     *observability.MetricsCollector
	promMetrics *observability.PromptMetrics
	events      *eventFanout

	historyWindow   int
	contextTokenCap int

	mu           sync.RWMutex
	state        ports.EngineState
	generating   bool
	transforming bool
	cancelled    bool
	cancelGen    context.CancelFunc
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger replaces the default component logger.
func WithLogger(logger logging.Logger) EngineOption {
	return func(e *Engine) { e.logger = logging.OrNop(logger) }
}

// WithMetrics records generation latency and token usage to the collector.
func WithMetrics(metrics *observability.MetricsCollector) EngineOption {
	return func(e *Engine) { e.metrics = metrics }
}

// WithPromptMetrics records prompt section sizes and history truncations.
func WithPromptMetrics(metrics *observability.PromptMetrics) EngineOption {
	return func(e *Engine) { e.promMetrics = metrics }
}

// WithHistoryWindow sets how many trailing history turns enter the prompt.
func WithHistoryWindow(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.historyWindow = n
		}
	}
}

// WithContextTokenCap caps the token size of the conversation context block.
func WithContextTokenCap(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.contextTokenCap = n
		}
	}
}

// WithTransformCache memoizes Transform results in an LRU+TTL cache.
// Failed transforms are never cached.
func WithTransformCache(size int, ttl time.Duration) EngineOption {
	return func(e *Engine) { e.transformer = llm.NewCachingClient(e.provider, size, ttl) }
}

// WithEventListener registers a listener for engine events.
func WithEventListener(listener ports.EventListener) EngineOption {
	return func(e *Engine) { e.events.Add(listener) }
}

// NewEngine builds an engine over the given provider and prompt set.
func NewEngine(provider ports.Streamer, loader *prompts.Loader, opts ...EngineOption) *Engine {
	e := &Engine{
		provider:        provider,
		transformer:     provider,
		prompts:         loader,
		logger:          logging.NewComponentLogger("Engine"),
		events:          &eventFanout{},
		historyWindow:   defaultHistoryWindow,
		contextTokenCap: defaultContextTokenCap,
		state:           ports.EngineState{Phase: ports.PhaseIdle},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddListener registers an event listener after construction.
func (e *Engine) AddListener(listener ports.EventListener) { e.events.Add(listener) }

// State returns a snapshot of the current engine state.
func (e *Engine) State() ports.EngineState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// StreamingText returns the cumulative partial text of the in-flight
// generation, or empty when none is streaming.
func (e *Engine) StreamingText() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.PartialText
}

// IsGenerating reports whether a chat generation is in flight.
func (e *Engine) IsGenerating() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.generating
}

// IsTransforming reports whether a transform call is in flight. Kept
// separate from IsGenerating so UI surfaces never conflate the two.
func (e *Engine) IsTransforming() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.transforming
}

// Cancelled reports whether the last generation ended by cancellation.
func (e *Engine) Cancelled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.cancelled
}

// Cancel aborts the in-flight generation, discards streamed text, and
// forces the state back to idle. Safe to call when idle.
func (e *Engine) Cancel() {
	e.mu.Lock()
	cancel := e.cancelGen
	if cancel != nil {
		e.cancelled = true
	}
	e.state = ports.EngineState{Phase: ports.PhaseIdle}
	e.mu.Unlock()

	if cancel != nil {
		cancel()
		e.logger.Info("generation cancelled")
		e.publishState(ports.EngineState{Phase: ports.PhaseIdle})
	}
}

// Generate runs one full generation: prompt assembly, streaming provider
// call, artifact suggestion. Provider failures come back as readable
// result text with a nil error so the conversation flow stays unblocked;
// the only non-nil errors are caller mistakes (ErrBusy). A cancelled
// generation returns (nil, nil) with Cancelled() true.
func (e *Engine) Generate(ctx context.Context, input string, mode ports.AssistantMode, history []ports.ConversationTurn, prefs ports.Preferences, attachment string) (*ports.GenerationResult, error) {
	e.mu.Lock()
	if e.generating {
		e.mu.Unlock()
		return nil, ErrBusy
	}
	genCtx, cancel := context.WithCancel(ctx)
	e.generating = true
	e.cancelled = false
	e.cancelGen = cancel
	e.state = ports.EngineState{Phase: ports.PhaseRouting}
	e.mu.Unlock()

	defer func() {
		cancel()
		e.mu.Lock()
		e.generating = false
		e.cancelGen = nil
		e.state = ports.EngineState{Phase: ports.PhaseIdle}
		e.mu.Unlock()
		e.publishState(ports.EngineState{Phase: ports.PhaseIdle})
	}()

	e.publishState(ports.EngineState{Phase: ports.PhaseRouting})
	prefs = prefs.Normalize()
	prompt := e.buildPrompt(input, mode, history, prefs, attachment)

	e.setPhase(ports.PhaseGenerating)

	start := time.Now()
	var accumulated strings.Builder
	streaming := false

	err := e.provider.StreamRespond(genCtx, prompt, func(delta ports.StreamDelta) error {
		if err := genCtx.Err(); err != nil {
			return err
		}
		if delta.Final || delta.Delta == "" {
			return nil
		}
		accumulated.WriteString(delta.Delta)
		snapshot := accumulated.String()

		e.mu.Lock()
		e.state = ports.EngineState{Phase: ports.PhaseStreaming, PartialText: snapshot}
		e.mu.Unlock()
		if !streaming {
			streaming = true
			e.publishState(ports.EngineState{Phase: ports.PhaseStreaming})
		}
		e.events.Publish(StreamSnapshotEvent{baseEvent: newBase(EventStreamSnapshot, ""), Text: snapshot})
		return nil
	})
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, context.Canceled) || e.Cancelled() {
			e.mu.Lock()
			e.cancelled = true
			e.mu.Unlock()
			return nil, nil
		}
		e.logger.Warn("generation failed: %v", err)
		e.recordRequest(ctx, "error", elapsed, ports.TokenUsage{})
		e.setPhase(ports.PhaseError)
		return &ports.GenerationResult{
			Text:    arierrors.FormatForUser(err),
			Mode:    mode,
			Elapsed: elapsed,
		}, nil
	}

	text := strings.TrimSpace(accumulated.String())
	usage := e.usageFor(prompt, text)
	e.recordRequest(ctx, "success", elapsed, usage)
	e.setPhase(ports.PhaseComplete)

	return &ports.GenerationResult{
		Text:       text,
		Mode:       mode,
		Suggestion: suggestArtifact(mode, text),
		Usage:      usage,
		Elapsed:    elapsed,
	}, nil
}

// Transform runs one single-shot rewrite of existing content under the
// instruction template for kind. A provider failure returns an
// error-flavored string with a nil error; callers render it as-is.
func (e *Engine) Transform(ctx context.Context, content string, kind ports.TransformKind, prefs ports.Preferences) (string, error) {
	e.mu.Lock()
	if e.transforming {
		e.mu.Unlock()
		return "", ErrBusy
	}
	e.transforming = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.transforming = false
		e.mu.Unlock()
	}()

	instruction, err := e.prompts.TransformInstruction(kind, content)
	if err != nil {
		return "", fmt.Errorf("build transform instruction: %w", err)
	}

	prompt := ports.Prompt{
		System: transformSystem(prefs.Normalize().Verbosity),
		User:   instruction,
	}

	start := time.Now()
	text, err := e.transformer.Respond(ctx, prompt)
	if err != nil {
		e.logger.Warn("transform %s failed: %v", kind, err)
		e.recordRequest(ctx, "error", time.Since(start), ports.TokenUsage{})
		e.metrics.RecordTransform(ctx, string(kind), "error", time.Since(start))
		return "I couldn't finish that transform: " + arierrors.FormatForUser(err), nil
	}
	e.recordRequest(ctx, "success", time.Since(start), e.usageFor(prompt, text))
	e.metrics.RecordTransform(ctx, string(kind), "success", time.Since(start))
	return strings.TrimSpace(text), nil
}

// buildPrompt assembles the system prompt and the layered user prompt:
// conversation context from the trailing history window, then the
// attachment block when present, then the user input last.
func (e *Engine) buildPrompt(input string, mode ports.AssistantMode, history []ports.ConversationTurn, prefs ports.Preferences, attachment string) ports.Prompt {
	system, err := e.prompts.SystemPrompt(mode, prefs.Verbosity)
	if err != nil {
		e.logger.Error("system prompt for mode %s: %v", mode, err)
	}

	var sections []string
	if block := contextBlock(history, e.historyWindow); block != "" {
		trimmed := token.TruncateToTokens(block, e.contextTokenCap)
		if trimmed != block {
			e.promMetrics.RecordHistoryTruncation()
		}
		e.promMetrics.RecordTokensBySection("history", token.EstimateFast(trimmed))
		sections = append(sections, "Conversation so far:\n\n"+trimmed)
	}
	if attachment = strings.TrimSpace(attachment); attachment != "" {
		e.promMetrics.RecordTokensBySection("attachment", token.EstimateFast(attachment))
		sections = append(sections, "Reference material:\n\n"+attachment)
	}
	e.promMetrics.RecordTokensBySection("system", token.EstimateFast(system))
	e.promMetrics.RecordTokensBySection("input", token.EstimateFast(input))
	sections = append(sections, input)

	return ports.Prompt{System: system, User: strings.Join(sections, "\n\n")}
}

// contextBlock formats the last window turns as "<Role>: <text>" joined
// by blank lines, oldest first.
func contextBlock(history []ports.ConversationTurn, window int) string {
	if len(history) > window {
		history = history[len(history)-window:]
	}
	lines := make([]string, 0, len(history))
	for _, turn := range history {
		if strings.TrimSpace(turn.Text) == "" {
			continue
		}
		lines = append(lines, turn.Role.DisplayName()+": "+turn.Text)
	}
	return strings.Join(lines, "\n\n")
}

// suggestArtifact maps a completed generation to an artifact proposal.
// Only write, summarize, and plan modes produce one.
func suggestArtifact(mode ports.AssistantMode, text string) *ports.ArtifactSuggestion {
	if text == "" {
		return nil
	}

	var kind ports.ArtifactKind
	switch mode {
	case ports.ModeWrite:
		kind = ports.ArtifactDraft
	case ports.ModeSummarize:
		kind = ports.ArtifactSummary
	case ports.ModePlan:
		kind = ports.ArtifactPlan
	default:
		return nil
	}

	return &ports.ArtifactSuggestion{
		Kind:    kind,
		Title:   artifactTitle(text),
		Content: text,
		Tags:    []string{string(mode)},
	}
}

// artifactTitle takes the first non-empty line, stripped of markdown
// heading and emphasis markers, clipped to a display length.
func artifactTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "#*_> "))
		line = strings.Trim(line, "*_")
		if line == "" {
			continue
		}
		runes := []rune(line)
		if len(runes) > artifactTitleLimit {
			return string(runes[:artifactTitleLimit-1]) + "…"
		}
		return line
	}
	return "Untitled"
}

func transformSystem(verbosity ports.Verbosity) string {
	base := "You rewrite existing content. Follow the instruction exactly and output only the requested format, nothing else."
	if verbosity == ports.VerbosityBrief {
		base += " Prefer the shortest faithful result."
	}
	return base
}

func (e *Engine) setPhase(phase ports.EnginePhase) {
	e.mu.Lock()
	e.state = ports.EngineState{Phase: phase}
	e.mu.Unlock()
	e.publishState(ports.EngineState{Phase: phase})
}

func (e *Engine) publishState(state ports.EngineState) {
	e.events.Publish(StateChangeEvent{baseEvent: newBase(EventStateChange, ""), State: state})
}

// usageFor prefers provider-reported usage and falls back to a local
// estimate when the provider reports none.
func (e *Engine) usageFor(prompt ports.Prompt, text string) ports.TokenUsage {
	if reporter, ok := e.provider.(ports.UsageReporter); ok {
		if usage := reporter.LastUsage(); usage.TotalTokens > 0 {
			return usage
		}
	}
	usage := ports.TokenUsage{
		PromptTokens:     token.EstimateFast(prompt.System + "\n" + prompt.User),
		CompletionTokens: token.EstimateFast(text),
	}
	usage.TotalTokens = usage.PromptTokens + usage.CompletionTokens
	return usage
}

func (e *Engine) recordRequest(ctx context.Context, status string, latency time.Duration, usage ports.TokenUsage) {
	if e.metrics == nil {
		return
	}
	model := e.provider.Model()
	cost := observability.EstimateCost(model, usage.PromptTokens, usage.CompletionTokens)
	e.metrics.RecordLLMRequest(ctx, model, status, latency, usage.PromptTokens, usage.CompletionTokens, cost)
}
