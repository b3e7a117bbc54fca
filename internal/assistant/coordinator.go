package assistant

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"ari/internal/assistant/ports"
	"ari/internal/assistant/ports/storage"
	"ari/internal/intent"
	"ari/internal/logging"
	"ari/internal/mood"
	"ari/internal/utils/id"
)

// TurnResult is everything one user message produced: the persisted
// turns, the generation result with mood overlay attached, and any
// recoverable persistence warning. Cancelled is true when the generation
// was aborted; no assistant turn is recorded in that case.
type TurnResult struct {
	UserTurn      ports.ConversationTurn  `json:"user_turn"`
	AssistantTurn *ports.ConversationTurn `json:"assistant_turn,omitempty"`
	Result        *ports.GenerationResult `json:"result,omitempty"`
	MoodUpdate    mood.Update             `json:"mood_update"`
	Actions       []ports.CoachingAction  `json:"actions,omitempty"`
	Cancelled     bool                    `json:"cancelled,omitempty"`
	PersistWarn   string                  `json:"persist_warn,omitempty"`
}

// MaterialSearcher supplies attachment context for a user message. The
// materials library implements it; nil means no attachment context.
type MaterialSearcher interface {
	ContextFor(ctx context.Context, query string) (string, error)
}

// Coordinator is the façade the delivery surfaces use. It sequences
// user-turn creation, the pre-generation mood update, the engine call,
// assistant-turn creation, the post-generation mood update, and the
// persistence handoff. Persistence failures surface as recoverable
// warnings on the result, never as fatal errors.
type Coordinator struct {
	engine    *Engine
	store     storage.ConversationStore
	materials MaterialSearcher
	logger    logging.Logger
	events    *eventFanout

	mu   sync.Mutex
	busy bool
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithCoordinatorLogger replaces the default component logger.
func WithCoordinatorLogger(logger logging.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = logging.OrNop(logger) }
}

// WithMaterials wires a materials library as attachment-context source.
func WithMaterials(searcher MaterialSearcher) CoordinatorOption {
	return func(c *Coordinator) { c.materials = searcher }
}

// WithCoordinatorListener registers a listener for coordinator events.
func WithCoordinatorListener(listener ports.EventListener) CoordinatorOption {
	return func(c *Coordinator) { c.events.Add(listener) }
}

// NewCoordinator builds the façade over an engine and a conversation store.
func NewCoordinator(engine *Engine, store storage.ConversationStore, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		engine: engine,
		store:  store,
		logger: logging.NewComponentLogger("Coordinator"),
		events: &eventFanout{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Engine exposes the underlying engine for state observers.
func (c *Coordinator) Engine() *Engine { return c.engine }

// AddListener registers an event listener after construction.
func (c *Coordinator) AddListener(listener ports.EventListener) { c.events.Add(listener) }

// Send drives one full conversation turn for the given user input.
// Overlapping sends on one coordinator fail fast with ErrBusy; the UI is
// expected to disable its send control while a turn is in flight.
func (c *Coordinator) Send(ctx context.Context, conversationID, input string) (*TurnResult, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty input")
	}

	c.mu.Lock()
	if c.busy {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.busy = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.busy = false
		c.mu.Unlock()
	}()

	ctx, _ = id.EnsureRequestID(ctx)
	logger := logging.FromContext(ctx, c.logger)

	conv, err := c.store.Get(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	prefs := conv.Preferences.Normalize()

	turnResult := &TurnResult{}

	mode := intent.Classify(input)
	userTurn := ports.NewTurn(id.NewTurnID(), ports.RoleUser, input, mode)
	turnResult.UserTurn = userTurn
	if err := c.store.AppendTurn(ctx, conversationID, userTurn); err != nil {
		logger.Warn("persist user turn: %v", err)
		turnResult.PersistWarn = "Your message could not be saved; the conversation continues unsaved."
	}
	c.publishTurn(conversationID, userTurn)

	history := append(conv.Turns, userTurn)

	// Pre-generation mood update so the overlay reacts to the new
	// message before streaming starts.
	c.publishMood(conversationID, mood.Evaluate(history, mode, prefs, false))

	attachment := c.attachmentContext(ctx, input)

	result, err := c.engine.Generate(ctx, input, mode, conv.Turns, prefs, attachment)
	if err != nil {
		return nil, err
	}
	if result == nil || c.engine.Cancelled() {
		// Cancelled mid-stream: partial text is discarded and no
		// assistant turn is recorded.
		turnResult.Cancelled = true
		update := mood.Evaluate(history, mode, prefs, false)
		turnResult.MoodUpdate = update
		turnResult.Actions = update.Actions
		return turnResult, nil
	}

	assistantTurn := ports.NewTurn(id.NewTurnID(), ports.RoleAssistant, result.Text, "")
	turnResult.AssistantTurn = &assistantTurn
	if err := c.store.AppendTurn(ctx, conversationID, assistantTurn); err != nil {
		logger.Warn("persist assistant turn: %v", err)
		turnResult.PersistWarn = "The reply could not be saved; the conversation continues unsaved."
	}
	c.publishTurn(conversationID, assistantTurn)

	update := mood.Evaluate(append(history, assistantTurn), mode, prefs, false)
	result.Guidance = update.Guidance
	result.Mood = update.Mood
	turnResult.Result = result
	turnResult.MoodUpdate = update
	turnResult.Actions = update.Actions
	c.publishMood(conversationID, update)

	return turnResult, nil
}

// Transform runs a single-shot content rewrite under the conversation's
// preferences. Failures arrive as readable text, matching Send.
func (c *Coordinator) Transform(ctx context.Context, conversationID, content string, kind ports.TransformKind) (string, error) {
	prefs := ports.DefaultPreferences()
	if conversationID != "" {
		if conv, err := c.store.Get(ctx, conversationID); err == nil {
			prefs = conv.Preferences
		}
	}
	return c.engine.Transform(ctx, content, kind, prefs)
}

// SaveArtifact materializes an accepted suggestion and returns the
// celebratory mood update the save triggers.
func (c *Coordinator) SaveArtifact(ctx context.Context, conversationID string, suggestion ports.ArtifactSuggestion) (ports.Artifact, mood.Update, error) {
	artifact := ports.Artifact{
		ID:             id.NewArtifactID(),
		ConversationID: conversationID,
		Kind:           suggestion.Kind,
		Title:          suggestion.Title,
		Content:        suggestion.Content,
		Tags:           suggestion.Tags,
	}

	conv, err := c.store.Get(ctx, conversationID)
	if err != nil {
		return ports.Artifact{}, mood.Update{}, fmt.Errorf("load conversation: %w", err)
	}
	if err := c.store.SaveArtifact(ctx, conversationID, artifact); err != nil {
		return ports.Artifact{}, mood.Update{}, fmt.Errorf("save artifact: %w", err)
	}

	c.events.Publish(ArtifactSavedEvent{baseEvent: newBase(EventArtifactSaved, conversationID), Artifact: artifact})

	update := mood.Evaluate(conv.Turns, conv.LastUserMode(), conv.Preferences, true)
	c.publishMood(conversationID, update)
	return artifact, update, nil
}

// Mood re-evaluates the overlay for the conversation's current shape,
// for surfaces that render it outside a send cycle.
func (c *Coordinator) Mood(ctx context.Context, conversationID string) (mood.Update, error) {
	conv, err := c.store.Get(ctx, conversationID)
	if err != nil {
		return mood.Update{}, fmt.Errorf("load conversation: %w", err)
	}
	return mood.Evaluate(conv.Turns, conv.LastUserMode(), conv.Preferences, false), nil
}

// Cancel aborts the in-flight generation, if any.
func (c *Coordinator) Cancel() { c.engine.Cancel() }

func (c *Coordinator) attachmentContext(ctx context.Context, query string) string {
	if c.materials == nil {
		return ""
	}
	block, err := c.materials.ContextFor(ctx, query)
	if err != nil {
		// Attachment context is best-effort; generation proceeds without.
		c.logger.Warn("materials lookup: %v", err)
		return ""
	}
	return block
}

func (c *Coordinator) publishTurn(conversationID string, turn ports.ConversationTurn) {
	c.events.Publish(TurnCreatedEvent{baseEvent: newBase(EventTurnCreated, conversationID), Turn: turn})
}

func (c *Coordinator) publishMood(conversationID string, update mood.Update) {
	c.events.Publish(MoodChangedEvent{
		baseEvent: newBase(EventMoodChanged, conversationID),
		Mood:      update.Mood,
		Guidance:  update.Guidance,
		Actions:   update.Actions,
	})
}
