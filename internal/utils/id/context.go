package id

import "context"

type contextKey string

const (
	conversationKey contextKey = "ari_conversation_id"
	turnKey         contextKey = "ari_turn_id"
	requestKey      contextKey = "ari_request_id"
)

// WithConversationID stores the conversation identifier on the context so
// observability layers can attach it to spans and log lines.
func WithConversationID(ctx context.Context, conversationID string) context.Context {
	if conversationID == "" {
		return ctx
	}
	return context.WithValue(ctx, conversationKey, conversationID)
}

// WithTurnID stores the current turn identifier on the context.
func WithTurnID(ctx context.Context, turnID string) context.Context {
	if turnID == "" {
		return ctx
	}
	return context.WithValue(ctx, turnKey, turnID)
}

// WithRequestID stores the server request identifier on the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestKey, requestID)
}

// ConversationIDFromContext extracts the conversation identifier.
func ConversationIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if conversationID, ok := ctx.Value(conversationKey).(string); ok {
		return conversationID
	}
	return ""
}

// TurnIDFromContext extracts the turn identifier.
func TurnIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if turnID, ok := ctx.Value(turnKey).(string); ok {
		return turnID
	}
	return ""
}

// RequestIDFromContext extracts the server request identifier.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if requestID, ok := ctx.Value(requestKey).(string); ok {
		return requestID
	}
	return ""
}

// EnsureRequestID guarantees a request identifier is present, generating
// one when missing. Returns the updated context and the identifier.
func EnsureRequestID(ctx context.Context) (context.Context, string) {
	if existing := RequestIDFromContext(ctx); existing != "" {
		return ctx, existing
	}
	next := NewRequestID()
	return WithRequestID(ctx, next), next
}
