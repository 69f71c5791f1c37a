package logger

import (
	"context"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

// Context keys whose values are added to every record logged with that context.
const (
	// ContextKeyConversationID identifies one kiosk conversation.
	ContextKeyConversationID contextKey = "conversation_id"

	// ContextKeySessionID identifies the remote live session.
	ContextKeySessionID contextKey = "session_id"

	// ContextKeyModel identifies the remote model.
	ContextKeyModel contextKey = "model"
)

var allContextKeys = []contextKey{
	ContextKeyConversationID,
	ContextKeySessionID,
	ContextKeyModel,
}

// WithConversationID returns a new context with the conversation id set.
func WithConversationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeyConversationID, id)
}

// WithSessionID returns a new context with the session id set.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ContextKeySessionID, id)
}

// WithModel returns a new context with the model name set.
func WithModel(ctx context.Context, model string) context.Context {
	return context.WithValue(ctx, ContextKeyModel, model)
}

// ConversationID returns the conversation id stored in ctx, if any.
func ConversationID(ctx context.Context) string {
	s, _ := ctx.Value(ContextKeyConversationID).(string)
	return s
}
