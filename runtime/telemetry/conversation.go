package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanConversation = "promptkiosk.conversation"
	SpanConnect      = "promptkiosk.session.connect"
	SpanFaceScan     = "promptkiosk.face_scan"
)

// ConversationTracer records one root span per conversation, with child
// spans for the session connect and events for each completed turn.
type ConversationTracer struct {
	tracer trace.Tracer
}

// NewConversationTracer creates a tracer. A nil tracer uses the global provider.
func NewConversationTracer(tracer trace.Tracer) *ConversationTracer {
	if tracer == nil {
		tracer = Tracer(nil)
	}
	return &ConversationTracer{tracer: tracer}
}

// Start opens the conversation span. The returned context parents later spans.
func (t *ConversationTracer) Start(ctx context.Context, conversationID, model string) context.Context {
	ctx, _ = t.tracer.Start(ctx, SpanConversation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("conversation.id", conversationID),
			attribute.String("gen_ai.request.model", model),
		),
	)
	return ctx
}

// Connect opens a child span for a session connect. Call the returned
// function with the connect result.
func (t *ConversationTracer) Connect(ctx context.Context) (context.Context, func(sessionID string, err error)) {
	ctx, span := t.tracer.Start(ctx, SpanConnect, trace.WithSpanKind(trace.SpanKindClient))
	return ctx, func(sessionID string, err error) {
		if sessionID != "" {
			span.SetAttributes(attribute.String("session.id", sessionID))
		}
		endSpan(span, err)
	}
}

// FaceScan opens a span for a face scan, model load included. Requests made
// with the returned context are recorded beneath it. Call the returned
// function with the scan result.
func (t *ConversationTracer) FaceScan(ctx context.Context) (context.Context, func(err error)) {
	ctx, span := t.tracer.Start(ctx, SpanFaceScan)
	return ctx, func(err error) {
		endSpan(span, err)
	}
}

// Turn adds a turn event to the conversation span.
func (t *ConversationTracer) Turn(ctx context.Context, userChars, aiChars int) {
	trace.SpanFromContext(ctx).AddEvent("turn", trace.WithAttributes(
		attribute.Int("turn.user_chars", userChars),
		attribute.Int("turn.ai_chars", aiChars),
	))
}

// Fail records err on the conversation span.
func (t *ConversationTracer) Fail(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// End closes the conversation span.
func (t *ConversationTracer) End(ctx context.Context, messages int, saved bool) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.Int("conversation.messages", messages),
		attribute.Bool("conversation.saved", saved),
	)
	span.End()
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
