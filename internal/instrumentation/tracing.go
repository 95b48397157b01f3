package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for the mailcdp module.
const TracerName = "github.com/teemow/mailcdp"

// Span attribute keys.
const (
	SpanAttrOperation = "automation.operation"
	SpanAttrDraftKey  = "automation.draft_key"
	SpanAttrField     = "automation.field"
	SpanAttrAttempts  = "automation.attempts"
	SpanAttrStatus    = "automation.status"
	SpanAttrMethod    = "cdp.method"
	SpanAttrSession   = "cdp.session"
	SpanAttrTarget    = "cdp.target"
)

// SpanAttributeBuilder helps construct span attributes with consistent naming.
type SpanAttributeBuilder struct {
	attrs []attribute.KeyValue
}

// NewSpanAttributeBuilder creates a new SpanAttributeBuilder.
func NewSpanAttributeBuilder() *SpanAttributeBuilder {
	return &SpanAttributeBuilder{
		attrs: make([]attribute.KeyValue, 0, 8),
	}
}

// WithOperation adds the automation operation attribute.
func (b *SpanAttributeBuilder) WithOperation(operation string) *SpanAttributeBuilder {
	b.attrs = append(b.attrs, attribute.String(SpanAttrOperation, operation))
	return b
}

// WithDraftKey adds the draft key attribute. Empty keys are skipped.
func (b *SpanAttributeBuilder) WithDraftKey(key string) *SpanAttributeBuilder {
	if key != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrDraftKey, key))
	}
	return b
}

// WithField adds the draft field attribute. Empty fields are skipped.
func (b *SpanAttributeBuilder) WithField(field string) *SpanAttributeBuilder {
	if field != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrField, field))
	}
	return b
}

// WithSession adds the session identifier attribute.
func (b *SpanAttributeBuilder) WithSession(id string) *SpanAttributeBuilder {
	if id != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrSession, id))
	}
	return b
}

// WithTarget adds the debug target identifier attribute.
func (b *SpanAttributeBuilder) WithTarget(id string) *SpanAttributeBuilder {
	if id != "" {
		b.attrs = append(b.attrs, attribute.String(SpanAttrTarget, id))
	}
	return b
}

// Build returns the constructed attributes.
func (b *SpanAttributeBuilder) Build() []attribute.KeyValue {
	return b.attrs
}

// StartSpan starts a new span with the given name and attributes.
// The caller is responsible for ending the span.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartAutomationSpan starts a span named "automation.<operation>".
func StartAutomationSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attribute.String(SpanAttrOperation, operation))
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "automation."+operation,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartCommandSpan starts a client span named "cdp.<Domain>.<method>".
func StartCommandSpan(ctx context.Context, method string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attribute.String(SpanAttrMethod, method))
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "cdp."+NormalizeMethod(method),
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// SetSpanOutcome records a non-error automation outcome such as an exhausted
// poll. Exhaustion is reported as an error status without recording an error.
func SetSpanOutcome(span trace.Span, status string, attempts int) {
	span.SetAttributes(
		attribute.String(SpanAttrStatus, status),
		attribute.Int(SpanAttrAttempts, attempts),
	)
	if status == StatusSuccess {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.SetStatus(codes.Error, status)
}

// AddSpanEvent adds an event to the span with optional attributes.
func AddSpanEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// GetTraceID returns the trace ID from the current span in context.
// Returns empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}

// GetSpanID returns the span ID from the current span in context.
func GetSpanID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().SpanID().String()
	}
	return ""
}
