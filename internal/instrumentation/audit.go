package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// AutomationRecord captures one automation primitive invocation for audit logging.
//
// Field values written by the caller are never recorded; only the field name
// and the length of the value are kept so that message contents stay out of
// the audit stream.
type AutomationRecord struct {
	// Operation is the primitive name (open_compose, set_field, ...)
	Operation string

	// SessionID identifies the attached session.
	SessionID string

	// DraftKey is the remote draft key, when the primitive targets a draft.
	DraftKey string

	// Field is the draft field touched by set_field.
	Field string

	// ValueLength is the length of the value written by set_field.
	ValueLength int

	// Execution details
	StartTime time.Time
	Duration  time.Duration
	Status    string
	Attempts  int
	Error     string

	// Tracing context
	TraceID string
	SpanID  string
}

// NewAutomationRecord creates a new AutomationRecord with timing started.
// Call Complete when the primitive finishes.
func NewAutomationRecord(operation string) *AutomationRecord {
	return &AutomationRecord{
		Operation: operation,
		StartTime: time.Now(),
	}
}

// WithSession sets the session identifier.
func (r *AutomationRecord) WithSession(id string) *AutomationRecord {
	r.SessionID = id
	return r
}

// WithDraft sets the target draft key.
func (r *AutomationRecord) WithDraft(key string) *AutomationRecord {
	r.DraftKey = key
	return r
}

// WithField sets the written field and the length of its value.
func (r *AutomationRecord) WithField(field string, valueLength int) *AutomationRecord {
	r.Field = field
	r.ValueLength = valueLength
	return r
}

// WithSpanContext extracts trace context from the current span.
func (r *AutomationRecord) WithSpanContext(ctx context.Context) *AutomationRecord {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		r.TraceID = span.SpanContext().TraceID().String()
		r.SpanID = span.SpanContext().SpanID().String()
	}
	return r
}

// Complete marks the record as finished with the given status and attempts.
func (r *AutomationRecord) Complete(status string, attempts int, err error) *AutomationRecord {
	r.Duration = time.Since(r.StartTime)
	r.Status = status
	r.Attempts = attempts
	if err != nil {
		r.Error = err.Error()
	}
	return r
}

// Succeeded reports whether the primitive completed with StatusSuccess.
func (r *AutomationRecord) Succeeded() bool {
	return r.Status == StatusSuccess
}

// LogAttrs returns slog attributes for structured logging.
// Draft keys are only included when includeDraftKey is set.
func (r *AutomationRecord) LogAttrs(includeDraftKey bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("operation", r.Operation),
		slog.String("status", r.Status),
		slog.Duration("duration", r.Duration),
	}

	if r.SessionID != "" {
		attrs = append(attrs, slog.String("session", r.SessionID))
	}
	if includeDraftKey && r.DraftKey != "" {
		attrs = append(attrs, slog.String("draft_key", r.DraftKey))
	}
	if r.Field != "" {
		attrs = append(attrs,
			slog.String("field", r.Field),
			slog.Int("value_length", r.ValueLength),
		)
	}
	if r.Attempts > 0 {
		attrs = append(attrs, slog.Int("attempts", r.Attempts))
	}
	if r.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", r.TraceID))
	}
	if r.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", r.SpanID))
	}
	if r.Error != "" {
		attrs = append(attrs, slog.String("error", r.Error))
	}

	return attrs
}

// AuditLogger provides structured audit logging for automation primitives.
type AuditLogger struct {
	logger           *slog.Logger
	includeDraftKeys bool
	enabled          bool
}

// NewAuditLogger creates a new enabled AuditLogger that includes draft keys.
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return NewAuditLoggerWithConfig(logger, AuditLoggingConfig{Enabled: true, IncludeDraftKeys: true})
}

// NewAuditLoggerWithConfig creates a new AuditLogger with the given configuration.
func NewAuditLoggerWithConfig(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:           logger,
		includeDraftKeys: config.IncludeDraftKeys,
		enabled:          config.Enabled,
	}
}

// WithLogger returns a copy of the audit logger writing to logger.
func (al *AuditLogger) WithLogger(logger *slog.Logger) *AuditLogger {
	if al == nil {
		return NewAuditLogger(logger)
	}
	clone := *al
	if logger != nil {
		clone.logger = logger
	}
	return &clone
}

// SetEnabled sets whether audit logging is enabled.
func (al *AuditLogger) SetEnabled(enabled bool) {
	al.enabled = enabled
}

// LogAutomation writes an audit record. Successful primitives log at info,
// exhausted or failed ones at warn.
func (al *AuditLogger) LogAutomation(r *AutomationRecord) {
	if al == nil || !al.enabled || r == nil {
		return
	}

	attrs := r.LogAttrs(al.includeDraftKeys)
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if r.Succeeded() {
		al.logger.Info("automation_completed", args...)
	} else {
		al.logger.Warn("automation_incomplete", args...)
	}
}
