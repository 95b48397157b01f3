package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrMethod    = "method"
	attrEvent     = "event"
	attrStatus    = "status"
	attrOperation = "operation"
)

// Metrics provides methods for recording observability metrics.
// A zero Metrics, or a nil *Metrics, records nothing.
type Metrics struct {
	// Transport metrics
	commandsTotal   metric.Int64Counter
	commandDuration metric.Float64Histogram
	eventsTotal     metric.Int64Counter
	handlerPanics   metric.Int64Counter
	activeSessions  metric.Int64UpDownCounter

	// Evaluator metrics
	evaluationsTotal metric.Int64Counter

	// Automation metrics
	automationTotal    metric.Int64Counter
	automationDuration metric.Float64Histogram
	pollAttempts       metric.Int64Histogram
}

// NewMetrics creates a new Metrics instance with all instruments initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.commandsTotal, err = meter.Int64Counter(
		"cdp_commands_total",
		metric.WithDescription("Total number of CDP commands sent"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cdp_commands_total counter: %w", err)
	}

	m.commandDuration, err = meter.Float64Histogram(
		"cdp_command_duration_seconds",
		metric.WithDescription("CDP command round-trip duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cdp_command_duration_seconds histogram: %w", err)
	}

	m.eventsTotal, err = meter.Int64Counter(
		"cdp_events_total",
		metric.WithDescription("Total number of CDP events dispatched"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cdp_events_total counter: %w", err)
	}

	m.handlerPanics, err = meter.Int64Counter(
		"cdp_handler_panics_total",
		metric.WithDescription("Total number of recovered event handler panics"),
		metric.WithUnit("{panic}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cdp_handler_panics_total counter: %w", err)
	}

	m.activeSessions, err = meter.Int64UpDownCounter(
		"active_sessions",
		metric.WithDescription("Number of attached automation sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active_sessions gauge: %w", err)
	}

	m.evaluationsTotal, err = meter.Int64Counter(
		"remote_evaluations_total",
		metric.WithDescription("Total number of remote script evaluations"),
		metric.WithUnit("{evaluation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create remote_evaluations_total counter: %w", err)
	}

	m.automationTotal, err = meter.Int64Counter(
		"automation_operations_total",
		metric.WithDescription("Total number of automation primitive invocations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create automation_operations_total counter: %w", err)
	}

	m.automationDuration, err = meter.Float64Histogram(
		"automation_operation_duration_seconds",
		metric.WithDescription("Automation primitive duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create automation_operation_duration_seconds histogram: %w", err)
	}

	m.pollAttempts, err = meter.Int64Histogram(
		"automation_poll_attempts",
		metric.WithDescription("Number of probe attempts used by a polling wait"),
		metric.WithUnit("{attempt}"),
		metric.WithExplicitBucketBoundaries(1, 2, 3, 5, 10, 20, 50),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create automation_poll_attempts histogram: %w", err)
	}

	return m, nil
}

// RecordCommand records a CDP command round trip.
//
// Parameters:
//   - method: fully qualified CDP method (e.g. "Runtime.evaluate")
//   - status: StatusSuccess, StatusError or StatusGone
//   - duration: time between send and response
func (m *Metrics) RecordCommand(ctx context.Context, method, status string, duration time.Duration) {
	if m == nil || m.commandsTotal == nil || m.commandDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, NormalizeMethod(method)),
		attribute.String(attrStatus, status),
	)

	m.commandsTotal.Add(ctx, 1, attrs)
	m.commandDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordEvent records a dispatched CDP event.
func (m *Metrics) RecordEvent(ctx context.Context, event string) {
	if m == nil || m.eventsTotal == nil {
		return
	}
	m.eventsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrEvent, NormalizeMethod(event))))
}

// RecordHandlerPanic records a panic recovered from an event handler.
func (m *Metrics) RecordHandlerPanic(ctx context.Context, event string) {
	if m == nil || m.handlerPanics == nil {
		return
	}
	m.handlerPanics.Add(ctx, 1, metric.WithAttributes(attribute.String(attrEvent, NormalizeMethod(event))))
}

// RecordEvaluation records a remote evaluation outcome.
// Status should be one of StatusSuccess, StatusException or StatusError.
func (m *Metrics) RecordEvaluation(ctx context.Context, status string) {
	if m == nil || m.evaluationsTotal == nil {
		return
	}
	m.evaluationsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrStatus, status)))
}

// RecordAutomation records an automation primitive invocation.
//
// Parameters:
//   - operation: primitive name (open_compose, set_field, save_draft, ...)
//   - status: StatusSuccess, StatusExhausted or StatusFailed
//   - duration: wall time of the primitive including polling
//   - attempts: probe attempts consumed, 0 when the primitive did not poll
func (m *Metrics) RecordAutomation(ctx context.Context, operation, status string, duration time.Duration, attempts int) {
	if m == nil || m.automationTotal == nil || m.automationDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	)

	m.automationTotal.Add(ctx, 1, attrs)
	m.automationDuration.Record(ctx, duration.Seconds(), attrs)
	if attempts > 0 && m.pollAttempts != nil {
		m.pollAttempts.Record(ctx, int64(attempts), metric.WithAttributes(attribute.String(attrOperation, operation)))
	}
}

// IncrementActiveSessions increments the active sessions counter.
func (m *Metrics) IncrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, 1)
}

// DecrementActiveSessions decrements the active sessions counter.
func (m *Metrics) DecrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, -1)
}
