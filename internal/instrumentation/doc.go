// Package instrumentation provides OpenTelemetry instrumentation for mailcdp.
//
// It covers the three layers that talk to the remote application:
//   - CDP transport: commands sent, responses by outcome, events received
//   - Remote evaluation: evaluations by outcome (success, exception, error)
//   - Automation primitives: operations by status, duration and poll attempts
//
// # Metrics
//
// CDP Metrics:
//   - cdp_commands_total: Counter of CDP commands by method and status
//   - cdp_command_duration_seconds: Histogram of command round-trip time
//   - cdp_events_total: Counter of inbound events by event name
//   - cdp_handler_panics_total: Counter of recovered event handler panics
//   - active_sessions: Gauge of attached sessions
//
// Evaluation Metrics:
//   - remote_evaluations_total: Counter of evaluations by status
//
// Automation Metrics:
//   - automation_operations_total: Counter of primitives by operation and status
//   - automation_operation_duration_seconds: Histogram of primitive durations
//   - automation_poll_attempts: Histogram of poll attempts per primitive
//
// # Tracing
//
// Spans are created for automation primitives (automation.<operation>) and for
// CDP commands (cdp.<Domain>.<method>).
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 1.0)
//   - OTEL_SERVICE_NAME: Service name (default: mailcdp)
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	recorder := provider.Metrics()
//	recorder.RecordCommand(ctx, "Runtime.evaluate", instrumentation.StatusSuccess, time.Since(start))
package instrumentation
