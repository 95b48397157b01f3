package instrumentation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp.Meter("test"))
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumValue(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics_RecordCommand(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCommand(ctx, "Runtime.evaluate", StatusSuccess, 5*time.Millisecond)
	m.RecordCommand(ctx, "Runtime.evaluate", StatusError, time.Millisecond)
	m.RecordCommand(ctx, "Overlay.highlightNode", StatusSuccess, time.Millisecond)

	got := collect(t, reader)
	require.Contains(t, got, "cdp_commands_total")
	require.Contains(t, got, "cdp_command_duration_seconds")
	assert.Equal(t, int64(3), sumValue(t, got["cdp_commands_total"]))

	sum := got["cdp_commands_total"].Data.(metricdata.Sum[int64])
	methods := map[string]bool{}
	for _, dp := range sum.DataPoints {
		v, _ := dp.Attributes.Value(attrMethod)
		methods[v.AsString()] = true
	}
	assert.True(t, methods["Runtime.evaluate"])
	assert.True(t, methods[OtherLabel], "unknown domains collapse to other")
	assert.False(t, methods["Overlay.highlightNode"])
}

func TestMetrics_EventsAndPanics(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordEvent(ctx, "Network.requestWillBeSent")
	m.RecordEvent(ctx, "Network.responseReceived")
	m.RecordHandlerPanic(ctx, "Network.responseReceived")

	got := collect(t, reader)
	assert.Equal(t, int64(2), sumValue(t, got["cdp_events_total"]))
	assert.Equal(t, int64(1), sumValue(t, got["cdp_handler_panics_total"]))
}

func TestMetrics_ActiveSessions(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.IncrementActiveSessions(ctx)
	m.IncrementActiveSessions(ctx)
	m.DecrementActiveSessions(ctx)

	got := collect(t, reader)
	assert.Equal(t, int64(1), sumValue(t, got["active_sessions"]))
}

func TestMetrics_RecordAutomation(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordAutomation(ctx, OperationSetField, StatusSuccess, 300*time.Millisecond, 2)
	m.RecordAutomation(ctx, OperationCloseCompose, StatusExhausted, time.Second, 5)
	m.RecordAutomation(ctx, OperationGetDraftState, StatusSuccess, time.Millisecond, 0)
	m.RecordEvaluation(ctx, StatusException)

	got := collect(t, reader)
	assert.Equal(t, int64(3), sumValue(t, got["automation_operations_total"]))
	assert.Equal(t, int64(1), sumValue(t, got["remote_evaluations_total"]))

	hist, ok := got["automation_poll_attempts"].Data.(metricdata.Histogram[int64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(2), count, "primitives without polling record no attempts")
}

func TestMetrics_NilSafe(t *testing.T) {
	ctx := context.Background()

	var nilMetrics *Metrics
	zero := &Metrics{}

	for _, m := range []*Metrics{nilMetrics, zero} {
		assert.NotPanics(t, func() {
			m.RecordCommand(ctx, "Runtime.evaluate", StatusSuccess, time.Millisecond)
			m.RecordEvent(ctx, "Runtime.consoleAPICalled")
			m.RecordHandlerPanic(ctx, "Runtime.consoleAPICalled")
			m.RecordEvaluation(ctx, StatusSuccess)
			m.RecordAutomation(ctx, OperationSaveDraft, StatusSuccess, time.Millisecond, 1)
			m.IncrementActiveSessions(ctx)
			m.DecrementActiveSessions(ctx)
		})
	}
}
