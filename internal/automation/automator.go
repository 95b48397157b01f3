package automation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/teemow/mailcdp/internal/config"
	"github.com/teemow/mailcdp/internal/evaluator"
	"github.com/teemow/mailcdp/internal/instrumentation"
	"github.com/teemow/mailcdp/internal/logging"
)

// Evaluator runs scripts in the remote page. *evaluator.Evaluator
// implements it.
type Evaluator interface {
	Evaluate(ctx context.Context, script string, opts evaluator.Options) (*evaluator.Outcome, error)
}

// Status is the outcome class of a primitive.
type Status string

const (
	// StatusOK means the remote state reflected the request.
	StatusOK Status = "ok"
	// StatusExhausted means every poll attempt ran without the remote state
	// reflecting the request. The remote side may still catch up later.
	StatusExhausted Status = "exhausted"
	// StatusFailed means the remote application rejected the request.
	StatusFailed Status = "failed"
)

// Result reports how a primitive finished.
type Result struct {
	Status   Status `json:"status"`
	Message  string `json:"message,omitempty"`
	Attempts int    `json:"attempts,omitempty"`
}

// OK reports whether the primitive succeeded.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// OpenResult is the result of OpenCompose.
type OpenResult struct {
	Result
	Key DraftKey `json:"key,omitempty"`
}

// CloseResult is the result of CloseCompose.
type CloseResult struct {
	Result
	// Method is the close action that was invoked.
	Method string `json:"method,omitempty"`
}

// scriptOptions are used for every accessor script.
var scriptOptions = evaluator.Options{WaitForPromise: true, SerializeResult: true}

// Automator drives the compose surface of one attached application.
// Primitives are serialized; the remote app is single-threaded and
// interleaved mutations would make read-back polling ambiguous.
type Automator struct {
	eval             Evaluator
	accessor         *Accessor
	policy           Policy
	mutationAttempts int

	logger    *slog.Logger
	metrics   *instrumentation.Metrics
	audit     *instrumentation.AuditLogger
	sessionID string

	mu        sync.Mutex
	issued    map[DraftKey]struct{}
	lifecycle *Lifecycle
}

// Option configures an Automator.
type Option func(*Automator)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Automator) { a.logger = logger }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *instrumentation.Metrics) Option {
	return func(a *Automator) { a.metrics = m }
}

// WithAudit sets the audit logger.
func WithAudit(al *instrumentation.AuditLogger) Option {
	return func(a *Automator) { a.audit = al }
}

// WithSessionID tags spans, logs and audit records with a session id.
func WithSessionID(id string) Option {
	return func(a *Automator) { a.sessionID = id }
}

// WithPolicy overrides the profile's poll policy.
func WithPolicy(p Policy) Option {
	return func(a *Automator) { a.policy = p }
}

// New returns an Automator evaluating through eval against the surface
// described by profile.
func New(eval Evaluator, profile config.Profile, opts ...Option) *Automator {
	a := &Automator{
		eval:     eval,
		accessor: NewAccessor(profile.Surface),
		policy: Policy{
			Attempts: profile.Poll.Attempts,
			Interval: profile.Poll.Interval,
		},
		mutationAttempts: max(profile.Poll.MutationAttempts, 1),
		issued:           make(map[DraftKey]struct{}),
		lifecycle:        NewLifecycle(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = logging.OrDefault(a.logger)
	return a
}

// Lifecycle returns the per-key state tracker.
func (a *Automator) Lifecycle() *Lifecycle {
	return a.lifecycle
}

// Accessor returns the script builder for the configured surface.
func (a *Automator) Accessor() *Accessor {
	return a.accessor
}

// run evaluates script and converts a thrown exception into an error.
func (a *Automator) run(ctx context.Context, op string, key DraftKey, script string) (*evaluator.Outcome, error) {
	out, err := a.eval.Evaluate(ctx, script, scriptOptions)
	if err != nil {
		return nil, err
	}
	if out.Failed {
		return nil, failure(op, key, out)
	}
	return out, nil
}

// forget marks key absent when err says the remote app no longer has it.
func (a *Automator) forget(key DraftKey, err error) {
	if errors.Is(err, ErrDraftNotFound) {
		a.lifecycle.set(key, StateAbsent)
	}
}

// opTracker carries the span, metrics and audit record of one primitive.
type opTracker struct {
	a      *Automator
	ctx    context.Context
	span   trace.Span
	op     string
	record *instrumentation.AutomationRecord
	start  time.Time
}

func (a *Automator) track(ctx context.Context, op string, key DraftKey, field string) (context.Context, *opTracker) {
	attrs := instrumentation.NewSpanAttributeBuilder().
		WithOperation(op).
		WithDraftKey(string(key)).
		WithField(field).
		WithSession(a.sessionID).
		Build()
	ctx, span := instrumentation.StartAutomationSpan(ctx, op, attrs...)

	record := instrumentation.NewAutomationRecord(op).
		WithSession(a.sessionID).
		WithDraft(string(key)).
		WithSpanContext(ctx)
	if field != "" {
		record.WithField(field, 0)
	}
	return ctx, &opTracker{a: a, ctx: ctx, span: span, op: op, record: record, start: time.Now()}
}

// done finishes the span and emits metrics, audit and log records. err is
// a Go error; res describes non-error outcomes.
func (t *opTracker) done(res Result, err error) {
	defer t.span.End()

	status := instrumentation.StatusSuccess
	switch {
	case err != nil:
		status = instrumentation.StatusError
		if errors.Is(err, ErrDraftNotFound) {
			status = instrumentation.StatusGone
		}
		instrumentation.SetSpanError(t.span, err)
	case res.Status == StatusExhausted:
		status = instrumentation.StatusExhausted
		instrumentation.SetSpanOutcome(t.span, status, res.Attempts)
	case res.Status == StatusFailed:
		status = instrumentation.StatusFailed
		instrumentation.SetSpanOutcome(t.span, status, res.Attempts)
	default:
		instrumentation.SetSpanOutcome(t.span, status, res.Attempts)
	}

	duration := time.Since(t.start)
	t.a.metrics.RecordAutomation(t.ctx, t.op, status, duration, res.Attempts)
	t.a.audit.LogAutomation(t.record.Complete(status, res.Attempts, err))

	attrs := []any{
		logging.Operation(t.op),
		logging.Status(status),
		logging.Attempts(res.Attempts),
		logging.Duration(duration),
	}
	if t.record.DraftKey != "" {
		attrs = append(attrs, logging.DraftKey(t.record.DraftKey))
	}
	switch {
	case err != nil:
		t.a.logger.Debug("automation primitive failed", append(attrs, logging.Err(err))...)
	case res.Status != StatusOK:
		t.a.logger.Info("automation primitive incomplete", append(attrs, slog.String("message", res.Message))...)
	default:
		t.a.logger.Debug("automation primitive completed", attrs...)
	}
}
