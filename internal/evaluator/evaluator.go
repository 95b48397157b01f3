package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chromedp/cdproto/runtime"

	"github.com/teemow/mailcdp/internal/instrumentation"
	"github.com/teemow/mailcdp/internal/logging"
)

const debugScriptLimit = 200

// Runtime is the subset of the Runtime domain the evaluator needs.
// *domains.Runtime implements it.
type Runtime interface {
	Evaluate(ctx context.Context, params *runtime.EvaluateParams) (*runtime.EvaluateReturns, error)
}

// Options control how a script is evaluated.
type Options struct {
	// WaitForPromise resolves a returned promise before responding.
	WaitForPromise bool
	// SerializeResult returns the value as JSON instead of a remote reference.
	SerializeResult bool
}

// Evaluator evaluates scripts in the page's main world.
type Evaluator struct {
	rt      Runtime
	logger  *slog.Logger
	metrics *instrumentation.Metrics
}

// New returns an Evaluator over rt. logger and metrics may be nil.
func New(rt Runtime, logger *slog.Logger, metrics *instrumentation.Metrics) *Evaluator {
	return &Evaluator{
		rt:      rt,
		logger:  logging.OrDefault(logger),
		metrics: metrics,
	}
}

// Evaluate runs script. A script exception is reported through the
// returned Outcome; the error is only set for protocol or transport failures.
func (e *Evaluator) Evaluate(ctx context.Context, script string, opts Options) (*Outcome, error) {
	params := runtime.Evaluate(script).
		WithReturnByValue(opts.SerializeResult).
		WithAwaitPromise(opts.WaitForPromise)

	ret, err := e.rt.Evaluate(ctx, params)
	if err != nil {
		e.metrics.RecordEvaluation(ctx, instrumentation.StatusError)
		return nil, fmt.Errorf("failed to evaluate script: %w", err)
	}

	if ret.ExceptionDetails != nil {
		out := &Outcome{Failed: true, Message: exceptionMessage(ret.ExceptionDetails)}
		e.metrics.RecordEvaluation(ctx, instrumentation.StatusException)
		e.logger.Debug("remote exception",
			slog.String("script", logging.Truncate(script, debugScriptLimit)),
			slog.String("message", out.Message),
		)
		return out, nil
	}

	out := &Outcome{Type: "undefined"}
	if obj := ret.Result; obj != nil {
		out.Type = string(obj.Type)
		out.Description = obj.Description
		if len(obj.Value) > 0 {
			out.Value = json.RawMessage(obj.Value)
		}
	}
	e.metrics.RecordEvaluation(ctx, instrumentation.StatusSuccess)
	return out, nil
}

// exceptionMessage extracts the thrown message: the exception description
// without its stack frames and "<ClassName>: " prefix, then the thrown
// primitive value, then the exception text.
func exceptionMessage(details *runtime.ExceptionDetails) string {
	if exc := details.Exception; exc != nil {
		if exc.Description != "" {
			msg := stripStack(exc.Description)
			if exc.ClassName != "" {
				msg = strings.TrimPrefix(msg, exc.ClassName+": ")
			}
			return msg
		}
		if len(exc.Value) > 0 {
			var s string
			if err := json.Unmarshal(exc.Value, &s); err == nil {
				return s
			}
			return string(exc.Value)
		}
	}
	if details.Text != "" {
		return details.Text
	}
	return "remote evaluation failed"
}

// stripStack drops the trailing "    at ..." frames of a V8 error
// description, keeping every message line.
func stripStack(description string) string {
	lines := strings.Split(description, "\n")
	end := len(lines)
	for end > 1 && isStackFrame(lines[end-1]) {
		end--
	}
	return strings.Join(lines[:end], "\n")
}

func isStackFrame(line string) bool {
	trimmed := strings.TrimLeft(line, " \t")
	return len(trimmed) < len(line) && strings.HasPrefix(trimmed, "at ")
}
