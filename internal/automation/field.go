package automation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tidwall/gjson"

	"github.com/teemow/mailcdp/internal/instrumentation"
	"github.com/teemow/mailcdp/internal/logging"
)

// SetField writes value to field and polls until a read-back reflects it.
// When the read-back never matches, the mutation is repeated up to the
// profile's mutation attempts; apps commonly drop writes that arrive before
// the editor has initialised.
func (a *Automator) SetField(ctx context.Context, key DraftKey, field string, value any) (Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx, t := a.track(ctx, instrumentation.OperationSetField, key, field)
	t.record.WithField(field, valueLength(value))
	res, err := a.setField(ctx, key, field, value)
	t.done(res, err)
	return res, err
}

func (a *Automator) setField(ctx context.Context, key DraftKey, field string, value any) (Result, error) {
	accessor, err := a.accessor.Field(field)
	if err != nil {
		return Result{}, err
	}
	setScript, err := a.accessor.Set(key, field, value)
	if err != nil {
		return Result{}, err
	}
	getScript, err := a.accessor.Get(key, field)
	if err != nil {
		return Result{}, err
	}

	a.lifecycle.set(key, StateMutating)
	defer func() {
		if a.lifecycle.State(key) == StateMutating {
			a.lifecycle.set(key, StateOpen)
		}
	}()

	total := 0
	for mutation := 1; mutation <= a.mutationAttempts; mutation++ {
		if _, err := a.run(ctx, "set "+field, key, setScript); err != nil {
			a.forget(key, err)
			var remote *RemoteFailure
			if errors.As(err, &remote) {
				return Result{Status: StatusFailed, Message: remote.Message, Attempts: total}, nil
			}
			return Result{Attempts: total}, err
		}

		poll, err := Poll(ctx, a.policy, func(ctx context.Context, _ int) (bool, error) {
			out, err := a.run(ctx, "get "+field, key, getScript)
			if err != nil {
				var remote *RemoteFailure
				if errors.As(err, &remote) {
					return false, nil
				}
				return false, err
			}
			return fieldMatches(accessor.Match, value, gjson.ParseBytes(out.Value)), nil
		})
		total += poll.Attempts
		if err != nil {
			a.forget(key, err)
			return Result{Attempts: total}, err
		}
		if poll.Satisfied {
			return Result{Status: StatusOK, Attempts: total}, nil
		}
		a.logger.Debug("field did not reflect write",
			logging.Field(field),
			slog.Int("mutation", mutation),
		)
	}

	return Result{
		Status:   StatusExhausted,
		Message:  fmt.Sprintf("field %s did not reflect the written value", field),
		Attempts: total,
	}, nil
}

func valueLength(v any) int {
	if s, ok := v.(string); ok {
		return len(s)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return 0
	}
	return len(raw)
}
