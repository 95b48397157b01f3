package automation

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/teemow/mailcdp/internal/instrumentation"
)

// CloseCompose closes a compose session using the first close action the
// remote app provides, then polls until the key leaves the registry.
func (a *Automator) CloseCompose(ctx context.Context, key DraftKey) (CloseResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx, t := a.track(ctx, instrumentation.OperationCloseCompose, key, "")
	res, err := a.closeCompose(ctx, key)
	t.done(res.Result, err)
	return res, err
}

func (a *Automator) closeCompose(ctx context.Context, key DraftKey) (CloseResult, error) {
	prev := a.lifecycle.State(key)
	a.lifecycle.set(key, StateClosing)

	out, err := a.run(ctx, "close", key, a.accessor.Close(key))
	if err != nil {
		a.forget(key, err)
		var remote *RemoteFailure
		if errors.As(err, &remote) {
			a.lifecycle.set(key, prev)
			return CloseResult{Result: Result{Status: StatusFailed, Message: remote.Message}}, nil
		}
		return CloseResult{}, err
	}

	var idx int
	if err := out.Decode(&idx); err != nil {
		return CloseResult{}, fmt.Errorf("failed to decode close action: %w", err)
	}
	candidates := a.accessor.surface.Close
	if idx < 0 || idx >= len(candidates) {
		a.lifecycle.set(key, prev)
		return CloseResult{Result: Result{Status: StatusFailed, Message: "no close action available"}}, nil
	}
	method := candidates[idx].String()

	poll, err := Poll(ctx, a.policy, func(ctx context.Context, _ int) (bool, error) {
		keys, err := a.keys(ctx)
		if err != nil {
			return false, err
		}
		return !slices.Contains(keys, key), nil
	})
	if err != nil {
		return CloseResult{Method: method}, err
	}
	if poll.Exhausted() {
		return CloseResult{
			Result: Result{
				Status:   StatusExhausted,
				Message:  "compose session is still registered",
				Attempts: poll.Attempts,
			},
			Method: method,
		}, nil
	}

	// The app may hand the key out again for a later compose session.
	delete(a.issued, key)
	a.lifecycle.set(key, StateAbsent)
	return CloseResult{Result: Result{Status: StatusOK, Attempts: poll.Attempts}, Method: method}, nil
}
