package automation

import (
	"context"
	"errors"

	"github.com/teemow/mailcdp/internal/instrumentation"
)

// SaveDraft invokes the draft's save action and waits for its promise to
// settle. Settlement does not imply the draft was persisted; use WaitSaved
// to wait for the dirty flag to clear.
func (a *Automator) SaveDraft(ctx context.Context, key DraftKey) (Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx, t := a.track(ctx, instrumentation.OperationSaveDraft, key, "")
	res, err := a.saveDraft(ctx, key)
	t.done(res, err)
	return res, err
}

func (a *Automator) saveDraft(ctx context.Context, key DraftKey) (Result, error) {
	a.lifecycle.set(key, StateSaving)
	if _, err := a.run(ctx, "save", key, a.accessor.Save(key)); err != nil {
		a.forget(key, err)
		var remote *RemoteFailure
		if errors.As(err, &remote) {
			a.lifecycle.set(key, StateOpen)
			return Result{Status: StatusFailed, Message: remote.Message, Attempts: 1}, nil
		}
		return Result{Attempts: 1}, err
	}

	dirty, err := a.dirty(ctx, key)
	if err != nil {
		a.forget(key, err)
		return Result{Attempts: 1}, err
	}
	if !dirty {
		a.lifecycle.set(key, StateSaved)
	}
	return Result{Status: StatusOK, Attempts: 1}, nil
}

// WaitSaved polls the draft's dirty flag until it clears.
func (a *Automator) WaitSaved(ctx context.Context, key DraftKey) (Result, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx, t := a.track(ctx, instrumentation.OperationWaitSaved, key, "")
	res, err := a.waitSaved(ctx, key)
	t.done(res, err)
	return res, err
}

func (a *Automator) waitSaved(ctx context.Context, key DraftKey) (Result, error) {
	poll, err := Poll(ctx, a.policy, func(ctx context.Context, _ int) (bool, error) {
		dirty, err := a.dirty(ctx, key)
		if err != nil {
			return false, err
		}
		return !dirty, nil
	})
	if err != nil {
		a.forget(key, err)
		return Result{Attempts: poll.Attempts}, err
	}
	if poll.Exhausted() {
		return Result{
			Status:   StatusExhausted,
			Message:  "draft still has unsaved changes",
			Attempts: poll.Attempts,
		}, nil
	}
	a.lifecycle.set(key, StateSaved)
	return Result{Status: StatusOK, Attempts: poll.Attempts}, nil
}

func (a *Automator) dirty(ctx context.Context, key DraftKey) (bool, error) {
	out, err := a.run(ctx, "read dirty flag", key, a.accessor.Dirty(key))
	if err != nil {
		return false, err
	}
	return out.Bool(), nil
}
