package automation

import (
	"context"
	"fmt"

	"github.com/teemow/mailcdp/internal/instrumentation"
)

// ListDrafts returns the keys currently in the remote registry, in
// registry order.
func (a *Automator) ListDrafts(ctx context.Context) ([]DraftKey, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx, t := a.track(ctx, instrumentation.OperationListDrafts, "", "")
	keys, err := a.keys(ctx)
	t.done(Result{Status: StatusOK}, err)
	return keys, err
}

func (a *Automator) keys(ctx context.Context) ([]DraftKey, error) {
	out, err := a.run(ctx, "list drafts", "", a.accessor.Keys())
	if err != nil {
		return nil, err
	}
	var raw []string
	if err := out.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode draft keys: %w", err)
	}
	keys := make([]DraftKey, len(raw))
	for i, k := range raw {
		keys[i] = DraftKey(k)
	}
	return keys, nil
}

// OpenCompose opens a new compose session and returns its key.
//
// The key is found by diffing the registry against a baseline taken before
// the open. A key is only ever handed out once per Automator; when several
// new keys appear, the last one in registry order wins. If no new key
// appears within the poll budget the result is StatusExhausted.
func (a *Automator) OpenCompose(ctx context.Context) (OpenResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx, t := a.track(ctx, instrumentation.OperationOpenCompose, "", "")
	res, err := a.openCompose(ctx)
	t.record.WithDraft(string(res.Key))
	t.done(res.Result, err)
	return res, err
}

func (a *Automator) openCompose(ctx context.Context) (OpenResult, error) {
	baseline, err := a.keys(ctx)
	if err != nil {
		return OpenResult{}, fmt.Errorf("failed to read baseline: %w", err)
	}
	seen := make(map[DraftKey]struct{}, len(baseline))
	for _, k := range baseline {
		seen[k] = struct{}{}
	}

	a.lifecycle.beginOpen()
	defer a.lifecycle.endOpen()

	out, err := a.eval.Evaluate(ctx, a.accessor.Open(), scriptOptions)
	if err != nil {
		return OpenResult{}, fmt.Errorf("failed to trigger compose: %w", err)
	}
	if out.Failed {
		return OpenResult{Result: Result{Status: StatusFailed, Message: out.Message}}, nil
	}

	var found DraftKey
	poll, err := Poll(ctx, a.policy, func(ctx context.Context, _ int) (bool, error) {
		keys, err := a.keys(ctx)
		if err != nil {
			return false, err
		}
		found = ""
		for _, k := range keys {
			if _, old := seen[k]; old {
				continue
			}
			if _, issued := a.issued[k]; issued {
				continue
			}
			found = k
		}
		return found != "", nil
	})
	if err != nil {
		return OpenResult{}, err
	}
	if poll.Exhausted() {
		return OpenResult{Result: Result{
			Status:   StatusExhausted,
			Message:  "no new compose session appeared",
			Attempts: poll.Attempts,
		}}, nil
	}

	a.issued[found] = struct{}{}
	a.lifecycle.set(found, StateOpen)
	return OpenResult{Result: Result{Status: StatusOK, Attempts: poll.Attempts}, Key: found}, nil
}
