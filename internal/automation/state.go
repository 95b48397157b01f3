package automation

import (
	"context"
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/teemow/mailcdp/internal/config"
	"github.com/teemow/mailcdp/internal/instrumentation"
)

// DraftStateSnapshot is a read-only view of a draft at one point in time.
type DraftStateSnapshot struct {
	ID         DraftKey                   `json:"id"`
	Subject    string                     `json:"subject"`
	Recipients []string                   `json:"recipients"`
	Body       string                     `json:"body"`
	Dirty      bool                       `json:"dirty"`
	Fields     map[string]json.RawMessage `json:"fields,omitempty"`
	// State is the automation-side lifecycle state of the key.
	State State `json:"state"`
}

// GetDraftState reads every configured field and the dirty flag in a
// single evaluation. It never mutates the draft.
func (a *Automator) GetDraftState(ctx context.Context, key DraftKey) (*DraftStateSnapshot, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ctx, t := a.track(ctx, instrumentation.OperationGetDraftState, key, "")
	snap, err := a.snapshot(ctx, key)
	res := Result{Status: StatusOK, Attempts: 1}
	t.done(res, err)
	return snap, err
}

func (a *Automator) snapshot(ctx context.Context, key DraftKey) (*DraftStateSnapshot, error) {
	out, err := a.run(ctx, "read state", key, a.accessor.Snapshot(key))
	if err != nil {
		a.forget(key, err)
		return nil, err
	}

	snap := &DraftStateSnapshot{
		ID:     DraftKey(out.Get("id").String()),
		Dirty:  out.Get("dirty").Bool(),
		Fields: make(map[string]json.RawMessage),
		State:  a.lifecycle.State(key),
	}
	out.Get("fields").ForEach(func(name, v gjson.Result) bool {
		snap.Fields[name.String()] = json.RawMessage(v.Raw)
		switch name.String() {
		case config.FieldSubject:
			snap.Subject = v.String()
		case config.FieldBody:
			snap.Body = v.String()
		case config.FieldTo:
			snap.Recipients = recipientList(v)
		}
		return true
	})
	if snap.Recipients == nil {
		snap.Recipients = []string{}
	}
	return snap, nil
}
