package domains

import (
	"context"

	"github.com/chromedp/cdproto/input"
)

const domainInput = "Input"

// Input dispatches synthetic input events. The target window generally has
// to be visible for these to reach the page.
type Input struct {
	caller Caller
}

// NewInput returns the Input domain bound to caller.
func NewInput(caller Caller) *Input {
	return &Input{caller: caller}
}

// DispatchKeyEvent sends a key event.
func (i *Input) DispatchKeyEvent(ctx context.Context, params *input.DispatchKeyEventParams) error {
	return call(ctx, i.caller, domainInput, "dispatchKeyEvent", params, nil)
}

// DispatchMouseEvent sends a mouse event.
func (i *Input) DispatchMouseEvent(ctx context.Context, params *input.DispatchMouseEventParams) error {
	return call(ctx, i.caller, domainInput, "dispatchMouseEvent", params, nil)
}

// InsertText inserts text at the current focus, as an IME commit would.
func (i *Input) InsertText(ctx context.Context, text string) error {
	return call(ctx, i.caller, domainInput, "insertText", input.InsertText(text), nil)
}
