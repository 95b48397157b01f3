package domains

import (
	"context"

	"github.com/chromedp/cdproto"
	"github.com/chromedp/cdproto/runtime"
)

const domainRuntime = "Runtime"

// Runtime is the script execution domain.
type Runtime struct {
	caller Caller
	bus    Subscriber
}

// NewRuntime returns the Runtime domain bound to caller and bus.
func NewRuntime(caller Caller, bus Subscriber) *Runtime {
	return &Runtime{caller: caller, bus: bus}
}

// Enable turns on Runtime event reporting.
func (r *Runtime) Enable(ctx context.Context) error {
	return call(ctx, r.caller, domainRuntime, "enable", runtime.Enable(), nil)
}

// Evaluate runs Runtime.evaluate.
func (r *Runtime) Evaluate(ctx context.Context, params *runtime.EvaluateParams) (*runtime.EvaluateReturns, error) {
	var ret runtime.EvaluateReturns
	if err := call(ctx, r.caller, domainRuntime, "evaluate", params, &ret); err != nil {
		return nil, err
	}
	return &ret, nil
}

// OnConsoleAPICalled subscribes to console calls made by the page.
func (r *Runtime) OnConsoleAPICalled(fn func(*runtime.EventConsoleAPICalled)) func() {
	return subscribe(r.bus, string(cdproto.EventRuntimeConsoleAPICalled), fn)
}

// OnExceptionThrown subscribes to uncaught page exceptions.
func (r *Runtime) OnExceptionThrown(fn func(*runtime.EventExceptionThrown)) func() {
	return subscribe(r.bus, string(cdproto.EventRuntimeExceptionThrown), fn)
}
