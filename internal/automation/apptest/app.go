package apptest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/dop251/goja"
	"github.com/mailru/easyjson"

	"github.com/teemow/mailcdp/internal/cdp/cdptest"
)

// ErrStopped is returned by calls made after the app was stopped.
var ErrStopped = errors.New("app stopped")

// Options tune the fake application's timing. Zero values make every step
// synchronous.
type Options struct {
	// OpenDelay delays registering a new draft after newCompose.
	OpenDelay time.Duration
	// InitDelay is how long a new draft ignores writes.
	InitDelay time.Duration
	// RenderDelay delays applying a write.
	RenderDelay time.Duration
	// SaveDelay delays settling the save promise.
	SaveDelay time.Duration
	// PersistDelay delays clearing the dirty flag after save settles.
	PersistDelay time.Duration
	// CloseDelay delays removing a draft after a close action.
	CloseDelay time.Duration
	// SingleCompose makes newCompose a no-op while a draft is open.
	SingleCompose bool
	// NoDraftClose removes the per-draft discard action so only the
	// app-level closeCompose remains.
	NoDraftClose bool
	// ReuseKeys hands out the lowest free "draft-N" key instead of a
	// fresh one.
	ReuseKeys bool
}

func (o Options) script() map[string]any {
	ms := func(d time.Duration) int64 { return d.Milliseconds() }
	return map[string]any{
		"openDelay":     ms(o.OpenDelay),
		"initDelay":     ms(o.InitDelay),
		"renderDelay":   ms(o.RenderDelay),
		"saveDelay":     ms(o.SaveDelay),
		"persistDelay":  ms(o.PersistDelay),
		"closeDelay":    ms(o.CloseDelay),
		"singleCompose": o.SingleCompose,
		"noDraftClose":  o.NoDraftClose,
		"reuseKeys":     o.ReuseKeys,
	}
}

type waiter struct {
	promise *goja.Promise
	byValue bool
	reply   chan *runtime.EvaluateReturns
}

// App is a running fake application. All runtime access happens on the
// loop goroutine.
type App struct {
	vm       *goja.Runtime
	describe goja.Callable

	tasks   chan func()
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once

	timersMu sync.Mutex
	timers   map[*time.Timer]struct{}

	waiters []waiter
}

// New starts an App and stops it when t finishes.
func New(t testing.TB, opts Options) *App {
	t.Helper()

	a := &App{
		vm:      goja.New(),
		tasks:   make(chan func()),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
		timers:  make(map[*time.Timer]struct{}),
	}
	if err := a.setup(opts); err != nil {
		t.Fatalf("failed to start fake app: %v", err)
	}
	go a.loop()
	t.Cleanup(a.Stop)
	return a
}

func (a *App) setup(opts Options) error {
	global := a.vm.GlobalObject()
	window := a.vm.NewObject()
	for _, obj := range []*goja.Object{global, window} {
		if err := obj.Set("setTimeout", a.setTimeout); err != nil {
			return err
		}
	}
	if err := global.Set("window", window); err != nil {
		return err
	}

	describe, err := a.vm.RunString(describeScript)
	if err != nil {
		return fmt.Errorf("describe helper: %w", err)
	}
	fn, ok := goja.AssertFunction(describe)
	if !ok {
		return errors.New("describe helper is not a function")
	}
	a.describe = fn

	install, err := a.vm.RunString(appScript)
	if err != nil {
		return fmt.Errorf("app script: %w", err)
	}
	installFn, ok := goja.AssertFunction(install)
	if !ok {
		return errors.New("app script is not a function")
	}
	_, err = installFn(goja.Undefined(), window, a.vm.ToValue(opts.script()))
	return err
}

// Stop halts the loop and cancels pending timers. It is idempotent.
func (a *App) Stop() {
	a.once.Do(func() {
		close(a.done)
		<-a.stopped
		a.timersMu.Lock()
		for tm := range a.timers {
			tm.Stop()
		}
		a.timers = nil
		a.timersMu.Unlock()
	})
}

func (a *App) loop() {
	defer close(a.stopped)
	for {
		select {
		case <-a.done:
			return
		case fn := <-a.tasks:
			fn()
			a.settle()
		}
	}
}

// post queues fn on the loop. It reports false once the app is stopped.
func (a *App) post(fn func()) bool {
	select {
	case a.tasks <- fn:
		return true
	case <-a.done:
		return false
	}
}

func (a *App) setTimeout(call goja.FunctionCall) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(a.vm.NewTypeError("setTimeout callback is not a function"))
	}
	delay := time.Duration(call.Argument(1).ToInteger()) * time.Millisecond

	a.timersMu.Lock()
	defer a.timersMu.Unlock()
	if a.timers == nil {
		return goja.Undefined()
	}
	var tm *time.Timer
	tm = time.AfterFunc(delay, func() {
		a.timersMu.Lock()
		delete(a.timers, tm)
		a.timersMu.Unlock()
		a.post(func() {
			_, _ = fn(goja.Undefined())
		})
	})
	a.timers[tm] = struct{}{}
	return goja.Undefined()
}

// settle answers every awaited promise that is no longer pending.
func (a *App) settle() {
	kept := a.waiters[:0]
	for _, w := range a.waiters {
		switch w.promise.State() {
		case goja.PromiseStatePending:
			kept = append(kept, w)
		case goja.PromiseStateFulfilled:
			w.reply <- &runtime.EvaluateReturns{Result: a.remote(w.promise.Result(), w.byValue)}
		case goja.PromiseStateRejected:
			reason := w.promise.Result()
			w.reply <- &runtime.EvaluateReturns{
				Result:           a.remote(reason, false),
				ExceptionDetails: a.details(reason, "Uncaught (in promise)"),
			}
		}
	}
	a.waiters = kept
}

// Evaluate implements evaluator.Runtime.
func (a *App) Evaluate(ctx context.Context, params *runtime.EvaluateParams) (*runtime.EvaluateReturns, error) {
	reply := make(chan *runtime.EvaluateReturns, 1)
	if !a.post(func() { a.evaluate(params, reply) }) {
		return nil, ErrStopped
	}
	select {
	case ret := <-reply:
		return ret, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-a.done:
		return nil, ErrStopped
	}
}

func (a *App) evaluate(params *runtime.EvaluateParams, reply chan *runtime.EvaluateReturns) {
	v, err := a.vm.RunString(params.Expression)
	if err != nil {
		reply <- a.exception(err)
		return
	}
	if params.AwaitPromise && v != nil {
		if p, ok := v.Export().(*goja.Promise); ok {
			a.waiters = append(a.waiters, waiter{promise: p, byValue: params.ReturnByValue, reply: reply})
			return
		}
	}
	reply <- &runtime.EvaluateReturns{Result: a.remote(v, params.ReturnByValue)}
}

func (a *App) exception(err error) *runtime.EvaluateReturns {
	var ex *goja.Exception
	if errors.As(err, &ex) {
		return &runtime.EvaluateReturns{
			Result:           a.remote(ex.Value(), false),
			ExceptionDetails: a.details(ex.Value(), "Uncaught"),
		}
	}
	obj := &runtime.RemoteObject{
		Type:        runtime.TypeObject,
		Subtype:     runtime.SubtypeError,
		ClassName:   "SyntaxError",
		Description: "SyntaxError: " + err.Error(),
	}
	return &runtime.EvaluateReturns{
		Result:           obj,
		ExceptionDetails: &runtime.ExceptionDetails{Text: "Uncaught", Exception: obj},
	}
}

func (a *App) details(v goja.Value, text string) *runtime.ExceptionDetails {
	return &runtime.ExceptionDetails{Text: text, Exception: a.remote(v, false)}
}

// remote describes v the way a DevTools endpoint would. Primitives always
// carry a value; objects only when byValue is set.
func (a *App) remote(v goja.Value, byValue bool) *runtime.RemoteObject {
	if v == nil {
		v = goja.Undefined()
	}
	d, err := a.describe(goja.Undefined(), v, a.vm.ToValue(byValue))
	if err != nil {
		return &runtime.RemoteObject{Type: runtime.TypeObject, Description: err.Error()}
	}
	var desc struct {
		Type        string  `json:"type"`
		Subtype     string  `json:"subtype"`
		ClassName   string  `json:"className"`
		Description string  `json:"description"`
		JSON        *string `json:"json"`
	}
	raw, err := json.Marshal(d.Export())
	if err == nil {
		err = json.Unmarshal(raw, &desc)
	}
	if err != nil {
		return &runtime.RemoteObject{Type: runtime.TypeObject, Description: err.Error()}
	}

	obj := &runtime.RemoteObject{
		Type:        runtime.Type(desc.Type),
		Subtype:     runtime.Subtype(desc.Subtype),
		ClassName:   desc.ClassName,
		Description: desc.Description,
	}
	if desc.JSON != nil {
		obj.Value = easyjson.RawMessage(*desc.JSON)
	}
	return obj
}

// Run evaluates script on the loop and returns its exported result. It is
// meant for test setup and assertions.
func (a *App) Run(script string) (any, error) {
	type result struct {
		v   any
		err error
	}
	ch := make(chan result, 1)
	if !a.post(func() {
		v, err := a.vm.RunString(script)
		if err != nil {
			ch <- result{err: err}
			return
		}
		ch <- result{v: v.Export()}
	}) {
		return nil, ErrStopped
	}
	select {
	case r := <-ch:
		return r.v, r.err
	case <-a.done:
		return nil, ErrStopped
	}
}

// Keys returns the draft keys currently registered.
func (a *App) Keys() []string {
	v, err := a.Run(`Array.from(window.MailApp.composer.sessions.keys())`)
	if err != nil {
		return nil
	}
	raw, _ := v.([]any)
	keys := make([]string, 0, len(raw))
	for _, k := range raw {
		keys = append(keys, fmt.Sprint(k))
	}
	return keys
}

// Discard removes a draft as if the user closed it in the app.
func (a *App) Discard(key string) error {
	_, err := a.Run(fmt.Sprintf(`window.MailApp.composer.sessions.delete(%q)`, key))
	return err
}

// Draft returns the raw state of a draft, or nil if it does not exist.
func (a *App) Draft(key string) map[string]any {
	v, err := a.Run(fmt.Sprintf(`(function () {
	var d = window.MailApp.composer.sessions.get(%q);
	return d ? JSON.parse(JSON.stringify(d)) : null;
})()`, key))
	if err != nil || v == nil {
		return nil
	}
	m, _ := v.(map[string]any)
	return m
}

// Install serves the app's Runtime and Page domains on b.
func (a *App) Install(b *cdptest.Browser) {
	b.Handle("Runtime.enable", cdptest.Ack)
	b.Handle("Page.enable", cdptest.Ack)
	b.Handle("Page.bringToFront", cdptest.Ack)
	b.Handle("Runtime.evaluate", func(c *cdptest.Call) {
		var params runtime.EvaluateParams
		if err := c.Decode(&params); err != nil {
			c.Fail(-32602, err.Error())
			return
		}
		// Awaited promises may settle much later; do not block the peer.
		go func() {
			ret, err := a.Evaluate(context.Background(), &params)
			if err != nil {
				c.Fail(-32000, err.Error())
				return
			}
			c.Reply(ret)
		}()
	})
}
