package evaluator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/mailru/easyjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/mailcdp/internal/cdp"
	"github.com/teemow/mailcdp/internal/cdp/cdptest"
	"github.com/teemow/mailcdp/internal/domains"
	"github.com/teemow/mailcdp/internal/logging"
)

type stubRuntime struct {
	params *runtime.EvaluateParams
	ret    *runtime.EvaluateReturns
	err    error
}

func (s *stubRuntime) Evaluate(_ context.Context, params *runtime.EvaluateParams) (*runtime.EvaluateReturns, error) {
	s.params = params
	return s.ret, s.err
}

func value(raw string) *runtime.EvaluateReturns {
	return &runtime.EvaluateReturns{Result: &runtime.RemoteObject{Type: runtime.TypeObject, Value: easyjson.RawMessage(raw)}}
}

func TestEvaluate_PassesOptions(t *testing.T) {
	rt := &stubRuntime{ret: value(`{}`)}
	ev := New(rt, logging.Discard(), nil)

	_, err := ev.Evaluate(context.Background(), "1+1", Options{WaitForPromise: true, SerializeResult: true})
	require.NoError(t, err)
	assert.Equal(t, "1+1", rt.params.Expression)
	assert.True(t, rt.params.AwaitPromise)
	assert.True(t, rt.params.ReturnByValue)

	_, err = ev.Evaluate(context.Background(), "2", Options{})
	require.NoError(t, err)
	assert.False(t, rt.params.AwaitPromise)
	assert.False(t, rt.params.ReturnByValue)
}

func TestEvaluate_Exceptions(t *testing.T) {
	tests := []struct {
		name    string
		details *runtime.ExceptionDetails
		want    string
	}{
		{
			name: "error object",
			details: &runtime.ExceptionDetails{
				Text: "Uncaught",
				Exception: &runtime.RemoteObject{
					Type:        runtime.TypeObject,
					Subtype:     runtime.SubtypeError,
					ClassName:   "Error",
					Description: "Error: boom\n    at <anonymous>:1:7",
				},
			},
			want: "boom",
		},
		{
			name: "type error keeps message verbatim",
			details: &runtime.ExceptionDetails{
				Text: "Uncaught",
				Exception: &runtime.RemoteObject{
					Type:        runtime.TypeObject,
					Subtype:     runtime.SubtypeError,
					ClassName:   "TypeError",
					Description: "TypeError: Cannot read properties of undefined (reading 'subject')\n    at <anonymous>:3:20",
				},
			},
			want: "Cannot read properties of undefined (reading 'subject')",
		},
		{
			name: "multi-line message keeps every line",
			details: &runtime.ExceptionDetails{
				Text: "Uncaught",
				Exception: &runtime.RemoteObject{
					Type:        runtime.TypeObject,
					Subtype:     runtime.SubtypeError,
					ClassName:   "Error",
					Description: "Error: save failed\nserver said 409\n    at <anonymous>:1:7\n    at save (app.js:10:3)",
				},
			},
			want: "save failed\nserver said 409",
		},
		{
			name: "thrown string",
			details: &runtime.ExceptionDetails{
				Text:      "Uncaught",
				Exception: &runtime.RemoteObject{Type: runtime.TypeString, Value: easyjson.RawMessage(`"draft not found: k1"`)},
			},
			want: "draft not found: k1",
		},
		{
			name: "thrown number",
			details: &runtime.ExceptionDetails{
				Text:      "Uncaught",
				Exception: &runtime.RemoteObject{Type: runtime.TypeNumber, Value: easyjson.RawMessage(`42`)},
			},
			want: "42",
		},
		{
			name:    "text only",
			details: &runtime.ExceptionDetails{Text: "Uncaught (in promise)"},
			want:    "Uncaught (in promise)",
		},
		{
			name:    "nothing at all",
			details: &runtime.ExceptionDetails{},
			want:    "remote evaluation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := &stubRuntime{ret: &runtime.EvaluateReturns{
				Result:           &runtime.RemoteObject{Type: runtime.TypeObject},
				ExceptionDetails: tt.details,
			}}

			out, err := New(rt, logging.Discard(), nil).Evaluate(context.Background(), "x", Options{})
			require.NoError(t, err, "remote exceptions are data, not errors")
			assert.True(t, out.Failed)
			assert.Equal(t, tt.want, out.Message)
			assert.False(t, out.Bool())

			var v any
			assert.Error(t, out.Decode(&v))
		})
	}
}

func TestEvaluate_TransportError(t *testing.T) {
	rt := &stubRuntime{err: &cdp.TransportError{Op: "close", Err: cdp.ErrClosed}}

	out, err := New(rt, logging.Discard(), nil).Evaluate(context.Background(), "x", Options{})
	assert.Nil(t, out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, cdp.ErrClosed))
}

func TestOutcome_Values(t *testing.T) {
	ev := New(&stubRuntime{ret: value(`{"id":"d1","subject":"Hi","to":["a@example.com"],"dirty":false}`)}, logging.Discard(), nil)

	out, err := ev.Evaluate(context.Background(), "x", Options{SerializeResult: true})
	require.NoError(t, err)
	assert.False(t, out.Failed)
	assert.False(t, out.Undefined())
	assert.True(t, out.Bool())
	assert.Equal(t, "Hi", out.Get("subject").String())
	assert.Equal(t, "a@example.com", out.Get("to.0").String())
	assert.False(t, out.Get("dirty").Bool())

	var decoded struct {
		ID string `json:"id"`
	}
	require.NoError(t, out.Decode(&decoded))
	assert.Equal(t, "d1", decoded.ID)

	_, ok := out.String()
	assert.False(t, ok)
}

func TestOutcome_Scalars(t *testing.T) {
	tests := []struct {
		name      string
		ret       *runtime.EvaluateReturns
		truthy    bool
		undefined bool
	}{
		{name: "true", ret: value(`true`), truthy: true},
		{name: "false", ret: value(`false`)},
		{name: "zero", ret: value(`0`)},
		{name: "number", ret: value(`3`), truthy: true},
		{name: "empty string", ret: value(`""`)},
		{name: "string", ret: value(`"k"`), truthy: true},
		{name: "null", ret: value(`null`)},
		{name: "undefined", ret: &runtime.EvaluateReturns{Result: &runtime.RemoteObject{Type: runtime.TypeUndefined}}, undefined: true},
		{name: "missing result", ret: &runtime.EvaluateReturns{}, undefined: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := New(&stubRuntime{ret: tt.ret}, logging.Discard(), nil).Evaluate(context.Background(), "x", Options{SerializeResult: true})
			require.NoError(t, err)
			assert.Equal(t, tt.truthy, out.Bool())
			assert.Equal(t, tt.undefined, out.Undefined())
		})
	}
}

func TestOutcome_NotSerialized(t *testing.T) {
	rt := &stubRuntime{ret: &runtime.EvaluateReturns{Result: &runtime.RemoteObject{
		Type:        runtime.TypeObject,
		ClassName:   "Window",
		Description: "Window",
	}}}

	out, err := New(rt, logging.Discard(), nil).Evaluate(context.Background(), "window", Options{})
	require.NoError(t, err)
	assert.False(t, out.Undefined())
	assert.Equal(t, "Window", out.Description)

	var v any
	assert.ErrorIs(t, out.Decode(&v), ErrNoValue)
}

func TestEvaluate_OverWire(t *testing.T) {
	b := cdptest.NewBrowser(t)
	b.AddPage("p1", "Mail", "app://mail/")
	b.Handle("Runtime.evaluate", func(c *cdptest.Call) {
		c.Reply(&runtime.EvaluateReturns{
			Result: &runtime.RemoteObject{Type: runtime.TypeObject, Subtype: runtime.SubtypeError, ClassName: "Error"},
			ExceptionDetails: &runtime.ExceptionDetails{
				ExceptionID: 1,
				Text:        "Uncaught",
				Exception: &runtime.RemoteObject{
					Type:        runtime.TypeObject,
					Subtype:     runtime.SubtypeError,
					ClassName:   "Error",
					Description: "Error: compose registry unavailable\n    at <anonymous>:1:7",
				},
			},
		})
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := cdp.Dial(ctx, b.SocketURL("p1"), cdp.WithLogger(logging.Discard()))
	require.NoError(t, err)
	defer conn.Close()

	ev := New(domains.NewRuntime(conn, conn.Events()), logging.Discard(), nil)
	out, err := ev.Evaluate(ctx, `throw new Error("compose registry unavailable")`, Options{SerializeResult: true})
	require.NoError(t, err)
	assert.True(t, out.Failed)
	assert.Equal(t, "compose registry unavailable", out.Message)
}
