package cdp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto"
	"github.com/gorilla/websocket"
	"github.com/mailru/easyjson"
	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"

	"github.com/teemow/mailcdp/internal/instrumentation"
	"github.com/teemow/mailcdp/internal/logging"
)

const (
	closeWriteTimeout = time.Second
	debugFrameLimit   = 512
)

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the logger used for frame and lifecycle logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Conn) { c.logger = logger }
}

// WithMetrics sets the metrics recorder for commands and events.
func WithMetrics(metrics *instrumentation.Metrics) Option {
	return func(c *Conn) { c.metrics = metrics }
}

// WithEventBus sets the bus that receives event frames. Without it the
// connection creates its own.
func WithEventBus(bus *EventBus) Option {
	return func(c *Conn) { c.bus = bus }
}

// WithDialer overrides the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Conn) { c.dialer = d }
}

// Conn is a CDP connection to a single debuggable target.
type Conn struct {
	url     string
	ws      *websocket.Conn
	dialer  *websocket.Dialer
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	bus     *EventBus

	msgID atomic.Int64

	// wmu serializes frame writes; gorilla allows one concurrent writer.
	wmu sync.Mutex

	mu      sync.Mutex
	pending map[int64]chan reply
	closed  bool
	err     error

	done      chan struct{}
	readDone  chan struct{}
	closeOnce sync.Once
}

type reply struct {
	msg *cdproto.Message
	err error
}

// Dial opens a WebSocket to socketEndpoint and starts the read loop.
func Dial(ctx context.Context, socketEndpoint string, opts ...Option) (*Conn, error) {
	c := &Conn{
		url:      socketEndpoint,
		dialer:   websocket.DefaultDialer,
		pending:  make(map[int64]chan reply),
		done:     make(chan struct{}),
		readDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrDefault(c.logger).With(slog.String("component", "cdp"))
	if c.bus == nil {
		c.bus = NewEventBus(c.logger, c.metrics)
	}

	ws, resp, err := c.dialer.DialContext(ctx, socketEndpoint, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, &TransportError{Op: "dial", Err: err}
	}
	c.ws = ws

	go c.readLoop()

	c.logger.Debug("connected", slog.String("url", socketEndpoint))
	return c, nil
}

// URL returns the socket endpoint the connection was opened against.
func (c *Conn) URL() string {
	return c.url
}

// Events returns the bus that receives this connection's event frames.
func (c *Conn) Events() *EventBus {
	return c.bus
}

// Done is closed once the connection has been torn down.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the teardown cause, or nil while the connection is open.
func (c *Conn) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Send issues "<domain>.<method>" with params and waits for the matching
// response. Remote error frames are returned as *ProtocolError. Params that
// implement easyjson.Marshaler (all cdproto params do) are encoded with
// easyjson; anything else goes through encoding/json.
func (c *Conn) Send(ctx context.Context, domain, method string, params any) (json.RawMessage, error) {
	qualified := domain + "." + method

	buf, err := marshalParams(params)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s params: %w", qualified, err)
	}

	ctx, span := instrumentation.StartCommandSpan(ctx, qualified)
	defer span.End()

	start := time.Now()
	id := c.msgID.Add(1)
	ch := make(chan reply, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		err := &TransportError{Op: "send", Method: qualified, Err: ErrClosed}
		instrumentation.SetSpanError(span, err)
		c.metrics.RecordCommand(ctx, qualified, instrumentation.StatusGone, 0)
		return nil, err
	}
	c.pending[id] = ch
	c.mu.Unlock()

	msg := &cdproto.Message{
		ID:     id,
		Method: cdproto.MethodType(qualified),
		Params: buf,
	}
	if err := c.write(msg); err != nil {
		c.forget(id)
		werr := c.writeFailure(qualified, err)
		instrumentation.SetSpanError(span, werr)
		status := instrumentation.StatusError
		if IsClosed(werr) {
			status = instrumentation.StatusGone
		}
		c.metrics.RecordCommand(ctx, qualified, status, time.Since(start))
		return nil, werr
	}

	select {
	case r := <-ch:
		duration := time.Since(start)
		switch {
		case r.err != nil:
			instrumentation.SetSpanError(span, r.err)
			c.metrics.RecordCommand(ctx, qualified, instrumentation.StatusGone, duration)
			return nil, r.err
		case r.msg.Error != nil:
			perr := &ProtocolError{Method: qualified, Code: r.msg.Error.Code, Message: r.msg.Error.Message}
			instrumentation.SetSpanError(span, perr)
			c.metrics.RecordCommand(ctx, qualified, instrumentation.StatusError, duration)
			return nil, perr
		}
		instrumentation.SetSpanSuccess(span)
		c.metrics.RecordCommand(ctx, qualified, instrumentation.StatusSuccess, duration)
		return json.RawMessage(r.msg.Result), nil

	case <-ctx.Done():
		c.forget(id)
		instrumentation.SetSpanError(span, ctx.Err())
		c.metrics.RecordCommand(ctx, qualified, instrumentation.StatusError, time.Since(start))
		return nil, ctx.Err()
	}
}

func marshalParams(params any) (easyjson.RawMessage, error) {
	switch p := params.(type) {
	case nil:
		return nil, nil
	case easyjson.Marshaler:
		return easyjson.Marshal(p)
	case json.RawMessage:
		return easyjson.RawMessage(p), nil
	default:
		return json.Marshal(p)
	}
}

func (c *Conn) write(msg *cdproto.Message) error {
	var w jwriter.Writer
	msg.MarshalEasyJSON(&w)
	if w.Error != nil {
		return w.Error
	}
	buf, err := w.BuildBytes()
	if err != nil {
		return err
	}

	if c.logger.Enabled(context.Background(), slog.LevelDebug) {
		c.logger.Debug("send", slog.String("frame", logging.Truncate(string(buf), debugFrameLimit)))
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, buf)
}

// writeFailure maps a failed frame write to the error returned by Send. A
// write that lost the race against teardown reports the teardown cause.
func (c *Conn) writeFailure(method string, err error) error {
	c.mu.Lock()
	closed, cause := c.closed, c.err
	c.mu.Unlock()
	if closed {
		if cause == nil {
			cause = ErrClosed
		}
		return &TransportError{Op: "send", Method: method, Err: cause}
	}
	return &TransportError{Op: "write", Method: method, Err: err}
}

func (c *Conn) forget(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Conn) readLoop() {
	defer close(c.readDone)

	for {
		_, buf, err := c.ws.ReadMessage()
		if err != nil {
			cause := &TransportError{Op: "read", Err: fmt.Errorf("%w: %w", ErrClosed, err)}
			if c.teardown(cause) {
				c.logger.Warn("connection lost", logging.Err(err))
			}
			_ = c.ws.Close()
			return
		}

		if c.logger.Enabled(context.Background(), slog.LevelDebug) {
			c.logger.Debug("recv", slog.String("frame", logging.Truncate(string(buf), debugFrameLimit)))
		}

		var msg cdproto.Message
		lexer := jlexer.Lexer{Data: buf}
		msg.UnmarshalEasyJSON(&lexer)
		if err := lexer.Error(); err != nil {
			c.logger.Warn("ignoring undecodable frame", logging.Err(err))
			continue
		}

		switch {
		case msg.ID != 0:
			c.settle(&msg)
		case msg.Method != "":
			c.bus.Dispatch(string(msg.Method), json.RawMessage(msg.Params))
		default:
			c.logger.Warn("ignoring malformed frame without id or method")
		}
	}
}

func (c *Conn) settle(msg *cdproto.Message) {
	c.mu.Lock()
	ch, ok := c.pending[msg.ID]
	delete(c.pending, msg.ID)
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("dropping response for unknown id", slog.Int64("id", msg.ID))
		return
	}
	ch <- reply{msg: msg}
}

// teardown marks the connection closed and fails every pending request with
// cause. It reports whether this call performed the teardown.
func (c *Conn) teardown(cause error) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.closed = true
	c.err = cause
	pending := c.pending
	c.pending = make(map[int64]chan reply)
	c.mu.Unlock()

	for _, ch := range pending {
		ch <- reply{err: cause}
	}
	close(c.done)
	return true
}

// Close tears the connection down. It is safe to call more than once; calls
// after the first return nil.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		if !c.teardown(&TransportError{Op: "close", Err: ErrClosed}) {
			// The peer already went away and the read loop closed the socket.
			<-c.readDone
			return
		}

		c.wmu.Lock()
		werr := c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeWriteTimeout))
		c.wmu.Unlock()
		if werr != nil && !errors.Is(werr, websocket.ErrCloseSent) {
			c.logger.Debug("failed to send close frame", logging.Err(werr))
		}

		err = c.ws.Close()
		<-c.readDone
		c.logger.Debug("closed")
	})
	return err
}
