// Package cdptest provides an in-process stand-in for a CDP capable browser:
// a target listing endpoint plus page WebSockets whose command handlers are
// scripted by the test.
package cdptest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chromedp/cdproto"
	"github.com/gorilla/websocket"
	"github.com/mailru/easyjson"
	"github.com/mailru/easyjson/jlexer"
	"github.com/mailru/easyjson/jwriter"
)

// CodeMethodNotFound is returned for commands without a registered handler.
const CodeMethodNotFound = -32601

// Descriptor is one entry of the /json/list response.
type Descriptor struct {
	ID                   string `json:"id"`
	Type                 string `json:"type"`
	Title                string `json:"title"`
	URL                  string `json:"url"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl,omitempty"`
}

// HandlerFunc handles one command. It must call Reply or Fail exactly once,
// either before returning or later from another goroutine.
type HandlerFunc func(*Call)

// Call is a command received from the client.
type Call struct {
	ID     int64
	Method string
	Params json.RawMessage

	peer *peer
}

// Decode unmarshals the command params into v.
func (c *Call) Decode(v any) error {
	if u, ok := v.(easyjson.Unmarshaler); ok {
		return easyjson.Unmarshal(c.Params, u)
	}
	return json.Unmarshal(c.Params, v)
}

// Reply answers the command with result.
func (c *Call) Reply(result any) {
	raw, err := encode(result)
	if err != nil {
		c.Fail(-32603, err.Error())
		return
	}
	if len(raw) == 0 {
		raw = easyjson.RawMessage("{}")
	}
	c.peer.write(&cdproto.Message{ID: c.ID, Result: raw})
}

// Fail answers the command with a protocol error frame.
func (c *Call) Fail(code int64, message string) {
	c.peer.write(&cdproto.Message{ID: c.ID, Error: &cdproto.Error{Code: code, Message: message}})
}

// Ack replies with an empty result.
func Ack(c *Call) {
	c.Reply(nil)
}

// Browser is a fake DevTools endpoint.
type Browser struct {
	t      testing.TB
	Server *httptest.Server

	mu        sync.Mutex
	handlers  map[string]HandlerFunc
	targets   []Descriptor
	peers     map[*peer]struct{}
	methods   []string
	connected chan struct{}
	listing   http.HandlerFunc
}

// NewBrowser starts a fake browser that is shut down when the test ends.
func NewBrowser(t testing.TB) *Browser {
	t.Helper()

	b := &Browser{
		t:         t,
		handlers:  make(map[string]HandlerFunc),
		peers:     make(map[*peer]struct{}),
		connected: make(chan struct{}, 16),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/json/list", b.serveListing)
	mux.HandleFunc("/json", b.serveListing)
	mux.HandleFunc("/devtools/page/", b.servePage)
	b.Server = httptest.NewServer(mux)

	t.Cleanup(func() {
		b.DropConnections()
		b.Server.Close()
	})
	return b
}

// HostEndpoint returns the host:port of the listing endpoint.
func (b *Browser) HostEndpoint() string {
	return strings.TrimPrefix(b.Server.URL, "http://")
}

// SocketURL returns the page WebSocket URL for a target id.
func (b *Browser) SocketURL(id string) string {
	return "ws://" + b.HostEndpoint() + "/devtools/page/" + id
}

// AddPage registers a page target reachable through SocketURL(id).
func (b *Browser) AddPage(id, title, url string) Descriptor {
	d := Descriptor{
		ID:                   id,
		Type:                 "page",
		Title:                title,
		URL:                  url,
		WebSocketDebuggerURL: b.SocketURL(id),
	}
	b.AddTarget(d)
	return d
}

// AddTarget appends a raw descriptor to the listing.
func (b *Browser) AddTarget(d Descriptor) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.targets = append(b.targets, d)
}

// ServeListing replaces the /json/list handler, e.g. to return garbage.
func (b *Browser) ServeListing(fn http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listing = fn
}

// Handle registers fn for a fully qualified method such as "Runtime.evaluate".
func (b *Browser) Handle(method string, fn HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[method] = fn
}

// Methods returns the methods received so far, in arrival order.
func (b *Browser) Methods() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.methods...)
}

// WaitConnected blocks until a page socket has been accepted or timeout elapses.
func (b *Browser) WaitConnected(timeout time.Duration) bool {
	select {
	case <-b.connected:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Emit sends an event frame to every connected client.
func (b *Browser) Emit(method string, params any) {
	raw, err := encode(params)
	if err != nil {
		b.t.Errorf("cdptest: encoding %s params: %v", method, err)
		return
	}
	msg := &cdproto.Message{Method: cdproto.MethodType(method), Params: raw}
	for _, p := range b.snapshotPeers() {
		p.write(msg)
	}
}

// WriteRaw sends frame verbatim to every connected client.
func (b *Browser) WriteRaw(frame string) {
	for _, p := range b.snapshotPeers() {
		p.writeBytes([]byte(frame))
	}
}

// DropConnections closes every page socket without a close handshake.
func (b *Browser) DropConnections() {
	for _, p := range b.snapshotPeers() {
		_ = p.conn.Close()
	}
}

func (b *Browser) snapshotPeers() []*peer {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*peer, 0, len(b.peers))
	for p := range b.peers {
		out = append(out, p)
	}
	return out
}

func (b *Browser) serveListing(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	custom := b.listing
	targets := append([]Descriptor{}, b.targets...)
	b.mu.Unlock()

	if custom != nil {
		custom(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(targets)
}

func (b *Browser) servePage(w http.ResponseWriter, r *http.Request) {
	conn, err := (&websocket.Upgrader{}).Upgrade(w, r, w.Header())
	if err != nil {
		return
	}

	p := &peer{conn: conn}
	b.mu.Lock()
	b.peers[p] = struct{}{}
	b.mu.Unlock()

	select {
	case b.connected <- struct{}{}:
	default:
	}

	defer func() {
		b.mu.Lock()
		delete(b.peers, p)
		b.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		_, buf, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var msg cdproto.Message
		lexer := jlexer.Lexer{Data: buf}
		msg.UnmarshalEasyJSON(&lexer)
		if err := lexer.Error(); err != nil {
			continue
		}

		method := string(msg.Method)
		b.mu.Lock()
		b.methods = append(b.methods, method)
		fn := b.handlers[method]
		b.mu.Unlock()

		call := &Call{ID: msg.ID, Method: method, Params: json.RawMessage(msg.Params), peer: p}
		if fn == nil {
			call.Fail(CodeMethodNotFound, fmt.Sprintf("'%s' wasn't found", method))
			continue
		}
		fn(call)
	}
}

type peer struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (p *peer) write(msg *cdproto.Message) {
	var w jwriter.Writer
	msg.MarshalEasyJSON(&w)
	buf, err := w.BuildBytes()
	if err != nil {
		// Frames are built from values the test controls; a failure here is
		// reported on the client side as a missing response.
		return
	}
	p.writeBytes(buf)
}

func (p *peer) writeBytes(buf []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	// Write errors mean the client went away; the read loop notices.
	_ = p.conn.WriteMessage(websocket.TextMessage, buf)
}

func encode(v any) (easyjson.RawMessage, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case easyjson.Marshaler:
		return easyjson.Marshal(val)
	case json.RawMessage:
		return easyjson.RawMessage(val), nil
	default:
		return json.Marshal(val)
	}
}
