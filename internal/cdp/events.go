package cdp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/teemow/mailcdp/internal/instrumentation"
	"github.com/teemow/mailcdp/internal/logging"
)

// Handler receives the raw params of an event frame.
//
// Handlers run on the connection's read loop. They must not block on a
// command response from the same connection; hand the work to another
// goroutine instead.
type Handler func(params json.RawMessage)

type subscription struct {
	fn Handler
}

// EventBus is a per-event-name registry of handlers fed by a Conn's read loop.
type EventBus struct {
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	mu       sync.RWMutex
	handlers map[string][]*subscription
}

// NewEventBus returns an empty bus. A nil logger uses slog.Default and a nil
// metrics recorder records nothing.
func NewEventBus(logger *slog.Logger, metrics *instrumentation.Metrics) *EventBus {
	return &EventBus{
		logger:   logging.OrDefault(logger),
		metrics:  metrics,
		handlers: make(map[string][]*subscription),
	}
}

// On registers fn for the qualified event name (e.g. "Network.responseReceived").
// The returned function removes the registration and may be called more than once.
func (b *EventBus) On(event string, fn Handler) func() {
	sub := &subscription{fn: fn}

	b.mu.Lock()
	b.handlers[event] = append(b.handlers[event], sub)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(event, sub) })
	}
}

func (b *EventBus) remove(event string, sub *subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[event]
	for i, s := range subs {
		if s == sub {
			// Copy so an in-flight Dispatch keeps its snapshot intact.
			next := make([]*subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			if len(next) == 0 {
				delete(b.handlers, event)
			} else {
				b.handlers[event] = next
			}
			return
		}
	}
}

// Dispatch invokes every handler registered for event, in registration order.
// A panicking handler is logged and counted; the remaining handlers still run.
func (b *EventBus) Dispatch(event string, params json.RawMessage) {
	b.mu.RLock()
	subs := b.handlers[event]
	b.mu.RUnlock()

	b.metrics.RecordEvent(context.Background(), event)

	for _, sub := range subs {
		b.invoke(event, sub, params)
	}
}

func (b *EventBus) invoke(event string, sub *subscription, params json.RawMessage) {
	defer func() {
		if r := recover(); r != nil {
			b.metrics.RecordHandlerPanic(context.Background(), event)
			b.logger.Error("event handler panicked",
				logging.Event(event),
				slog.String("panic", fmt.Sprint(r)),
			)
		}
	}()
	sub.fn(params)
}

// Len returns the number of handlers registered for event.
func (b *EventBus) Len(event string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[event])
}
