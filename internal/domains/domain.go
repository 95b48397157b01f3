package domains

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mailru/easyjson"

	"github.com/teemow/mailcdp/internal/cdp"
	"github.com/teemow/mailcdp/internal/logging"
)

// Caller sends a single CDP command. *cdp.Conn implements it.
type Caller interface {
	Send(ctx context.Context, domain, method string, params any) (json.RawMessage, error)
}

// Subscriber registers event handlers. *cdp.EventBus implements it.
type Subscriber interface {
	On(event string, fn cdp.Handler) func()
}

func call(ctx context.Context, c Caller, domain, method string, params any, ret easyjson.Unmarshaler) error {
	raw, err := c.Send(ctx, domain, method, params)
	if err != nil {
		return err
	}
	if ret == nil || len(raw) == 0 {
		return nil
	}
	if err := easyjson.Unmarshal(raw, ret); err != nil {
		return fmt.Errorf("failed to decode %s.%s result: %w", domain, method, err)
	}
	return nil
}

// subscribe decodes event params into a fresh E before calling fn. Frames
// that do not decode are dropped.
func subscribe[E any, P interface {
	*E
	easyjson.Unmarshaler
}](bus Subscriber, event string, fn func(P)) func() {
	return bus.On(event, func(params json.RawMessage) {
		ev := P(new(E))
		if err := easyjson.Unmarshal(params, ev); err != nil {
			slog.Debug("dropping undecodable event", logging.Event(event), logging.Err(err))
			return
		}
		fn(ev)
	})
}
