// Package cdp implements the Chrome DevTools Protocol transport used to talk
// to the mail application's debuggable page.
//
// A Conn owns one WebSocket. Commands are sent with monotonically increasing
// ids and may be pipelined: any number of Send calls can be outstanding, and
// each response is routed strictly by id. Frames without an id but with a
// method are events and are handed to the EventBus on the read loop.
//
// Closing a Conn is idempotent. Requests still waiting for a response when the
// connection closes, locally or because the peer went away, fail with a
// *TransportError that matches ErrClosed.
//
// Example:
//
//	bus := cdp.NewEventBus(logger, metrics)
//	conn, err := cdp.Dial(ctx, target.SocketEndpoint, cdp.WithEventBus(bus))
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//
//	raw, err := conn.Send(ctx, "Runtime", "evaluate", params)
package cdp
