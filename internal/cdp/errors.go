package cdp

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a connection that has been torn down.
var ErrClosed = errors.New("connection closed")

// TransportError is a socket level failure. Requests pending when the
// connection goes away fail with a TransportError wrapping ErrClosed.
type TransportError struct {
	Op     string
	Method string
	Err    error
}

func (e *TransportError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("cdp %s %s: %v", e.Op, e.Method, e.Err)
	}
	return fmt.Sprintf("cdp %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ProtocolError is an error frame returned by the remote end for a command.
type ProtocolError struct {
	Method  string
	Code    int64
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("cdp %s: %s (%d)", e.Method, e.Message, e.Code)
}

// IsClosed reports whether err was caused by connection teardown.
func IsClosed(err error) bool {
	return errors.Is(err, ErrClosed)
}
