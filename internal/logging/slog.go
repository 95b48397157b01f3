package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeySession   = "session"
	KeyTarget    = "target"
	KeyMethod    = "method"
	KeyEvent     = "event"
	KeyDraftKey  = "draft_key"
	KeyField     = "field"
	KeyValue     = "value"
	KeyAttempts  = "attempts"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyError     = "error"
)

// Status values for consistent logging.
// These mirror the instrumentation label values so logs and metrics agree.
const (
	StatusSuccess   = "success"
	StatusError     = "error"
	StatusExhausted = "exhausted"
)

// New returns a text logger writing to w. Debug level is enabled when debug is true.
func New(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// OrDefault returns logger, or slog.Default() when logger is nil.
func OrDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithSession returns a logger with the session attribute set.
func WithSession(logger *slog.Logger, sessionID string) *slog.Logger {
	return logger.With(slog.String(KeySession, sessionID))
}

// Operation returns a slog attribute for the operation name.
func Operation(op string) slog.Attr {
	return slog.String(KeyOperation, op)
}

// Target returns a slog attribute for a CDP target id.
func Target(id string) slog.Attr {
	return slog.String(KeyTarget, id)
}

// Method returns a slog attribute for a fully qualified CDP method.
func Method(method string) slog.Attr {
	return slog.String(KeyMethod, method)
}

// Event returns a slog attribute for a fully qualified CDP event name.
func Event(name string) slog.Attr {
	return slog.String(KeyEvent, name)
}

// DraftKey returns a slog attribute for a remote draft key.
func DraftKey(key string) slog.Attr {
	return slog.String(KeyDraftKey, key)
}

// Field returns a slog attribute for a draft field name.
func Field(name string) slog.Attr {
	return slog.String(KeyField, name)
}

// Value returns a slog attribute for an already redacted value.
func Value(v string) slog.Attr {
	return slog.String(KeyValue, v)
}

// Attempts returns a slog attribute for a poll or retry count.
func Attempts(n int) slog.Attr {
	return slog.Int(KeyAttempts, n)
}

// Duration returns a slog attribute for an elapsed time.
func Duration(d time.Duration) slog.Attr {
	return slog.Duration(KeyDuration, d)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// Err returns a slog attribute for an error.
// If err is nil, returns an empty Group attribute that will be omitted from output.
//
// Usage:
//
//	logger.Info("operation", logging.Err(err))  // Safe even if err is nil
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Group("")
	}
	return slog.String(KeyError, err.Error())
}

// AnonymizeEmail returns a hashed representation of an email for logging purposes.
// This allows correlation of log entries without exposing PII.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "user:" + hex.EncodeToString(hash[:8])
}

// Redact returns a length marker for user content such as a draft body.
func Redact(content string) string {
	if content == "" {
		return "<empty>"
	}
	return fmt.Sprintf("[content:%d chars]", len(content))
}

// Truncate shortens s to at most n bytes for debug output, marking the cut.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n] + fmt.Sprintf("...(+%d)", len(s)-n)
}
