// Package logging provides structured logging utilities for mailcdp.
//
// All packages log through log/slog. This package centralizes the attribute
// keys so that CDP frames, evaluations and automation steps can be correlated
// by session, method and draft key across the log stream.
//
// # Usage Patterns
//
// Create a logger scoped to an automation primitive:
//
//	logger := logging.WithOperation(slog.Default(), "compose.open")
//	logger.Info("draft opened",
//	    logging.DraftKey(key),
//	    logging.Attempts(n))
//
// Redact user content before logging:
//
//	logger.Debug("field written",
//	    logging.Field("body"),
//	    logging.Value(logging.Redact(body)))
//
// # Security Considerations
//
// Draft bodies and recipient addresses are user data. Recipient addresses are
// hashed with AnonymizeEmail and free-form content is reduced to a length
// marker by Redact; neither is ever logged verbatim.
package logging
