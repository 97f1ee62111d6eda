// Package logging provides structured logging helpers for schedsync.
//
// All packages log through log/slog; this package only fixes attribute
// names and keeps personal data out of log lines.
//
// Attach the operation once and add per-event attributes:
//
//	logger := logging.WithOperation(slog.Default(), "schedule.extract")
//	logger.Warn("skipping cell", logging.Cell("C7"), logging.Err(err))
//
// Person emails are hashed before they reach a handler:
//
//	logger.Info("sync completed", logging.UserHash(email))
//
// OAuth tokens are never logged.
package logging
