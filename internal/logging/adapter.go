package logging

import (
	"log/slog"
)

// CronAdapter adapts an slog.Logger to the logger interface expected by
// robfig/cron, so scheduler events share the application's handler.
type CronAdapter struct {
	logger *slog.Logger
}

// NewCronAdapter wraps logger. If logger is nil, slog.Default() is used.
func NewCronAdapter(logger *slog.Logger) *CronAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &CronAdapter{logger: logger}
}

// Info logs routine scheduler messages at debug level; cron reports every
// wake-up and job start through it.
func (a *CronAdapter) Info(msg string, keysAndValues ...interface{}) {
	a.logger.Debug(msg, keysAndValues...)
}

// Error logs scheduler failures such as recovered job panics.
func (a *CronAdapter) Error(err error, msg string, keysAndValues ...interface{}) {
	a.logger.Error(msg, append(keysAndValues, KeyError, err.Error())...)
}

// Logger returns the underlying slog.Logger.
func (a *CronAdapter) Logger() *slog.Logger {
	return a.logger
}
