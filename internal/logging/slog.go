package logging

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
)

// Common log attribute keys for consistent naming across the codebase.
const (
	KeyOperation = "operation"
	KeyUserHash  = "user_hash"
	KeyDuration  = "duration"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyTool      = "tool"
	KeyFile      = "file"
	KeyCell      = "cell"
	KeySemester  = "semester_id"
	KeyLesson    = "lesson_id"
)

// Status values, mirrored by the instrumentation package.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// WithOperation returns a logger with the operation attribute set.
func WithOperation(logger *slog.Logger, operation string) *slog.Logger {
	return logger.With(slog.String(KeyOperation, operation))
}

// WithPerson returns a logger carrying the anonymized person email.
func WithPerson(logger *slog.Logger, email string) *slog.Logger {
	return logger.With(UserHash(email))
}

// Tool returns a slog attribute for the tool name.
func Tool(tool string) slog.Attr {
	return slog.String(KeyTool, tool)
}

// Status returns a slog attribute for the status.
func Status(status string) slog.Attr {
	return slog.String(KeyStatus, status)
}

// File returns a slog attribute for a schedule file path.
func File(path string) slog.Attr {
	return slog.String(KeyFile, path)
}

// Cell returns a slog attribute for a worksheet cell reference such as "C7".
func Cell(ref string) slog.Attr {
	return slog.String(KeyCell, ref)
}

// Semester returns a slog attribute for a semester id.
func Semester(id int64) slog.Attr {
	return slog.Int64(KeySemester, id)
}

// Lesson returns a slog attribute for a lesson's stable identifier.
func Lesson(id string) slog.Attr {
	return slog.String(KeyLesson, id)
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
// The same address always maps to the same value, so entries stay correlatable.
func AnonymizeEmail(email string) string {
	if email == "" {
		return ""
	}
	hash := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "user:" + hex.EncodeToString(hash[:8])
}

// UserHash returns a slog attribute with the anonymized user email.
//
// Usage:
//
//	logger.Info("sync completed", logging.UserHash(email))
func UserHash(email string) slog.Attr {
	return slog.String(KeyUserHash, AnonymizeEmail(email))
}

// ExtractDomain returns the part of an email after the @, or "" when the
// address is malformed.
func ExtractDomain(email string) string {
	_, domain, ok := strings.Cut(email, "@")
	if !ok || domain == "" || strings.Contains(domain, "@") {
		return ""
	}
	return domain
}
