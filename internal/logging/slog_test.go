package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestWithOperation(t *testing.T) {
	var buf bytes.Buffer
	logger := WithOperation(slog.New(slog.NewTextHandler(&buf, nil)), "schedule.extract")
	logger.Info("done")
	if !strings.Contains(buf.String(), "operation=schedule.extract") {
		t.Errorf("log line missing operation: %q", buf.String())
	}
}

func TestWithPerson(t *testing.T) {
	var buf bytes.Buffer
	logger := WithPerson(slog.New(slog.NewTextHandler(&buf, nil)), "jane@nubip.edu.ua")
	logger.Info("sync")
	out := buf.String()
	if strings.Contains(out, "jane@nubip.edu.ua") {
		t.Errorf("log line leaks email: %q", out)
	}
	if !strings.Contains(out, KeyUserHash+"=user:") {
		t.Errorf("log line missing user hash: %q", out)
	}
}

func TestAttrs(t *testing.T) {
	tests := []struct {
		name    string
		attr    slog.Attr
		key     string
		wantVal string
	}{
		{"tool", Tool("sync_calendar"), KeyTool, "sync_calendar"},
		{"status", Status(StatusSuccess), KeyStatus, "success"},
		{"file", File("/srv/uploads/fit.xlsx"), KeyFile, "/srv/uploads/fit.xlsx"},
		{"cell", Cell("C7"), KeyCell, "C7"},
		{"semester", Semester(4), KeySemester, "4"},
		{"lesson", Lesson("0b7e"), KeyLesson, "0b7e"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.attr.Key != tt.key {
				t.Errorf("key = %q, want %q", tt.attr.Key, tt.key)
			}
			if tt.attr.Value.String() != tt.wantVal {
				t.Errorf("value = %q, want %q", tt.attr.Value.String(), tt.wantVal)
			}
		})
	}
}

func TestErr(t *testing.T) {
	attr := Err(errors.New("test error"))
	if attr.Key != KeyError {
		t.Errorf("Err key = %q, want %q", attr.Key, KeyError)
	}
	if attr.Value.String() != "test error" {
		t.Errorf("Err value = %q, want %q", attr.Value.String(), "test error")
	}

	// nil yields an empty group that slog omits
	attr = Err(nil)
	if attr.Key != "" {
		t.Errorf("Err(nil) key = %q, want empty string (empty group)", attr.Key)
	}
}

func TestAnonymizeEmail(t *testing.T) {
	if got := AnonymizeEmail(""); got != "" {
		t.Errorf("AnonymizeEmail(\"\") = %q, want empty", got)
	}

	h := AnonymizeEmail("teacher@nubip.edu.ua")
	if len(h) != 21 || !strings.HasPrefix(h, "user:") {
		t.Errorf("AnonymizeEmail() = %q, want user: + 16 hex chars", h)
	}
	if h != AnonymizeEmail("  Teacher@NUBIP.edu.ua ") {
		t.Error("AnonymizeEmail should ignore case and surrounding space")
	}
	if h == AnonymizeEmail("student@nubip.edu.ua") {
		t.Error("different emails should produce different hashes")
	}
}

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		email    string
		expected string
	}{
		{"jane@nubip.edu.ua", "nubip.edu.ua"},
		{"invalid", ""},
		{"", ""},
		{"@", ""},
		{"user@", ""},
		{"a@b@c", ""},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			if got := ExtractDomain(tt.email); got != tt.expected {
				t.Errorf("ExtractDomain(%q) = %q, want %q", tt.email, got, tt.expected)
			}
		})
	}
}
