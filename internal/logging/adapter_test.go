package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/robfig/cron/v3"
)

var _ cron.Logger = (*CronAdapter)(nil)

func TestNewCronAdapter_WithNil(t *testing.T) {
	adapter := NewCronAdapter(nil)
	if adapter.Logger() == nil {
		t.Error("adapter logger should not be nil when created with nil")
	}
}

func TestCronAdapter_Levels(t *testing.T) {
	var buf bytes.Buffer
	adapter := NewCronAdapter(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))

	adapter.Info("wake", "now", "12:00")
	if buf.Len() != 0 {
		t.Errorf("Info should log at debug level, got %q", buf.String())
	}

	adapter.Error(errors.New("boom"), "panic", "stack", "...")
	out := buf.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "error=boom") {
		t.Errorf("unexpected error line %q", out)
	}
}
