package cmd

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nubip/schedsync/internal/server"
	"github.com/nubip/schedsync/internal/store"
)

func TestRegisterAllTools(t *testing.T) {
	tests := []struct {
		name     string
		readOnly bool
		present  []string
		absent   []string
	}{
		{
			name:     "read-only",
			readOnly: true,
			present:  []string{"list_semesters", "list_lessons", "preview_calendar", "export_ics"},
			absent:   []string{"import_schedule", "sync_calendar", "sync_calendars", "clear_calendar", "set_meeting_url"},
		},
		{
			name:     "write",
			readOnly: false,
			present:  []string{"list_semesters", "import_schedule", "queue_schedule", "sync_calendar", "sync_calendars", "clear_calendar", "set_lesson_type"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := server.NewServerContext(context.Background(), server.Services{
				Store:  store.NewMemory(),
				Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
			})
			require.NoError(t, err)
			defer func() { _ = sc.Shutdown() }()

			s := mcpserver.NewMCPServer("test", "0", mcpserver.WithToolCapabilities(true))
			require.NoError(t, registerAllTools(s, sc, tt.readOnly))

			for _, name := range tt.present {
				assert.NotNil(t, s.GetTool(name), name)
			}
			for _, name := range tt.absent {
				assert.Nil(t, s.GetTool(name), name)
			}
		})
	}
}

func TestRunGenerateDocs(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, runGenerateDocs(context.Background(), &buf))

	out := buf.String()
	assert.Contains(t, out, "# MCP Tools Reference")
	assert.Contains(t, out, "- [Calendar Tools](#calendar-tools)")
	assert.Contains(t, out, "## Lesson Tools")
	assert.Contains(t, out, "### sync_calendar")
	assert.Contains(t, out, "- `email` (required): ")
	assert.Contains(t, out, "- `semester_id` (optional): ")
	assert.Contains(t, out, "One of: `lecture`, `practice`, `unknown`.")

	syncDoc := out[strings.Index(out, "### sync_calendar\n"):]
	assert.Contains(t, syncDoc[:strings.Index(syncDoc, "**Arguments:**")], "*requires `--yolo`*")
	listDoc := out[strings.Index(out, "### list_lessons\n"):]
	assert.NotContains(t, listDoc[:strings.Index(listDoc, "**Arguments:**")], "requires `--yolo`")
}

func TestGetCategoryFromToolName(t *testing.T) {
	tests := map[string]string{
		"import_schedule":  "Schedule Tools",
		"queue_schedule":   "Schedule Tools",
		"list_semesters":   "Schedule Tools",
		"list_lessons":     "Lesson Tools",
		"set_meeting_url":  "Lesson Tools",
		"set_lesson_type":  "Lesson Tools",
		"sync_calendar":    "Calendar Tools",
		"sync_calendars":   "Calendar Tools",
		"preview_calendar": "Calendar Tools",
		"export_ics":       "Calendar Tools",
		"something_else":   "Other",
	}
	for name, want := range tests {
		assert.Equal(t, want, getCategoryFromToolName(name), name)
	}
}

func TestRootCommand(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"import", "upload", "watch", "sync", "clear", "export", "lessons", "semester", "migrate", "auth", "serve", "generate-docs", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs(nil)
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "schedsync version dev\n", buf.String())
}
