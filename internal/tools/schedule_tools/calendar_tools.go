package schedule_tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/nubip/schedsync/internal/calendar"
	"github.com/nubip/schedsync/internal/ics"
	"github.com/nubip/schedsync/internal/lms"
	"github.com/nubip/schedsync/internal/server"
	calsync "github.com/nubip/schedsync/internal/sync"
	"github.com/nubip/schedsync/internal/tools/batch"
	"github.com/nubip/schedsync/internal/tools/common"
)

// ProductID is the PRODID of exported iCalendar files.
const ProductID = "-//NUBIP//schedsync//UK"

type eventView struct {
	UID         string `json:"uid"`
	Summary     string `json:"summary"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	Start       string `json:"start"`
	End         string `json:"end"`
	TimeZone    string `json:"timeZone,omitempty"`
	Interval    int    `json:"intervalWeeks"`
	Until       string `json:"until"`
}

type previewView struct {
	Role   string      `json:"role"`
	Events []eventView `json:"events"`
}

func newEventView(e calendar.Event) eventView {
	return eventView{
		UID:         e.UID,
		Summary:     e.Summary,
		Location:    e.Location,
		Description: e.Description,
		Start:       e.Start.Format(time.RFC3339),
		End:         e.End.Format(time.RFC3339),
		TimeZone:    e.TimeZone,
		Interval:    e.Interval,
		Until:       e.Until.Format(time.DateOnly),
	}
}

// syncErrorResult turns the person-level sync failures into messages a
// user can act on.
func syncErrorResult(email string, err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, calsync.ErrNoActiveLessons):
		return mcp.NewToolResultError(fmt.Sprintf("No active lessons found for %s", email))
	case errors.Is(err, calsync.ErrCredentialMissing), errors.Is(err, calsync.ErrCredentialInvalid):
		return mcp.NewToolResultError(fmt.Sprintf("%v; run `schedsync auth login --email %s`", err, email))
	case errors.Is(err, lms.ErrPersonNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("%s is not registered in the LMS", email))
	}
	return mcp.NewToolResultError(fmt.Sprintf("Calendar sync failed for %s: %v", email, err))
}

func registerCalendarTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	previewTool := mcp.NewTool("preview_calendar",
		mcp.WithDescription("Show the calendar events a person's lessons map to, without touching their calendar"),
		mcp.WithReadOnlyHintAnnotation(true),
		emailParam,
	)
	addTool(s, sc, previewTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		syncer := sc.Syncer()
		if syncer == nil {
			return mcp.NewToolResultError("calendar sync is not configured on this server"), nil
		}
		email, err := common.PersonFromArgs(request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		role, events, err := syncer.PersonEvents(ctx, email)
		if err != nil {
			return syncErrorResult(email, err), nil
		}
		view := previewView{Role: role.String(), Events: make([]eventView, 0, len(events))}
		for _, e := range events {
			view.Events = append(view.Events, newEventView(e))
		}
		return jsonResult(view)
	})

	exportTool := mcp.NewTool("export_ics",
		mcp.WithDescription("Export a person's lessons as an iCalendar document"),
		mcp.WithReadOnlyHintAnnotation(true),
		emailParam,
	)
	addTool(s, sc, exportTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		syncer := sc.Syncer()
		if syncer == nil {
			return mcp.NewToolResultError("calendar sync is not configured on this server"), nil
		}
		email, err := common.PersonFromArgs(request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		_, events, err := syncer.PersonEvents(ctx, email)
		if err != nil {
			return syncErrorResult(email, err), nil
		}
		var buf bytes.Buffer
		if err := ics.Write(&buf, events, ics.Options{ProductID: ProductID, Name: sc.CalendarName()}); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to build calendar: %v", err)), nil
		}
		return mcp.NewToolResultText(buf.String()), nil
	})

	if readOnly {
		return nil
	}

	syncTool := mcp.NewTool("sync_calendar",
		mcp.WithDescription("Bring a person's Google Calendar in line with their current lessons"),
		emailParam,
	)
	addTool(s, sc, syncTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		syncer := sc.Syncer()
		if syncer == nil {
			return mcp.NewToolResultError("calendar sync is not configured on this server"), nil
		}
		email, err := common.PersonFromArgs(request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		result, err := syncer.SyncPerson(ctx, email)
		if err != nil {
			return syncErrorResult(email, err), nil
		}
		return jsonResult(result)
	})

	syncManyTool := mcp.NewTool("sync_calendars",
		mcp.WithDescription("Sync the Google Calendars of several people and report the outcome for each"),
		mcp.WithArray("emails",
			mcp.Required(),
			mcp.Description("Emails of the students or teachers"),
			mcp.WithStringItems(),
		),
	)
	addTool(s, sc, syncManyTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		syncer := sc.Syncer()
		if syncer == nil {
			return mcp.NewToolResultError("calendar sync is not configured on this server"), nil
		}
		emails, err := batch.ParseList(request.GetArguments()["emails"], "emails")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		results := batch.Run(ctx, emails, func(ctx context.Context, raw string) (string, error) {
			email, err := common.NormalizeEmail(raw)
			if err != nil {
				return "", err
			}
			result, err := syncer.SyncPerson(ctx, email)
			if errors.Is(err, calsync.ErrNoActiveLessons) {
				return "no active lessons", nil
			}
			if err != nil {
				return "", err
			}
			return result.String(), nil
		})
		return mcp.NewToolResultText(batch.Summarize(results).JSON()), nil
	})

	clearTool := mcp.NewTool("clear_calendar",
		mcp.WithDescription("Delete every schedule event from a person's Google Calendar"),
		mcp.WithDestructiveHintAnnotation(true),
		emailParam,
	)
	addTool(s, sc, clearTool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		syncer := sc.Syncer()
		if syncer == nil {
			return mcp.NewToolResultError("calendar sync is not configured on this server"), nil
		}
		email, err := common.PersonFromArgs(request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		n, err := syncer.ClearPerson(ctx, email)
		if err != nil {
			return syncErrorResult(email, err), nil
		}
		return mcp.NewToolResultText(fmt.Sprintf("deleted %d events", n)), nil
	})

	return nil
}
